package commands

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/dyluth/encoding-music/internal/output"
	"github.com/dyluth/encoding-music/internal/printer"
	"github.com/dyluth/encoding-music/internal/spotify"
	"github.com/dyluth/encoding-music/pkg/dataset"
	"github.com/spf13/cobra"
)

var (
	spOutput   string
	spFeatures []string
	spOut      string
)

var spotifyCmd = &cobra.Command{
	Use:   "spotify",
	Short: "Analyze Spotify playlists",
	Long: `Fetch playlist tracks and their audio features from the Spotify Web API.

Requires SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET.`,
}

var spotifyPlaylistCmd = &cobra.Command{
	Use:   "playlist <id>...",
	Short: "Tabulate audio features for one or more playlists",
	Long: `Print one row per track with its audio features.

Each argument is a playlist ID, URL or URI, optionally prefixed with a label
as label=id. With more than one playlist a "playlist" column holds the label
(or the ID when no label is given).`,
	Example: `  encmusic spotify playlist 37i9dQZF1DXcBWIGoYBM5M
  encmusic spotify playlist jazz=37i9dQZF1DXbITWG1ZJKYt rock=37i9dQZF1DWXRqgorJj26U -o csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSpotifyPlaylist,
}

var spotifyUserCmd = &cobra.Command{
	Use:   "user <user>",
	Short: "Tabulate audio features across a user's public playlists",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpotifyUser,
}

var spotifyRadarCmd = &cobra.Command{
	Use:     "radar <id>",
	Short:   "Draw a radar chart of audio features for a playlist",
	Example: `  encmusic spotify radar 37i9dQZF1DXcBWIGoYBM5M --features danceability,energy,valence --out radar.svg`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSpotifyRadar,
}

func init() {
	for _, c := range []*cobra.Command{spotifyPlaylistCmd, spotifyUserCmd} {
		c.Flags().StringVarP(&spOutput, "output", "o", "table", "Output format: table, jsonl or csv")
	}
	spotifyRadarCmd.Flags().StringSliceVar(&spFeatures, "features", []string{"danceability", "energy", "speechiness", "acousticness", "liveness", "valence"}, "Audio features to plot")
	spotifyRadarCmd.Flags().StringVar(&spOut, "out", "radar.svg", "SVG file to write")

	spotifyCmd.AddCommand(spotifyPlaylistCmd, spotifyUserCmd, spotifyRadarCmd)
	rootCmd.AddCommand(spotifyCmd)
}

func newSpotifyClient(ctx context.Context) (*spotify.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	client, err := spotify.New(ctx,
		spotify.Credentials{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			TokenURL:     cfg.Spotify.TokenURL,
		},
		spotify.WithAPIURL(cfg.Spotify.APIURL),
		spotify.WithMarket(cfg.Spotify.Market),
		spotify.WithLogger(logger),
	)
	if err != nil {
		return nil, userError("Spotify credentials missing", err.Error(),
			"Create an app at https://developer.spotify.com/dashboard and export its client id and secret")
	}
	return client, nil
}

// parsePlaylistArg accepts "id", "label=id", a playlist URL or a
// spotify:playlist: URI.
func parsePlaylistArg(arg string) spotify.Named {
	label, ref, ok := strings.Cut(arg, "=")
	if !ok || strings.ContainsAny(label, ":/") {
		label, ref = "", arg
	}
	id := playlistID(strings.TrimSpace(ref))
	if label = strings.TrimSpace(label); label == "" {
		label = id
	}
	return spotify.Named{Label: label, ID: id}
}

func playlistID(ref string) string {
	if rest, ok := strings.CutPrefix(ref, "spotify:playlist:"); ok {
		return rest
	}
	if u, err := url.Parse(ref); err == nil && u.Host != "" {
		return path.Base(u.Path)
	}
	return ref
}

func runSpotifyPlaylist(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(spOutput)
	if err != nil {
		return err
	}
	client, err := newSpotifyClient(cmd.Context())
	if err != nil {
		return err
	}

	var t *dataset.Table
	if len(args) == 1 {
		t, err = client.AnalyzePlaylist(cmd.Context(), parsePlaylistArg(args[0]).ID)
	} else {
		named := make([]spotify.Named, len(args))
		for i, a := range args {
			named[i] = parsePlaylistArg(a)
		}
		t, err = client.AnalyzePlaylists(cmd.Context(), named)
	}
	if err != nil {
		return err
	}
	return output.Write(cmd.OutOrStdout(), t, format, "tracks")
}

func runSpotifyUser(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(spOutput)
	if err != nil {
		return err
	}
	client, err := newSpotifyClient(cmd.Context())
	if err != nil {
		return err
	}

	t, err := client.UserTracks(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return output.Write(cmd.OutOrStdout(), t, format, args[0]+"'s tracks")
}

func runSpotifyRadar(cmd *cobra.Command, args []string) error {
	client, err := newSpotifyClient(cmd.Context())
	if err != nil {
		return err
	}

	t, err := client.AnalyzePlaylist(cmd.Context(), parsePlaylistArg(args[0]).ID)
	if err != nil {
		return err
	}

	f, err := os.Create(spOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", spOut, err)
	}
	if err := spotify.Radar(t, spFeatures, f); err != nil {
		f.Close()
		os.Remove(spOut)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	printer.Success("Wrote %s\n", spOut)
	return nil
}
