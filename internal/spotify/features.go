package spotify

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/dyluth/encoding-music/internal/chart"
	"github.com/dyluth/encoding-music/pkg/dataset"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AudioFeatures are the per-track measurements reported by /audio-features,
// in column order.
var AudioFeatures = []string{
	"danceability", "energy", "key", "loudness", "mode", "speechiness",
	"instrumentalness", "liveness", "valence", "tempo", "duration_ms", "time_signature",
}

// FeatureColumns is the header of every playlist table.
var FeatureColumns = append([]string{"artist", "album", "track_name", "track_id"}, AudioFeatures...)

// maxConcurrentPlaylists bounds parallel playlist analysis.
const maxConcurrentPlaylists = 4

// Features is one track's audio analysis summary.
type Features struct {
	ID               string  `json:"id"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Key              float64 `json:"key"`
	Loudness         float64 `json:"loudness"`
	Mode             float64 `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	DurationMS       float64 `json:"duration_ms"`
	TimeSignature    float64 `json:"time_signature"`
}

// Values returns the features in AudioFeatures order.
func (f Features) Values() []float64 {
	return []float64{
		f.Danceability, f.Energy, f.Key, f.Loudness, f.Mode, f.Speechiness,
		f.Instrumentalness, f.Liveness, f.Valence, f.Tempo, f.DurationMS, f.TimeSignature,
	}
}

type featuresResponse struct {
	AudioFeatures []*Features `json:"audio_features"`
}

// AudioFeatures looks up features for ids, 100 per request. Tracks Spotify
// has no analysis for are absent from the result.
func (c *Client) AudioFeatures(ctx context.Context, ids []string) (map[string]Features, error) {
	out := make(map[string]Features, len(ids))
	for start := 0; start < len(ids); start += featureBatch {
		end := min(start+featureBatch, len(ids))
		q := url.Values{"ids": {strings.Join(ids[start:end], ",")}}

		var resp featuresResponse
		if err := c.get(ctx, "/audio-features?"+q.Encode(), &resp); err != nil {
			return nil, fmt.Errorf("failed to fetch audio features: %w", err)
		}
		for _, f := range resp.AudioFeatures {
			if f != nil && f.ID != "" {
				out[f.ID] = *f
			}
		}
	}
	return out, nil
}

// AnalyzePlaylist returns one FeatureColumns row per track of a playlist.
// Feature cells are empty for tracks without analysis.
func (c *Client) AnalyzePlaylist(ctx context.Context, playlistID string) (*dataset.Table, error) {
	tracks, err := c.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.ID != "" {
			ids = append(ids, t.ID)
		}
	}
	features, err := c.AudioFeatures(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(tracks))
	for _, t := range tracks {
		row := []string{t.Artist(), t.Album.Name, t.Name, t.ID}
		if f, ok := features[t.ID]; ok {
			for _, v := range f.Values() {
				row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
			}
		} else {
			c.logger.Debug("no audio features for track", zap.String("track_id", t.ID), zap.String("track_name", t.Name))
		}
		rows = append(rows, row)
	}

	c.logger.Info("analyzed playlist",
		zap.String("playlist_id", playlistID),
		zap.Int("tracks", len(tracks)),
		zap.Int("with_features", len(features)))
	return dataset.New(FeatureColumns, rows), nil
}

// Named labels a playlist in a combined table.
type Named struct {
	Label string
	ID    string
}

// AnalyzePlaylists analyzes the playlists concurrently and concatenates
// their tables in the given order, each row tagged with a "playlist" column
// holding its label.
func (c *Client) AnalyzePlaylists(ctx context.Context, playlists []Named) (*dataset.Table, error) {
	return c.analyzeAll(ctx, playlists, "playlist")
}

// UserTracks analyzes every public playlist of a user. Rows carry a
// "playlist_name" column, empty for unnamed playlists.
func (c *Client) UserTracks(ctx context.Context, user string) (*dataset.Table, error) {
	playlists, err := c.UserPlaylists(ctx, user)
	if err != nil {
		return nil, err
	}

	named := make([]Named, len(playlists))
	for i, p := range playlists {
		named[i] = Named{Label: p.Name, ID: p.ID}
	}
	return c.analyzeAll(ctx, named, "playlist_name")
}

func (c *Client) analyzeAll(ctx context.Context, playlists []Named, labelColumn string) (*dataset.Table, error) {
	tables := make([]*dataset.Table, len(playlists))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPlaylists)
	for i, p := range playlists {
		g.Go(func() error {
			t, err := c.AnalyzePlaylist(gctx, p.ID)
			if err != nil {
				return err
			}
			tables[i] = t.WithColumn(labelColumn, p.Label)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := dataset.New(append(append([]string(nil), FeatureColumns...), labelColumn), nil)
	for _, t := range tables {
		out = out.Append(t)
	}
	return out, nil
}

// Radar draws one polygon per track over the chosen features, labelled with
// the track name. Tracks lacking a numeric value for any feature are left out.
func Radar(t *dataset.Table, features []string, w io.Writer) error {
	for _, f := range features {
		if !t.Has(f) {
			return fmt.Errorf("unknown feature %q", f)
		}
	}

	var series []chart.RadarSeries
	for r := 0; r < t.Len(); r++ {
		values := make([]float64, 0, len(features))
		for _, f := range features {
			v, ok := t.Float(r, f)
			if !ok {
				break
			}
			values = append(values, v)
		}
		if len(values) == len(features) {
			series = append(series, chart.RadarSeries{Name: t.Value(r, "track_name"), Values: values})
		}
	}
	return chart.Radar(w, "Audio features", features, series)
}
