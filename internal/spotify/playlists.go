package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Artist is a credited artist.
type Artist struct {
	Name string `json:"name"`
}

// Album is the album a track appears on.
type Album struct {
	Name    string   `json:"name"`
	Artists []Artist `json:"artists"`
}

// Track is a playlist entry. ID is empty for local files.
type Track struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Album Album  `json:"album"`
}

// Artist returns the first album artist, or "".
func (t Track) Artist() string {
	if len(t.Album.Artists) == 0 {
		return ""
	}
	return t.Album.Artists[0].Name
}

// Playlist is a user playlist summary.
type Playlist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type page[T any] struct {
	Items []T     `json:"items"`
	Next  *string `json:"next"`
}

type playlistItem struct {
	Track *Track `json:"track"`
}

// PlaylistTracks returns every track of a playlist, following pagination.
// Removed or unavailable entries are skipped.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("playlist id is required")
	}

	q := c.withMarket(url.Values{"limit": {"100"}})
	items, err := collect[playlistItem](ctx, c, fmt.Sprintf("/playlists/%s/tracks?%s", url.PathEscape(playlistID), q.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks of playlist %s: %w", playlistID, err)
	}

	tracks := make([]Track, 0, len(items))
	for _, it := range items {
		if it.Track != nil {
			tracks = append(tracks, *it.Track)
		}
	}
	return tracks, nil
}

// UserPlaylists returns the public playlists of a user.
func (c *Client) UserPlaylists(ctx context.Context, user string) ([]Playlist, error) {
	if user == "" {
		return nil, fmt.Errorf("user is required")
	}

	playlists, err := collect[Playlist](ctx, c, fmt.Sprintf("/users/%s/playlists?limit=50", url.PathEscape(user)))
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists of %s: %w", user, err)
	}
	return playlists, nil
}

func collect[T any](ctx context.Context, c *Client, ref string) ([]T, error) {
	var all []T
	for ref != "" {
		var p page[T]
		if err := c.get(ctx, ref, &p); err != nil {
			return nil, err
		}
		all = append(all, p.Items...)

		ref = ""
		if p.Next != nil {
			ref = strings.TrimSpace(*p.Next)
		}
	}
	return all, nil
}
