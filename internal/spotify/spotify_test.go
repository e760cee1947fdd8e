package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type fakeSpotify struct {
	*httptest.Server
	featureCalls atomic.Int32
	tokenCalls   atomic.Int32
}

func track(id, name, album, artist string) map[string]any {
	return map[string]any{
		"id":    id,
		"name":  name,
		"album": map[string]any{"name": album, "artists": []any{map[string]any{"name": artist}}},
	}
}

func newFakeSpotify(t *testing.T) *fakeSpotify {
	f := &fakeSpotify{}
	mux := http.NewServeMux()

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		id, secret, ok := r.BasicAuth()
		if !ok || id != "id" || secret != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})

	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":{"status":401}}`))
				return
			}
			h(w, r)
		}
	}

	mux.HandleFunc("/v1/playlists/pl1/tracks", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "2" {
			json.NewEncoder(w).Encode(map[string]any{
				"items": []any{map[string]any{"track": track("t3", "Third", "B-Sides", "Nina")}},
				"next":  nil,
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"items": []any{
				map[string]any{"track": track("t1", "First", "Album One", "Ella")},
				map[string]any{"track": nil},
				map[string]any{"track": track("t2", "Second", "Album One", "Ella")},
			},
			"next": f.URL + "/v1/playlists/pl1/tracks?offset=2&limit=100",
		})
	}))
	mux.HandleFunc("/v1/playlists/pl2/tracks", authed(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"items": []any{map[string]any{"track": track("t9", "Ninth", "Choral", "LvB")}},
			"next":  nil,
		})
	}))
	mux.HandleFunc("/v1/playlists/missing/tracks", authed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"status":404,"message":"Not found."}}`))
	}))
	mux.HandleFunc("/v1/users/alice/playlists", authed(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"items": []any{
				map[string]any{"id": "pl2", "name": "Choral"},
				map[string]any{"id": "pl1", "name": ""},
			},
			"next": nil,
		})
	}))
	mux.HandleFunc("/v1/audio-features", authed(func(w http.ResponseWriter, r *http.Request) {
		f.featureCalls.Add(1)
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		var out []any
		for i, id := range ids {
			if id == "t3" {
				out = append(out, nil)
				continue
			}
			out = append(out, map[string]any{
				"id": id, "danceability": 0.5, "energy": 0.25 * float64(i%4), "key": 5, "loudness": -7.5,
				"mode": 1, "speechiness": 0.04, "instrumentalness": 0, "liveness": 0.1,
				"valence": 0.6, "tempo": 120, "duration_ms": 210000, "time_signature": 4,
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"audio_features": out})
	}))

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func newClient(t *testing.T, f *fakeSpotify) *Client {
	c, err := New(context.Background(), Credentials{ClientID: "id", ClientSecret: "secret", TokenURL: f.URL + "/token"}, WithAPIURL(f.URL+"/v1"))
	require.NoError(t, err)
	return c
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Credentials{ClientID: "id"})
	assert.Error(t, err)
}

func TestPlaylistTracks(t *testing.T) {
	f := newFakeSpotify(t)
	tracks, err := newClient(t, f).PlaylistTracks(context.Background(), "pl1")
	require.NoError(t, err)

	require.Len(t, tracks, 3)
	assert.Equal(t, "t1", tracks[0].ID)
	assert.Equal(t, "Ella", tracks[0].Artist())
	assert.Equal(t, "t3", tracks[2].ID, "next page is followed")
	assert.Equal(t, int32(1), f.tokenCalls.Load(), "token is reused across pages")
}

func TestPlaylistTracks_NotFound(t *testing.T) {
	f := newFakeSpotify(t)
	_, err := newClient(t, f).PlaylistTracks(context.Background(), "missing")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestAudioFeatures_Batches(t *testing.T) {
	f := newFakeSpotify(t)
	ids := make([]string, 250)
	for i := range ids {
		ids[i] = fmt.Sprintf("id%03d", i)
	}

	got, err := newClient(t, f).AudioFeatures(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, got, 250)
	assert.Equal(t, int32(3), f.featureCalls.Load())
	assert.Equal(t, 120.0, got["id249"].Tempo)
}

func TestAnalyzePlaylist(t *testing.T) {
	f := newFakeSpotify(t)
	tbl, err := newClient(t, f).AnalyzePlaylist(context.Background(), "pl1")
	require.NoError(t, err)

	assert.Equal(t, FeatureColumns, tbl.Columns)
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, "Ella", tbl.Value(0, "artist"))
	assert.Equal(t, "Album One", tbl.Value(0, "album"))
	assert.Equal(t, "First", tbl.Value(0, "track_name"))
	assert.Equal(t, "5", tbl.Value(0, "key"))
	assert.Equal(t, "-7.5", tbl.Value(0, "loudness"))
	assert.Equal(t, "210000", tbl.Value(0, "duration_ms"))
	assert.Equal(t, "", tbl.Value(2, "tempo"), "tracks without analysis keep empty features")
}

func TestAnalyzePlaylists(t *testing.T) {
	f := newFakeSpotify(t)
	tbl, err := newClient(t, f).AnalyzePlaylists(context.Background(), []Named{
		{Label: "Beethoven", ID: "pl2"},
		{Label: "Jazz", ID: "pl1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "playlist", tbl.Columns[len(tbl.Columns)-1])
	require.Equal(t, 4, tbl.Len())
	assert.Equal(t, "Ninth", tbl.Value(0, "track_name"))
	assert.Equal(t, "Beethoven", tbl.Value(0, "playlist"))
	assert.Equal(t, "Jazz", tbl.Value(3, "playlist"))
}

func TestAnalyzePlaylists_Error(t *testing.T) {
	f := newFakeSpotify(t)
	_, err := newClient(t, f).AnalyzePlaylists(context.Background(), []Named{
		{Label: "ok", ID: "pl2"},
		{Label: "gone", ID: "missing"},
	})
	assert.Error(t, err)
}

func TestUserTracks(t *testing.T) {
	f := newFakeSpotify(t)
	tbl, err := newClient(t, f).UserTracks(context.Background(), "alice")
	require.NoError(t, err)

	require.Equal(t, 4, tbl.Len())
	assert.Equal(t, "Choral", tbl.Value(0, "playlist_name"))
	assert.Equal(t, "", tbl.Value(1, "playlist_name"))
}

func TestRadar(t *testing.T) {
	f := newFakeSpotify(t)
	tbl, err := newClient(t, f).AnalyzePlaylist(context.Background(), "pl1")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Radar(tbl, []string{"danceability", "energy", "valence", "speechiness"}, &buf))
	svg := buf.String()
	assert.Contains(t, svg, "<svg")
	assert.Contains(t, svg, "First")
	assert.NotContains(t, svg, "Third", "tracks without features are not drawn")

	assert.Error(t, Radar(tbl, []string{"danceability", "bogus", "energy"}, &buf))
}
