package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/encoding-music/internal/printer"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const surveyCSV = `link,timestamp,campus,time,date,location,latitude,longitude,device,sound,recorder,purpose,volume,pitch,distractability,rowdiness,multiplicity,repetition,persistence
a,t1,BMC,10:00,5/1,Canaday,40.0280,-75.3150,phone,pages turning,LG,study; quiet,2,3,1,1,2,4,5
b,t2,BMC,12:30,5/1,Erdman,40.0215,-75.3120,phone,chatter,LS,social;eating,8,6,7,6,8,3,2
c,t3,HC,13:00,5/2,Magill,,-75.3050,phone,printer,RS,study,5,n/a,3,2,1,5,4
d,t4,HC,14:00,5/2,Dining Center,40.0070,-75.3060,phone,dishes,JY,eating,7,4,5,5,6,6,6
`

type result struct {
	out    string // command output
	stdout string // printer output
	stderr string // printer errors
	err    error
}

// execute runs the CLI with args and fresh flag values.
func execute(t *testing.T, args ...string) result {
	t.Helper()
	resetFlags(rootCmd)

	var out, pOut, pErr bytes.Buffer
	t.Cleanup(printer.SetOutput(&pOut, &pErr))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := Execute()
	return result{out: out.String(), stdout: pOut.String(), stderr: pErr.String(), err: err}
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			var def []string
			if v := strings.Trim(f.DefValue, "[]"); v != "" {
				def = strings.Split(v, ",")
			}
			sv.Replace(def)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// writeConfig writes an encmusic.yml holding body below the version line.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "encmusic.yml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1.0\"\n"+body), 0644))
	return path
}

func noConfig(t *testing.T) string {
	t.Setenv("ENCMUSIC_REDIS_URL", "")
	return filepath.Join(t.TempDir(), "missing.yml")
}

func surveyServer(t *testing.T) string {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(surveyCSV))
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/bicomap.csv"
}

func TestRootCommand(t *testing.T) {
	t.Run("shows help without a subcommand", func(t *testing.T) {
		r := execute(t)
		require.NoError(t, r.err)
		assert.Contains(t, r.out, "Usage:")
		assert.Contains(t, r.out, "soundmap")
		assert.Contains(t, r.out, "sparql")
	})

	t.Run("rejects unknown flags", func(t *testing.T) {
		r := execute(t, "--goal", "x")
		require.Error(t, r.err)
		assert.Contains(t, r.err.Error(), "unknown flag")
		assert.Contains(t, r.stderr, "unknown flag")
	})

	t.Run("invalid config is explained once", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "encmusic.yml")
		require.NoError(t, os.WriteFile(path, []byte("version: \"2.0\"\n"), 0644))
		r := execute(t, "--config", path, "sparql", "query", "1", "--term", "5")
		require.Error(t, r.err)
		assert.Equal(t, 1, strings.Count(r.stderr, "Invalid configuration"))
		assert.Contains(t, r.stderr, "unsupported version")
	})

	t.Run("invalid log level", func(t *testing.T) {
		r := execute(t, "--config", noConfig(t), "--log-level", "loud", "soundmap", "--source", surveyServer(t))
		require.Error(t, r.err)
		assert.Contains(t, r.err.Error(), "invalid log level")
	})
}

func TestInitCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	r := execute(t, "init")
	require.NoError(t, r.err)
	assert.FileExists(t, "encmusic.yml")
	assert.FileExists(t, ".env.example")
	assert.Contains(t, r.stdout, "Initialized encmusic project")

	r = execute(t, "init")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "project already initialized")

	r = execute(t, "init", "--force")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "Removing existing encmusic.yml")
}

func TestSoundMapCommand(t *testing.T) {
	src := surveyServer(t)

	t.Run("filters to csv", func(t *testing.T) {
		r := execute(t, "--config", noConfig(t), "soundmap", "--source", src,
			"--purpose", "study", "--range", "volume=3-8", "-o", "csv")
		require.NoError(t, r.err)
		lines := strings.Split(strings.TrimSpace(r.out), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "link,timestamp,campus,date"), "time column is dropped")
		assert.Contains(t, lines[1], "Magill")
	})

	t.Run("empty purpose matches nothing", func(t *testing.T) {
		r := execute(t, "--config", noConfig(t), "soundmap", "--source", src, "--purpose", "", "-o", "jsonl")
		require.NoError(t, r.err)
		assert.Empty(t, r.out)
	})

	t.Run("where expression", func(t *testing.T) {
		r := execute(t, "--config", noConfig(t), "soundmap", "--source", src,
			"--where", `campus == "HC" && volume > 5`, "-o", "jsonl")
		require.NoError(t, r.err)
		var row map[string]string
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(r.out)), &row))
		assert.Equal(t, "dishes", row["sound"])
	})

	t.Run("summary", func(t *testing.T) {
		r := execute(t, "--config", noConfig(t), "soundmap", "--source", src, "--max-volume", "5", "--summary")
		require.NoError(t, r.err)
		assert.Contains(t, r.stdout, "Volume: 2-5")
		assert.Contains(t, r.stdout, "2 of 4 (-2)")
		assert.Contains(t, r.stdout, "50.0%")
		assert.Empty(t, r.out)
	})

	t.Run("feature profile and chart", func(t *testing.T) {
		chartPath := filepath.Join(t.TempDir(), "canaday.svg")
		r := execute(t, "--config", noConfig(t), "soundmap", "--source", src,
			"--feature", "40.028,-75.315", "--chart", chartPath, "-o", "csv")
		require.NoError(t, r.err)
		assert.Contains(t, r.out, "variable,value\nvolume,2\npitch,3\n")
		svg, err := os.ReadFile(chartPath)
		require.NoError(t, err)
		assert.Contains(t, string(svg), "<svg")
	})

	t.Run("nothing at feature position", func(t *testing.T) {
		r := execute(t, "--config", noConfig(t), "soundmap", "--source", src, "--feature", "0,0")
		require.Error(t, r.err)
		assert.Contains(t, r.stderr, "No sound at that position")
	})

	for _, tc := range []struct {
		name string
		args []string
		want string
	}{
		{"malformed range", []string{"--range", "volume"}, "expected field=lo-hi"},
		{"inverted range", []string{"--range", "volume=6-3"}, "inverted"},
		{"misspelled range field", []string{"--range", "volum=1-3"}, `unknown field "volum"`},
		{"range on a text column", []string{"--range", "campus=1-3"}, `unknown field "campus"`},
		{"chart without feature", []string{"--chart", "x.svg"}, "--chart requires --feature"},
		{"bad output", []string{"-o", "xml"}, "invalid output format"},
		{"bad feature", []string{"--feature", "north"}, "expected lat,lng"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"--config", noConfig(t), "soundmap", "--source", src}, tc.args...)
			r := execute(t, args...)
			require.Error(t, r.err)
			assert.Contains(t, r.err.Error(), tc.want)
		})
	}

	t.Run("range on a field without values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nopitch.csv")
		require.NoError(t, os.WriteFile(path, []byte(strings.ReplaceAll(surveyCSV, ",pitch,", ",tone,")), 0o644))
		r := execute(t, "--config", noConfig(t), "soundmap", "--source", path, "--range", "pitch=1-3")
		require.Error(t, r.err)
		assert.Contains(t, r.err.Error(), "the survey has no pitch values")
	})

	t.Run("max volume below every event", func(t *testing.T) {
		r := execute(t, "--config", noConfig(t), "soundmap", "--source", src, "--max-volume", "1", "--summary")
		require.NoError(t, r.err)
		assert.Contains(t, r.stdout, "Volume: none")
		assert.Contains(t, r.stdout, "0 of 4 (-4)")
	})

	t.Run("unreachable survey", func(t *testing.T) {
		r := execute(t, "--config", noConfig(t), "soundmap", "--source", filepath.Join(t.TempDir(), "none.csv"))
		require.Error(t, r.err)
		assert.Contains(t, r.stderr, "Failed to load survey")
	})
}

func TestSPARQLCommand(t *testing.T) {
	defer func(prev func() time.Time) { now = prev }(now)
	now = func() time.Time { return time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC) }

	t.Run("list", func(t *testing.T) {
		r := execute(t, "sparql", "list")
		require.NoError(t, r.err)
		assert.Contains(t, r.out, "Find people")
		assert.Contains(t, r.out, "Find performances within a specific date range")
		assert.Contains(t, r.out, "--from --to [--limit]")
	})

	t.Run("query by number", func(t *testing.T) {
		r := execute(t, "--config", noConfig(t), "sparql", "query", "1", "--term", "10")
		require.NoError(t, r.err)
		assert.Contains(t, r.out, "LIMIT 10")
		assert.Contains(t, r.out, "Encoded Query: https://data.carnegiehall.org/sparql/?query=PREFIX%20schema")
	})

	t.Run("limit is dropped unless given", func(t *testing.T) {
		r := execute(t, "--config", noConfig(t), "sparql", "query", "4", "--term", "symphony")
		require.NoError(t, r.err)
		assert.NotContains(t, r.out, "LIMIT")

		r = execute(t, "--config", noConfig(t), "sparql", "query", "4", "--term", "symphony", "--limit", "25")
		require.NoError(t, r.err)
		assert.Contains(t, r.out, "LIMIT 25")
	})

	t.Run("date range as json", func(t *testing.T) {
		r := execute(t, "--config", noConfig(t), "sparql", "query", "7",
			"--from", "1961-05-01", "--to", "1961-05-09", "--json")
		require.NoError(t, r.err)
		var got map[string]string
		require.NoError(t, json.Unmarshal([]byte(r.out), &got))
		assert.Equal(t, "Find performances within a specific date range", got["option"])
		assert.Contains(t, got["query"], `"1961-05-01T00:00:00"^^xsd:dateTime`)
		assert.Contains(t, got["query"], `"1961-05-09T23:59:59"^^xsd:dateTime`)
		assert.True(t, strings.HasPrefix(got["url"], "https://data.carnegiehall.org/sparql/?query="))
	})

	t.Run("open url", func(t *testing.T) {
		defer func(prev func(string) error) { openBrowser = prev }(openBrowser)
		var opened string
		openBrowser = func(u string) error { opened = u; return nil }

		r := execute(t, "--config", noConfig(t), "sparql", "query", "Find works", "--term", "3", "--open-url")
		require.NoError(t, r.err)
		assert.Contains(t, opened, "LIMIT%203")
	})

	t.Run("unknown option", func(t *testing.T) {
		r := execute(t, "--config", noConfig(t), "sparql", "query", "99")
		require.Error(t, r.err)
		assert.Contains(t, r.stderr, "encmusic sparql list")
	})

	t.Run("missing term", func(t *testing.T) {
		r := execute(t, "--config", noConfig(t), "sparql", "query", "2")
		require.Error(t, r.err)
		assert.Contains(t, r.err.Error(), "search term is required")
	})

	t.Run("bad date", func(t *testing.T) {
		r := execute(t, "--config", noConfig(t), "sparql", "query", "6", "--date", "someday")
		require.Error(t, r.err)
		assert.Contains(t, r.err.Error(), "invalid --date")
	})
}

func TestGitHubFilesCommand(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/RichardFreedman/Encoding_Music/git/ref/heads/dev", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"object":{"sha":"abc123"}}`))
	})
	mux.HandleFunc("/repos/RichardFreedman/Encoding_Music/git/trees/abc123", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sha":"abc123","tree":[
			{"path":"04_MEI/Bach_BWV_0253.mei","type":"blob"},
			{"path":"04_MEI/notes.txt","type":"blob"},
			{"path":"06_SoundMap/bicomap.csv","type":"blob"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Setenv("ENCMUSIC_REDIS_URL", "")

	cfg := writeConfig(t, "github:\n  api_url: "+srv.URL+"\n  raw_url: https://raw.example\n  branch: main\n")

	r := execute(t, "--config", cfg, "github", "files", "https://github.com/RichardFreedman/Encoding_Music",
		"--dir", "04_MEI", "--pattern", "*.mei", "--branch", "dev", "-o", "csv")
	require.NoError(t, r.err)
	assert.Equal(t, "file,raw_url\nBach_BWV_0253.mei,https://raw.example/RichardFreedman/Encoding_Music/dev/04_MEI/Bach_BWV_0253.mei\n", r.out)

	r = execute(t, "--config", cfg, "github", "files", "https://github.com/RichardFreedman/Encoding_Music")
	require.Error(t, r.err)
	assert.Contains(t, r.stderr, "Failed to list files")
}

func TestSpotifyCommands(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/playlists/pl1/tracks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"track":{"id":"t1","name":"First","album":{"name":"One","artists":[{"name":"Ella"}]}}}],"next":null}`))
	})
	mux.HandleFunc("/v1/audio-features", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"audio_features":[{"id":"t1","danceability":0.5,"energy":0.7,"speechiness":0.1,"acousticness":0.2,"liveness":0.3,"valence":0.9,"tempo":120}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := writeConfig(t, "spotify:\n  api_url: "+srv.URL+"/v1\n  token_url: "+srv.URL+"/token\n")

	t.Run("missing credentials", func(t *testing.T) {
		t.Setenv("SPOTIFY_CLIENT_ID", "")
		t.Setenv("SPOTIFY_CLIENT_SECRET", "")
		r := execute(t, "--config", cfg, "spotify", "playlist", "pl1")
		require.Error(t, r.err)
		assert.Contains(t, r.stderr, "Spotify credentials missing")
	})

	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")

	t.Run("playlist", func(t *testing.T) {
		r := execute(t, "--config", cfg, "spotify", "playlist", "https://open.spotify.com/playlist/pl1?si=x", "-o", "jsonl")
		require.NoError(t, r.err)
		var row map[string]string
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(r.out)), &row))
		assert.Equal(t, "First", row["track_name"])
		assert.Equal(t, "0.5", row["danceability"])
	})

	t.Run("labelled playlists", func(t *testing.T) {
		r := execute(t, "--config", cfg, "spotify", "playlist", "a=pl1", "spotify:playlist:pl1", "-o", "csv")
		require.NoError(t, r.err)
		lines := strings.Split(strings.TrimSpace(r.out), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasSuffix(lines[0], ",playlist"))
		assert.True(t, strings.HasSuffix(lines[1], ",a"))
		assert.True(t, strings.HasSuffix(lines[2], ",pl1"))
	})

	t.Run("radar", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "radar.svg")
		r := execute(t, "--config", cfg, "spotify", "radar", "pl1", "--features", "danceability,energy,valence", "--out", out)
		require.NoError(t, r.err)
		svg, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(svg), "First")
	})

	t.Run("radar with unknown feature leaves no file", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "radar.svg")
		r := execute(t, "--config", cfg, "spotify", "radar", "pl1", "--features", "groove", "--out", out)
		require.Error(t, r.err)
		assert.NoFileExists(t, out)
	})
}

func TestParsePlaylistArg(t *testing.T) {
	tests := []struct {
		arg, label, id string
	}{
		{"37i9dQZF1DXcBWIGoYBM5M", "37i9dQZF1DXcBWIGoYBM5M", "37i9dQZF1DXcBWIGoYBM5M"},
		{"jazz=37i9dQZF1DXbITWG1ZJKYt", "jazz", "37i9dQZF1DXbITWG1ZJKYt"},
		{"https://open.spotify.com/playlist/abc?si=1", "abc", "abc"},
		{"mix=spotify:playlist:xyz", "mix", "xyz"},
		{"=abc", "abc", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got := parsePlaylistArg(tt.arg)
			assert.Equal(t, tt.label, got.Label)
			assert.Equal(t, tt.id, got.ID)
		})
	}
}

func TestChartGalleryCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	r := execute(t, "chart", "gallery", "--out", dir, "--seed", "7")
	require.NoError(t, r.err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	assert.Equal(t, 4, strings.Count(r.stdout, "Wrote "))
}

func TestCacheFlushCommand(t *testing.T) {
	t.Run("no cache configured", func(t *testing.T) {
		r := execute(t, "--config", noConfig(t), "cache", "flush")
		require.Error(t, r.err)
		assert.Contains(t, r.stderr, "No cache configured")
	})

	t.Run("flushes the namespace", func(t *testing.T) {
		mr := miniredis.RunT(t)
		require.NoError(t, mr.Set("encmusic:default:cache:survey", "x"))
		require.NoError(t, mr.Set("encmusic:other:cache:survey", "y"))
		t.Setenv("ENCMUSIC_REDIS_URL", "redis://"+mr.Addr())

		r := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yml"), "cache", "flush")
		require.NoError(t, r.err)
		assert.Contains(t, r.stdout, "Flushed 1 entries from namespace 'default'")
		assert.True(t, mr.Exists("encmusic:other:cache:survey"))
	})
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "45s ago", formatAge(45*time.Second))
	assert.Equal(t, "12m ago", formatAge(12*time.Minute))
	assert.Equal(t, "3h12m ago", formatAge(3*time.Hour+12*time.Minute))
	assert.Equal(t, "2d ago", formatAge(50*time.Hour))
}
