package scaffold

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/encoding-music/internal/config"
	"github.com/dyluth/encoding-music/internal/printer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, dir string)
		force   bool
		wantErr string
	}{
		{
			name:  "empty directory",
			setup: func(t *testing.T, dir string) {},
		},
		{
			name: "existing config without force",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "encmusic.yml"), []byte("version: '0.9'"), 0644))
			},
			wantErr: "failed to write encmusic.yml",
		},
		{
			name: "existing files with force",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "encmusic.yml"), []byte("version: '0.9'"), 0644))
				require.NoError(t, os.WriteFile(filepath.Join(dir, EnvExample), []byte("OLD=1"), 0644))
			},
			force: true,
		},
		{
			name:  "missing directory is created",
			setup: func(t *testing.T, dir string) { require.NoError(t, os.Remove(dir)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(printer.SetOutput(&bytes.Buffer{}, &bytes.Buffer{}))
			dir := filepath.Join(t.TempDir(), "project")
			require.NoError(t, os.Mkdir(dir, 0755))
			tt.setup(t, dir)

			err := Initialize(dir, tt.force)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			info, err := os.Stat(filepath.Join(dir, "encmusic.yml"))
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

			env, err := os.ReadFile(filepath.Join(dir, EnvExample))
			require.NoError(t, err)
			assert.Contains(t, string(env), "SPOTIFY_CLIENT_ID")
			assert.NotContains(t, string(env), "OLD=1")
		})
	}
}

func TestInitialize_ConfigMatchesDefaults(t *testing.T) {
	t.Cleanup(printer.SetOutput(&bytes.Buffer{}, &bytes.Buffer{}))
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, false))

	cfg, err := config.Load(filepath.Join(dir, "encmusic.yml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestPrintSuccess(t *testing.T) {
	var out bytes.Buffer
	t.Cleanup(printer.SetOutput(&out, &bytes.Buffer{}))

	PrintSuccess()

	assert.Contains(t, out.String(), "Initialized encmusic project")
	assert.Contains(t, out.String(), "encmusic.yml")
	assert.Contains(t, out.String(), "encmusic serve")
}
