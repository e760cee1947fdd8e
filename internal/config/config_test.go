package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "encmusic.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0644))
	return configPath
}

func TestDefault_IsValid(t *testing.T) {
	config := Default()
	require.NoError(t, config.Validate())
	assert.Equal(t, 40.0209, config.SoundMap.Center.Lat)
	assert.Equal(t, -75.3137, config.SoundMap.Center.Lon)
	assert.Equal(t, 16, config.SoundMap.Zoom)
	assert.Equal(t, []string{"time"}, config.SoundMap.DropColumns)
	assert.Equal(t, "https://data.carnegiehall.org/sparql/", config.SPARQL.Endpoint)
	assert.Equal(t, "main", config.GitHub.Branch)
	assert.Empty(t, config.Cache.RedisURL, "caching is off unless configured")
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
soundmap:
  source: ./bicomap.csv
  numeric_fields: [volume, pitch]
  zoom: 15
cache:
  redis_url: redis://localhost:6379/0
  ttl: 90s
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "./bicomap.csv", config.SoundMap.Source)
	assert.Equal(t, []string{"volume", "pitch"}, config.SoundMap.NumericFields)
	assert.Equal(t, 15, config.SoundMap.Zoom)
	assert.Equal(t, 90*time.Second, config.Cache.TTL)

	// Omitted settings keep their defaults
	assert.Equal(t, "purpose", config.SoundMap.PurposeField)
	assert.Equal(t, "default", config.Cache.Namespace)
	assert.Equal(t, "https://api.github.com", config.GitHub.APIURL)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/encmusic.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		config, err := LoadOrDefault(filepath.Join(t.TempDir(), "encmusic.yml"))
		require.NoError(t, err)
		assert.Equal(t, Default(), config)
	})

	t.Run("invalid file is still an error", func(t *testing.T) {
		_, err := LoadOrDefault(writeConfig(t, `version: "2.0"`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported version: 2.0")
	})
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
soundmap:
  - this is invalid
    yaml syntax
`)

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unsupported version", func(c *Config) { c.Version = "2.0" }, "unsupported version: 2.0"},
		{"missing source", func(c *Config) { c.SoundMap.Source = "" }, "soundmap.source is required"},
		{"missing separator", func(c *Config) { c.SoundMap.PurposeSeparator = "" }, "purpose_separator is required"},
		{"no numeric fields", func(c *Config) { c.SoundMap.NumericFields = nil }, "at least one field"},
		{"duplicate numeric field", func(c *Config) { c.SoundMap.NumericFields = []string{"volume", "volume"} }, "duplicate numeric field 'volume'"},
		{"center out of range", func(c *Config) { c.SoundMap.Center.Lat = 91 }, "soundmap.center out of range"},
		{"zoom too deep", func(c *Config) { c.SoundMap.Zoom = 25 }, "soundmap.zoom must be between 1 and 20"},
		{"endpoint not http", func(c *Config) { c.SPARQL.Endpoint = "ftp://data.carnegiehall.org" }, "invalid sparql.endpoint"},
		{"missing branch", func(c *Config) { c.GitHub.Branch = "" }, "github.branch is required"},
		{"missing addr", func(c *Config) { c.Server.Addr = "" }, "server.addr is required"},
		{"zero timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, "server timeouts must be > 0"},
		{"missing namespace", func(c *Config) { c.Cache.Namespace = "" }, "cache.namespace is required"},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -time.Second }, "cache.ttl must be >= 0"},
		{"bad redis url", func(c *Config) { c.Cache.RedisURL = "http://localhost:6379" }, "invalid cache.redis_url"},
		{"zero max bytes", func(c *Config) { c.Fetch.MaxBytes = 0 }, "fetch.max_bytes must be > 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseEnv(t *testing.T) {
	t.Setenv("ENCMUSIC_REDIS_URL", "redis://cache:6379/1")
	t.Setenv("ENCMUSIC_ADDR", ":9000")
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")

	e, err := ParseEnv()
	require.NoError(t, err)

	config := Default()
	config.Spotify.ClientSecret = "from-file-never-happens"
	config.ApplyEnv(e)

	assert.Equal(t, "redis://cache:6379/1", config.Cache.RedisURL)
	assert.Equal(t, ":9000", config.Server.Addr)
	assert.Equal(t, "ghp_test", config.GitHub.Token)
	assert.Equal(t, "id", config.Spotify.ClientID)
	assert.Equal(t, "from-file-never-happens", config.Spotify.ClientSecret, "empty env values do not override")
	require.NoError(t, config.Validate())
}

func TestSecretsAreNotReadFromYAML(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
github:
  token: leaked
`)
	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Empty(t, config.GitHub.Token)
}
