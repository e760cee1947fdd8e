package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for configuration when --config is not given.
const DefaultPath = "encmusic.yml"

// Config represents the top-level encmusic.yml configuration
type Config struct {
	Version  string         `yaml:"version"`
	SoundMap SoundMapConfig `yaml:"soundmap"`
	SPARQL   SPARQLConfig   `yaml:"sparql"`
	GitHub   GitHubConfig   `yaml:"github"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	Server   ServerConfig   `yaml:"server"`
	Cache    CacheConfig    `yaml:"cache"`
	Fetch    FetchConfig    `yaml:"fetch"`
}

// SoundMapConfig describes the sound survey dataset and how the map opens
type SoundMapConfig struct {
	Source           string   `yaml:"source"` // URL or local path of the survey CSV
	DropColumns      []string `yaml:"drop_columns,omitempty"`
	DropMissing      []string `yaml:"drop_missing,omitempty"` // rows missing any of these are not loaded
	PurposeField     string   `yaml:"purpose_field"`
	PurposeSeparator string   `yaml:"purpose_separator"`
	NumericFields    []string `yaml:"numeric_fields"`
	Center           LatLon   `yaml:"center"`
	Zoom             int      `yaml:"zoom"`
	Title            string   `yaml:"title"`
	Subtitle         string   `yaml:"subtitle,omitempty"`
	Authors          string   `yaml:"authors,omitempty"`
}

// LatLon is a map coordinate
type LatLon struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// SPARQLConfig points at the query endpoint and its user guide
type SPARQLConfig struct {
	Endpoint string `yaml:"endpoint"`
	DocsURL  string `yaml:"docs_url"`
}

// GitHubConfig specifies the GitHub API and raw content hosts
type GitHubConfig struct {
	APIURL string `yaml:"api_url"`
	RawURL string `yaml:"raw_url"`
	Branch string `yaml:"branch"`
	Token  string `yaml:"-"` // GITHUB_TOKEN only
}

// SpotifyConfig specifies the Spotify Web API and its token endpoint
type SpotifyConfig struct {
	APIURL       string `yaml:"api_url"`
	TokenURL     string `yaml:"token_url"`
	Market       string `yaml:"market,omitempty"`
	ClientID     string `yaml:"-"` // SPOTIFY_CLIENT_ID only
	ClientSecret string `yaml:"-"` // SPOTIFY_CLIENT_SECRET only
}

// ServerConfig specifies the dashboard HTTP server
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// CacheConfig specifies the optional Redis data cache (empty redis_url = disabled)
type CacheConfig struct {
	RedisURL  string        `yaml:"redis_url,omitempty"`
	TTL       time.Duration `yaml:"ttl"`
	Namespace string        `yaml:"namespace"`
}

// FetchConfig bounds outbound data downloads
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
	UserAgent string        `yaml:"user_agent"`
}

// Default returns the built-in configuration: the Bi-Co sound survey, the
// Carnegie Hall data lab and the public GitHub and Spotify APIs.
func Default() *Config {
	return &Config{
		Version: "1.0",
		SoundMap: SoundMapConfig{
			Source:           "https://raw.githubusercontent.com/RichardFreedman/Encoding_Music/refs/heads/main/06_SoundMap/bicomap.csv",
			DropColumns:      []string{"time"},
			PurposeField:     "purpose",
			PurposeSeparator: ";",
			NumericFields:    []string{"volume", "pitch", "distractability", "rowdiness", "multiplicity", "repetition", "persistence"},
			Center:           LatLon{Lat: 40.0209, Lon: -75.3137},
			Zoom:             16,
			Title:            "BiCo Sound Map",
			Subtitle:         "Sounds of Silence: A Sound Survey of the Bi-Co During Finals Week",
			Authors:          "Logan Griffin, Luke Sheppard, Reed Solomon, and Jade Yu",
		},
		SPARQL: SPARQLConfig{
			Endpoint: "https://data.carnegiehall.org/sparql/",
			DocsURL:  "https://raw.githubusercontent.com/RichardFreedman/Encoding_Music/dev_Edgar/SPARQL.md",
		},
		GitHub: GitHubConfig{
			APIURL: "https://api.github.com",
			RawURL: "https://raw.githubusercontent.com",
			Branch: "main",
		},
		Spotify: SpotifyConfig{
			APIURL:   "https://api.spotify.com/v1",
			TokenURL: "https://accounts.spotify.com/api/token",
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8501",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			TTL:       10 * time.Minute,
			Namespace: "default",
		},
		Fetch: FetchConfig{
			Timeout:   30 * time.Second,
			MaxBytes:  32 << 20,
			UserAgent: "encmusic/1.0",
		},
	}
}

// Validate performs strict validation on the configuration
func (c *Config) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if err := c.SoundMap.Validate(); err != nil {
		return err
	}

	if err := validateHTTPURL("sparql.endpoint", c.SPARQL.Endpoint); err != nil {
		return err
	}
	if err := validateHTTPURL("sparql.docs_url", c.SPARQL.DocsURL); err != nil {
		return err
	}

	if err := validateHTTPURL("github.api_url", c.GitHub.APIURL); err != nil {
		return err
	}
	if err := validateHTTPURL("github.raw_url", c.GitHub.RawURL); err != nil {
		return err
	}
	if c.GitHub.Branch == "" {
		return fmt.Errorf("github.branch is required")
	}

	if err := validateHTTPURL("spotify.api_url", c.Spotify.APIURL); err != nil {
		return err
	}
	if err := validateHTTPURL("spotify.token_url", c.Spotify.TokenURL); err != nil {
		return err
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be > 0 (read=%s, write=%s)", c.Server.ReadTimeout, c.Server.WriteTimeout)
	}

	if c.Cache.Namespace == "" {
		return fmt.Errorf("cache.namespace is required")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be >= 0 (0 = no expiry), got %s", c.Cache.TTL)
	}
	if c.Cache.RedisURL != "" {
		u, err := url.Parse(c.Cache.RedisURL)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			return fmt.Errorf("invalid cache.redis_url: %s (must be redis:// or rediss://)", c.Cache.RedisURL)
		}
	}

	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be > 0, got %s", c.Fetch.Timeout)
	}
	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("fetch.max_bytes must be > 0, got %d", c.Fetch.MaxBytes)
	}

	return nil
}

// Validate performs validation on the sound map section
func (s *SoundMapConfig) Validate() error {
	if s.Source == "" {
		return fmt.Errorf("soundmap.source is required")
	}
	if s.PurposeField == "" {
		return fmt.Errorf("soundmap.purpose_field is required")
	}
	if s.PurposeSeparator == "" {
		return fmt.Errorf("soundmap.purpose_separator is required")
	}
	if len(s.NumericFields) == 0 {
		return fmt.Errorf("soundmap.numeric_fields must list at least one field")
	}

	seen := make(map[string]bool, len(s.NumericFields))
	for _, f := range s.NumericFields {
		if f == "" {
			return fmt.Errorf("soundmap.numeric_fields contains an empty name")
		}
		if seen[f] {
			return fmt.Errorf("duplicate numeric field '%s' in soundmap.numeric_fields", f)
		}
		seen[f] = true
	}

	if s.Center.Lat < -90 || s.Center.Lat > 90 || s.Center.Lon < -180 || s.Center.Lon > 180 {
		return fmt.Errorf("soundmap.center out of range: %v,%v", s.Center.Lat, s.Center.Lon)
	}
	if s.Zoom < 1 || s.Zoom > 20 {
		return fmt.Errorf("soundmap.zoom must be between 1 and 20, got %d", s.Zoom)
	}

	return nil
}

func validateHTTPURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s: %s (must be an http(s) URL)", field, raw)
	}
	return nil
}

// Load reads and validates encmusic.yml from the specified path.
// Settings the file omits keep their Default() values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadOrDefault is Load, except a missing file yields Default().
func LoadOrDefault(path string) (*Config, error) {
	config, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}
