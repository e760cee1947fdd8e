package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds secrets and deployment overrides that never live in encmusic.yml.
type Env struct {
	RedisURL            string `env:"ENCMUSIC_REDIS_URL"`
	Addr                string `env:"ENCMUSIC_ADDR"`
	GitHubToken         string `env:"GITHUB_TOKEN"`
	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
}

// ParseEnv loads Env from environment variables.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// ApplyEnv overlays non-empty environment values on the configuration.
func (c *Config) ApplyEnv(e Env) {
	if e.RedisURL != "" {
		c.Cache.RedisURL = e.RedisURL
	}
	if e.Addr != "" {
		c.Server.Addr = e.Addr
	}
	if e.GitHubToken != "" {
		c.GitHub.Token = e.GitHubToken
	}
	if e.SpotifyClientID != "" {
		c.Spotify.ClientID = e.SpotifyClientID
	}
	if e.SpotifyClientSecret != "" {
		c.Spotify.ClientSecret = e.SpotifyClientSecret
	}
}
