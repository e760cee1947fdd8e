// Package spotify builds audio-feature tables for Spotify playlists.
//
// The client authenticates with the client-credentials flow, so it can read
// public playlists and catalog data but never a user's private library.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dyluth/encoding-music/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	DefaultAPIURL   = "https://api.spotify.com/v1"
	DefaultTokenURL = "https://accounts.spotify.com/api/token"

	// featureBatch is the most ids /audio-features accepts per request.
	featureBatch = 100
	maxBody      = 16 << 20
)

// Credentials identify a Spotify application.
type Credentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string // empty means DefaultTokenURL
}

// APIError reports a non-200 answer from the Web API.
type APIError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify %s: HTTP %d: %s", e.Path, e.StatusCode, strings.TrimSpace(e.Body))
}

// Client is a minimal Spotify Web API client.
type Client struct {
	http   *http.Client
	apiURL string
	market string
	logger *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIURL overrides the Web API base URL.
func WithAPIURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.apiURL = strings.TrimRight(u, "/")
		}
	}
}

// WithMarket restricts track relinking to an ISO 3166-1 country code.
func WithMarket(m string) Option {
	return func(c *Client) { c.market = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a client whose requests carry a client-credentials token.
// An *http.Client stored in ctx under oauth2.HTTPClient is used for both
// token and API requests.
func New(ctx context.Context, creds Credentials, opts ...Option) (*Client, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("spotify client id and secret are required (set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET)")
	}
	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	cc := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	c := &Client{
		http:   cc.Client(ctx),
		apiURL: DefaultAPIURL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// get decodes the JSON answer of a GET. ref is either a path below the API
// base or an absolute "next" URL returned by a paged endpoint.
func (c *Client) get(ctx context.Context, ref string, v any) error {
	endpoint := ref
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		endpoint = c.apiURL + ref
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamFetches.WithLabelValues("spotify", "error").Inc()
		return fmt.Errorf("spotify %s: %w", ref, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		metrics.UpstreamFetches.WithLabelValues("spotify", "error").Inc()
		return fmt.Errorf("spotify %s: read body: %w", ref, err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamFetches.WithLabelValues("spotify", "status").Inc()
		return &APIError{Path: req.URL.Path, StatusCode: resp.StatusCode, Body: string(body)}
	}
	metrics.UpstreamFetches.WithLabelValues("spotify", "ok").Inc()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("spotify %s: decode response: %w", ref, err)
	}
	return nil
}

func (c *Client) withMarket(q url.Values) url.Values {
	if c.market != "" {
		q.Set("market", c.market)
	}
	return q
}
