// Package github lists the raw download URLs of files in a public GitHub
// repository, optionally narrowed to one directory and a set of filename
// patterns.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dyluth/encoding-music/internal/cache"
	"github.com/dyluth/encoding-music/internal/metrics"
	"go.uber.org/zap"
)

const (
	DefaultAPIURL = "https://api.github.com"
	DefaultRawURL = "https://raw.githubusercontent.com"
	DefaultBranch = "main"

	apiVersion = "2022-11-28"
	maxBody    = 64 << 20
)

// APIError reports a non-200 answer from the GitHub API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("failed to %s: HTTP %d: %s", e.Op, e.StatusCode, strings.TrimSpace(e.Body))
}

// FileManager lists files of one repository.
type FileManager struct {
	owner, repo string

	apiURL string
	rawURL string
	branch string
	token  string

	client *http.Client
	cache  *cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// Option configures a FileManager.
type Option func(*FileManager)

// WithAPIURL overrides the GitHub API base URL.
func WithAPIURL(u string) Option {
	return func(m *FileManager) { m.apiURL = strings.TrimRight(u, "/") }
}

// WithRawURL overrides the raw content base URL.
func WithRawURL(u string) Option {
	return func(m *FileManager) { m.rawURL = strings.TrimRight(u, "/") }
}

// WithBranch selects the branch to list. Empty keeps the default.
func WithBranch(b string) Option {
	return func(m *FileManager) {
		if b != "" {
			m.branch = b
		}
	}
}

// WithToken sends the token as a bearer credential.
func WithToken(token string) Option {
	return func(m *FileManager) { m.token = token }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(m *FileManager) {
		if c != nil {
			m.client = c
		}
	}
}

// WithCache memoizes listings for ttl.
func WithCache(c *cache.Cache, ttl time.Duration) Option {
	return func(m *FileManager) {
		m.cache = c
		m.ttl = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *FileManager) {
		if l != nil {
			m.logger = l
		}
	}
}

// New parses owner and repository from the last two path segments of
// repoURL, e.g. https://github.com/RichardFreedman/Encoding_Music.
func New(repoURL string, opts ...Option) (*FileManager, error) {
	owner, repo, err := parseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	m := &FileManager{
		owner:  owner,
		repo:   repo,
		apiURL: DefaultAPIURL,
		rawURL: DefaultRawURL,
		branch: DefaultBranch,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func parseRepoURL(repoURL string) (string, string, error) {
	trimmed := strings.TrimSpace(repoURL)
	if u, err := url.Parse(trimmed); err == nil && u.Host != "" {
		trimmed = u.Path
	}
	trimmed = strings.TrimSuffix(strings.TrimRight(trimmed, "/"), ".git")

	var parts []string
	for _, p := range strings.Split(trimmed, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return "", "", fmt.Errorf("repository URL %q must end in <owner>/<repo>", repoURL)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}

// Owner returns the repository owner.
func (m *FileManager) Owner() string { return m.owner }

// Repo returns the repository name.
func (m *FileManager) Repo() string { return m.repo }

// Branch returns the listed branch.
func (m *FileManager) Branch() string { return m.branch }

// RawURL returns the download URL of a repository path on the branch.
func (m *FileManager) RawURL(p string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", m.rawURL, m.owner, m.repo, m.branch, strings.TrimLeft(p, "/"))
}

type refResponse struct {
	Object struct {
		SHA string `json:"sha"`
	} `json:"object"`
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

type treeResponse struct {
	SHA       string      `json:"sha"`
	Tree      []treeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

// TreeSHA resolves the head commit of the branch.
func (m *FileManager) TreeSHA(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/ref/heads/%s", m.apiURL, m.owner, m.repo, m.branch)

	var ref refResponse
	if err := m.getJSON(ctx, "fetch tree SHA", endpoint, &ref); err != nil {
		return "", err
	}
	if ref.Object.SHA == "" {
		return "", fmt.Errorf("branch %s of %s/%s has no commit", m.branch, m.owner, m.repo)
	}
	return ref.Object.SHA, nil
}

// ListFiles returns raw URLs of every file under dir whose basename matches
// one of patterns, in tree order. A nil or empty patterns matches every
// file; there is no way to ask for none. An empty dir lists the whole
// repository.
func (m *FileManager) ListFiles(ctx context.Context, dir string, patterns []string) ([]string, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
	}

	key := fmt.Sprintf("github:%s/%s@%s:%s:%s", m.owner, m.repo, m.branch, dir, strings.Join(patterns, ","))
	body, err := m.cache.GetOrLoad(ctx, key, m.ttl, func(ctx context.Context) ([]byte, error) {
		urls, err := m.listFiles(ctx, dir, patterns)
		if err != nil {
			return nil, err
		}
		return json.Marshal(urls)
	})
	if err != nil {
		return nil, err
	}

	var urls []string
	if err := json.Unmarshal(body, &urls); err != nil {
		return nil, fmt.Errorf("failed to decode cached listing: %w", err)
	}
	return urls, nil
}

func (m *FileManager) listFiles(ctx context.Context, dir string, patterns []string) ([]string, error) {
	sha, err := m.TreeSHA(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1", m.apiURL, m.owner, m.repo, sha)
	var tree treeResponse
	if err := m.getJSON(ctx, "fetch directory contents", endpoint, &tree); err != nil {
		return nil, err
	}
	if tree.Truncated {
		m.logger.Warn("repository tree truncated, listing is incomplete",
			zap.String("repo", m.owner+"/"+m.repo),
			zap.Int("entries", len(tree.Tree)))
	}

	urls := []string{}
	for _, entry := range tree.Tree {
		if dir != "" && !strings.HasPrefix(entry.Path, dir) {
			continue
		}
		if entry.Type != "blob" {
			continue
		}
		if matchAny(path.Base(entry.Path), patterns) {
			urls = append(urls, m.RawURL(entry.Path))
		}
	}

	m.logger.Debug("listed repository files",
		zap.String("repo", m.owner+"/"+m.repo),
		zap.String("dir", dir),
		zap.Int("matched", len(urls)))
	return urls, nil
}

func matchAny(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

func (m *FileManager) getJSON(ctx context.Context, op, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		metrics.UpstreamFetches.WithLabelValues("github", "error").Inc()
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		metrics.UpstreamFetches.WithLabelValues("github", "error").Inc()
		return fmt.Errorf("failed to %s: read body: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamFetches.WithLabelValues("github", "status").Inc()
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	metrics.UpstreamFetches.WithLabelValues("github", "ok").Inc()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to %s: decode response: %w", op, err)
	}
	return nil
}
