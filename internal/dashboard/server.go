// Package dashboard serves the sound map and SPARQL generator dashboards
// over HTTP.
//
// All dashboard state lives in the query string: every filter change is a
// new GET, and every view is re-derived from the loaded survey on each
// request.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dyluth/encoding-music/internal/cache"
	"github.com/dyluth/encoding-music/internal/config"
	"github.com/dyluth/encoding-music/internal/soundmap"
	"go.uber.org/zap"
)

// Fetcher loads data sources and can drop a cached copy.
type Fetcher interface {
	Fetch(ctx context.Context, src string) ([]byte, error)
	Invalidate(ctx context.Context, src string) error
}

// Server is the dashboard HTTP server.
type Server struct {
	cfg     *config.Config
	fetcher Fetcher
	cache   *cache.Cache
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.RWMutex
	survey  *soundmap.Survey
	loadErr error

	handler  http.Handler
	server   *http.Server
	listener net.Listener
}

// New creates a server. A nil cache reports Redis as disabled.
func New(cfg *config.Config, f Fetcher, c *cache.Cache, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		fetcher: f,
		cache:   c,
		logger:  logger,
		now:     time.Now,
		loadErr: errors.New("survey not loaded"),
	}
	s.handler = s.routes()
	return s
}

// LoadSurvey fetches and parses the configured survey. On failure the
// previously loaded survey, if any, stays in service.
func (s *Server) LoadSurvey(ctx context.Context) error {
	start := time.Now()
	survey, err := soundmap.Load(ctx, s.fetcher, s.cfg.SoundMap)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.survey == nil {
			s.loadErr = err
		}
		s.logger.Error("survey load failed", zap.String("source", s.cfg.SoundMap.Source), zap.Error(err))
		return err
	}

	s.survey, s.loadErr = survey, nil
	s.logger.Info("survey loaded",
		zap.String("source", s.cfg.SoundMap.Source),
		zap.Int("rows", survey.Table.Len()),
		zap.Duration("took", time.Since(start)))
	return nil
}

// ReloadSurvey drops the cached survey and loads it again from its source.
func (s *Server) ReloadSurvey(ctx context.Context) error {
	if err := s.fetcher.Invalidate(ctx, s.cfg.SoundMap.Source); err != nil {
		s.logger.Warn("failed to invalidate cached survey", zap.Error(err))
	}
	return s.LoadSurvey(ctx)
}

func (s *Server) currentSurvey() (*soundmap.Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.survey == nil {
		return nil, s.loadErr
	}
	return s.survey, nil
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves in the background.
// Listen errors are returned; serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("dashboard server error", zap.Error(err))
		}
	}()

	s.logger.Info("dashboard listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
