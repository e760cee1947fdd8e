package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/encoding-music/internal/dashboard"
	"github.com/dyluth/encoding-music/internal/printer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	serveAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard server",
	Long: `Serve the sound map and SPARQL dashboards over HTTP.

The survey is loaded once at startup; POST /soundmap/reload fetches it again.
When a Redis cache is configured (cache.redis_url or ENCMUSIC_REDIS_URL),
fetched data is cached there and /healthz reports its state.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	c, err := openCache(cfg, logger)
	if err != nil {
		return err
	}
	if c != nil {
		defer c.Close()
		if err := c.Ping(cmd.Context()); err != nil {
			logger.Warn("cache unreachable, serving uncached until it recovers", zap.Error(err))
		}
	}

	srv := dashboard.New(cfg, newFetcher(cfg, c), c, logger)
	if err := srv.LoadSurvey(cmd.Context()); err != nil {
		logger.Warn("initial survey load failed", zap.Error(err))
	}

	if err := srv.Start(); err != nil {
		return userError("Failed to start dashboard", err.Error(),
			"Choose another address with --addr or ENCMUSIC_ADDR")
	}
	printer.Success("Dashboard running at http://%s\n", srv.Addr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	printer.Info("Shutting down...\n")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
