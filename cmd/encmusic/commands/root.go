package commands

import (
	"errors"
	"fmt"

	"github.com/dyluth/encoding-music/internal/cache"
	"github.com/dyluth/encoding-music/internal/config"
	"github.com/dyluth/encoding-music/internal/fetch"
	"github.com/dyluth/encoding-music/internal/logging"
	"github.com/dyluth/encoding-music/internal/printer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version string
	commit  string
	date    string

	configPath string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "encmusic",
	Short: "encmusic - Encoding Music data dashboards and tools",
	Long: `encmusic serves the Encoding Music teaching dashboards and exposes the
same tools on the command line.

  • Bi-Co sound map with purpose, range and expression filters
  • Carnegie Hall SPARQL query generator
  • GitHub file listings, Spotify playlist analysis and chart examples

Fetched data can be cached in Redis; 'encmusic cache up' starts a local one.`,
	Version: version,
	// Show help rather than silently succeeding without a subcommand
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	err := rootCmd.Execute()
	if err != nil && !printed(err) {
		printer.Error("Error", err.Error(), nil)
	}
	return err
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to encmusic.yml (defaults apply when it does not exist)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
}

// printedError marks errors whose explanation has already gone to stderr.
type printedError struct{ error }

func (e printedError) Unwrap() error { return e.error }

func printed(err error) bool {
	var pe printedError
	return errors.As(err, &pe)
}

// userError prints a formatted error block and returns an error that
// Execute will not print again.
func userError(title, explanation string, suggestions ...string) error {
	return printedError{printer.Error(title, explanation, suggestions)}
}

// loadConfig reads --config, falling back to defaults when the file does
// not exist, then applies environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, printedError{printer.ErrorWithContext(
			"Invalid configuration",
			err.Error(),
			map[string]string{"Config": configPath},
			[]string{
				"Fix the reported setting in " + configPath,
				"Run 'encmusic init --force' to regenerate a default configuration",
			},
		)}
	}

	env, err := config.ParseEnv()
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(env)
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	return logging.New(logLevel)
}

// openCache connects to the configured Redis cache. It returns nil when no
// cache is configured.
func openCache(cfg *config.Config, logger *zap.Logger) (*cache.Cache, error) {
	if cfg.Cache.RedisURL == "" {
		return nil, nil
	}
	c, err := cache.NewFromURL(cfg.Cache.RedisURL, cfg.Cache.Namespace)
	if err != nil {
		return nil, err
	}
	return c.WithLogger(logger), nil
}

func newFetcher(cfg *config.Config, c *cache.Cache) *fetch.Fetcher {
	return fetch.New(cfg.Fetch.Timeout, cfg.Fetch.UserAgent, cfg.Fetch.MaxBytes, c, cfg.Cache.TTL)
}
