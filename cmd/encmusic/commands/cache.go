package commands

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dyluth/encoding-music/internal/docker"
	"github.com/dyluth/encoding-music/internal/instance"
	"github.com/dyluth/encoding-music/internal/output"
	"github.com/dyluth/encoding-music/internal/printer"
	"github.com/spf13/cobra"
)

var (
	cacheName  string
	cacheImage string
	cacheJSON  bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the Redis data cache",
	Long: `Run a local Redis container for caching fetched data, and inspect or
empty the configured cache.

Point encmusic at a running cache with cache.redis_url in encmusic.yml or
the ENCMUSIC_REDIS_URL environment variable.`,
}

var cacheUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Start a local Redis cache container",
	Long: `Start a labelled Redis container bound to 127.0.0.1 on the first free port
from 6379 and wait until it answers PING.`,
	Args: cobra.NoArgs,
	RunE: runCacheUp,
}

var cacheDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop and remove a local Redis cache container",
	Args:  cobra.NoArgs,
	RunE:  runCacheDown,
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List local Redis cache containers",
	Args:  cobra.NoArgs,
	RunE:  runCacheStatus,
}

var cacheFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Delete every cached entry in the configured namespace",
	Args:  cobra.NoArgs,
	RunE:  runCacheFlush,
}

func init() {
	for _, c := range []*cobra.Command{cacheUpCmd, cacheDownCmd} {
		c.Flags().StringVarP(&cacheName, "name", "n", instance.DefaultName, "Cache instance name")
	}
	cacheUpCmd.Flags().StringVar(&cacheImage, "image", instance.DefaultImage, "Redis image")
	cacheStatusCmd.Flags().BoolVar(&cacheJSON, "json", false, "Output in JSON format")

	cacheCmd.AddCommand(cacheUpCmd, cacheDownCmd, cacheStatusCmd, cacheFlushCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheUp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cli, err := docker.NewClient(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	info, err := instance.Up(ctx, cli, instance.UpOptions{
		Name:  cacheName,
		Image: cacheImage,
		Progress: func(format string, a ...any) {
			printer.Step(format+"\n", a...)
		},
	})
	if errors.Is(err, instance.ErrExists) {
		return userError(
			fmt.Sprintf("cache '%s' already exists", cacheName),
			err.Error(),
			"Stop it first:\n  encmusic cache down --name "+cacheName,
			"Choose another name:\n  encmusic cache up --name <name>",
		)
	}
	if err != nil {
		return err
	}

	printer.Success("Cache '%s' is running\n", info.Name)
	printer.Println("\nUse it with:")
	printer.Printf("  export ENCMUSIC_REDIS_URL=%s\n", info.URL)
	return nil
}

func runCacheDown(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cli, err := docker.NewClient(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	removed, err := instance.Down(ctx, cli, cacheName)
	if err != nil {
		return err
	}
	if removed == 0 {
		return userError(
			fmt.Sprintf("cache '%s' not found", cacheName),
			fmt.Sprintf("No containers found with instance name '%s'.", cacheName),
			"Run 'encmusic cache status' to see available caches",
		)
	}

	printer.Success("Cache '%s' removed\n", cacheName)
	return nil
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cli, err := docker.NewClient(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	containers, err := instance.ListCaches(ctx, cli)
	if err != nil {
		return err
	}
	infos := instance.Describe(containers)

	out := cmd.OutOrStdout()
	if cacheJSON {
		return output.FormatSingleJSON(out, infos)
	}
	if len(infos) == 0 {
		printer.Info("No caches found\n")
		return nil
	}

	rows := make([][]string, len(infos))
	for i, info := range infos {
		rows[i] = []string{info.Name, string(info.Status), strconv.Itoa(info.Port), info.URL, formatAge(time.Since(info.Created))}
	}
	return printer.Table(out, []string{"Name", "Status", "Port", "URL", "Created"}, rows)
}

func runCacheFlush(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}

	c, err := openCache(cfg, logger)
	if err != nil {
		return err
	}
	if c == nil {
		return userError("No cache configured", "cache.redis_url is empty and ENCMUSIC_REDIS_URL is not set.",
			"Start one with 'encmusic cache up' and export the URL it prints")
	}
	defer c.Close()

	n, err := c.Flush(cmd.Context())
	if err != nil {
		return err
	}
	printer.Success("Flushed %d entries from namespace '%s'\n", n, c.Namespace())
	return nil
}

// formatAge renders d like "3h12m ago".
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh%dm ago", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours())/24)
	}
}
