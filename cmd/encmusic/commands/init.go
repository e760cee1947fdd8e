package commands

import (
	"fmt"

	"github.com/dyluth/encoding-music/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	forceInit bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default encmusic.yml",
	Long: `Initialize an encmusic project in the current directory.

Creates:
  • encmusic.yml - Configuration with every default spelled out
  • .env.example - The environment variables encmusic reads

Use --force to reinitialize an existing project (WARNING: overwrites existing configuration).`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	// Note: Cannot use -f shorthand because it is easily confused with --config
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Force reinitialization (replaces existing encmusic.yml and .env.example)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if !forceInit {
		if err := scaffold.CheckExisting("."); err != nil {
			return err
		}
	}

	if err := scaffold.Initialize(".", forceInit); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	scaffold.PrintSuccess()
	return nil
}
