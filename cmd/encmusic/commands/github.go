package commands

import (
	"path"

	"github.com/dyluth/encoding-music/internal/github"
	"github.com/dyluth/encoding-music/internal/output"
	"github.com/dyluth/encoding-music/pkg/dataset"
	"github.com/spf13/cobra"
)

var (
	ghDir      string
	ghPatterns []string
	ghBranch   string
	ghOutput   string
)

var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Work with files in GitHub repositories",
}

var githubFilesCmd = &cobra.Command{
	Use:   "files <repo-url>",
	Short: "List matching files in a repository directory",
	Long: `List the files under --dir whose names match any --pattern, with the
raw URL each can be downloaded from. --dir is a path prefix. Patterns are globs matched against
the file name (for example *.mei or *.{krn,musicxml}).

Set GITHUB_TOKEN to raise the API rate limit.`,
	Example: `  encmusic github files https://github.com/RichardFreedman/Encoding_Music --dir 06_SoundMap --pattern '*.csv'`,
	Args:    cobra.ExactArgs(1),
	RunE:    runGitHubFiles,
}

func init() {
	githubFilesCmd.Flags().StringVar(&ghDir, "dir", "", "Directory within the repository")
	githubFilesCmd.Flags().StringSliceVar(&ghPatterns, "pattern", []string{"*"}, "File name glob (repeatable)")
	githubFilesCmd.Flags().StringVar(&ghBranch, "branch", "", "Branch (overrides github.branch)")
	githubFilesCmd.Flags().StringVarP(&ghOutput, "output", "o", "table", "Output format: table, jsonl or csv")

	githubCmd.AddCommand(githubFilesCmd)
	rootCmd.AddCommand(githubCmd)
}

func runGitHubFiles(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(ghOutput)
	if err != nil {
		return err
	}

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
	if c != nil {
		defer c.Close()
	}

	branch := cfg.GitHub.Branch
	if ghBranch != "" {
		branch = ghBranch
	}

	fm, err := github.New(args[0],
		github.WithAPIURL(cfg.GitHub.APIURL),
		github.WithRawURL(cfg.GitHub.RawURL),
		github.WithBranch(branch),
		github.WithToken(cfg.GitHub.Token),
		github.WithCache(c, cfg.Cache.TTL),
		github.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	files, err := fm.ListFiles(cmd.Context(), ghDir, ghPatterns)
	if err != nil {
		return userError("Failed to list files", err.Error(),
			"Check the repository URL, --dir and --branch",
			"Set GITHUB_TOKEN if you are rate limited")
	}

	rows := make([][]string, len(files))
	for i, u := range files {
		rows[i] = []string{path.Base(u), u}
	}
	return output.Write(cmd.OutOrStdout(), dataset.New([]string{"file", "raw_url"}, rows), format, fm.Owner()+"/"+fm.Repo())
}
