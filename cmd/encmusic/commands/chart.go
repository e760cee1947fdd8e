package commands

import (
	"github.com/dyluth/encoding-music/internal/chart"
	"github.com/dyluth/encoding-music/internal/printer"
	"github.com/spf13/cobra"
)

var (
	chartOut  string
	chartSeed uint64
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Chart examples",
}

var chartGalleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Write the example charts as SVG files",
	Long: `Write a bar chart, a histogram, a scatter plot and a correlation heatmap
built from sample data. The same --seed always produces the same charts.`,
	Args: cobra.NoArgs,
	RunE: runChartGallery,
}

func init() {
	chartGalleryCmd.Flags().StringVar(&chartOut, "out", "charts", "Directory to write into")
	chartGalleryCmd.Flags().Uint64Var(&chartSeed, "seed", 1, "Random seed for the sample data")

	chartCmd.AddCommand(chartGalleryCmd)
	rootCmd.AddCommand(chartCmd)
}

func runChartGallery(cmd *cobra.Command, args []string) error {
	paths, err := chart.Gallery(chartOut, chartSeed)
	if err != nil {
		return err
	}
	for _, p := range paths {
		printer.Success("Wrote %s\n", p)
	}
	return nil
}
