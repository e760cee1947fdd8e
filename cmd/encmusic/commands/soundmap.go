package commands

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/dyluth/encoding-music/internal/output"
	"github.com/dyluth/encoding-music/internal/printer"
	"github.com/dyluth/encoding-music/internal/soundmap"
	"github.com/dyluth/encoding-music/pkg/dataset"
	"github.com/spf13/cobra"
)

var (
	smSource    string
	smPurposes  []string
	smRanges    []string
	smMaxVolume int
	smWhere     string
	smSize      string
	smOutput    string
	smSummary   bool
	smFeature   string
	smChart     string
)

var soundmapCmd = &cobra.Command{
	Use:   "soundmap",
	Short: "Filter the sound survey",
	Long: `Load the sound survey and print the events that pass the filters.

Filters combine with AND:
  --purpose study --purpose social   keep events with any selected purpose
  --purpose ""                       select no purpose (matches nothing)
  --range volume=3-6                 inclusive range on a numeric field
  --max-volume 5                     cap the volume range
  --where 'campus == "HC"'           expression over the row's columns

Use --feature lat,lng to print the feature profile of the events recorded
at a position, and --chart to also write it as an SVG bar chart.`,
	Example: `  encmusic soundmap --purpose study --range volume=3-8 --summary
  encmusic soundmap --where 'rowdiness > 5' --output csv > loud.csv
  encmusic soundmap --feature 40.028,-75.315 --chart canaday.svg`,
	Args: cobra.NoArgs,
	RunE: runSoundMap,
}

func init() {
	soundmapCmd.Flags().StringVar(&smSource, "source", "", "Survey CSV URL or path (overrides soundmap.source)")
	soundmapCmd.Flags().StringSliceVar(&smPurposes, "purpose", nil, "Purpose to keep (repeatable)")
	soundmapCmd.Flags().StringArrayVar(&smRanges, "range", nil, "Numeric range as field=lo-hi (repeatable)")
	soundmapCmd.Flags().IntVar(&smMaxVolume, "max-volume", 0, "Upper bound on volume")
	soundmapCmd.Flags().StringVar(&smWhere, "where", "", "Filter expression, e.g. 'pitch > 3 && campus == \"BMC\"'")
	soundmapCmd.Flags().StringVar(&smSize, "size", "", "Marker size field reported in the summary")
	soundmapCmd.Flags().StringVarP(&smOutput, "output", "o", "table", "Output format: table, jsonl or csv")
	soundmapCmd.Flags().BoolVar(&smSummary, "summary", false, "Print the summary instead of the rows")
	soundmapCmd.Flags().StringVar(&smFeature, "feature", "", "Position as lat,lng whose feature profile to print")
	soundmapCmd.Flags().StringVar(&smChart, "chart", "", "Write the --feature profile as an SVG to this file")
	rootCmd.AddCommand(soundmapCmd)
}

func runSoundMap(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(smOutput)
	if err != nil {
		return err
	}
	if smChart != "" && smFeature == "" {
		return fmt.Errorf("--chart requires --feature")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if smSource != "" {
		cfg.SoundMap.Source = smSource
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

	survey, err := soundmap.Load(cmd.Context(), newFetcher(cfg, c), cfg.SoundMap)
	if err != nil {
		return userError("Failed to load survey", err.Error(),
			"Check soundmap.source in "+configPath+" or pass --source")
	}

	q, err := soundMapQuery(cmd, cfg.SoundMap.NumericFields, survey.Controls())
	if err != nil {
		return err
	}
	st, err := soundmap.ParseState(q, survey.Controls())
	if err != nil {
		return err
	}
	view, err := survey.View(st)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case smFeature != "":
		return printFeature(cmd, view)
	case smSummary:
		printSummary(view)
		return nil
	default:
		return output.Write(out, view.Filtered, format, "filtered events")
	}
}

// soundMapQuery translates the command flags into dashboard query parameters.
// --range fields must be configured numeric fields with values in the survey.
func soundMapQuery(cmd *cobra.Command, numeric []string, controls soundmap.Controls) (url.Values, error) {
	q := url.Values{}

	if cmd.Flags().Changed("purpose") {
		q["purpose"] = []string{""}
		for _, p := range smPurposes {
			if p = strings.TrimSpace(p); p != "" {
				q.Add("purpose", p)
			}
		}
	}

	for _, r := range smRanges {
		field, bounds, ok := strings.Cut(r, "=")
		if !ok || strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("invalid --range %q: expected field=lo-hi", r)
		}
		field = strings.TrimSpace(field)
		if !slices.Contains(numeric, field) {
			return nil, fmt.Errorf("invalid --range %q: unknown field %q, expected one of %s", r, field, strings.Join(numeric, ", "))
		}
		if _, ok := controls.Field(field); !ok {
			return nil, fmt.Errorf("invalid --range %q: the survey has no %s values", r, field)
		}
		q.Set(field, bounds)
	}

	if cmd.Flags().Changed("max-volume") {
		q.Set("max_volume", strconv.Itoa(smMaxVolume))
	}
	if smWhere != "" {
		q.Set("where", smWhere)
	}
	if smSize != "" {
		q.Set("size", smSize)
	}
	return q, nil
}

func printSummary(v *soundmap.View) {
	active := "none"
	if len(v.Active) > 0 {
		active = strings.Join(v.Active, ", ")
	}
	s := v.Summary
	printer.Metric("Active filters", active)
	printer.Metric("Events", fmt.Sprintf("%d of %d (%+d)", s.Filtered, s.Total, s.Delta))
	printer.Metric("Coverage", fmt.Sprintf("%.1f%%", s.Coverage))
	printer.Metric("Mapped", s.Mapped)
	if s.LatMin != nil {
		printer.Metric("Latitude", fmt.Sprintf("%.4f to %.4f", *s.LatMin, *s.LatMax))
		printer.Metric("Longitude", fmt.Sprintf("%.4f to %.4f", *s.LonMin, *s.LonMax))
	}
	if s.SizeMin != nil {
		printer.Metric(s.SizeField, fmt.Sprintf("%g to %g", *s.SizeMin, *s.SizeMax))
	}
}

func printFeature(cmd *cobra.Command, v *soundmap.View) error {
	latRaw, lngRaw, ok := strings.Cut(smFeature, ",")
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(lngRaw), 64)
	if !ok || err1 != nil || err2 != nil {
		return fmt.Errorf("invalid --feature %q: expected lat,lng", smFeature)
	}

	f, err := v.Feature(lat, lng)
	if err != nil {
		return userError("No sound at that position", err.Error(),
			"Pick a latitude and longitude from the filtered rows")
	}

	rows := make([][]string, len(f.Bars))
	for i, b := range f.Bars {
		rows[i] = []string{b.Variable, strconv.FormatFloat(b.Value, 'f', -1, 64)}
	}
	format, _ := output.ParseFormat(smOutput)
	if err := output.Write(cmd.OutOrStdout(), dataset.New([]string{"variable", "value"}, rows), format, f.Title()); err != nil {
		return err
	}

	if smChart == "" {
		return nil
	}
	file, err := os.Create(smChart)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", smChart, err)
	}
	if err := f.Chart(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	printer.Success("Wrote %s\n", smChart)
	return nil
}
