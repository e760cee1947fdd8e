// Package soundmap models the Bi-Co sound survey dashboard: the survey table,
// the filter controls it offers, and the map, summary and feature views
// derived from the current filter state.
package soundmap

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dyluth/encoding-music/internal/config"
	"github.com/dyluth/encoding-music/internal/filter"
	"github.com/dyluth/encoding-music/pkg/dataset"
)

// FixedSize is the size option that draws every marker at the same radius.
const FixedSize = "Fixed Size"

// MeltIDVars are the survey columns carried through to the feature chart data.
var MeltIDVars = []string{
	"link", "timestamp", "campus", "time", "date", "location",
	"latitude", "longitude", "device", "sound", "recorder", "purpose",
}

// Fetcher loads raw survey bytes from a URL or path.
type Fetcher interface {
	Fetch(ctx context.Context, src string) ([]byte, error)
}

// Slider is a numeric range control over one field.
type Slider struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
}

// Controls lists what the filter sidebar offers for a loaded survey.
// Fields holds every configured numeric field with at least one value;
// Sliders is the subset whose values vary.
type Controls struct {
	PurposeField string   `json:"purpose_field"`
	Purposes     []string `json:"purposes"`
	Fields       []Slider `json:"fields"`
	Sliders      []Slider `json:"sliders"`
	SizeOptions  []string `json:"size_options"`
}

// Field returns the numeric field named name, slider or not.
func (c Controls) Field(name string) (Slider, bool) {
	for _, s := range c.Fields {
		if s.Field == name {
			return s, true
		}
	}
	return Slider{}, false
}

// Slider returns the slider for field, if the survey has one.
func (c Controls) Slider(field string) (Slider, bool) {
	for _, s := range c.Sliders {
		if s.Field == field {
			return s, true
		}
	}
	return Slider{}, false
}

// Survey is a loaded sound survey. Table is the full working copy; views
// never modify it.
type Survey struct {
	Table    *dataset.Table
	cfg      config.SoundMapConfig
	controls Controls
}

// Load fetches and parses the survey CSV named by cfg.Source, drops the
// configured columns and skips rows missing any cfg.DropMissing column.
func Load(ctx context.Context, f Fetcher, cfg config.SoundMapConfig) (*Survey, error) {
	data, err := f.Fetch(ctx, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to load survey: %w", err)
	}

	t, err := dataset.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse survey %s: %w", cfg.Source, err)
	}

	return New(t.Drop(cfg.DropColumns...).DropMissing(cfg.DropMissing...), cfg), nil
}

// New wraps an already loaded table.
func New(t *dataset.Table, cfg config.SoundMapConfig) *Survey {
	s := &Survey{Table: t, cfg: cfg}
	s.controls = s.buildControls()
	return s
}

// Config returns the sound map settings the survey was loaded with.
func (s *Survey) Config() config.SoundMapConfig {
	return s.cfg
}

// Controls returns the filter controls for this survey.
func (s *Survey) Controls() Controls {
	return s.controls
}

func (s *Survey) buildControls() Controls {
	c := Controls{
		PurposeField: s.cfg.PurposeField,
		Purposes:     s.Table.Tokens(s.cfg.PurposeField, s.cfg.PurposeSeparator),
		SizeOptions:  []string{FixedSize},
	}
	if c.Purposes == nil {
		c.Purposes = []string{}
	}

	for _, field := range s.cfg.NumericFields {
		if !s.Table.Has(field) {
			continue
		}
		c.SizeOptions = append(c.SizeOptions, field)

		lo, hi, ok := s.Table.IntBounds(field)
		if !ok {
			continue
		}
		sl := Slider{Field: field, Label: filter.Label(field), Min: lo, Max: hi}
		c.Fields = append(c.Fields, sl)
		if lo < hi {
			c.Sliders = append(c.Sliders, sl)
		}
	}
	return c
}

// presentNumericFields returns the configured numeric fields the table has.
func (s *Survey) presentNumericFields() []string {
	var out []string
	for _, f := range s.cfg.NumericFields {
		if s.Table.Has(f) {
			out = append(out, f)
		}
	}
	return out
}
