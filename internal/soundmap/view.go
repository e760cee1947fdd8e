package soundmap

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/dyluth/encoding-music/internal/chart"
	"github.com/dyluth/encoding-music/internal/filter"
	"github.com/dyluth/encoding-music/pkg/dataset"
)

// ErrNoSelection is returned when a clicked position matches no event.
var ErrNoSelection = errors.New("no sound selected")

const volumeField = "volume"

const (
	fixedRadius = 6
	minRadius   = 3
	maxRadius   = 50
	radiusScale = 3
)

// Marker is one mapped event.
type Marker struct {
	Lat      float64           `json:"lat"`
	Lon      float64           `json:"lon"`
	Location string            `json:"location"`
	Sound    string            `json:"sound"`
	Radius   float64           `json:"radius"`
	Size     *float64          `json:"size,omitempty"`
	Link     string            `json:"link"`
	Fields   map[string]string `json:"fields"`
}

// Summary holds the headline counts shown beside the map.
type Summary struct {
	Total     int      `json:"total"`
	Filtered  int      `json:"filtered"`
	Mapped    int      `json:"mapped"`
	Delta     int      `json:"delta"`
	Coverage  float64  `json:"coverage"`
	LatMin    *float64 `json:"lat_min,omitempty"`
	LatMax    *float64 `json:"lat_max,omitempty"`
	LonMin    *float64 `json:"lon_min,omitempty"`
	LonMax    *float64 `json:"lon_max,omitempty"`
	SizeField string   `json:"size_field,omitempty"`
	SizeMin   *float64 `json:"size_min,omitempty"`
	SizeMax   *float64 `json:"size_max,omitempty"`
}

// View is everything derived from one filter state.
type View struct {
	State    State          `json:"-"`
	Filtered *dataset.Table `json:"-"`
	Active   []string       `json:"active"`
	Markers  []Marker       `json:"markers"`
	Summary  Summary        `json:"summary"`
	fields   []string
}

// Criteria translates a filter state into filter criteria for this survey.
func (s *Survey) Criteria(st State) (filter.Criteria, error) {
	var c filter.Criteria

	if n := len(s.controls.Purposes); n > 0 {
		selected := st.Purposes
		if selected == nil {
			selected = s.controls.Purposes
		}
		c.Categories = append(c.Categories, filter.Category{
			Column:   s.cfg.PurposeField,
			Selected: selected,
			Options:  n,
		})
	}

	for _, f := range s.controls.Fields {
		b := st.Range(f)
		if f.Field == volumeField && st.MaxVolume != nil {
			// A cap below b.Lo leaves an inverted range, which matches nothing.
			b.Hi = min(b.Hi, *st.MaxVolume)
		}
		c.Ranges = append(c.Ranges, filter.Range{
			Column: f.Field,
			Lo:     float64(b.Lo),
			Hi:     float64(b.Hi),
			Min:    float64(f.Min),
			Max:    float64(f.Max),
		})
	}
	if st.MaxVolume != nil {
		if _, ok := s.controls.Field(volumeField); !ok {
			return c, fmt.Errorf("%w: max_volume needs numeric %s values", ErrInvalidState, volumeField)
		}
	}

	c.Expression = st.Where
	return c, nil
}

// View applies st to the full survey and derives the filtered table, map
// markers and summary.
func (s *Survey) View(st State) (*View, error) {
	criteria, err := s.Criteria(st)
	if err != nil {
		return nil, err
	}
	compiled, err := criteria.Compile()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	res := compiled.Apply(s.Table)
	v := &View{
		State:    st,
		Filtered: s.Table.Subset(res.Rows),
		Active:   res.Active,
		Markers:  []Marker{},
		fields:   s.presentNumericFields(),
	}
	if v.Active == nil {
		v.Active = []string{}
	}

	sizeField := ""
	if st.Size != "" && st.Size != FixedSize {
		sizeField = st.Size
	}

	records := v.Filtered.Records()
	for r := 0; r < v.Filtered.Len(); r++ {
		lat, okLat := v.Filtered.Float(r, "latitude")
		lon, okLon := v.Filtered.Float(r, "longitude")
		if !okLat || !okLon {
			continue
		}

		m := Marker{
			Lat:      lat,
			Lon:      lon,
			Location: v.Filtered.Value(r, "location"),
			Sound:    v.Filtered.Value(r, "sound"),
			Radius:   fixedRadius,
			Link:     GoogleMapsLink(lat, lon),
			Fields:   records[r],
		}
		if sizeField != "" {
			size, ok := v.Filtered.Float(r, sizeField)
			if !ok {
				continue
			}
			m.Size = &size
			m.Radius = MarkerRadius(size)
		}
		v.Markers = append(v.Markers, m)
	}

	v.Summary = summarize(s.Table.Len(), v.Filtered.Len(), v.Markers, sizeField)
	return v, nil
}

// MarkerRadius scales a size value to a marker radius in pixels.
func MarkerRadius(v float64) float64 {
	return math.Max(minRadius, math.Min(maxRadius, v*radiusScale))
}

// GoogleMapsLink returns a Google Maps search URL for a position.
func GoogleMapsLink(lat, lon float64) string {
	return "https://maps.google.com/?q=" + formatCoord(lat) + "," + formatCoord(lon)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func summarize(total, filtered int, markers []Marker, sizeField string) Summary {
	sum := Summary{
		Total:    total,
		Filtered: filtered,
		Mapped:   len(markers),
		Delta:    filtered - total,
	}
	if total > 0 {
		sum.Coverage = float64(filtered) / float64(total) * 100
	}
	if sizeField != "" {
		sum.SizeField = filter.Label(sizeField)
	}

	for i, m := range markers {
		if i == 0 {
			sum.LatMin, sum.LatMax = ptr(m.Lat), ptr(m.Lat)
			sum.LonMin, sum.LonMax = ptr(m.Lon), ptr(m.Lon)
		}
		*sum.LatMin = math.Min(*sum.LatMin, m.Lat)
		*sum.LatMax = math.Max(*sum.LatMax, m.Lat)
		*sum.LonMin = math.Min(*sum.LonMin, m.Lon)
		*sum.LonMax = math.Max(*sum.LonMax, m.Lon)

		if m.Size == nil {
			continue
		}
		if sum.SizeMin == nil {
			sum.SizeMin, sum.SizeMax = ptr(*m.Size), ptr(*m.Size)
		}
		*sum.SizeMin = math.Min(*sum.SizeMin, *m.Size)
		*sum.SizeMax = math.Max(*sum.SizeMax, *m.Size)
	}
	return sum
}

func ptr(v float64) *float64 { return &v }

// Bar is one variable/value pair on the feature chart.
type Bar struct {
	Variable string  `json:"variable"`
	Value    float64 `json:"value"`
}

// Feature is the numeric profile of the events at a clicked position.
type Feature struct {
	Sound string `json:"sound"`
	Bars  []Bar  `json:"bars"`
}

// Feature melts the filtered events on the numeric fields and keeps the
// rows recorded exactly at lat/lon.
func (v *View) Feature(lat, lon float64) (*Feature, error) {
	long := v.Filtered.Melt(MeltIDVars, v.fields)

	var f *Feature
	for r := 0; r < long.Len(); r++ {
		rlat, ok1 := long.Float(r, "latitude")
		rlon, ok2 := long.Float(r, "longitude")
		if !ok1 || !ok2 || rlat != lat || rlon != lon {
			continue
		}
		if f == nil {
			f = &Feature{Sound: long.Value(r, "sound"), Bars: []Bar{}}
		}
		value, ok := long.Float(r, "value")
		if !ok {
			continue
		}
		f.Bars = append(f.Bars, Bar{Variable: long.Value(r, "variable"), Value: value})
	}

	if f == nil {
		return nil, ErrNoSelection
	}
	return f, nil
}

// Title is the chart heading for the feature.
func (f *Feature) Title() string {
	return "Feature Chart for: " + f.Sound
}

// Chart renders the feature as a bar chart SVG.
func (f *Feature) Chart(w io.Writer) error {
	labels := make([]string, len(f.Bars))
	values := make([]float64, len(f.Bars))
	for i, b := range f.Bars {
		labels[i] = b.Variable
		values[i] = b.Value
	}
	return chart.Bar(w, f.Title(), labels, values)
}
