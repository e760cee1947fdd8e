package soundmap

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalidState wraps every filter state parsing failure.
var ErrInvalidState = errors.New("invalid filter state")

// State is the filter state carried in the dashboard query string.
type State struct {
	// Purposes is the selected purpose values. Nil means every option.
	Purposes []string
	Ranges   map[string]Bounds
	// MaxVolume caps the volume range when set.
	MaxVolume *int
	Size      string
	Where     string
	Click     *LatLng
}

// Bounds is an inclusive integer range.
type Bounds struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// LatLng is a clicked map position.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

var rangePattern = regexp.MustCompile(`^\s*(-?\d+)\s*-\s*(-?\d+)\s*$`)

// ParseState reads filter state from query parameters:
//
//	purpose=study&purpose=social   selected purposes (absent = all, "purpose=" alone = none)
//	volume=2-5                     range for a numeric field
//	volume_min=2&volume_max=5      the same range as separate form inputs
//	max_volume=6                   upper bound on volume
//	size=pitch                     marker size field
//	where=pitch > 3                expression filter
//	lat=40.02&lng=-75.31           clicked marker
//
// Ranges overlapping a field's values are clamped to them. A range that
// misses them entirely is kept as given and matches nothing.
func ParseState(q url.Values, c Controls) (State, error) {
	st := State{Ranges: make(map[string]Bounds)}

	if vals, ok := q["purpose"]; ok {
		st.Purposes = []string{}
		for _, v := range vals {
			v = strings.TrimSpace(v)
			if v != "" && slices.Contains(c.Purposes, v) && !slices.Contains(st.Purposes, v) {
				st.Purposes = append(st.Purposes, v)
			}
		}
	}

	for _, s := range c.Fields {
		b, set, err := parseBounds(q, s)
		if err != nil {
			return State{}, err
		}
		if set {
			st.Ranges[s.Field] = b
		}
	}

	if raw := strings.TrimSpace(q.Get("max_volume")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return State{}, fmt.Errorf("%w: max_volume must be an integer, got %q", ErrInvalidState, raw)
		}
		st.MaxVolume = &n
	}

	st.Size = FixedSize
	if size := strings.TrimSpace(q.Get("size")); size != "" {
		if !slices.Contains(c.SizeOptions, size) {
			return State{}, fmt.Errorf("%w: unknown size field %q", ErrInvalidState, size)
		}
		st.Size = size
	}

	st.Where = strings.TrimSpace(q.Get("where"))

	latRaw, lngRaw := strings.TrimSpace(q.Get("lat")), strings.TrimSpace(q.Get("lng"))
	if latRaw != "" || lngRaw != "" {
		lat, err1 := strconv.ParseFloat(latRaw, 64)
		lng, err2 := strconv.ParseFloat(lngRaw, 64)
		if err1 != nil || err2 != nil {
			return State{}, fmt.Errorf("%w: lat and lng must both be numbers", ErrInvalidState)
		}
		st.Click = &LatLng{Lat: lat, Lng: lng}
	}

	return st, nil
}

func parseBounds(q url.Values, s Slider) (Bounds, bool, error) {
	b := Bounds{Lo: s.Min, Hi: s.Max}
	set := false

	if raw := q.Get(s.Field); raw != "" {
		m := rangePattern.FindStringSubmatch(raw)
		if m == nil {
			return b, false, fmt.Errorf("%w: %s must look like lo-hi, got %q", ErrInvalidState, s.Field, raw)
		}
		b.Lo, _ = strconv.Atoi(m[1])
		b.Hi, _ = strconv.Atoi(m[2])
		set = true
	}

	for suffix, dst := range map[string]*int{"_min": &b.Lo, "_max": &b.Hi} {
		raw := strings.TrimSpace(q.Get(s.Field + suffix))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return b, false, fmt.Errorf("%w: %s%s must be an integer, got %q", ErrInvalidState, s.Field, suffix, raw)
		}
		*dst = n
		set = true
	}

	if !set {
		return b, false, nil
	}
	if b.Lo > b.Hi {
		return b, false, fmt.Errorf("%w: %s range %d-%d is inverted", ErrInvalidState, s.Field, b.Lo, b.Hi)
	}

	if lo, hi := max(b.Lo, s.Min), min(b.Hi, s.Max); lo <= hi {
		b.Lo, b.Hi = lo, hi
	}
	return b, true, nil
}

// Query encodes the state back into query parameters. Parameters equal to
// their defaults are omitted.
func (st State) Query(c Controls) url.Values {
	q := url.Values{}
	if st.Purposes != nil {
		if len(st.Purposes) == 0 {
			q.Set("purpose", "")
		}
		for _, p := range st.Purposes {
			q.Add("purpose", p)
		}
	}
	for _, s := range c.Fields {
		if b, ok := st.Ranges[s.Field]; ok && (b.Lo != s.Min || b.Hi != s.Max) {
			q.Set(s.Field, fmt.Sprintf("%d-%d", b.Lo, b.Hi))
		}
	}
	if st.MaxVolume != nil {
		q.Set("max_volume", strconv.Itoa(*st.MaxVolume))
	}
	if st.Size != "" && st.Size != FixedSize {
		q.Set("size", st.Size)
	}
	if st.Where != "" {
		q.Set("where", st.Where)
	}
	return q
}

// Selected reports whether purpose p is selected.
func (st State) Selected(p string) bool {
	return st.Purposes == nil || slices.Contains(st.Purposes, p)
}

// Range returns the effective bounds for a numeric field.
func (st State) Range(s Slider) Bounds {
	if b, ok := st.Ranges[s.Field]; ok {
		return b
	}
	return Bounds{Lo: s.Min, Hi: s.Max}
}
