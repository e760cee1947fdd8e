package timespec

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format accepted on the command line and in
// dashboard forms.
const DateLayout = "2006-01-02"

// xsdLayout is the xsd:dateTime lexical form without a zone, which is what the
// Carnegie Hall endpoint stores performance dates as.
const xsdLayout = "2006-01-02T15:04:05"

// ParseDate parses a date specification into a UTC calendar day.
// Supports three formats:
//   - Calendar dates: "1891-05-05"
//   - RFC3339 timestamps: "2025-10-29T13:00:00Z"
//   - Go duration format: "720h", "48h30m"
//
// Duration specifications are relative to now (subtracted from now).
// For example, "48h" means "two days ago".
//
// The result is always truncated to midnight UTC.
func ParseDate(spec string) (time.Time, error) {
	return parseDate(spec, time.Now())
}

func parseDate(spec string, now time.Time) (time.Time, error) {
	if spec == "" {
		return time.Time{}, fmt.Errorf("empty date specification")
	}

	if t, err := time.Parse(DateLayout, spec); err == nil {
		return t, nil
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return Day(t), nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return Day(now.Add(-d)), nil
	}

	return time.Time{}, fmt.Errorf("invalid date specification: %s (use a date like '1891-05-05', RFC3339 like '2025-10-29T13:00:00Z' or a duration like '720h')", spec)
}

// ParseRange parses both --from and --to flags into a date range.
// Zero values indicate "no bound" for that end of the range.
//
// Validates that from is not after to if both are specified. A single-day
// range is allowed.
func ParseRange(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if from != "" {
		start, err = ParseDate(from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
	}

	if to != "" {
		end, err = ParseDate(to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
	}

	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from must not be after --to")
	}

	return start, end, nil
}

// Day truncates t to midnight of its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// XSDDateTime formats t as an xsd:dateTime literal body, e.g.
// "1891-05-05T00:00:00".
func XSDDateTime(t time.Time) string {
	return t.Format(xsdLayout)
}
