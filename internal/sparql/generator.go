// Package sparql generates queries for the Carnegie Hall data lab from a
// fixed menu of templates and builds the encoded links that run them.
package sparql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dyluth/encoding-music/internal/timespec"
)

var (
	// ErrUnknownOption is returned for a menu entry that does not exist.
	ErrUnknownOption = errors.New("unknown query option")
	// ErrMissingInput is returned when a required input is empty.
	ErrMissingInput = errors.New("missing input")
	// ErrInvalidInput is returned when an input is present but malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDateOutOfRange is returned for dates outside the archive window.
	ErrDateOutOfRange = errors.New("date out of range")
)

// archiveDays is how far back a date may be chosen, in days.
const archiveDays = 123 * 365

// Request holds the form inputs for one query.
type Request struct {
	Option       string // template name or 1-based menu number
	Term         string
	LimitEnabled bool
	Limit        string
	Date         time.Time
	From         time.Time
	To           time.Time
}

// Options returns the template names in menu order.
func Options() []string {
	names := make([]string, len(templates))
	for i, t := range templates {
		names[i] = t.Name
	}
	return names
}

// Templates returns the menu.
func Templates() []Template {
	return append([]Template(nil), templates...)
}

// Lookup finds a template by exact name or 1-based menu number.
func Lookup(option string) (Template, error) {
	option = strings.TrimSpace(option)
	for _, t := range templates {
		if t.Name == option {
			return t, nil
		}
	}
	if n, err := strconv.Atoi(option); err == nil && n >= 1 && n <= len(templates) {
		return templates[n-1], nil
	}
	return Template{}, fmt.Errorf("%w: %q", ErrUnknownOption, option)
}

// DateBounds returns the earliest and latest selectable days for today.
func DateBounds(today time.Time) (time.Time, time.Time) {
	day := timespec.Day(today)
	return day.AddDate(0, 0, -archiveDays), day
}

// Generate substitutes the request into its template.
func Generate(req Request, today time.Time) (string, error) {
	t, err := Lookup(req.Option)
	if err != nil {
		return "", err
	}

	term := strings.TrimSpace(req.Term)
	pairs := []string{}

	switch t.Kind {
	case KindCount:
		n, err := positiveInt("number of results", term)
		if err != nil {
			return "", err
		}
		pairs = append(pairs, "%s", strconv.Itoa(n))

	case KindTerm, KindTermLimit:
		if term == "" {
			return "", fmt.Errorf("%w: search term is required", ErrMissingInput)
		}
		pairs = append(pairs, "%s", EscapeLiteral(term))

	case KindDay:
		if req.Date.IsZero() {
			return "", fmt.Errorf("%w: date is required", ErrMissingInput)
		}
		if err := checkDate("date", req.Date, today); err != nil {
			return "", err
		}
		if term == "" {
			pairs = append(pairs, "%s", "''")
		} else {
			pairs = append(pairs, "%s", EscapeLiteral(term))
		}
		day := timespec.Day(req.Date)
		pairs = append(pairs,
			"%d", timespec.XSDDateTime(day),
			"%a", timespec.XSDDateTime(day.AddDate(0, 0, 1)),
		)

	case KindRange:
		if req.From.IsZero() || req.To.IsZero() {
			return "", fmt.Errorf("%w: both from and to dates are required", ErrMissingInput)
		}
		if err := checkDate("from", req.From, today); err != nil {
			return "", err
		}
		if err := checkDate("to", req.To, today); err != nil {
			return "", err
		}
		from, to := timespec.Day(req.From), timespec.Day(req.To)
		if from.After(to) {
			return "", fmt.Errorf("%w: from %s is after to %s", ErrInvalidInput, from.Format(timespec.DateLayout), to.Format(timespec.DateLayout))
		}
		pairs = append(pairs,
			"%d", timespec.XSDDateTime(from),
			"%a", timespec.XSDDateTime(to.Add(24*time.Hour-time.Second)),
		)
	}

	if t.HasLimit() {
		if req.LimitEnabled {
			n, err := positiveInt("limit", strings.TrimSpace(req.Limit))
			if err != nil {
				return "", err
			}
			pairs = append(pairs, "%l", strconv.Itoa(n))
		} else {
			// "LIMIT %l" must precede "%l" so the whole clause is removed.
			pairs = append([]string{"LIMIT %l", ""}, pairs...)
		}
	}

	return strings.NewReplacer(pairs...).Replace(t.Query), nil
}

// EscapeLiteral escapes text for use inside a double-quoted SPARQL string.
func EscapeLiteral(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`).Replace(s)
}

func positiveInt(name, raw string) (int, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", ErrMissingInput, name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidInput, name, raw)
	}
	return n, nil
}

func checkDate(name string, d, today time.Time) error {
	lo, hi := DateBounds(today)
	day := timespec.Day(d)
	if day.Before(lo) || day.After(hi) {
		return fmt.Errorf("%w: %s %s must be between %s and %s", ErrDateOutOfRange, name,
			day.Format(timespec.DateLayout), lo.Format(timespec.DateLayout), hi.Format(timespec.DateLayout))
	}
	return nil
}
