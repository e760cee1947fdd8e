package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dyluth/encoding-music/pkg/dataset"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is a multiselect filter over a text column.
// It is active only when fewer values are selected than there are options.
type Category struct {
	Column   string
	Selected []string
	Options  int
}

// Active reports whether the category narrows the selection.
func (c Category) Active() bool {
	return len(c.Selected) < c.Options
}

// Range is an inclusive numeric filter over a column.
// It is active only when the chosen bounds differ from the column bounds.
// An inverted range (Lo > Hi) is empty and matches nothing.
type Range struct {
	Column string
	Lo, Hi float64
	Min    float64
	Max    float64
}

// Active reports whether the range narrows the selection.
func (r Range) Active() bool {
	return r.Lo != r.Min || r.Hi != r.Max
}

// Criteria defines filtering criteria for table rows.
// All filters are ANDed together - a row must match ALL active filters to pass.
type Criteria struct {
	Categories []Category
	Ranges     []Range
	Expression string // expr-lang boolean over the row, empty = no filter
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	for _, cat := range c.Categories {
		if cat.Active() {
			return true
		}
	}
	for _, r := range c.Ranges {
		if r.Active() {
			return true
		}
	}
	return strings.TrimSpace(c.Expression) != ""
}

// Compiled holds criteria with their patterns and expression prepared.
type Compiled struct {
	criteria Criteria
	patterns []*regexp.Regexp // parallel to criteria.Categories, nil when inactive
	program  *vm.Program
}

// Result is the outcome of applying criteria to a table.
type Result struct {
	Rows   []int    // surviving row indices, in table order
	Active []string // one human description per active filter
}

// Compile validates the criteria once so they can be applied to many rows.
func (c *Criteria) Compile() (*Compiled, error) {
	out := &Compiled{
		criteria: *c,
		patterns: make([]*regexp.Regexp, len(c.Categories)),
	}

	for i, cat := range c.Categories {
		if !cat.Active() || len(cat.Selected) == 0 {
			continue
		}
		parts := make([]string, len(cat.Selected))
		for j, s := range cat.Selected {
			parts[j] = regexp.QuoteMeta(s)
		}
		re, err := regexp.Compile(strings.Join(parts, "|"))
		if err != nil {
			return nil, fmt.Errorf("invalid %s selection: %w", cat.Column, err)
		}
		out.patterns[i] = re
	}

	if src := strings.TrimSpace(c.Expression); src != "" {
		program, err := expr.Compile(src, expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("invalid where expression: %w", err)
		}
		out.program = program
	}

	return out, nil
}

// Matches returns true if the row passes every active filter.
func (c *Compiled) Matches(t *dataset.Table, row int) bool {
	for i, cat := range c.criteria.Categories {
		if !cat.Active() {
			continue
		}
		re := c.patterns[i]
		cell := t.Value(row, cat.Column)
		if re == nil || dataset.IsMissing(cell) || !re.MatchString(cell) {
			return false
		}
	}

	for _, r := range c.criteria.Ranges {
		if !r.Active() {
			continue
		}
		v, ok := t.Float(row, r.Column)
		if !ok || v < r.Lo || v > r.Hi {
			return false
		}
	}

	if c.program != nil {
		out, err := expr.Run(c.program, rowEnv(t, row))
		if err != nil {
			return false
		}
		if ok, _ := out.(bool); !ok {
			return false
		}
	}

	return true
}

// Apply narrows the table one filter at a time: categories, then ranges,
// then the expression. Each step only considers rows the previous one kept.
func (c *Compiled) Apply(t *dataset.Table) Result {
	rows := make([]int, t.Len())
	for i := range rows {
		rows[i] = i
	}

	var active []string
	narrow := func(keep func(row int) bool) {
		kept := rows[:0]
		for _, r := range rows {
			if keep(r) {
				kept = append(kept, r)
			}
		}
		rows = kept
	}

	for i, cat := range c.criteria.Categories {
		if !cat.Active() {
			continue
		}
		active = append(active, fmt.Sprintf("%s: %d/%d", Label(cat.Column), len(cat.Selected), cat.Options))
		re := c.patterns[i]
		narrow(func(row int) bool {
			cell := t.Value(row, cat.Column)
			return re != nil && !dataset.IsMissing(cell) && re.MatchString(cell)
		})
	}

	for _, r := range c.criteria.Ranges {
		if !r.Active() {
			continue
		}
		active = append(active, r.describe())
		narrow(func(row int) bool {
			v, ok := t.Float(row, r.Column)
			return ok && v >= r.Lo && v <= r.Hi
		})
	}

	if c.program != nil {
		active = append(active, "Where: "+strings.TrimSpace(c.criteria.Expression))
		narrow(func(row int) bool {
			out, err := expr.Run(c.program, rowEnv(t, row))
			ok, _ := out.(bool)
			return err == nil && ok
		})
	}

	if rows == nil {
		rows = []int{}
	}
	return Result{Rows: rows, Active: active}
}

var titler = cases.Title(language.English)

// Label turns a column name into a display label: "max_volume" becomes
// "Max Volume".
func Label(column string) string {
	return titler.String(strings.ReplaceAll(column, "_", " "))
}

// Identifier is the name a column is exposed under in where expressions.
func Identifier(column string) string {
	var b strings.Builder
	for i, r := range column {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// rowEnv exposes a row to expr: numeric cells as float64, missing cells as
// nil, everything else as string.
func rowEnv(t *dataset.Table, row int) map[string]any {
	env := make(map[string]any, len(t.Columns))
	for i, col := range t.Columns {
		cell := t.Rows[row][i]
		key := Identifier(col)
		if dataset.IsMissing(cell) {
			env[key] = nil
			continue
		}
		if v, ok := dataset.ParseFloat(cell); ok {
			env[key] = v
			continue
		}
		env[key] = cell
	}
	return env
}

func (r Range) describe() string {
	if r.Lo > r.Hi {
		return Label(r.Column) + ": none"
	}
	return fmt.Sprintf("%s: %s-%s", Label(r.Column), formatBound(r.Lo), formatBound(r.Hi))
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
