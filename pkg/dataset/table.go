package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrEmpty is returned when a CSV source has no header row.
var ErrEmpty = errors.New("dataset: no header row")

// Table is an immutable header-plus-rows view of tabular data.
// Every row holds exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// missingValues are the spellings treated as a missing cell, matching what
// spreadsheet exports and pandas round-trips commonly produce.
var missingValues = map[string]bool{
	"NA":   true,
	"N/A":  true,
	"n/a":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
	"<NA>": true,
}

// IsMissing reports whether a cell should be treated as absent.
func IsMissing(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || missingValues[s]
}

// New builds a table from a header and rows, padding or truncating rows to
// the header width.
func New(columns []string, rows [][]string) *Table {
	t := &Table{
		Columns: append([]string(nil), columns...),
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, fit(r, len(columns)))
	}
	return t
}

// ReadCSV parses a CSV stream whose first record is the header.
// Ragged rows are tolerated and normalized to the header width.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, record)
	}

	return New(header, rows), nil
}

// WriteCSV writes the header and rows as CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of a column, or -1 if it is absent.
func (t *Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Has reports whether the column exists.
func (t *Table) Has(col string) bool {
	return t.Index(col) >= 0
}

// Value returns the cell at row/col, or "" when the column is absent.
func (t *Table) Value(row int, col string) string {
	i := t.Index(col)
	if i < 0 {
		return ""
	}
	return t.Rows[row][i]
}

// Float coerces a cell to a number. Missing and unparsable cells report false.
func (t *Table) Float(row int, col string) (float64, bool) {
	return ParseFloat(t.Value(row, col))
}

// ParseFloat is the numeric coercion used by Float.
func ParseFloat(s string) (float64, bool) {
	if IsMissing(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Drop returns a copy without the named columns. Unknown names are ignored.
func (t *Table) Drop(cols ...string) *Table {
	drop := make(map[string]bool, len(cols))
	for _, c := range cols {
		drop[c] = true
	}

	var keep []int
	for i, c := range t.Columns {
		if !drop[c] {
			keep = append(keep, i)
		}
	}
	return t.project(keep)
}

func (t *Table) project(idx []int) *Table {
	out := &Table{Columns: make([]string, len(idx)), Rows: make([][]string, len(t.Rows))}
	for j, i := range idx {
		out.Columns[j] = t.Columns[i]
	}
	for r, row := range t.Rows {
		cells := make([]string, len(idx))
		for j, i := range idx {
			cells[j] = row[i]
		}
		out.Rows[r] = cells
	}
	return out
}

// DropMissing keeps rows where every named column is present.
// A named column that does not exist drops every row.
func (t *Table) DropMissing(cols ...string) *Table {
	idx := make([]int, len(cols))
	for j, c := range cols {
		idx[j] = t.Index(c)
	}

	var rows []int
	for r, row := range t.Rows {
		ok := true
		for _, i := range idx {
			if i < 0 || IsMissing(row[i]) {
				ok = false
				break
			}
		}
		if ok {
			rows = append(rows, r)
		}
	}
	return t.Subset(rows)
}

// Subset returns a copy restricted to the given row indices, in order.
func (t *Table) Subset(rows []int) *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...), Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		out.Rows = append(out.Rows, append([]string(nil), t.Rows[r]...))
	}
	return out
}

// Tokens splits every present cell of col on sep and returns the sorted set
// of trimmed, non-empty pieces.
func (t *Table) Tokens(col, sep string) []string {
	i := t.Index(col)
	if i < 0 {
		return nil
	}

	seen := make(map[string]bool)
	for _, row := range t.Rows {
		if IsMissing(row[i]) {
			continue
		}
		for _, p := range strings.Split(row[i], sep) {
			if p = strings.TrimSpace(p); p != "" {
				seen[p] = true
			}
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// IntBounds returns the minimum and maximum numeric values of col truncated
// to integers. ok is false when the column is absent or has no numeric cell.
func (t *Table) IntBounds(col string) (lo, hi int, ok bool) {
	flo, fhi, ok := t.FloatBounds(col)
	if !ok {
		return 0, 0, false
	}
	return int(flo), int(fhi), true
}

// FloatBounds returns the minimum and maximum numeric values of col.
func (t *Table) FloatBounds(col string) (lo, hi float64, ok bool) {
	i := t.Index(col)
	if i < 0 {
		return 0, 0, false
	}
	for _, row := range t.Rows {
		v, numeric := ParseFloat(row[i])
		if !numeric {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, ok
}

// Melt reshapes the table to long format. The result has the present id
// columns followed by "variable" and "value". Rows are emitted one value
// column at a time, each over every input row.
func (t *Table) Melt(idVars, valueVars []string) *Table {
	var ids, vals []int
	out := &Table{}
	for _, c := range idVars {
		if i := t.Index(c); i >= 0 {
			ids = append(ids, i)
			out.Columns = append(out.Columns, c)
		}
	}
	for _, c := range valueVars {
		if i := t.Index(c); i >= 0 {
			vals = append(vals, i)
		}
	}
	out.Columns = append(out.Columns, "variable", "value")

	for _, v := range vals {
		for _, row := range t.Rows {
			cells := make([]string, 0, len(ids)+2)
			for _, i := range ids {
				cells = append(cells, row[i])
			}
			cells = append(cells, t.Columns[v], row[v])
			out.Rows = append(out.Rows, cells)
		}
	}
	return out
}

// WithColumn returns a copy with an extra column holding value on every row.
// An existing column of the same name is overwritten.
func (t *Table) WithColumn(name, value string) *Table {
	out := t.Subset(allRows(t.Len()))
	if i := out.Index(name); i >= 0 {
		for _, row := range out.Rows {
			row[i] = value
		}
		return out
	}
	out.Columns = append(out.Columns, name)
	for r := range out.Rows {
		out.Rows[r] = append(out.Rows[r], value)
	}
	return out
}

// Append concatenates other below t. Columns are the union of both headers,
// t's order first; cells a table lacks are left empty.
func (t *Table) Append(other *Table) *Table {
	if t == nil && other == nil {
		return &Table{}
	}
	if t == nil {
		return other.Subset(allRows(other.Len()))
	}
	if other == nil {
		return t.Subset(allRows(t.Len()))
	}

	columns := append([]string(nil), t.Columns...)
	for _, c := range other.Columns {
		if t.Index(c) < 0 {
			columns = append(columns, c)
		}
	}

	out := &Table{Columns: columns}
	for _, src := range []*Table{t, other} {
		pos := make([]int, len(columns))
		for j, c := range columns {
			pos[j] = src.Index(c)
		}
		for _, row := range src.Rows {
			cells := make([]string, len(columns))
			for j, i := range pos {
				if i >= 0 {
					cells[j] = row[i]
				}
			}
			out.Rows = append(out.Rows, cells)
		}
	}
	return out
}

// Records returns each row as a column->cell map.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, len(t.Rows))
	for r, row := range t.Rows {
		rec := make(map[string]string, len(t.Columns))
		for i, c := range t.Columns {
			rec[c] = row[i]
		}
		out[r] = rec
	}
	return out
}

func fit(row []string, width int) []string {
	cells := make([]string, width)
	copy(cells, row)
	return cells
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}
