package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/encoding-music/internal/printer"
	"github.com/dyluth/encoding-music/pkg/dataset"
)

// Format selects how a table is written.
type Format string

const (
	FormatTable Format = "table"
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSONL, FormatCSV:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("invalid output format '%s': must be 'table', 'jsonl' or 'csv'", s)
	}
}

// Write renders t to w in the given format. title only appears in table output.
func Write(w io.Writer, t *dataset.Table, format Format, title string) error {
	switch format {
	case FormatTable:
		FormatTableRows(w, t, title)
		return nil
	case FormatJSONL:
		return FormatJSONLRows(w, t)
	case FormatCSV:
		if t == nil {
			t = &dataset.Table{}
		}
		return t.WriteCSV(w)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// FormatTableRows writes t as an aligned table followed by a row count.
// Long cells are shortened to their first line. Returns the number of rows.
func FormatTableRows(w io.Writer, t *dataset.Table, title string) int {
	if t.Len() == 0 {
		if title != "" {
			fmt.Fprintf(w, "No rows for %s\n", title)
		} else {
			fmt.Fprintln(w, "No rows")
		}
		return 0
	}

	if title != "" {
		fmt.Fprintf(w, "%s:\n\n", title)
	}

	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = formatCell(cell)
		}
		rows[r] = cells
	}
	if err := printer.Table(w, t.Columns, rows); err != nil {
		fmt.Fprintf(w, "%v\n", err)
	}

	noun := "row"
	if t.Len() != 1 {
		noun = "rows"
	}
	fmt.Fprintf(w, "\n%d %s\n", t.Len(), noun)

	return t.Len()
}

// FormatJSONLRows writes each row as a single-line JSON object.
// Keys follow column order so output diffs cleanly between runs.
func FormatJSONLRows(w io.Writer, t *dataset.Table) error {
	if t == nil {
		return nil
	}

	for _, row := range t.Rows {
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, col := range t.Columns {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(col)
			if err != nil {
				return fmt.Errorf("failed to marshal column name to JSON: %w", err)
			}
			val, err := json.Marshal(row[i])
			if err != nil {
				return fmt.Errorf("failed to marshal cell to JSON: %w", err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteString("}\n")

		if _, err := w.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}

	return nil
}

// FormatSingleJSON writes v as pretty-printed JSON.
// Used for single results such as a generated query or a summary.
func FormatSingleJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal to JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	// Add newline for clean output
	fmt.Fprintln(w)

	return nil
}

// formatCell truncates a cell to its first non-empty line, max 40 characters.
// Empty cells render as "-".
func formatCell(cell string) string {
	var firstLine string
	for _, line := range strings.Split(cell, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			firstLine = trimmed
			break
		}
	}

	if firstLine == "" {
		return "-"
	}

	runes := []rune(firstLine)
	if len(runes) > 40 {
		return string(runes[:37]) + "..."
	}
	return firstLine
}
