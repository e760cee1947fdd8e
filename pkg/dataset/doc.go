// Package dataset provides the in-memory tabular model shared by every
// encmusic view.
//
// # Overview
//
// A Table is a header plus string rows, read from CSV and never mutated in
// place. Dashboards keep the full table as their working copy and derive
// narrowed or reshaped tables from it (filtered subsets, long-format melts,
// concatenations of several playlists) on every request.
//
// Cells stay strings. Numeric columns are coerced on demand with Float, so
// a survey with a stray "n/a" in a numeric column still loads, and that cell
// simply never satisfies a numeric filter.
//
// # Usage Example
//
//	t, err := dataset.ReadCSV(f)
//	if err != nil {
//		return err
//	}
//	t = t.Drop("time").DropMissing("latitude", "longitude")
//	long := t.Melt([]string{"sound"}, []string{"volume", "pitch"})
package dataset
