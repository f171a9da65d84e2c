// Package letterboxd writes watch history in Letterboxd's CSV import format.
package letterboxd

import (
	"encoding/csv"
	"fmt"
	"io"
)

// DefaultTags is written in the Tags column when none are configured
const DefaultTags = "Imported from Plex"

// Header is the first row of every import file
var Header = []string{"Title", "imdbID", "tmdbID", "WatchedDate", "Tags"}

// Row is one diary entry. At least one of IMDbID and TMDbID should be set
// for Letterboxd to match the film.
type Row struct {
	Title       string
	IMDbID      string
	TMDbID      string
	WatchedDate string
	Tags        string
}

func (r Row) record() []string {
	return []string{r.Title, r.IMDbID, r.TMDbID, r.WatchedDate, r.Tags}
}

// Writer writes rows after a header
type Writer struct {
	csv  *csv.Writer
	rows int
}

// NewWriter writes the header to w and returns a Writer for the rows
func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return &Writer{csv: cw}, nil
}

// Write appends a row
func (w *Writer) Write(row Row) error {
	if err := w.csv.Write(row.record()); err != nil {
		return fmt.Errorf("failed to write row for %q: %w", row.Title, err)
	}
	w.rows++
	return nil
}

// Rows returns how many rows have been written, header excluded
func (w *Writer) Rows() int {
	return w.rows
}

// Flush writes buffered rows to the underlying writer
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}
