package emit

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/meigma/docwalk"
)

// CSVHeader is the column order written by CSV.
var CSVHeader = []string{
	"id",
	"file_path",
	"file_name",
	"file_type",
	"file_size",
	"content",
	"archive_path",
	"created_date",
	"content_hash",
}

// CSV writes records as CSV rows. The id column counts records from 1 in
// emission order. Zero dates and missing archive paths are written as
// empty cells.
type CSV struct {
	w      *csv.Writer
	next   int
	closed bool
}

// NewCSV writes the header row to w and returns the emitter.
func NewCSV(w io.Writer) (*CSV, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return nil, err
	}
	return &CSV{w: cw, next: 1}, nil
}

// Emit writes one row.
func (c *CSV) Emit(rec docwalk.Record) error {
	if c.closed {
		return ErrClosed
	}
	row := []string{
		strconv.Itoa(c.next),
		rec.FilePath,
		rec.FileName,
		rec.FileType.String(),
		strconv.FormatInt(rec.FileSize, 10),
		rec.Content,
		rec.ArchivePath,
		formatDate(rec.CreatedDate),
		rec.ContentHash,
	}
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.next++
	return nil
}

// Close flushes buffered rows.
func (c *CSV) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.w.Flush()
	return c.w.Error()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
