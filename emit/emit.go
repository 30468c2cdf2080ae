// Package emit serializes docwalk records.
//
// Emitters receive records in traversal order. They never close the
// io.Writer they were given; Close flushes buffered output only. Use
// CreateFile to get an emitter that owns its output file.
package emit

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/meigma/docwalk"
)

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("emit: emitter closed")

// Emitter consumes records.
type Emitter interface {
	Emit(rec docwalk.Record) error
	Close() error
}

// Format names an output encoding.
type Format string

const (
	// FormatCSV writes comma-separated values with a header row.
	FormatCSV Format = "csv"
	// FormatJSONL writes one JSON object per line.
	FormatJSONL Format = "jsonl"
)

// ParseFormat validates a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSONL:
		return f, nil
	default:
		return "", fmt.Errorf("emit: unknown format %q", s)
	}
}

// New returns an emitter of the given format writing to w.
func New(w io.Writer, format Format) (Emitter, error) {
	switch format {
	case FormatCSV:
		return NewCSV(w)
	case FormatJSONL:
		return NewJSONL(w), nil
	default:
		return nil, fmt.Errorf("emit: unknown format %q", format)
	}
}

// CreateFile creates path, including parent directories, and returns an
// emitter that closes the file on Close.
func CreateFile(path string, format Format) (Emitter, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path) //nolint:gosec // output path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	e, err := New(f, format)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileEmitter{Emitter: e, f: f}, nil
}

type fileEmitter struct {
	Emitter
	f *os.File
}

func (e *fileEmitter) Close() error {
	return errors.Join(e.Emitter.Close(), e.f.Close())
}

// Multi fans every record out to all emitters. Emit stops at the first
// error; Close closes every emitter and joins the errors.
func Multi(emitters ...Emitter) Emitter {
	return multi(emitters)
}

type multi []Emitter

func (m multi) Emit(rec docwalk.Record) error {
	for _, e := range m {
		if err := e.Emit(rec); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) Close() error {
	errs := make([]error, 0, len(m))
	for _, e := range m {
		errs = append(errs, e.Close())
	}
	return errors.Join(errs...)
}
