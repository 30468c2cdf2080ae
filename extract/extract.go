// Package extract turns raw document bytes into plain text.
//
// Each supported format has an Extractor. Extractors are pure functions of
// their input: they never touch the filesystem, and they report failures as
// errors rather than returning empty text. Wrap third-party parsers with Safe
// so a panicking parser becomes an ordinary error.
package extract

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"unicode"
)

var (
	// ErrMalformed is returned when a document cannot be parsed.
	ErrMalformed = errors.New("extract: malformed document")

	// ErrContentMismatch is returned when the bytes do not match the format
	// implied by the file extension.
	ErrContentMismatch = errors.New("extract: content does not match format")
)

// Extractor converts document bytes to text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Func adapts a function to the Extractor interface.
type Func func(ctx context.Context, data []byte) (string, error)

// Extract calls f.
func (f Func) Extract(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

// Safe wraps e so panics are recovered into ErrMalformed and successful
// output is passed through Normalize.
func Safe(e Extractor) Extractor {
	return Func(func(ctx context.Context, data []byte) (text string, err error) {
		defer func() {
			if r := recover(); r != nil {
				text = ""
				err = fmt.Errorf("%w: parser panic: %v\n%s", ErrMalformed, r, debug.Stack())
			}
		}()
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err = e.Extract(ctx, data)
		if err != nil {
			return "", err
		}
		return Normalize(text), nil
	})
}

// Normalize collapses every whitespace run to a single space, drops NUL
// bytes and trims the result.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range text {
		switch {
		case r == 0:
			continue
		case unicode.IsSpace(r):
			space = true
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

func malformed(format string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrMalformed, format, err)
}
