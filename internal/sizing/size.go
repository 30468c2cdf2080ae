// Package sizing provides bounded reads so oversized entries fail instead of
// exhausting memory.
package sizing

import (
	"errors"
	"io"
	"math"
)

// ErrTooLarge is returned when a reader yields more than the allowed bytes.
var ErrTooLarge = errors.New("sizing: content exceeds limit")

// ReadAllWithLimit reads up to maxSize bytes from r.
// Returns ErrTooLarge if more than maxSize bytes are available.
// A maxSize of 0 disables the limit.
func ReadAllWithLimit(r io.Reader, maxSize uint64) ([]byte, error) {
	if maxSize == 0 {
		return io.ReadAll(r)
	}
	if maxSize > uint64(math.MaxInt-1) {
		return nil, ErrTooLarge
	}
	limit := int64(maxSize) + 1 //nolint:gosec // checked above
	lr := &io.LimitedReader{R: r, N: limit}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > maxSize { //nolint:gosec // len is always non-negative
		return nil, ErrTooLarge
	}
	return data, nil
}

// Exceeds reports whether size is over maxSize. A maxSize of 0 never exceeds.
func Exceeds(size int64, maxSize uint64) bool {
	if maxSize == 0 || size < 0 {
		return false
	}
	return uint64(size) > maxSize
}
