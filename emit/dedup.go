package emit

import (
	"github.com/meigma/docwalk"
)

// Dedup forwards only the first record seen for each content hash.
type Dedup struct {
	next    Emitter
	seen    map[string]struct{}
	dropped int
}

// NewDedup wraps next.
func NewDedup(next Emitter) *Dedup {
	return &Dedup{next: next, seen: make(map[string]struct{})}
}

// Emit forwards rec unless its hash was already forwarded.
func (d *Dedup) Emit(rec docwalk.Record) error {
	if _, ok := d.seen[rec.ContentHash]; ok {
		d.dropped++
		return nil
	}
	if err := d.next.Emit(rec); err != nil {
		return err
	}
	d.seen[rec.ContentHash] = struct{}{}
	return nil
}

// Dropped returns the number of duplicates dropped.
func (d *Dedup) Dropped() int {
	return d.dropped
}

// Close closes the wrapped emitter.
func (d *Dedup) Close() error {
	return d.next.Close()
}
