package emit

import (
	"fmt"

	"github.com/meigma/docwalk"
	"github.com/meigma/docwalk/textstore"
)

// Store writes each record's content into a text store keyed by its
// content hash. Close does not close the store.
type Store struct {
	store *textstore.Store
}

// NewStore returns an emitter writing into s.
func NewStore(s *textstore.Store) *Store {
	return &Store{store: s}
}

// Emit stores the content of rec.
func (s *Store) Emit(rec docwalk.Record) error {
	if err := s.store.Put(rec.ContentHash, rec.Content); err != nil {
		return fmt.Errorf("store %s: %w", rec.ContentHash, err)
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
