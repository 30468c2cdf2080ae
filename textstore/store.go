// Package textstore keeps extracted text on disk, addressed by content hash.
//
// Each text is stored once as a zstd-compressed file named after its hash,
// sharded into subdirectories by hash prefix. Writes go to a temporary file
// that is renamed into place, so readers never see partial content. The
// store is safe for concurrent use.
package textstore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
)

const (
	shardPrefixLen = 2
	dirPerm        = 0o700
	blobExt        = ".zst"
)

var (
	// ErrNotFound is returned by Get when no text is stored for a hash.
	ErrNotFound = errors.New("textstore: not found")

	// ErrInvalidHash is returned for hashes that are empty or not hex.
	ErrInvalidHash = errors.New("textstore: invalid hash")

	// ErrStoreFull is returned by Put when the blob would take the store
	// past its size limit. Nothing is written in that case.
	ErrStoreFull = errors.New("textstore: store full")
)

// Store is a content-addressed text store rooted at a directory.
type Store struct {
	dir      string
	maxBytes int64        // 0 means unlimited
	bytes    atomic.Int64 // compressed size of stored and reserved blobs

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Option configures a Store.
type Option func(*Store)

// WithMaxBytes caps the compressed size of the store. Stored text is never
// evicted; a Put that does not fit fails with ErrStoreFull. Use 0 to
// disable the limit.
func WithMaxBytes(n int64) Option {
	return func(s *Store) {
		s.maxBytes = n
	}
}

// New opens or creates a store rooted at dir. Blobs already present count
// towards the size limit.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("textstore: dir is empty")
	}
	s := &Store{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxBytes < 0 {
		return nil, errors.New("textstore: max bytes must be >= 0")
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, err
	}
	size, err := dirSize(dir)
	if err != nil {
		return nil, err
	}
	s.bytes.Store(size)

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithLowerEncoderMem(true))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	s.enc, s.dec = enc, dec
	return s, nil
}

// Close releases the compression resources.
func (s *Store) Close() error {
	s.dec.Close()
	return s.enc.Close()
}

// Put stores text under hash. Storing an existing hash is a no-op, even
// when the store is full.
func (s *Store) Put(hash, text string) error {
	path, err := s.path(hash)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		return nil
	}

	blob := s.enc.EncodeAll([]byte(text), nil)
	size := int64(len(blob))
	if !s.reserve(size) {
		return fmt.Errorf("%w: %s needs %d bytes, %d of %d used",
			ErrStoreFull, hash, size, s.bytes.Load(), s.maxBytes)
	}
	stored, err := s.write(path, blob)
	if !stored {
		s.bytes.Add(-size)
	}
	return err
}

// write places blob at path through a temporary file. It reports whether
// this call created the blob.
func (s *Store) write(path string, blob []byte) (bool, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return false, err
	}
	tmp, err := os.CreateTemp(dir, "put-*")
	if err != nil {
		return false, err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return false, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return false, err
	}
	if _, err := os.Stat(path); err == nil {
		// A concurrent Put of the same hash won.
		_ = os.Remove(tmpPath)
		return false, nil
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return false, err
	}
	return true, nil
}

// reserve adds n to the accounted size if the limit allows it.
func (s *Store) reserve(n int64) bool {
	if s.maxBytes <= 0 {
		s.bytes.Add(n)
		return true
	}
	for {
		cur := s.bytes.Load()
		if cur+n > s.maxBytes {
			return false
		}
		if s.bytes.CompareAndSwap(cur, cur+n) {
			return true
		}
	}
}

// Get returns the text stored under hash.
func (s *Store) Get(hash string) (string, error) {
	path, err := s.path(hash)
	if err != nil {
		return "", err
	}
	blob, err := os.ReadFile(path) //nolint:gosec // path is derived from a validated hash
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, hash)
	}
	if err != nil {
		return "", err
	}
	text, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", hash, err)
	}
	return string(text), nil
}

// Has reports whether text is stored under hash.
func (s *Store) Has(hash string) bool {
	path, err := s.path(hash)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// SizeBytes returns the current compressed size of the store.
func (s *Store) SizeBytes() int64 {
	return s.bytes.Load()
}

func (s *Store) path(hash string) (string, error) {
	if hash == "" {
		return "", ErrInvalidHash
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}
	prefixLen := min(shardPrefixLen, len(hash))
	return filepath.Join(s.dir, hash[:prefixLen], hash+blobExt), nil
}
