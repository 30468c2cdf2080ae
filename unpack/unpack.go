// Package unpack lists the direct members of an archive.
//
// One Unpacker exists per archive format. Unpackers never recurse into
// nested archives; the caller decides what to do with each member. A broken
// archive fails as a whole with ErrCorrupt, while a single unreadable member
// is reported through Member.Err and the remaining members are still
// returned.
package unpack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/h2non/filetype"

	"github.com/meigma/docwalk/internal/sizing"
)

var (
	// ErrCorrupt is returned when an archive cannot be opened or its stream
	// breaks while listing members.
	ErrCorrupt = errors.New("unpack: corrupt archive")

	// ErrEncrypted is reported for members that require a password.
	ErrEncrypted = errors.New("unpack: encrypted member")

	// ErrMemberTooLarge is reported for members over Source.MaxMemberSize.
	ErrMemberTooLarge = errors.New("unpack: member exceeds size limit")
)

// Source is an archive to unpack.
type Source struct {
	// Name is the archive's file name. Single-file formats derive the member
	// name from it.
	Name string

	// Data holds the raw archive bytes.
	Data []byte

	// Dir is a private scratch directory owned by the caller. Formats that
	// need file access spool the archive here. The caller removes it.
	Dir string

	// MaxMemberSize bounds the decompressed size of a single member.
	// Zero means unlimited.
	MaxMemberSize uint64

	// Select, when set, is consulted with each member path before the
	// member is read. Rejected members are returned without Data.
	Select func(path string) bool
}

func (s Source) selects(p string) bool {
	return s.Select == nil || s.Select(p)
}

// Member is a direct member of an archive.
type Member struct {
	// Path is the normalized slash-separated path inside the archive.
	Path string

	// Size is the decompressed size recorded in the archive header.
	Size int64

	// ModTime is the header modification time, zero when absent.
	ModTime time.Time

	// Data holds the member bytes. It is nil when Err is set or when
	// Source.Select rejected the member.
	Data []byte

	// Err reports why the member could not be read.
	Err error
}

// Reader iterates over archive members.
type Reader interface {
	// Next returns the next regular-file member. It returns io.EOF after the
	// last member and an error wrapping ErrCorrupt when the archive stream
	// is broken.
	Next() (Member, error)

	// Close releases resources held by the reader.
	Close() error
}

// Unpacker opens archives of one format.
type Unpacker interface {
	Open(ctx context.Context, src Source) (Reader, error)
}

// Func adapts a function to the Unpacker interface.
type Func func(ctx context.Context, src Source) (Reader, error)

// Open calls f.
func (f Func) Open(ctx context.Context, src Source) (Reader, error) {
	return f(ctx, src)
}

// corrupt wraps err with ErrCorrupt and the format name.
func corrupt(format string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCorrupt, format, err)
}

var errMagic = errors.New("magic number mismatch")

// sniff verifies the leading magic number of data against a filetype
// extension name.
func sniff(format, kind string, data []byte) error {
	if !filetype.Is(data, kind) {
		return corrupt(format, errMagic)
	}
	return nil
}

// readMember reads a member body, enforcing the size limit both on the
// declared size and on the bytes actually produced.
func readMember(r io.Reader, declared int64, limit uint64) ([]byte, error) {
	if sizing.Exceeds(declared, limit) {
		return nil, ErrMemberTooLarge
	}
	data, err := sizing.ReadAllWithLimit(r, limit)
	if errors.Is(err, sizing.ErrTooLarge) {
		return nil, ErrMemberTooLarge
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// spool writes src.Data into src.Dir and returns the file path.
func spool(src Source, pattern string) (string, error) {
	f, err := os.CreateTemp(src.Dir, pattern)
	if err != nil {
		return "", fmt.Errorf("create spool file: %w", err)
	}
	if _, err := f.Write(src.Data); err != nil {
		f.Close()
		return "", fmt.Errorf("write spool file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close spool file: %w", err)
	}
	return f.Name(), nil
}

// listReader yields members from a fixed, pre-sorted list of loaders.
type listReader struct {
	loaders []func() Member
	closer  func() error
}

func (l *listReader) Next() (Member, error) {
	if len(l.loaders) == 0 {
		return Member{}, io.EOF
	}
	load := l.loaders[0]
	l.loaders = l.loaders[1:]
	return load(), nil
}

func (l *listReader) Close() error {
	l.loaders = nil
	if l.closer == nil {
		return nil
	}
	closer := l.closer
	l.closer = nil
	return closer()
}
