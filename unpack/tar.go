package unpack

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/docwalk/internal/pathutil"
)

// Tar unpacks uncompressed tar archives in stream order.
func Tar() Unpacker {
	return Func(func(ctx context.Context, src Source) (Reader, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return newTarReader("tar", bytes.NewReader(src.Data), src, nil)
	})
}

// TarGzip unpacks gzip-compressed tar archives (.tar.gz, .tgz).
func TarGzip() Unpacker {
	return Func(func(ctx context.Context, src Source) (Reader, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := sniff("tar.gz", "gz", src.Data); err != nil {
			return nil, err
		}
		zr, err := gzip.NewReader(bytes.NewReader(src.Data))
		if err != nil {
			return nil, corrupt("tar.gz", err)
		}
		return newTarReader("tar.gz", zr, src, zr.Close)
	})
}

// TarZstd unpacks zstd-compressed tar archives (.tar.zst, .tzst).
func TarZstd() Unpacker {
	return Func(func(ctx context.Context, src Source) (Reader, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dec, err := zstd.NewReader(bytes.NewReader(src.Data), zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, corrupt("tar.zst", err)
		}
		return newTarReader("tar.zst", dec, src, func() error {
			dec.Close()
			return nil
		})
	})
}

type tarReader struct {
	format  string
	tr      *tar.Reader
	src     Source
	pending *tar.Header
	done    bool
	closer  func() error
}

// newTarReader primes the first header so an unreadable stream fails at
// open time.
func newTarReader(format string, r io.Reader, src Source, closer func() error) (*tarReader, error) {
	t := &tarReader{format: format, tr: tar.NewReader(r), src: src, closer: closer}
	hdr, err := nextHeader(t.tr)
	switch {
	case errors.Is(err, io.EOF):
		t.done = true
	case err != nil:
		if closer != nil {
			_ = closer() //nolint:errcheck // already failing
		}
		return nil, corrupt(format, err)
	default:
		t.pending = hdr
	}
	return t, nil
}

func (t *tarReader) Next() (Member, error) {
	for {
		hdr, err := t.header()
		if err != nil {
			return Member{}, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		p := pathutil.Normalize(hdr.Name)
		if p == "" {
			continue
		}
		m := Member{Path: p, Size: hdr.Size, ModTime: hdr.ModTime}
		if !t.src.selects(p) {
			return m, nil
		}
		data, err := readMember(t.tr, hdr.Size, t.src.MaxMemberSize)
		if err != nil {
			m.Err = fmt.Errorf("read %s: %w", p, err)
			return m, nil
		}
		m.Data = data
		return m, nil
	}
}

func (t *tarReader) header() (*tar.Header, error) {
	if t.pending != nil {
		hdr := t.pending
		t.pending = nil
		return hdr, nil
	}
	if t.done {
		return nil, io.EOF
	}
	hdr, err := nextHeader(t.tr)
	if errors.Is(err, io.EOF) {
		t.done = true
		return nil, io.EOF
	}
	if err != nil {
		t.done = true
		return nil, corrupt(t.format, err)
	}
	return hdr, nil
}

// nextHeader tolerates tar.ErrInsecurePath; member paths are normalized.
func nextHeader(tr *tar.Reader) (*tar.Header, error) {
	hdr, err := tr.Next()
	if errors.Is(err, tar.ErrInsecurePath) {
		return hdr, nil
	}
	return hdr, err
}

func (t *tarReader) Close() error {
	t.done = true
	t.pending = nil
	if t.closer == nil {
		return nil
	}
	closer := t.closer
	t.closer = nil
	return closer()
}
