package unpack

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nwaples/rardecode/v2"

	"github.com/meigma/docwalk/internal/pathutil"
)

// Rar unpacks RAR archives in stream order. The archive is spooled into
// Source.Dir because multi-part detection in the decoder needs a file name.
func Rar() Unpacker {
	return Func(openRar)
}

func openRar(ctx context.Context, src Source) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := sniff("rar", "rar", src.Data); err != nil {
		return nil, err
	}
	name, err := spool(src, "archive-*.rar")
	if err != nil {
		return nil, err
	}
	rc, err := rardecode.OpenReader(name)
	if err != nil {
		return nil, corrupt("rar", err)
	}
	return &rarReader{rc: rc, src: src}, nil
}

type rarReader struct {
	rc   *rardecode.ReadCloser
	src  Source
	done bool
}

func (r *rarReader) Next() (Member, error) {
	for {
		if r.done {
			return Member{}, io.EOF
		}
		hdr, err := r.rc.Next()
		if errors.Is(err, io.EOF) {
			r.done = true
			return Member{}, io.EOF
		}
		if err != nil {
			r.done = true
			return Member{}, corrupt("rar", err)
		}
		if hdr.IsDir || !hdr.Mode().IsRegular() {
			continue
		}
		p := pathutil.Normalize(hdr.Name)
		if p == "" {
			continue
		}
		m := Member{Path: p, Size: hdr.UnPackedSize, ModTime: hdr.ModificationTime}
		if hdr.UnKnownSize {
			m.Size = -1
		}
		if !r.src.selects(p) {
			return m, nil
		}
		if hdr.Encrypted {
			m.Err = ErrEncrypted
			return m, nil
		}
		data, err := readMember(r.rc, m.Size, r.src.MaxMemberSize)
		if err != nil {
			m.Err = fmt.Errorf("read %s: %w", p, err)
			return m, nil
		}
		m.Data = data
		return m, nil
	}
}

func (r *rarReader) Close() error {
	r.done = true
	return r.rc.Close()
}
