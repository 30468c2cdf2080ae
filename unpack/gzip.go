package unpack

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/meigma/docwalk/internal/pathutil"
)

// Gzip unpacks a single gzip-compressed file. The member is named after the
// archive with its ".gz" suffix removed.
func Gzip() Unpacker {
	return Func(openGzip)
}

func openGzip(ctx context.Context, src Source) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := sniff("gz", "gz", src.Data); err != nil {
		return nil, err
	}
	zr, err := gzip.NewReader(bytes.NewReader(src.Data))
	if err != nil {
		return nil, corrupt("gz", err)
	}

	name := gzipMemberName(src.Name)
	load := func() Member {
		m := Member{Path: name, Size: -1, ModTime: zr.ModTime}
		if !src.selects(name) {
			return m
		}
		data, err := readMember(zr, -1, src.MaxMemberSize)
		if err != nil {
			m.Err = fmt.Errorf("read %s: %w", name, err)
			return m
		}
		m.Data = data
		m.Size = int64(len(data))
		return m
	}
	return &listReader{loaders: []func() Member{load}, closer: zr.Close}, nil
}

func gzipMemberName(archive string) string {
	base := pathutil.Base(pathutil.Normalize(archive))
	if len(base) > len(".gz") && strings.EqualFold(base[len(base)-3:], ".gz") {
		return base[:len(base)-3]
	}
	if base == "." || base == "" {
		return "data"
	}
	return base
}
