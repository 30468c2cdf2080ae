package unpack

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/meigma/docwalk/internal/pathutil"
)

// zipFlagEncrypted is bit 0 of the general purpose flag.
const zipFlagEncrypted = 0x1

// Zip unpacks zip archives. Members are returned sorted by path.
func Zip() Unpacker {
	return Func(openZip)
}

func openZip(ctx context.Context, src Source) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := sniff("zip", "zip", src.Data); err != nil {
		return nil, err
	}
	// Non-local names are tolerated; member paths are normalized below.
	zr, err := zip.NewReader(bytes.NewReader(src.Data), int64(len(src.Data)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, corrupt("zip", err)
	}

	type entry struct {
		path string
		file *zip.File
	}
	entries := make([]entry, 0, len(zr.File))
	for _, f := range zr.File {
		if pathutil.IsDirName(f.Name) || !f.Mode().IsRegular() {
			continue
		}
		p := pathutil.Normalize(f.Name)
		if p == "" {
			continue
		}
		entries = append(entries, entry{path: p, file: f})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	loaders := make([]func() Member, len(entries))
	for i, e := range entries {
		loaders[i] = func() Member {
			return readZipFile(src, e.path, e.file)
		}
	}
	return &listReader{loaders: loaders}, nil
}

func readZipFile(src Source, p string, f *zip.File) Member {
	m := Member{Path: p, Size: int64(f.UncompressedSize64), ModTime: f.Modified} //nolint:gosec // sizes beyond int64 are rejected by the limit
	if !src.selects(p) {
		return m
	}
	if f.Flags&zipFlagEncrypted != 0 {
		m.Err = ErrEncrypted
		return m
	}
	rc, err := f.Open()
	if err != nil {
		m.Err = fmt.Errorf("open %s: %w", p, err)
		return m
	}
	defer rc.Close()
	data, err := readMember(rc, m.Size, src.MaxMemberSize)
	if err != nil {
		m.Err = fmt.Errorf("read %s: %w", p, err)
		return m
	}
	m.Data = data
	return m
}
