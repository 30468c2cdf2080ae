package unpack

import (
	"context"
	"fmt"
	"sort"

	"github.com/bodgit/sevenzip"

	"github.com/meigma/docwalk/internal/pathutil"
)

// SevenZip unpacks 7z archives. The archive is spooled into Source.Dir and
// members are returned sorted by path.
func SevenZip() Unpacker {
	return Func(openSevenZip)
}

func openSevenZip(ctx context.Context, src Source) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := sniff("7z", "7z", src.Data); err != nil {
		return nil, err
	}
	name, err := spool(src, "archive-*.7z")
	if err != nil {
		return nil, err
	}
	rc, err := sevenzip.OpenReader(name)
	if err != nil {
		return nil, corrupt("7z", err)
	}

	type entry struct {
		path string
		file *sevenzip.File
	}
	entries := make([]entry, 0, len(rc.File))
	for _, f := range rc.File {
		if pathutil.IsDirName(f.Name) || !f.FileInfo().Mode().IsRegular() {
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
			return readSevenZipFile(src, e.path, e.file)
		}
	}
	return &listReader{loaders: loaders, closer: rc.Close}, nil
}

func readSevenZipFile(src Source, p string, f *sevenzip.File) Member {
	m := Member{Path: p, Size: f.FileInfo().Size(), ModTime: f.Modified}
	if !src.selects(p) {
		return m
	}
	r, err := f.Open()
	if err != nil {
		m.Err = fmt.Errorf("open %s: %w", p, err)
		return m
	}
	defer r.Close()
	data, err := readMember(r, m.Size, src.MaxMemberSize)
	if err != nil {
		m.Err = fmt.Errorf("read %s: %w", p, err)
		return m
	}
	m.Data = data
	return m
}
