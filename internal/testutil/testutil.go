// Package testutil builds archives and minimal office documents in memory
// for tests.
package testutil

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

// File is a named blob placed into an archive.
type File struct {
	Name string
	Data []byte
}

// FixedTime is the modification time stamped on generated archive members.
var FixedTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// Files converts a map into a name-sorted File list.
func Files(m map[string][]byte) []File {
	files := make([]File, 0, len(m))
	for name, data := range m {
		files = append(files, File{Name: name, Data: data})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files
}

// Zip returns a zip archive containing files in the given order.
// Names ending in "/" become directory entries.
func Zip(tb testing.TB, files ...File) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		hdr := &zip.FileHeader{Name: f.Name, Method: zip.Deflate, Modified: FixedTime}
		w, err := zw.CreateHeader(hdr)
		require.NoError(tb, err)
		if len(f.Data) > 0 {
			_, err = w.Write(f.Data)
			require.NoError(tb, err)
		}
	}
	require.NoError(tb, zw.Close())
	return buf.Bytes()
}

// Tar returns an uncompressed tar archive containing files.
// Names ending in "/" become directory entries.
func Tar(tb testing.TB, files ...File) []byte {
	tb.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, f := range files {
		hdr := &tar.Header{Name: f.Name, Mode: 0o644, Size: int64(len(f.Data)), ModTime: FixedTime, Typeflag: tar.TypeReg}
		if len(f.Name) > 0 && f.Name[len(f.Name)-1] == '/' {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
			hdr.Size = 0
		}
		require.NoError(tb, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write(f.Data)
			require.NoError(tb, err)
		}
	}
	require.NoError(tb, tw.Close())
	return buf.Bytes()
}

// Gzip compresses data as a gzip stream with the given header name.
func Gzip(tb testing.TB, name string, data []byte) []byte {
	tb.Helper()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Name = name
	gw.ModTime = FixedTime
	_, err := gw.Write(data)
	require.NoError(tb, err)
	require.NoError(tb, gw.Close())
	return buf.Bytes()
}

// Zstd compresses data as a single zstd frame.
func Zstd(tb testing.TB, data []byte) []byte {
	tb.Helper()

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	require.NoError(tb, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

// WriteFile writes data to dir/rel, creating parent directories.
func WriteFile(tb testing.TB, dir, rel string, data []byte) string {
	tb.Helper()

	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tb, os.WriteFile(path, data, 0o644))
	return path
}

// CountEntries returns the number of directory entries in dir.
func CountEntries(tb testing.TB, dir string) int {
	tb.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(tb, err)
	return len(entries)
}
