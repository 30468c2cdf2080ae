package docwalk

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/docwalk/extract"
	"github.com/meigma/docwalk/internal/sizing"
	"github.com/meigma/docwalk/internal/testutil"
	"github.com/meigma/docwalk/unpack"
)

// stubText returns the raw bytes as text. Inputs starting with "BROKEN"
// fail and inputs starting with "PANIC" panic.
var stubText = extract.Func(func(_ context.Context, data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte("BROKEN")):
		return "", extract.ErrMalformed
	case bytes.HasPrefix(data, []byte("PANIC")):
		panic("parser exploded")
	}
	return string(data), nil
})

// observer collects everything a walk reports besides records.
type observer struct {
	failures []*EntryError
	skips    []string
}

func (o *observer) failurePaths() []string {
	out := make([]string, len(o.failures))
	for i, f := range o.failures {
		out[i] = f.Path
	}
	return out
}

func newTestWalker(t *testing.T, opts ...Option) (*Walker, *observer) {
	t.Helper()
	obs := &observer{}
	base := []Option{
		WithExtractor(".docx", CategoryDocument, stubText),
		WithExtractor(".xlsx", CategorySpreadsheet, stubText),
		WithTempDir(t.TempDir()),
		WithFailureHandler(func(e *EntryError) { obs.failures = append(obs.failures, e) }),
		WithSkipHandler(func(p string) { obs.skips = append(obs.skips, p) }),
	}
	w, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return w, obs
}

func collect(t *testing.T, w *Walker, root string) []Record {
	t.Helper()
	seq, err := w.Walk(context.Background(), root)
	require.NoError(t, err)
	return slices.Collect(seq)
}

func names(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.FileName
	}
	return out
}

func file(name, data string) testutil.File {
	return testutil.File{Name: name, Data: []byte(data)}
}

func TestWalkExample(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	aPath := testutil.WriteFile(t, root, "a.docx", []byte("hello"))
	mtime := time.Date(2023, time.June, 5, 8, 30, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(aPath, mtime, mtime))
	testutil.WriteFile(t, root, "b.zip", testutil.Zip(t,
		file("c.xlsx", "hello"),
		file("d.xlsx", "world"),
	))

	w, obs := newTestWalker(t)
	records := collect(t, w, root)

	require.Len(t, records, 3)
	assert.Equal(t, []string{"a.docx", "c.xlsx", "d.xlsx"}, names(records))

	a, c, d := records[0], records[1], records[2]

	assert.Equal(t, aPath, a.FilePath)
	assert.Equal(t, CategoryDocument, a.FileType)
	assert.Equal(t, "hello", a.Content)
	assert.Equal(t, int64(5), a.FileSize)
	assert.Empty(t, a.ArchivePath)
	assert.Empty(t, a.InnerPath)
	assert.False(t, a.InArchive())
	assert.True(t, a.CreatedDate.Equal(mtime))

	assert.Equal(t, a.ContentHash, c.ContentHash)
	assert.NotEqual(t, a.FilePath, c.FilePath)
	assert.NotEqual(t, a.ArchivePath, c.ArchivePath)

	for _, r := range []Record{c, d} {
		assert.Equal(t, filepath.Join(root, "b.zip"), r.FilePath)
		assert.Equal(t, "b.zip", r.ArchivePath)
		assert.Equal(t, CategorySpreadsheet, r.FileType)
		assert.True(t, r.InArchive())
		assert.True(t, r.CreatedDate.Equal(testutil.FixedTime))
	}
	assert.Equal(t, "c.xlsx", c.InnerPath)
	assert.Equal(t, "world", d.Content)
	assert.NotEqual(t, c.ContentHash, d.ContentHash)

	assert.Empty(t, obs.failures)
	assert.Empty(t, obs.skips)
}

func TestWalkPreconditions(t *testing.T) {
	t.Parallel()

	w, _ := newTestWalker(t)
	root := t.TempDir()

	_, err := w.Walk(context.Background(), filepath.Join(root, "missing"))
	require.ErrorIs(t, err, ErrRootNotFound)

	filePath := testutil.WriteFile(t, root, "plain.docx", []byte("x"))
	_, err = w.Walk(context.Background(), filePath)
	require.ErrorIs(t, err, ErrRootNotDir)
}

func TestWalkEmptyRoot(t *testing.T) {
	t.Parallel()

	w, obs := newTestWalker(t)
	records := collect(t, w, t.TempDir())
	assert.Empty(t, records)
	assert.Empty(t, obs.failures)
}

func TestWalkRestartable(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, "x/one.docx", []byte("one"))
	testutil.WriteFile(t, root, "x/two.docx", []byte("two"))
	testutil.WriteFile(t, root, "arc.tar", testutil.Tar(t, file("three.docx", "three")))

	w, _ := newTestWalker(t)
	seq, err := w.Walk(context.Background(), root)
	require.NoError(t, err)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"three.docx", "one.docx", "two.docx"}, names(first))
}

func TestWalkArchiveWithNDocuments(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, "nested/dir/docs.tgz", testutil.Gzip(t, "docs.tar", testutil.Tar(t,
		file("a/1.docx", "one"),
		file("a/2.docx", "two"),
		file("b/3.xlsx", "three"),
		file("b/readme.txt", "ignored"),
	)))

	w, obs := newTestWalker(t)
	records := collect(t, w, root)

	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, filepath.Join(root, "nested", "dir", "docs.tgz"), r.FilePath)
		assert.Equal(t, "nested/dir/docs.tgz", r.ArchivePath)
	}
	assert.Equal(t, []string{"a/1.docx", "a/2.docx", "b/3.xlsx"}, []string{records[0].InnerPath, records[1].InnerPath, records[2].InnerPath})
	assert.Equal(t, []string{"nested/dir/docs.tgz/b/readme.txt"}, obs.skips)
	assert.Empty(t, obs.failures)
}

func TestWalkCorruptNestedArchive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, "outer.zip", testutil.Zip(t,
		file("a.docx", "alpha"),
		file("bad.zip", "PK\x03\x04 truncated garbage"),
		file("z.docx", "omega"),
	))
	testutil.WriteFile(t, root, "top-bad.7z", []byte("not a 7z"))
	testutil.WriteFile(t, root, "zz.docx", []byte("last"))

	w, obs := newTestWalker(t)
	records := collect(t, w, root)

	assert.Equal(t, []string{"a.docx", "z.docx", "zz.docx"}, names(records))
	require.Len(t, obs.failures, 2)
	assert.Equal(t, []string{"outer.zip/bad.zip", "top-bad.7z"}, obs.failurePaths())
	for _, f := range obs.failures {
		require.ErrorIs(t, f, ErrCorruptArchive)
		require.ErrorIs(t, f, unpack.ErrCorrupt)
	}
}

func TestWalkDepthCeiling(t *testing.T) {
	t.Parallel()

	l3 := testutil.Zip(t, file("three.docx", "three"))
	l2 := testutil.Zip(t, file("l3.zip", string(l3)), file("two.docx", "two"))
	l1 := testutil.Zip(t, file("l2.zip", string(l2)), file("one.docx", "one"))

	root := t.TempDir()
	testutil.WriteFile(t, root, "l1.zip", l1)
	scratch := t.TempDir()

	w, obs := newTestWalker(t, WithMaxDepth(2), WithTempDir(scratch))
	records := collect(t, w, root)

	assert.Equal(t, []string{"two.docx", "one.docx"}, names(records))
	assert.Equal(t, "l1.zip/l2.zip", records[0].ArchivePath)
	assert.Equal(t, "l1.zip", records[1].ArchivePath)

	require.Len(t, obs.failures, 1)
	require.ErrorIs(t, obs.failures[0], ErrRecursionLimit)
	assert.Equal(t, "l1.zip/l2.zip/l3.zip", obs.failures[0].Path)

	assert.Zero(t, testutil.CountEntries(t, scratch), "scratch directories must be removed")
}

func TestWalkSelfNestingTerminates(t *testing.T) {
	t.Parallel()

	// Twelve levels of the same archive wrapped in itself.
	data := testutil.Zip(t, file("leaf.docx", "leaf"))
	for range 12 {
		data = testutil.Zip(t, file("self.zip", string(data)))
	}
	root := t.TempDir()
	testutil.WriteFile(t, root, "self.zip", data)
	scratch := t.TempDir()

	w, obs := newTestWalker(t, WithTempDir(scratch))
	records := collect(t, w, root)

	assert.Empty(t, records)
	require.Len(t, obs.failures, 1)
	require.ErrorIs(t, obs.failures[0], ErrRecursionLimit)
	assert.Equal(t, DefaultMaxDepth, w.MaxDepth())
	assert.Zero(t, testutil.CountEntries(t, scratch))
}

func TestWalkUnsupportedIsNotFailure(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, "notes.txt", []byte("plain"))
	testutil.WriteFile(t, root, "image.png", []byte("png"))
	testutil.WriteFile(t, root, "pack.zip", testutil.Zip(t, file("inner.txt", "x"), file("doc.docx", "d")))

	w, obs := newTestWalker(t)
	records := collect(t, w, root)

	assert.Equal(t, []string{"doc.docx"}, names(records))
	assert.Empty(t, obs.failures)
	assert.Equal(t, []string{"image.png", "notes.txt", "pack.zip/inner.txt"}, obs.skips)
}

func TestWalkExtractionFailures(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, "1-broken.docx", []byte("BROKEN"))
	testutil.WriteFile(t, root, "2-panic.xlsx", []byte("PANIC"))
	testutil.WriteFile(t, root, "3-fine.docx", []byte("fine"))

	w, obs := newTestWalker(t)
	records := collect(t, w, root)

	assert.Equal(t, []string{"3-fine.docx"}, names(records))
	require.Len(t, obs.failures, 2)
	for _, f := range obs.failures {
		require.ErrorIs(t, f, ErrExtractionFailed)
		require.ErrorIs(t, f, extract.ErrMalformed)
	}
	assert.Equal(t, []string{"1-broken.docx", "2-panic.xlsx"}, obs.failurePaths())
}

func TestWalkEmptyContentIsRecord(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, "blank.docx", []byte("   \n\t "))

	w, obs := newTestWalker(t)
	records := collect(t, w, root)

	require.Len(t, records, 1)
	assert.Empty(t, records[0].Content)
	assert.Equal(t, HashContent(""), records[0].ContentHash)
	assert.Empty(t, obs.failures)
}

func TestWalkEntrySizeLimit(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, "big.docx", []byte("this is far too long"))
	testutil.WriteFile(t, root, "box.zip", testutil.Zip(t,
		file("inner-big.docx", "also far too long"),
		file("ok.docx", "ok"),
	))

	w, obs := newTestWalker(t, WithMaxEntrySize(8))
	records := collect(t, w, root)

	// box.zip itself is over the limit.
	assert.Empty(t, records)
	require.Len(t, obs.failures, 2)
	for _, f := range obs.failures {
		require.ErrorIs(t, f, ErrUnreadableEntry)
		require.ErrorIs(t, f, sizing.ErrTooLarge)
	}

	w, obs = newTestWalker(t, WithMaxEntrySize(1024))
	_ = collect(t, w, root)
	assert.Empty(t, obs.failures)

	zipOnly := t.TempDir()
	testutil.WriteFile(t, zipOnly, "box.zip", testutil.Zip(t,
		file("inner-big.docx", string(bytes.Repeat([]byte("x"), 2048))),
		file("ok.docx", "ok"),
	))
	w, obs = newTestWalker(t, WithMaxEntrySize(1024))
	records = collect(t, w, zipOnly)
	assert.Equal(t, []string{"ok.docx"}, names(records))
	require.Len(t, obs.failures, 1)
	require.ErrorIs(t, obs.failures[0], ErrUnreadableEntry)
	require.ErrorIs(t, obs.failures[0], unpack.ErrMemberTooLarge)
	assert.Equal(t, "box.zip/inner-big.docx", obs.failures[0].Path)
}

func TestWalkExclude(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, "private/secret.docx", []byte("secret"))
	testutil.WriteFile(t, root, "public/open.docx", []byte("open"))
	testutil.WriteFile(t, root, "public/bundle.zip", testutil.Zip(t,
		file("drafts/draft.docx", "draft"),
		file("final.docx", "final"),
	))

	w, obs := newTestWalker(t, WithExclude("private/**", "drafts/**"))
	records := collect(t, w, root)

	assert.Equal(t, []string{"final.docx", "open.docx"}, names(records))
	assert.Empty(t, obs.failures)
	assert.Empty(t, obs.skips)
}

func TestWalkEarlyStopCleansScratch(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, "a.zip", testutil.Zip(t,
		file("inner.zip", string(testutil.Zip(t, file("1.docx", "1"), file("2.docx", "2")))),
	))
	testutil.WriteFile(t, root, "b.docx", []byte("b"))
	scratch := t.TempDir()

	w, _ := newTestWalker(t, WithTempDir(scratch))
	seq, err := w.Walk(context.Background(), root)
	require.NoError(t, err)

	var got []string
	for rec := range seq {
		got = append(got, rec.FileName)
		// Two scratch directories are live while inside a.zip/inner.zip.
		assert.Equal(t, 2, testutil.CountEntries(t, scratch))
		break
	}
	assert.Equal(t, []string{"1.docx"}, got)
	assert.Zero(t, testutil.CountEntries(t, scratch))
}

func TestWalkSpooledArchives(t *testing.T) {
	t.Parallel()

	sevenZip, err := os.ReadFile(filepath.Join("testdata", "members.7z"))
	require.NoError(t, err)
	rar, err := os.ReadFile(filepath.Join("testdata", "members.rar"))
	require.NoError(t, err)

	root := t.TempDir()
	testutil.WriteFile(t, root, "members.7z", sevenZip)
	testutil.WriteFile(t, root, "members.rar", rar)
	testutil.WriteFile(t, root, "wrap.zip", testutil.Zip(t, testutil.File{Name: "members.7z", Data: sevenZip}))
	scratch := t.TempDir()

	w, obs := newTestWalker(t, WithTempDir(scratch))
	seq, err := w.Walk(context.Background(), root)
	require.NoError(t, err)

	var records []Record
	for rec := range seq {
		if len(records) == 0 {
			// The 7z is spooled into its own scratch directory.
			dirs, err := os.ReadDir(scratch)
			require.NoError(t, err)
			require.Len(t, dirs, 1)
			assert.Equal(t, 1, testutil.CountEntries(t, filepath.Join(scratch, dirs[0].Name())))
		}
		records = append(records, rec)
	}

	type want struct {
		archive, inner, content string
		category                Category
	}
	var got []want
	for _, r := range records {
		got = append(got, want{r.ArchivePath, r.InnerPath, r.Content, r.FileType})
	}
	assert.Equal(t, []want{
		{"members.7z", "b.xlsx", "bravo text", CategorySpreadsheet},
		{"members.7z", "docs/a.docx", "alpha text", CategoryDocument},
		{"members.rar", "docs/a.docx", "alpha text", CategoryDocument},
		{"members.rar", "b.xlsx", "bravo text", CategorySpreadsheet},
		{"wrap.zip/members.7z", "b.xlsx", "bravo text", CategorySpreadsheet},
		{"wrap.zip/members.7z", "docs/a.docx", "alpha text", CategoryDocument},
	}, got)
	for _, r := range records[4:] {
		assert.Equal(t, filepath.Join(root, "wrap.zip"), r.FilePath)
	}

	assert.Equal(t, []string{
		"members.7z/notes.txt",
		"members.rar/notes.txt",
		"wrap.zip/members.7z/notes.txt",
	}, obs.skips)
	require.Len(t, obs.failures, 1)
	assert.Equal(t, "members.rar/locked.docx", obs.failures[0].Path)
	require.ErrorIs(t, obs.failures[0], ErrUnreadableEntry)
	require.ErrorIs(t, obs.failures[0], unpack.ErrEncrypted)
	assert.Zero(t, testutil.CountEntries(t, scratch))
}

func TestWalkContextCancel(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, "a.docx", []byte("a"))
	testutil.WriteFile(t, root, "b.zip", testutil.Zip(t, file("c.docx", "c"), file("d.docx", "d")))
	testutil.WriteFile(t, root, "e.docx", []byte("e"))
	scratch := t.TempDir()

	w, obs := newTestWalker(t, WithTempDir(scratch))

	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		seq, err := w.Walk(ctx, root)
		require.NoError(t, err)
		cancel()
		assert.Empty(t, slices.Collect(seq))
	})

	t.Run("mid walk", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		seq, err := w.Walk(ctx, root)
		require.NoError(t, err)

		var got []string
		for rec := range seq {
			got = append(got, rec.FileName)
			if rec.FileName == "c.docx" {
				cancel()
			}
		}
		assert.Equal(t, []string{"a.docx", "c.docx"}, got)
		assert.Zero(t, testutil.CountEntries(t, scratch))
	})

	assert.Empty(t, obs.failures, "cancellation is not a failure")
}

func TestWalkSkipsSymlinks(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}

	root := t.TempDir()
	outside := testutil.WriteFile(t, t.TempDir(), "outside.docx", []byte("outside"))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link.docx")))
	testutil.WriteFile(t, root, "real.docx", []byte("real"))

	w, obs := newTestWalker(t)
	records := collect(t, w, root)

	assert.Equal(t, []string{"real.docx"}, names(records))
	assert.Empty(t, obs.failures)
	assert.Empty(t, obs.skips)
}

func TestWalkSingleFileGzip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, "memo.docx.gz", testutil.Gzip(t, "memo.docx", []byte("memo")))

	w, obs := newTestWalker(t)
	records := collect(t, w, root)

	require.Len(t, records, 1)
	assert.Equal(t, "memo.docx", records[0].FileName)
	assert.Equal(t, "memo.docx.gz", records[0].ArchivePath)
	assert.Equal(t, "memo", records[0].Content)
	assert.Empty(t, obs.failures)
}

func TestWalkBuiltinExtractors(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, "bundle.tar.zst", testutil.Zstd(t, testutil.Tar(t,
		testutil.File{Name: "report.docx", Data: testutil.DOCX(t, []string{"Quarterly  report"}, []string{"Region", "Total"})},
		testutil.File{Name: "numbers.xlsx", Data: testutil.XLSX(t, testutil.Sheet{Name: "Q1", Rows: [][]string{{"Region", "Total"}}})},
	)))
	testutil.WriteFile(t, root, "fake.pdf", []byte("not really a pdf"))

	var failures []*EntryError
	w, err := New(WithTempDir(t.TempDir()), WithFailureHandler(func(e *EntryError) { failures = append(failures, e) }))
	require.NoError(t, err)

	records := collect(t, w, root)
	require.Len(t, records, 2)
	assert.Equal(t, "report.docx", records[0].FileName)
	assert.Equal(t, "Quarterly report Region | Total", records[0].Content)
	assert.Equal(t, CategoryDocument, records[0].FileType)
	assert.Equal(t, "numbers.xlsx", records[1].FileName)
	assert.Equal(t, "[Sheet: Q1] Region | Total", records[1].Content)
	assert.Equal(t, CategorySpreadsheet, records[1].FileType)

	require.Len(t, failures, 1)
	assert.Equal(t, "fake.pdf", failures[0].Path)
	require.ErrorIs(t, failures[0], ErrExtractionFailed)
	require.ErrorIs(t, failures[0], extract.ErrContentMismatch)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
	}{
		{"zero depth", []Option{WithMaxDepth(0)}},
		{"bad pattern", []Option{WithExclude("[")}},
		{"archive category for extractor", []Option{WithExtractor(".foo", CategoryArchive, stubText)}},
		{"unsupported category", []Option{WithExtractor(".foo", CategoryUnsupported, stubText)}},
		{"nil unpacker", []Option{WithUnpacker(".foo", nil)}},
		{"empty extension", []Option{WithUnpacker("", unpack.Zip())}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.opts...)
			require.Error(t, err)
		})
	}
}
