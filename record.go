package docwalk

import (
	"fmt"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/meigma/docwalk/internal/pathutil"
)

// Record is the immutable result of extracting one document.
type Record struct {
	// FilePath is the on-disk location. For archive members it is the path
	// of the outermost archive.
	FilePath string

	// FileName is the base name of the document.
	FileName string

	// InnerPath is the member path inside the immediate archive, empty for
	// plain files.
	InnerPath string

	// FileType is CategoryDocument or CategorySpreadsheet.
	FileType Category

	// FileSize is the raw byte size of the document.
	FileSize int64

	// Content is the normalized extracted text. It may be empty.
	Content string

	// ArchivePath is the rendered ArchiveContext, empty outside archives.
	ArchivePath string

	// CreatedDate is a best-effort timestamp; zero when unknown.
	CreatedDate time.Time

	// ContentHash is HashContent(Content).
	ContentHash string
}

// InArchive reports whether the record came from inside an archive.
func (r Record) InArchive() bool {
	return r.ArchivePath != ""
}

// HashContent returns the content fingerprint used for deduplication.
//
// The digest is xxhash64 over the text, rendered as 16 lower-case hex
// digits. Identical text always yields the same hash; it is not a
// cryptographic property.
func HashContent(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}

// ArchiveContext identifies the chain of archives enclosing an entry.
type ArchiveContext struct {
	// Top is the root-relative, slash-separated path of the outermost archive.
	Top string

	// Inner lists the member paths of nested archives, outermost first.
	Inner []string
}

// Depth returns the nesting level: 1 for a top-level archive.
func (a ArchiveContext) Depth() int {
	if a.Top == "" {
		return 0
	}
	return 1 + len(a.Inner)
}

// String renders the context as a logical path, e.g. "docs/b.zip/inner/c.zip".
func (a ArchiveContext) String() string {
	return pathutil.Join(append([]string{a.Top}, a.Inner...)...)
}

// descend returns the context for an archive found inside a.
// The receiver is left untouched.
func (a ArchiveContext) descend(memberPath string) ArchiveContext {
	if a.Top == "" {
		return ArchiveContext{Top: memberPath}
	}
	inner := slices.Clone(a.Inner)
	return ArchiveContext{Top: a.Top, Inner: append(inner, memberPath)}
}
