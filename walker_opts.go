package docwalk

import (
	"log/slog"

	"github.com/meigma/docwalk/extract"
	"github.com/meigma/docwalk/unpack"
)

// Option configures a Walker.
type Option func(*Walker)

// WithMaxDepth sets the archive nesting ceiling. A top-level archive has
// depth 1. Archives beyond the ceiling are reported with ErrRecursionLimit.
func WithMaxDepth(n int) Option {
	return func(w *Walker) {
		w.maxDepth = n
	}
}

// WithMaxEntrySize limits the bytes read for a single file or archive
// member. Set limit to 0 to disable the limit.
func WithMaxEntrySize(limit uint64) Option {
	return func(w *Walker) {
		w.maxEntrySize = limit
	}
}

// WithTempDir sets the parent directory for per-archive scratch
// directories. The default is os.TempDir().
func WithTempDir(dir string) Option {
	return func(w *Walker) {
		w.tempDir = dir
	}
}

// WithExclude skips entries whose root-relative path, or member path inside
// an archive, matches any of the doublestar patterns.
func WithExclude(patterns ...string) Option {
	return func(w *Walker) {
		w.exclude = append(w.exclude, patterns...)
	}
}

// WithLogger sets the logger for walk events.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Walker) {
		w.logger = logger
	}
}

// WithFailureHandler registers fn to receive every local failure. It is
// called synchronously from the walking goroutine.
func WithFailureHandler(fn func(*EntryError)) Option {
	return func(w *Walker) {
		w.onFailure = fn
	}
}

// WithSkipHandler registers fn to receive the path of every unsupported
// entry. It is called synchronously from the walking goroutine.
func WithSkipHandler(fn func(path string)) Option {
	return func(w *Walker) {
		w.onSkip = fn
	}
}

// WithExtractor registers e for files ending in ext, replacing any existing
// registration. cat must be CategoryDocument or CategorySpreadsheet. The
// extractor is wrapped with extract.Safe.
func WithExtractor(ext string, cat Category, e extract.Extractor) Option {
	return func(w *Walker) {
		w.formats[normalizeExt(ext)] = format{category: cat, extractor: extract.Safe(e)}
	}
}

// WithUnpacker registers u for archives ending in ext, replacing any
// existing registration.
func WithUnpacker(ext string, u unpack.Unpacker) Option {
	return func(w *Walker) {
		w.formats[normalizeExt(ext)] = format{category: CategoryArchive, unpacker: u}
	}
}

// WithoutFormat removes the registration for ext, making it unsupported.
func WithoutFormat(ext string) Option {
	return func(w *Walker) {
		delete(w.formats, normalizeExt(ext))
	}
}
