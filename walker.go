package docwalk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/meigma/docwalk/internal/pathutil"
	"github.com/meigma/docwalk/unpack"
)

const (
	// DefaultMaxDepth is the default archive nesting ceiling.
	DefaultMaxDepth = 10

	// DefaultMaxEntrySize is the default per-entry read limit (256 MiB).
	DefaultMaxEntrySize = 256 << 20
)

// Walker visits a storage tree and yields one Record per extracted
// document. A Walker is immutable after New and may run several walks
// concurrently.
type Walker struct {
	maxDepth     int
	maxEntrySize uint64
	tempDir      string
	exclude      []string
	logger       *slog.Logger
	onFailure    func(*EntryError)
	onSkip       func(string)
	formats      map[string]format
	classifier   *Classifier
}

// New creates a Walker with the built-in formats and the given options.
func New(opts ...Option) (*Walker, error) {
	w := &Walker{
		maxDepth:     DefaultMaxDepth,
		maxEntrySize: DefaultMaxEntrySize,
		formats:      defaultFormats(),
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.maxDepth < 1 {
		return nil, fmt.Errorf("docwalk: max depth must be at least 1, got %d", w.maxDepth)
	}
	for _, p := range w.exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("docwalk: invalid exclude pattern %q", p)
		}
	}
	for ext, f := range w.formats {
		if ext == "." || ext == "" {
			return nil, errors.New("docwalk: empty extension")
		}
		switch f.category {
		case CategoryDocument, CategorySpreadsheet:
			if f.extractor == nil {
				return nil, fmt.Errorf("docwalk: %s: nil extractor", ext)
			}
		case CategoryArchive:
			if f.unpacker == nil {
				return nil, fmt.Errorf("docwalk: %s: nil unpacker", ext)
			}
		default:
			return nil, fmt.Errorf("docwalk: %s: cannot register category %s", ext, f.category)
		}
	}
	if w.tempDir == "" {
		w.tempDir = os.TempDir()
	}
	w.classifier = newClassifier(w.formats)
	return w, nil
}

// Classifier returns the classifier built from the registered formats.
func (w *Walker) Classifier() *Classifier {
	return w.classifier
}

// MaxDepth returns the archive nesting ceiling.
func (w *Walker) MaxDepth() int {
	return w.maxDepth
}

// Walk checks that root is an existing directory and returns a lazy record
// sequence over it.
//
// Each range over the sequence performs a fresh walk. Siblings are visited
// in lexical order. Local failures are logged and sent to the failure
// handler; they never end the sequence. Cancelling ctx stops the walk
// between entries. Scratch directories created for archives are removed
// before the sequence returns, including when the consumer stops early.
func (w *Walker) Walk(ctx context.Context, root string) (iter.Seq[Record], error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDir, root)
	}

	return func(yield func(Record) bool) {
		r := &run{w: w, ctx: ctx, root: abs, yield: yield}
		r.walk()
	}, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (w *Walker) log() *slog.Logger {
	if w.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.logger
}

// excluded reports whether p matches an exclude pattern.
func (w *Walker) excluded(p string) bool {
	for _, pattern := range w.exclude {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

// run is the state of a single pass over a root.
type run struct {
	w     *Walker
	ctx   context.Context
	root  string
	yield func(Record) bool

	records  int
	skipped  int
	failures int
}

func (r *run) walk() {
	log := r.w.log()
	log.Info("walk started", "root", r.root, "max_depth", r.w.maxDepth)

	root, err := os.OpenRoot(r.root)
	if err != nil {
		r.fail(ErrUnreadableEntry, r.root, err)
		return
	}
	defer root.Close()

	stopped := false
	err = fs.WalkDir(root.FS(), ".", func(p string, d fs.DirEntry, walkErr error) error {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			r.fail(ErrUnreadableEntry, p, walkErr)
			if d != nil && d.IsDir() && p != "." {
				return fs.SkipDir
			}
			return nil
		}
		if p == "." {
			return nil
		}
		if r.w.excluded(p) {
			log.Debug("excluded", "path", p)
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			log.Debug("skipped non-regular file", "path", p, "type", d.Type().String())
			return nil
		}

		cat := r.w.classifier.Classify(p)
		if cat == CategoryUnsupported {
			r.skip(p)
			return nil
		}
		info, err := d.Info()
		if err != nil {
			r.fail(ErrUnreadableEntry, p, err)
			return nil
		}
		if !r.visit(fileEntry(root, p, info.ModTime(), r.w.maxEntrySize), ArchiveContext{}) {
			stopped = true
			return fs.SkipAll
		}
		return nil
	})

	switch {
	case r.ctx.Err() != nil:
		log.Info("walk canceled", "root", r.root, "error", r.ctx.Err())
	case err != nil:
		r.fail(ErrUnreadableEntry, r.root, err)
	case stopped:
		log.Debug("walk stopped by consumer", "root", r.root)
	default:
		log.Info("walk finished", "root", r.root, "records", r.records, "skipped", r.skipped, "failures", r.failures)
	}
}

// visit processes one entry found at actx. It returns false when the walk
// must stop, either because the consumer stopped or ctx is done.
func (r *run) visit(e entry, actx ArchiveContext) bool {
	if r.ctx.Err() != nil {
		return false
	}
	ext, cat := r.w.classifier.match(e.name)
	switch cat {
	case CategoryUnsupported:
		r.skip(r.display(e, actx))
		return true
	case CategoryArchive:
		return r.visitArchive(e, actx, r.w.formats[ext].unpacker)
	default:
		return r.visitDocument(e, actx, cat, r.w.formats[ext])
	}
}

func (r *run) visitDocument(e entry, actx ArchiveContext, cat Category, f format) bool {
	display := r.display(e, actx)
	data, err := e.load()
	if err != nil {
		r.fail(ErrUnreadableEntry, display, err)
		return true
	}

	text, err := f.extractor.Extract(r.ctx, data)
	if err != nil {
		if r.ctx.Err() != nil {
			return false
		}
		r.fail(ErrExtractionFailed, display, err)
		return true
	}

	rec := Record{
		FilePath:    r.filePath(e, actx),
		FileName:    e.name,
		FileType:    cat,
		FileSize:    int64(len(data)),
		Content:     text,
		ArchivePath: actx.String(),
		CreatedDate: e.modTime,
		ContentHash: HashContent(text),
	}
	if actx.Depth() > 0 {
		rec.InnerPath = e.path
	}
	r.records++
	r.w.log().Debug("extracted", "path", display, "type", cat.String(), "chars", len(text))
	return r.yield(rec)
}

// visitArchive unpacks e into a private scratch directory and visits each
// member with the context extended by e. The scratch directory is removed
// before visitArchive returns.
func (r *run) visitArchive(e entry, actx ArchiveContext, u unpack.Unpacker) bool {
	child := actx.descend(e.path)
	display := child.String()
	if child.Depth() > r.w.maxDepth {
		r.fail(ErrRecursionLimit, display, fmt.Errorf("depth %d exceeds %d", child.Depth(), r.w.maxDepth))
		return true
	}

	data, err := e.load()
	if err != nil {
		r.fail(ErrUnreadableEntry, display, err)
		return true
	}

	dir, err := os.MkdirTemp(r.w.tempDir, "docwalk-*")
	if err != nil {
		r.fail(ErrUnreadableEntry, display, fmt.Errorf("create scratch dir: %w", err))
		return true
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			r.w.log().Warn("remove scratch dir", "dir", dir, "error", err)
		}
	}()

	reader, err := u.Open(r.ctx, unpack.Source{
		Name:          e.name,
		Data:          data,
		Dir:           dir,
		MaxMemberSize: r.w.maxEntrySize,
		Select:        r.selectMember,
	})
	if err != nil {
		if r.ctx.Err() != nil {
			return false
		}
		r.fail(ErrCorruptArchive, display, err)
		return true
	}
	defer reader.Close()

	r.w.log().Debug("entering archive", "path", display, "depth", child.Depth())
	for {
		if r.ctx.Err() != nil {
			return false
		}
		m, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return true
		}
		if err != nil {
			r.fail(ErrCorruptArchive, display, err)
			return true
		}

		memberDisplay := pathutil.Join(display, m.Path)
		if !r.selectMember(m.Path) {
			if r.w.excluded(m.Path) {
				r.w.log().Debug("excluded", "path", memberDisplay)
			} else {
				r.skip(memberDisplay)
			}
			continue
		}
		if m.Err != nil {
			r.fail(ErrUnreadableEntry, memberDisplay, m.Err)
			continue
		}
		if !r.visit(memberEntry(m.Path, pathutil.Base(m.Path), m.ModTime, m.Data), child) {
			return false
		}
	}
}

// selectMember reports whether a member should be read at all.
func (r *run) selectMember(p string) bool {
	return !r.w.excluded(p) && r.w.classifier.Classify(p) != CategoryUnsupported
}

// display returns the logical path used in logs and failures.
func (r *run) display(e entry, actx ArchiveContext) string {
	return pathutil.Join(actx.String(), e.path)
}

// filePath returns the on-disk location recorded for e.
func (r *run) filePath(e entry, actx ArchiveContext) string {
	if actx.Depth() > 0 {
		return filepath.Join(r.root, filepath.FromSlash(actx.Top))
	}
	return filepath.Join(r.root, filepath.FromSlash(e.path))
}

func (r *run) fail(kind error, path string, err error) {
	r.failures++
	ee := &EntryError{Kind: kind, Path: path, Err: err}
	r.w.log().Warn("entry failed", "path", path, "kind", FailureKind(kind), "error", err)
	if r.w.onFailure != nil {
		r.w.onFailure(ee)
	}
}

func (r *run) skip(path string) {
	r.skipped++
	r.w.log().Debug("skipped unsupported entry", "path", path)
	if r.w.onSkip != nil {
		r.w.onSkip(path)
	}
}
