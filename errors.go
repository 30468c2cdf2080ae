package docwalk

import (
	"errors"
	"fmt"
)

// Failure kinds reported for individual entries. None of them abort a walk.
var (
	// ErrUnreadableEntry is reported when an entry's bytes cannot be read,
	// including a single archive member that is encrypted or over the size
	// limit.
	ErrUnreadableEntry = errors.New("docwalk: unreadable entry")

	// ErrCorruptArchive is reported when an archive cannot be opened or its
	// stream breaks while listing members.
	ErrCorruptArchive = errors.New("docwalk: corrupt archive")

	// ErrExtractionFailed is reported when a format parser rejects a document.
	ErrExtractionFailed = errors.New("docwalk: extraction failed")

	// ErrRecursionLimit is reported when archive nesting exceeds the configured depth.
	ErrRecursionLimit = errors.New("docwalk: archive nesting exceeds depth limit")
)

// Precondition errors returned by Walk before traversal begins.
var (
	// ErrRootNotFound is returned when the storage root does not exist.
	ErrRootNotFound = errors.New("docwalk: storage root not found")

	// ErrRootNotDir is returned when the storage root is not a directory.
	ErrRootNotDir = errors.New("docwalk: storage root is not a directory")
)

// EntryError describes a local failure for a single entry or archive subtree.
//
// Kind is one of the failure sentinels; errors.Is matches both Kind and the
// underlying cause.
type EntryError struct {
	Kind error
	Path string
	Err  error
}

func (e *EntryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Err)
}

// Unwrap returns the failure kind and the underlying cause.
func (e *EntryError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// FailureKind returns a short stable name for the failure kind in err, or
// "unknown" when err carries none of the failure sentinels.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrRecursionLimit):
		return "recursion_limit"
	case errors.Is(err, ErrCorruptArchive):
		return "corrupt_archive"
	case errors.Is(err, ErrExtractionFailed):
		return "extraction_failed"
	case errors.Is(err, ErrUnreadableEntry):
		return "unreadable_entry"
	default:
		return "unknown"
	}
}
