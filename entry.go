package docwalk

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/meigma/docwalk/internal/platform"
	"github.com/meigma/docwalk/internal/sizing"
)

// entry is a file or archive member under visit. Its bytes are read only
// when the classification calls for them.
type entry struct {
	// path is root-relative for files and the member path for members.
	path    string
	name    string
	modTime time.Time
	load    func() ([]byte, error)
}

// fileEntry returns an entry for a regular file below root. rel is
// slash-separated.
func fileEntry(root *os.Root, rel string, modTime time.Time, limit uint64) entry {
	return entry{
		path:    rel,
		name:    filepath.Base(filepath.FromSlash(rel)),
		modTime: modTime,
		load: func() ([]byte, error) {
			return readFile(root, rel, limit)
		},
	}
}

func readFile(root *os.Root, rel string, limit uint64) ([]byte, error) {
	f, info, err := platform.OpenRegular(root, filepath.FromSlash(rel))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sizing.Exceeds(info.Size(), limit) {
		return nil, fmt.Errorf("%d bytes: %w", info.Size(), sizing.ErrTooLarge)
	}
	return sizing.ReadAllWithLimit(f, limit)
}

// memberEntry returns an entry whose bytes were already read by an
// unpacker.
func memberEntry(path, name string, modTime time.Time, data []byte) entry {
	return entry{
		path:    path,
		name:    name,
		modTime: modTime,
		load: func() ([]byte, error) {
			return data, nil
		},
	}
}
