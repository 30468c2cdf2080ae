package textstore

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
)

// isBlob reports whether d is a stored blob rather than an in-flight
// temporary file.
func isBlob(d fs.DirEntry) bool {
	return d.Type().IsRegular() && strings.HasSuffix(d.Name(), blobExt)
}

// dirSize returns the total size of the blobs below root. A missing root
// holds no blobs.
func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || !isBlob(d) {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	return total, err
}
