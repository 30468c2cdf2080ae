package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var (
	// ErrSymlink is returned when the named file is a symbolic link.
	ErrSymlink = errors.New("platform: symbolic link")

	// ErrNotRegular is returned when the named file is not a regular file.
	ErrNotRegular = errors.New("platform: not a regular file")
)

// OpenRegular opens name below root for reading. It refuses symbolic links
// and anything that is not a regular file, and returns the file's info
// taken from the open descriptor.
func OpenRegular(root *os.Root, name string) (*os.File, fs.FileInfo, error) {
	f, err := openNoFollow(root, name)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s (%s)", ErrNotRegular, name, info.Mode().Type())
	}
	return f, info, nil
}
