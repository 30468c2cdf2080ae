//go:build unix

package platform

import (
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRegular(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.docx"), []byte("data"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(dir, "a.docx"), filepath.Join(dir, "link.docx")))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, syscall.Mkfifo(filepath.Join(dir, "pipe.docx"), 0o644))

	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	defer root.Close()

	f, info, err := OpenRegular(root, "a.docx")
	require.NoError(t, err)
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "data", string(content))
	assert.Equal(t, int64(4), info.Size())

	_, _, err = OpenRegular(root, "link.docx")
	require.ErrorIs(t, err, ErrSymlink)

	_, _, err = OpenRegular(root, "sub")
	require.ErrorIs(t, err, ErrNotRegular)

	_, _, err = OpenRegular(root, "pipe.docx")
	require.ErrorIs(t, err, ErrNotRegular)

	_, _, err = OpenRegular(root, "missing.docx")
	require.ErrorIs(t, err, os.ErrNotExist)
}
