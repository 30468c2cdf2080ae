// Package platform isolates OS-specific file access used by the walker.
//
// Files are opened relative to an os.Root so traversal cannot escape the
// storage tree, and symbolic links are never followed.
package platform
