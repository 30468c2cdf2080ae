// Package pathutil provides path manipulation for slash-separated archive paths.
package pathutil

import (
	"path"
	"strings"
)

// Base returns the last element of a slash-separated path.
// If p is empty or ".", it returns ".".
func Base(p string) string {
	if p == "" || p == "." {
		return "."
	}
	p = strings.TrimSuffix(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Normalize converts an archive member name to a clean slash-separated
// relative path.
//
// It performs the following transformations:
//   - Backslashes become slashes: `docs\a.docx` → "docs/a.docx"
//   - Leading slashes and "./" are stripped: "/./docs/a.docx" → "docs/a.docx"
//   - Consecutive slashes and "." elements collapse: "docs//./a" → "docs/a"
//   - ".." elements that would climb above the archive root are dropped
//
// An empty result is returned as "".
func Normalize(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	cleaned := path.Clean("/" + name)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "." {
		return ""
	}
	return cleaned
}

// IsDirName reports whether an archive member name denotes a directory.
func IsDirName(name string) bool {
	return strings.HasSuffix(name, "/") || strings.HasSuffix(name, `\`)
}

// Join joins logical path segments with "/", skipping empty segments.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}
