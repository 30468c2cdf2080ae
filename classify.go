package docwalk

import (
	"slices"
	"strings"

	"github.com/meigma/docwalk/extract"
	"github.com/meigma/docwalk/internal/pathutil"
	"github.com/meigma/docwalk/unpack"
)

// Category is the classification of an entry by file name.
type Category int

const (
	// CategoryUnsupported entries are skipped.
	CategoryUnsupported Category = iota
	// CategoryDocument entries are text documents.
	CategoryDocument
	// CategorySpreadsheet entries are workbooks.
	CategorySpreadsheet
	// CategoryArchive entries are unpacked and their members visited.
	CategoryArchive
)

// String returns the lower-case category name.
func (c Category) String() string {
	switch c {
	case CategoryDocument:
		return "document"
	case CategorySpreadsheet:
		return "spreadsheet"
	case CategoryArchive:
		return "archive"
	default:
		return "unsupported"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// format binds an extension to the capability that handles it.
type format struct {
	category  Category
	extractor extract.Extractor
	unpacker  unpack.Unpacker
}

// defaultFormats returns the built-in extension table.
func defaultFormats() map[string]format {
	doc := func(e extract.Extractor) format { return format{category: CategoryDocument, extractor: e} }
	sheet := func(e extract.Extractor) format { return format{category: CategorySpreadsheet, extractor: e} }
	archive := func(u unpack.Unpacker) format { return format{category: CategoryArchive, unpacker: u} }

	return map[string]format{
		".docx":    doc(extract.DOCX()),
		".doc":     doc(extract.DOC()),
		".pdf":     doc(extract.PDF()),
		".xlsx":    sheet(extract.XLSX()),
		".xls":     sheet(extract.XLS()),
		".zip":     archive(unpack.Zip()),
		".7z":      archive(unpack.SevenZip()),
		".rar":     archive(unpack.Rar()),
		".tar":     archive(unpack.Tar()),
		".tar.gz":  archive(unpack.TarGzip()),
		".tgz":     archive(unpack.TarGzip()),
		".tar.zst": archive(unpack.TarZstd()),
		".tzst":    archive(unpack.TarZstd()),
		".gz":      archive(unpack.Gzip()),
	}
}

// Classifier maps file names to categories by extension. It never looks at
// file contents. A Classifier is immutable and safe for concurrent use.
type Classifier struct {
	exts map[string]Category
}

func newClassifier(formats map[string]format) *Classifier {
	exts := make(map[string]Category, len(formats))
	for ext, f := range formats {
		exts[ext] = f.category
	}
	return &Classifier{exts: exts}
}

// Classify returns the category for name. Matching is case-insensitive and
// the longest registered suffix wins, so "a.tar.gz" matches ".tar.gz"
// before ".gz".
func (c *Classifier) Classify(name string) Category {
	_, cat := c.match(name)
	return cat
}

// Extensions returns the registered extensions in sorted order.
func (c *Classifier) Extensions() []string {
	out := make([]string, 0, len(c.exts))
	for ext := range c.exts {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// match returns the matched extension and its category.
func (c *Classifier) match(name string) (string, Category) {
	base := strings.ToLower(pathutil.Base(pathutil.Normalize(name)))
	// A leading dot marks a hidden file, not an extension.
	for i := 1; i < len(base); i++ {
		if base[i] != '.' {
			continue
		}
		if cat, ok := c.exts[base[i:]]; ok {
			return base[i:], cat
		}
	}
	return "", CategoryUnsupported
}

// normalizeExt lower-cases ext and ensures a leading dot.
func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
