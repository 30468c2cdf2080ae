package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/h2non/filetype"

	"github.com/meigma/docwalk/internal/sizing"
)

// maxPartSize bounds a single XML part inside an OOXML package.
const maxPartSize = 64 << 20

var errPartMissing = errors.New("part missing")

// ooxmlPackage is an opened OOXML zip container.
type ooxmlPackage struct {
	parts map[string]*zip.File
}

func openOOXML(data []byte) (*ooxmlPackage, error) {
	if !filetype.Is(data, "zip") {
		return nil, ErrContentMismatch
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	pkg := &ooxmlPackage{parts: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		pkg.parts[strings.TrimPrefix(f.Name, "/")] = f
	}
	return pkg, nil
}

// has reports whether the named part exists.
func (p *ooxmlPackage) has(name string) bool {
	_, ok := p.parts[name]
	return ok
}

// read returns the bytes of the named part.
func (p *ooxmlPackage) read(name string) ([]byte, error) {
	f, ok := p.parts[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, errPartMissing)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	data, err := sizing.ReadAllWithLimit(rc, maxPartSize)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// resolveTarget resolves a relationship target relative to the part that
// owns the relationship.
func resolveTarget(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(base), target)
}

// xmlText concatenates all character data found in r.
func xmlText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		if cd, ok := tok.(xml.CharData); ok {
			b.Write(cd)
		}
	}
}
