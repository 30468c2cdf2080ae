package testutil

import (
	"encoding/xml"
	"fmt"
	"strings"
	"testing"
)

const (
	wordNS  = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	sheetNS = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	relNS   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	pkgNS   = "http://schemas.openxmlformats.org/package/2006/relationships"
)

// Sheet is a worksheet for XLSX.
type Sheet struct {
	Name string
	Rows [][]string
}

// DOCX returns a minimal Word document whose body holds one paragraph per
// element of paragraphs followed by a table built from rows.
func DOCX(tb testing.TB, paragraphs []string, rows ...[]string) []byte {
	tb.Helper()

	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, escape(p))
	}
	if len(rows) > 0 {
		body.WriteString("<w:tbl>")
		for _, row := range rows {
			body.WriteString("<w:tr>")
			for _, cell := range row {
				fmt.Fprintf(&body, `<w:tc><w:p><w:r><w:t>%s</w:t></w:r></w:p></w:tc>`, escape(cell))
			}
			body.WriteString("</w:tr>")
		}
		body.WriteString("</w:tbl>")
	}

	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="` + wordNS + `"><w:body>` + body.String() + `</w:body></w:document>`

	return Zip(tb,
		File{Name: "[Content_Types].xml", Data: []byte(contentTypes)},
		File{Name: "word/document.xml", Data: []byte(doc)},
	)
}

// XLSX returns a minimal workbook. String cells are stored in the shared
// string table; cells that start with "=" are written inline, without the
// leading "=", to exercise inline strings.
func XLSX(tb testing.TB, sheets ...Sheet) []byte {
	tb.Helper()

	var (
		shared   []string
		sharedIx = map[string]int{}
		files    []File
		wbSheets strings.Builder
		rels     strings.Builder
	)

	for i, sh := range sheets {
		n := i + 1
		fmt.Fprintf(&wbSheets, `<sheet name="%s" sheetId="%d" r:id="rId%d"/>`, escape(sh.Name), n, n)
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="%s/worksheet" Target="worksheets/sheet%d.xml"/>`, n, relNS, n)

		var data strings.Builder
		for r, row := range sh.Rows {
			fmt.Fprintf(&data, `<row r="%d">`, r+1)
			for c, v := range row {
				ref := fmt.Sprintf("%c%d", 'A'+c, r+1)
				switch {
				case v == "":
				case strings.HasPrefix(v, "="):
					fmt.Fprintf(&data, `<c r="%s" t="inlineStr"><is><t>%s</t></is></c>`, ref, escape(v[1:]))
				default:
					ix, ok := sharedIx[v]
					if !ok {
						ix = len(shared)
						sharedIx[v] = ix
						shared = append(shared, v)
					}
					fmt.Fprintf(&data, `<c r="%s" t="s"><v>%d</v></c>`, ref, ix)
				}
			}
			data.WriteString(`</row>`)
		}
		files = append(files, File{
			Name: fmt.Sprintf("xl/worksheets/sheet%d.xml", n),
			Data: []byte(`<?xml version="1.0" encoding="UTF-8"?><worksheet xmlns="` + sheetNS + `"><sheetData>` + data.String() + `</sheetData></worksheet>`),
		})
	}

	var sst strings.Builder
	for _, s := range shared {
		fmt.Fprintf(&sst, `<si><t>%s</t></si>`, escape(s))
	}

	base := []File{
		{Name: "[Content_Types].xml", Data: []byte(contentTypes)},
		{Name: "xl/workbook.xml", Data: []byte(`<?xml version="1.0" encoding="UTF-8"?><workbook xmlns="` + sheetNS + `" xmlns:r="` + relNS + `"><sheets>` + wbSheets.String() + `</sheets></workbook>`)},
		{Name: "xl/_rels/workbook.xml.rels", Data: []byte(`<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="` + pkgNS + `">` + rels.String() + `</Relationships>`)},
		{Name: "xl/sharedStrings.xml", Data: []byte(`<?xml version="1.0" encoding="UTF-8"?><sst xmlns="` + sheetNS + `">` + sst.String() + `</sst>`)},
	}
	return Zip(tb, append(base, files...)...)
}

const contentTypes = `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s)) //nolint:errcheck // strings.Builder never fails
	return b.String()
}
