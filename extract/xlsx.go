package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	xlsxWorkbook      = "xl/workbook.xml"
	xlsxWorkbookRels  = "xl/_rels/workbook.xml.rels"
	xlsxSharedStrings = "xl/sharedStrings.xml"
)

// XLSX extracts every worksheet as a "[Sheet: name]" header followed by one
// line per row with non-empty cell values joined by " | ".
func XLSX() Extractor {
	return Safe(Func(extractXLSX))
}

type workbookXML struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"id,attr"`
	} `xml:"sheets>sheet"`
}

type relationshipsXML struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type worksheetXML struct {
	Rows []struct {
		Cells []struct {
			Type   string `xml:"t,attr"`
			Value  string `xml:"v"`
			Inline struct {
				Text string `xml:",innerxml"`
			} `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

func extractXLSX(ctx context.Context, data []byte) (string, error) {
	pkg, err := openOOXML(data)
	if err != nil {
		return "", malformed("xlsx", err)
	}

	var wb workbookXML
	if err := decodePart(pkg, xlsxWorkbook, &wb); err != nil {
		return "", malformed("xlsx", err)
	}

	targets := make(map[string]string)
	if pkg.has(xlsxWorkbookRels) {
		var rels relationshipsXML
		if err := decodePart(pkg, xlsxWorkbookRels, &rels); err != nil {
			return "", malformed("xlsx", err)
		}
		for _, rel := range rels.Relationships {
			targets[rel.ID] = resolveTarget(xlsxWorkbook, rel.Target)
		}
	}

	var shared []string
	if pkg.has(xlsxSharedStrings) {
		raw, err := pkg.read(xlsxSharedStrings)
		if err != nil {
			return "", malformed("xlsx", err)
		}
		if shared, err = parseSharedStrings(bytes.NewReader(raw)); err != nil {
			return "", malformed("xlsx", err)
		}
	}

	var parts []string
	for i, sheet := range wb.Sheets {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		target, ok := targets[sheet.RID]
		if !ok {
			target = fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
		}
		var ws worksheetXML
		if err := decodePart(pkg, target, &ws); err != nil {
			return "", malformed("xlsx", fmt.Errorf("sheet %q: %w", sheet.Name, err))
		}

		parts = append(parts, "[Sheet: "+sheet.Name+"]")
		for _, row := range ws.Rows {
			values := make([]string, 0, len(row.Cells))
			for _, c := range row.Cells {
				v, err := cellValue(c.Type, c.Value, c.Inline.Text, shared)
				if err != nil {
					return "", malformed("xlsx", err)
				}
				if v != "" {
					values = append(values, v)
				}
			}
			if len(values) > 0 {
				parts = append(parts, strings.Join(values, " | "))
			}
		}
	}
	return strings.Join(parts, "\n"), nil
}

func cellValue(typ, value, inline string, shared []string) (string, error) {
	switch typ {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || idx < 0 || idx >= len(shared) {
			return "", fmt.Errorf("bad shared string index %q", value)
		}
		return shared[idx], nil
	case "inlineStr":
		return xmlText(strings.NewReader("<is>" + inline + "</is>"))
	case "b":
		if strings.TrimSpace(value) == "1" {
			return "True", nil
		}
		return "False", nil
	default:
		return strings.TrimSpace(value), nil
	}
}

// parseSharedStrings returns the text of every <si>, concatenating rich
// text runs.
func parseSharedStrings(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		out    []string
		cur    strings.Builder
		inSI   bool
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "si":
				inSI = true
				cur.Reset()
			case "t":
				inText = inSI
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "si":
				inSI = false
				out = append(out, cur.String())
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
}

func decodePart(pkg *ooxmlPackage, name string, v any) error {
	raw, err := pkg.read(name)
	if err != nil {
		return err
	}
	return xml.Unmarshal(raw, v)
}
