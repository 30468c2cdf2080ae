package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"
)

const docxBody = "word/document.xml"

// DOCX extracts body paragraphs followed by table rows from a Word
// document. Table cells are joined with " | ".
func DOCX() Extractor {
	return Safe(Func(extractDOCX))
}

func extractDOCX(_ context.Context, data []byte) (string, error) {
	pkg, err := openOOXML(data)
	if err != nil {
		return "", malformed("docx", err)
	}
	body, err := pkg.read(docxBody)
	if err != nil {
		return "", malformed("docx", err)
	}
	paragraphs, rows, err := parseWordBody(bytes.NewReader(body))
	if err != nil {
		return "", malformed("docx", err)
	}
	return strings.Join(append(paragraphs, rows...), "\n"), nil
}

// parseWordBody walks WordprocessingML and returns the non-empty body
// paragraphs and the non-empty table rows, each in document order.
func parseWordBody(r io.Reader) (paragraphs, rows []string, err error) {
	dec := xml.NewDecoder(r)

	var (
		para      strings.Builder
		inText    bool
		tableLvl  int
		rowCells  []string
		cellParas []string
	)

	for {
		tok, tokErr := dec.Token()
		if tokErr == io.EOF {
			return paragraphs, rows, nil
		}
		if tokErr != nil {
			return nil, nil, tokErr
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			case "tbl":
				tableLvl++
			case "tr":
				if tableLvl == 1 {
					rowCells = rowCells[:0]
				}
			case "tc":
				if tableLvl == 1 {
					cellParas = cellParas[:0]
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := para.String()
				para.Reset()
				if strings.TrimSpace(text) == "" {
					continue
				}
				if tableLvl == 0 {
					paragraphs = append(paragraphs, text)
				} else {
					cellParas = append(cellParas, text)
				}
			case "tc":
				if tableLvl == 1 {
					if text := strings.TrimSpace(strings.Join(cellParas, " ")); text != "" {
						rowCells = append(rowCells, text)
					}
				}
			case "tr":
				if tableLvl == 1 && len(rowCells) > 0 {
					rows = append(rows, strings.Join(rowCells, " | "))
				}
			case "tbl":
				tableLvl--
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
}
