package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/extrame/xls"
)

// XLS extracts legacy Excel 97-2003 workbooks with the same layout as XLSX.
func XLS() Extractor {
	return Safe(Func(extractXLS))
}

func extractXLS(ctx context.Context, data []byte) (string, error) {
	if !isOLE(data) {
		return "", malformed("xls", ErrContentMismatch)
	}
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return "", malformed("xls", err)
	}

	var parts []string
	for i := 0; i < wb.NumSheets(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		parts = append(parts, "[Sheet: "+sheet.Name+"]")
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheetRow(sheet, r)
			if row == nil {
				continue
			}
			var values []string
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				if v := strings.TrimSpace(row.Col(c)); v != "" {
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

// sheetRow returns nil for rows the sheet never defined; xls.WorkSheet.Row
// dereferences the missing row and panics.
func sheetRow(sheet *xls.WorkSheet, r int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(r)
}
