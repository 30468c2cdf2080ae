package extract

import (
	"bytes"
	"context"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// oleMagic is the Compound File Binary header shared by .doc and .xls.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// minRunLen is the shortest character run kept by the binary salvage.
const minRunLen = 4

// DOC salvages readable text from a Word 97-2003 document.
//
// The compound file is not parsed. Runs of printable UTF-16LE text and runs
// of printable Windows-1252 bytes are both collected and the larger set
// wins, since Word stores body text in either encoding. The result
// approximates the body text and may include short fragments of metadata.
// Ideographic scripts are not recovered: byte pairs of ASCII text decode to
// valid CJK code points and cannot be told apart.
func DOC() Extractor {
	return Safe(Func(extractDOC))
}

func extractDOC(_ context.Context, data []byte) (string, error) {
	if !isOLE(data) {
		return "", malformed("doc", ErrContentMismatch)
	}
	body := data[len(oleMagic):]
	runs := utf16Runs(body)
	if ansi := ansiRuns(body); runeCount(ansi) > runeCount(runs) {
		runs = ansi
	}
	return strings.Join(runs, "\n"), nil
}

func runeCount(runs []string) int {
	n := 0
	for _, r := range runs {
		n += utf8.RuneCountInString(r)
	}
	return n
}

func isOLE(data []byte) bool {
	return bytes.HasPrefix(data, oleMagic)
}

// utf16Runs returns runs of at least minRunLen printable UTF-16LE characters.
func utf16Runs(data []byte) []string {
	var (
		runs []string
		cur  []uint16
	)
	flush := func() {
		if len(cur) >= minRunLen {
			runs = append(runs, string(utf16.Decode(cur)))
		}
		cur = cur[:0]
	}
	for i := 0; i+1 < len(data); i += 2 {
		u := uint16(data[i]) | uint16(data[i+1])<<8
		r := rune(u)
		if u != 0 && u < 0x3000 && (unicode.IsPrint(r) || r == '\t') {
			cur = append(cur, u)
			continue
		}
		flush()
	}
	flush()
	return runs
}

// ansiRuns returns runs of at least minRunLen printable Windows-1252 bytes.
func ansiRuns(data []byte) []string {
	dec := charmap.Windows1252
	var (
		runs []string
		cur  []byte
	)
	flush := func() {
		if len(cur) >= minRunLen {
			var b strings.Builder
			for _, c := range cur {
				b.WriteRune(dec.DecodeByte(c))
			}
			runs = append(runs, b.String())
		}
		cur = cur[:0]
	}
	for _, c := range data {
		if c == '\t' || (c >= 0x20 && c != 0x7F && c != 0x81 && c != 0x8D && c != 0x8F && c != 0x90 && c != 0x9D) {
			cur = append(cur, c)
			continue
		}
		flush()
	}
	flush()
	return runs
}
