package emit

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/meigma/docwalk"
)

// jsonRecord is the JSONL wire shape of a record.
type jsonRecord struct {
	FilePath    string           `json:"file_path"`
	FileName    string           `json:"file_name"`
	InnerPath   string           `json:"inner_path,omitempty"`
	FileType    docwalk.Category `json:"file_type"`
	FileSize    int64            `json:"file_size"`
	Content     string           `json:"content"`
	ArchivePath string           `json:"archive_path,omitempty"`
	CreatedDate string           `json:"created_date,omitempty"`
	ContentHash string           `json:"content_hash"`
}

// JSONL writes one JSON object per record.
type JSONL struct {
	buf    *bufio.Writer
	enc    *json.Encoder
	closed bool
}

// NewJSONL returns an emitter writing to w.
func NewJSONL(w io.Writer) *JSONL {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &JSONL{buf: buf, enc: enc}
}

// Emit writes one line.
func (j *JSONL) Emit(rec docwalk.Record) error {
	if j.closed {
		return ErrClosed
	}
	return j.enc.Encode(jsonRecord{
		FilePath:    rec.FilePath,
		FileName:    rec.FileName,
		InnerPath:   rec.InnerPath,
		FileType:    rec.FileType,
		FileSize:    rec.FileSize,
		Content:     rec.Content,
		ArchivePath: rec.ArchivePath,
		CreatedDate: formatDate(rec.CreatedDate),
		ContentHash: rec.ContentHash,
	})
}

// Close flushes buffered lines.
func (j *JSONL) Close() error {
	if j.closed {
		return nil
	}
	j.closed = true
	return j.buf.Flush()
}
