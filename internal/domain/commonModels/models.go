package commonModels

import (
	"strconv"
	"time"
)

// Document is one row of the document registry.
type Document struct {
	FileId          int64     `json:"file_id"`
	Filename        string    `json:"filename"`
	UploadTimestamp time.Time `json:"upload_timestamp"`
}

func (d Document) FileIdString() string {
	return FormatFileId(d.FileId)
}

type DocChunk struct {
	Doc        Document
	ChunkId    string  `json:"chunk_id"`
	Chunk      string  `json:"content"`
	PageNum    int     `json:"page_num"`
	ChunkOrder int     `json:"chunk_order"`
	DocType    DocType `json:"doc_type"`
}

// metadata keys shared by every vector index backend
const (
	MetaFileId     = "file_id"
	MetaFilename   = "filename"
	MetaPageNum    = "page_num"
	MetaChunkOrder = "chunk_order"
	MetaIngestedAt = "ingested_at"
)

// Metadata flattens the chunk into the string map stored next to its vector.
func (c DocChunk) Metadata() map[string]string {
	return map[string]string{
		MetaFileId:     c.Doc.FileIdString(),
		MetaFilename:   c.Doc.Filename,
		MetaPageNum:    strconv.Itoa(c.PageNum),
		MetaChunkOrder: strconv.Itoa(c.ChunkOrder),
		MetaIngestedAt: strconv.FormatInt(c.Doc.UploadTimestamp.Unix(), 10),
	}
}

type DocType string

const (
	PDF         DocType = "PDF"
	DOCX        DocType = "DOCX"
	HTML        DocType = "HTML"
	Unsupported DocType = "UNSUPPORTED"
)

// ConversationTurn is one question/answer exchange of a session.
type ConversationTurn struct {
	SessionId string    `json:"session_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}

// SourceRef points back to the chunk an answer was grounded on.
type SourceRef struct {
	FileId     string  `json:"file_id"`
	Filename   string  `json:"filename"`
	ChunkOrder string  `json:"chunk_order"`
	Score      float32 `json:"score"`
}

func FormatFileId(id int64) string {
	return strconv.FormatInt(id, 10)
}

func ParseFileId(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
