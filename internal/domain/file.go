package domain

import (
	"errors"
	"io"
	"time"
)

var (
	ErrFileNotFound      = errors.New("knowledge file not found")
	ErrSourceUnreadable  = errors.New("source content is unreadable")
	ErrReindexInProgress = errors.New("file is already being indexed")
)

type SourceKind string

const (
	SourceKind_Upload SourceKind = "upload"
	SourceKind_Note   SourceKind = "note"
	SourceKind_URL    SourceKind = "url"
)

type FileStatus string

const (
	FileStatus_Processing FileStatus = "processing"
	FileStatus_Indexed    FileStatus = "indexed"
	FileStatus_Error      FileStatus = "error"
)

// KnowledgeFile is a single ingested source together with its derived
// chunks. RawContent is kept so the file can be re-chunked when the
// owning base changes its chunking settings.
type KnowledgeFile struct {
	ID              string
	KnowledgeBaseID string
	Name            string
	SourceKind      SourceKind
	RawContent      string
	Status          FileStatus
	Progress        int
	FailureReason   string
	Chunks          []TextChunk
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (f KnowledgeFile) ChunkCount() int {
	return len(f.Chunks)
}

// TextChunk is one window of a file's content. StartIndex and EndIndex
// are rune offsets into the original content before whitespace
// trimming, so EndIndex-StartIndex may exceed the rune length of Text.
type TextChunk struct {
	ID         string
	FileID     string
	Index      int
	Text       string
	StartIndex int
	EndIndex   int
}

type SubmitFileParams struct {
	KnowledgeBaseID string
	Name            string
	SourceKind      SourceKind
	Content         string
}

// SubmitReaderParams submits a file whose content still has to be
// read. Read failures produce a file record in error status instead of
// losing the submission.
type SubmitReaderParams struct {
	KnowledgeBaseID string
	Name            string
	SourceKind      SourceKind
	Reader          io.Reader
}
