// Package lorekeep provides a Go SDK for interacting with the Lorekeep API.
// This package is designed for community use and has no internal dependencies.
package lorekeep

import "time"

// KnowledgeBase is a collection of ingested files sharing chunking and
// retrieval settings.
type KnowledgeBase struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Description           string    `json:"description,omitempty"`
	Enabled               bool      `json:"enabled"`
	ChunkSize             int       `json:"chunk_size"`
	ChunkOverlap          int       `json:"chunk_overlap"`
	ScoreThreshold        float64   `json:"score_threshold"`
	TopK                  int       `json:"top_k"`
	EmbeddingModel        string    `json:"embedding_model,omitempty"`
	RerankModel           string    `json:"rerank_model,omitempty"`
	VectorStoreCollection string    `json:"vector_store_collection,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// CreateKnowledgeBaseRequest creates a knowledge base. Pointer fields
// distinguish "leave at default" (nil) from an explicit zero.
type CreateKnowledgeBaseRequest struct {
	Name                  string   `json:"name"`
	Description           string   `json:"description,omitempty"`
	ChunkSize             int      `json:"chunk_size,omitempty"`
	ChunkOverlap          *int     `json:"chunk_overlap,omitempty"`
	ScoreThreshold        *float64 `json:"score_threshold,omitempty"`
	TopK                  int      `json:"top_k,omitempty"`
	EmbeddingModel        string   `json:"embedding_model,omitempty"`
	RerankModel           string   `json:"rerank_model,omitempty"`
	VectorStoreCollection string   `json:"vector_store_collection,omitempty"`
}

// UpdateKnowledgeBaseRequest is a partial update; nil fields are left
// untouched.
type UpdateKnowledgeBaseRequest struct {
	Name                  *string  `json:"name,omitempty"`
	Description           *string  `json:"description,omitempty"`
	ChunkSize             *int     `json:"chunk_size,omitempty"`
	ChunkOverlap          *int     `json:"chunk_overlap,omitempty"`
	ScoreThreshold        *float64 `json:"score_threshold,omitempty"`
	TopK                  *int     `json:"top_k,omitempty"`
	EmbeddingModel        *string  `json:"embedding_model,omitempty"`
	RerankModel           *string  `json:"rerank_model,omitempty"`
	VectorStoreCollection *string  `json:"vector_store_collection,omitempty"`
}

// KnowledgeFile is one ingested document together with its indexing
// state. ChunkCount is final as soon as the file exists; status and
// progress trail behind until indexing completes. Chunks is only
// populated by GetFile.
type KnowledgeFile struct {
	ID              string      `json:"id"`
	KnowledgeBaseID string      `json:"knowledge_base_id"`
	Name            string      `json:"name"`
	SourceKind      string      `json:"source_kind"`
	Status          string      `json:"status"`
	Progress        int         `json:"progress"`
	FailureReason   string      `json:"failure_reason,omitempty"`
	ChunkCount      int         `json:"chunk_count"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Chunks          []TextChunk `json:"chunks,omitempty"`
}

// TextChunk is one span of a file's content. Offsets are rune offsets
// into the original content.
type TextChunk struct {
	ID         string `json:"id"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

// File status values reported by the API.
const (
	FileStatusProcessing = "processing"
	FileStatusIndexed    = "indexed"
	FileStatusError      = "error"
)

// Source kinds accepted on submission.
const (
	SourceKindUpload = "upload"
	SourceKindNote   = "note"
	SourceKindURL    = "url"
)

type SubmitFileRequest struct {
	Name       string `json:"name"`
	SourceKind string `json:"source_kind,omitempty"`
	Content    string `json:"content"`
}

// SearchRequest tunes one retrieval pass. Zero values fall back to the
// knowledge base's settings.
type SearchRequest struct {
	Query         string   `json:"query"`
	RecallMethod  string   `json:"recall_method,omitempty"`
	VectorRatio   float64  `json:"vector_ratio,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
	MinScore      *float64 `json:"min_score,omitempty"`
	RerankEnabled bool     `json:"rerank_enabled,omitempty"`
}

// Recall methods accepted by SearchRequest.
const (
	RecallMethodHybrid  = "hybrid"
	RecallMethodVector  = "vector"
	RecallMethodKeyword = "keyword"
)

type SearchResult struct {
	ID             string  `json:"id"`
	Score          float64 `json:"score"`
	Text           string  `json:"text"`
	ChunkID        string  `json:"chunk_id"`
	ChunkIndex     int     `json:"chunk_index"`
	StartIndex     int     `json:"start_index"`
	EndIndex       int     `json:"end_index"`
	SourceFileID   string  `json:"source_file_id"`
	SourceFileName string  `json:"source_file_name"`
}

// SearchResponse is the full ranked result list for one query; callers
// paginate by slicing a growing prefix.
type SearchResponse struct {
	RequestID      string         `json:"request_id"`
	Results        []SearchResult `json:"results"`
	ElapsedSeconds float64        `json:"elapsed_seconds"`
	TokenEstimate  int            `json:"token_estimate"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}
