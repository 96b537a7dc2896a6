package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrKnowledgeBaseNotFound = errors.New("knowledge base not found")
	ErrInvalidConfig         = errors.New("invalid knowledge base config")
)

const (
	DefaultChunkSize      = 512
	DefaultChunkOverlap   = 64
	DefaultTopK           = 20
	DefaultScoreThreshold = 0.3
)

// KnowledgeBase holds the per-base indexing and retrieval settings.
// ChunkSize and ChunkOverlap are measured in runes.
type KnowledgeBase struct {
	ID                    string
	Name                  string
	Description           string
	Enabled               bool
	ChunkSize             int
	ChunkOverlap          int
	ScoreThreshold        float64
	TopK                  int
	EmbeddingModel        string
	RerankModel           string
	VectorStoreCollection string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (kb KnowledgeBase) Validate() error {
	if kb.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidConfig)
	}

	if kb.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk size must be at least 1, got %d", ErrInvalidConfig, kb.ChunkSize)
	}

	if kb.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidConfig, kb.ChunkOverlap)
	}

	if kb.ChunkOverlap >= kb.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrInvalidConfig, kb.ChunkOverlap, kb.ChunkSize)
	}

	if kb.ScoreThreshold < 0 || kb.ScoreThreshold > 1 {
		return fmt.Errorf("%w: score threshold must be between 0 and 1, got %g", ErrInvalidConfig, kb.ScoreThreshold)
	}

	if kb.TopK < 1 {
		return fmt.Errorf("%w: top k must be at least 1, got %d", ErrInvalidConfig, kb.TopK)
	}

	return nil
}

// CreateKnowledgeBaseParams creates a base. Zero values fall back to
// the configured defaults; ChunkOverlap and ScoreThreshold are
// pointers because zero is a legal explicit choice for both.
type CreateKnowledgeBaseParams struct {
	Name                  string
	Description           string
	ChunkSize             int
	ChunkOverlap          *int
	ScoreThreshold        *float64
	TopK                  int
	EmbeddingModel        string
	RerankModel           string
	VectorStoreCollection string
}

// KnowledgeBaseUpdate carries a partial update. Nil fields keep their
// current values.
type KnowledgeBaseUpdate struct {
	Name                  *string
	Description           *string
	ChunkSize             *int
	ChunkOverlap          *int
	ScoreThreshold        *float64
	TopK                  *int
	EmbeddingModel        *string
	RerankModel           *string
	VectorStoreCollection *string
}
