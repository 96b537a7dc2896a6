package domain

import (
	"context"
	"time"
)

// FileProgressEvent is emitted every time a file's indexing state
// changes, from submission through completion or failure.
type FileProgressEvent struct {
	FileID          string     `json:"file_id"`
	KnowledgeBaseID string     `json:"knowledge_base_id"`
	Status          FileStatus `json:"status"`
	Progress        int        `json:"progress"`
	ChunkCount      int        `json:"chunk_count"`
	FailureReason   string     `json:"failure_reason,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

func (e FileProgressEvent) Terminal() bool {
	return e.Status == FileStatus_Indexed || e.Status == FileStatus_Error
}

type ProgressPublisher interface {
	PublishProgress(ctx context.Context, event FileProgressEvent) error
}

// ProgressListener delivers progress events for a single file. The
// returned cancel func releases the subscription; cancelling ctx does
// the same.
type ProgressListener interface {
	SubscribeFile(ctx context.Context, fileID string) (<-chan FileProgressEvent, func())
}
