package domain

import "context"

// TextSplitter cuts content into chunks of at most chunkSize runes,
// preferring natural boundaries over hard cuts.
type TextSplitter interface {
	Split(content string, chunkSize int, chunkOverlap int) []TextChunk
}

type KnowledgeBaseManager interface {
	CreateKnowledgeBase(ctx context.Context, params CreateKnowledgeBaseParams) (KnowledgeBase, error)
	GetKnowledgeBase(ctx context.Context, knowledgeBaseID string) (KnowledgeBase, error)
	ListKnowledgeBases(ctx context.Context) ([]KnowledgeBase, error)
	UpdateKnowledgeBase(ctx context.Context, knowledgeBaseID string, update KnowledgeBaseUpdate) (KnowledgeBase, error)
	ToggleKnowledgeBase(ctx context.Context, knowledgeBaseID string) (KnowledgeBase, error)
	DeleteKnowledgeBase(ctx context.Context, knowledgeBaseID string) error
}

type IngestionManager interface {
	SubmitFile(ctx context.Context, params SubmitFileParams) (KnowledgeFile, error)
	SubmitFileFromReader(ctx context.Context, params SubmitReaderParams) (KnowledgeFile, error)
	ReindexFile(ctx context.Context, fileID string) (KnowledgeFile, error)
	GetFile(ctx context.Context, fileID string) (KnowledgeFile, error)
	ListFiles(ctx context.Context, knowledgeBaseID string) ([]KnowledgeFile, error)
	DeleteFile(ctx context.Context, fileID string) error
}

type RetrievalEngine interface {
	Search(ctx context.Context, knowledgeBaseID string, query string, settings RetrievalSettings) (SearchOutput, error)
}
