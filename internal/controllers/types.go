package controllers

import (
	"time"

	"github.com/lorekeep/lorekeep/internal/domain"
)

type CreateKnowledgeBaseRequest struct {
	Name                  string   `json:"name"`
	Description           string   `json:"description"`
	ChunkSize             int      `json:"chunk_size"`
	ChunkOverlap          *int     `json:"chunk_overlap"`
	ScoreThreshold        *float64 `json:"score_threshold"`
	TopK                  int      `json:"top_k"`
	EmbeddingModel        string   `json:"embedding_model"`
	RerankModel           string   `json:"rerank_model"`
	VectorStoreCollection string   `json:"vector_store_collection"`
}

type UpdateKnowledgeBaseRequest struct {
	Name                  *string  `json:"name"`
	Description           *string  `json:"description"`
	ChunkSize             *int     `json:"chunk_size"`
	ChunkOverlap          *int     `json:"chunk_overlap"`
	ScoreThreshold        *float64 `json:"score_threshold"`
	TopK                  *int     `json:"top_k"`
	EmbeddingModel        *string  `json:"embedding_model"`
	RerankModel           *string  `json:"rerank_model"`
	VectorStoreCollection *string  `json:"vector_store_collection"`
}

type KnowledgeBaseResponse struct {
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

type SubmitFileRequest struct {
	Name       string `json:"name"`
	SourceKind string `json:"source_kind"`
	Content    string `json:"content"`
}

type KnowledgeFileResponse struct {
	ID              string    `json:"id"`
	KnowledgeBaseID string    `json:"knowledge_base_id"`
	Name            string    `json:"name"`
	SourceKind      string    `json:"source_kind"`
	Status          string    `json:"status"`
	Progress        int       `json:"progress"`
	FailureReason   string    `json:"failure_reason,omitempty"`
	ChunkCount      int       `json:"chunk_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Chunks is only populated on single-file reads.
	Chunks []TextChunkResponse `json:"chunks,omitempty"`
}

type TextChunkResponse struct {
	ID         string `json:"id"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

type SearchRequest struct {
	Query         string   `json:"query"`
	RecallMethod  string   `json:"recall_method"`
	VectorRatio   float64  `json:"vector_ratio"`
	TopK          int      `json:"top_k"`
	MinScore      *float64 `json:"min_score"`
	RerankEnabled bool     `json:"rerank_enabled"`
}

type SearchResultResponse struct {
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

type SearchResponse struct {
	RequestID      string                 `json:"request_id"`
	Results        []SearchResultResponse `json:"results"`
	ElapsedSeconds float64                `json:"elapsed_seconds"`
	TokenEstimate  int                    `json:"token_estimate"`
}

func toKnowledgeBaseResponse(kb domain.KnowledgeBase) KnowledgeBaseResponse {
	return KnowledgeBaseResponse{
		ID:                    kb.ID,
		Name:                  kb.Name,
		Description:           kb.Description,
		Enabled:               kb.Enabled,
		ChunkSize:             kb.ChunkSize,
		ChunkOverlap:          kb.ChunkOverlap,
		ScoreThreshold:        kb.ScoreThreshold,
		TopK:                  kb.TopK,
		EmbeddingModel:        kb.EmbeddingModel,
		RerankModel:           kb.RerankModel,
		VectorStoreCollection: kb.VectorStoreCollection,
		CreatedAt:             kb.CreatedAt,
		UpdatedAt:             kb.UpdatedAt,
	}
}

func toKnowledgeBaseResponses(kbs []domain.KnowledgeBase) []KnowledgeBaseResponse {
	responses := make([]KnowledgeBaseResponse, len(kbs))
	for i, kb := range kbs {
		responses[i] = toKnowledgeBaseResponse(kb)
	}

	return responses
}

func toKnowledgeFileResponse(file domain.KnowledgeFile) KnowledgeFileResponse {
	return KnowledgeFileResponse{
		ID:              file.ID,
		KnowledgeBaseID: file.KnowledgeBaseID,
		Name:            file.Name,
		SourceKind:      string(file.SourceKind),
		Status:          string(file.Status),
		Progress:        file.Progress,
		FailureReason:   file.FailureReason,
		ChunkCount:      file.ChunkCount(),
		CreatedAt:       file.CreatedAt,
		UpdatedAt:       file.UpdatedAt,
	}
}

func toKnowledgeFileDetailResponse(file domain.KnowledgeFile) KnowledgeFileResponse {
	response := toKnowledgeFileResponse(file)

	response.Chunks = make([]TextChunkResponse, len(file.Chunks))
	for i, chunk := range file.Chunks {
		response.Chunks[i] = TextChunkResponse{
			ID:         chunk.ID,
			Index:      chunk.Index,
			Text:       chunk.Text,
			StartIndex: chunk.StartIndex,
			EndIndex:   chunk.EndIndex,
		}
	}

	return response
}

func toKnowledgeFileResponses(files []domain.KnowledgeFile) []KnowledgeFileResponse {
	responses := make([]KnowledgeFileResponse, len(files))
	for i, file := range files {
		responses[i] = toKnowledgeFileResponse(file)
	}

	return responses
}

func toSearchResponse(output domain.SearchOutput) SearchResponse {
	results := make([]SearchResultResponse, len(output.Results))
	for i, result := range output.Results {
		results[i] = SearchResultResponse{
			ID:             result.ID,
			Score:          result.Score,
			Text:           result.Chunk.Text,
			ChunkID:        result.Chunk.ID,
			ChunkIndex:     result.ChunkIndex,
			StartIndex:     result.Chunk.StartIndex,
			EndIndex:       result.Chunk.EndIndex,
			SourceFileID:   result.SourceFileID,
			SourceFileName: result.SourceFileName,
		}
	}

	return SearchResponse{
		RequestID:      output.RequestID,
		Results:        results,
		ElapsedSeconds: output.ElapsedSeconds,
		TokenEstimate:  output.TokenEstimate,
	}
}
