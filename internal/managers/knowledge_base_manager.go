package managers

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	"github.com/lorekeep/lorekeep/internal/domain"
)

const defaultKnowledgeBaseName = "Untitled knowledge base"

// KnowledgeBaseDefaults are the creation-time fallbacks for settings
// the caller leaves unset.
type KnowledgeBaseDefaults struct {
	ChunkSize      int
	ChunkOverlap   int
	TopK           int
	ScoreThreshold float64
}

func (d KnowledgeBaseDefaults) withFallbacks() KnowledgeBaseDefaults {
	if d.ChunkSize <= 0 {
		d.ChunkSize = domain.DefaultChunkSize
	}

	if d.ChunkOverlap <= 0 {
		d.ChunkOverlap = domain.DefaultChunkOverlap
	}

	if d.TopK <= 0 {
		d.TopK = domain.DefaultTopK
	}

	if d.ScoreThreshold <= 0 || d.ScoreThreshold > 1 {
		d.ScoreThreshold = domain.DefaultScoreThreshold
	}

	return d
}

type knowledgeBaseManager struct {
	store    *ChunkStore
	defaults KnowledgeBaseDefaults
	now      func() time.Time
}

type KnowledgeBaseManagerDependencies struct {
	Store    *ChunkStore
	Defaults KnowledgeBaseDefaults
}

func NewKnowledgeBaseManager(deps KnowledgeBaseManagerDependencies) domain.KnowledgeBaseManager {
	return &knowledgeBaseManager{
		store:    deps.Store,
		defaults: deps.Defaults.withFallbacks(),
		now:      time.Now,
	}
}

func (m *knowledgeBaseManager) CreateKnowledgeBase(ctx context.Context, params domain.CreateKnowledgeBaseParams) (domain.KnowledgeBase, error) {
	now := m.now()

	kb := domain.KnowledgeBase{
		ID:                    xid.New().String(),
		Name:                  params.Name,
		Description:           params.Description,
		Enabled:               true,
		ChunkSize:             params.ChunkSize,
		ChunkOverlap:          m.defaults.ChunkOverlap,
		ScoreThreshold:        m.defaults.ScoreThreshold,
		TopK:                  params.TopK,
		EmbeddingModel:        params.EmbeddingModel,
		RerankModel:           params.RerankModel,
		VectorStoreCollection: params.VectorStoreCollection,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if kb.Name == "" {
		kb.Name = defaultKnowledgeBaseName
	}

	if kb.ChunkSize == 0 {
		kb.ChunkSize = m.defaults.ChunkSize
	}

	if kb.TopK == 0 {
		kb.TopK = m.defaults.TopK
	}

	if params.ChunkOverlap != nil {
		kb.ChunkOverlap = *params.ChunkOverlap
	}

	if params.ScoreThreshold != nil {
		kb.ScoreThreshold = *params.ScoreThreshold
	}

	if err := kb.Validate(); err != nil {
		return domain.KnowledgeBase{}, err
	}

	m.store.PutKnowledgeBase(kb)

	log.Info().
		Str("knowledge_base_id", kb.ID).
		Str("name", kb.Name).
		Int("chunk_size", kb.ChunkSize).
		Int("chunk_overlap", kb.ChunkOverlap).
		Msg("Created knowledge base")

	return kb, nil
}

func (m *knowledgeBaseManager) GetKnowledgeBase(ctx context.Context, knowledgeBaseID string) (domain.KnowledgeBase, error) {
	kb, ok := m.store.GetKnowledgeBase(knowledgeBaseID)
	if !ok {
		return domain.KnowledgeBase{}, fmt.Errorf("%w: %s", domain.ErrKnowledgeBaseNotFound, knowledgeBaseID)
	}

	return kb, nil
}

func (m *knowledgeBaseManager) ListKnowledgeBases(ctx context.Context) ([]domain.KnowledgeBase, error) {
	return m.store.ListKnowledgeBases(), nil
}

// UpdateKnowledgeBase applies the partial update and validates the
// result as a whole. On validation failure the stored config stays
// untouched.
func (m *knowledgeBaseManager) UpdateKnowledgeBase(ctx context.Context, knowledgeBaseID string, update domain.KnowledgeBaseUpdate) (domain.KnowledgeBase, error) {
	kb, ok := m.store.GetKnowledgeBase(knowledgeBaseID)
	if !ok {
		return domain.KnowledgeBase{}, fmt.Errorf("%w: %s", domain.ErrKnowledgeBaseNotFound, knowledgeBaseID)
	}

	updated := kb

	if update.Name != nil {
		updated.Name = *update.Name
	}

	if update.Description != nil {
		updated.Description = *update.Description
	}

	if update.ChunkSize != nil {
		updated.ChunkSize = *update.ChunkSize
	}

	if update.ChunkOverlap != nil {
		updated.ChunkOverlap = *update.ChunkOverlap
	}

	if update.ScoreThreshold != nil {
		updated.ScoreThreshold = *update.ScoreThreshold
	}

	if update.TopK != nil {
		updated.TopK = *update.TopK
	}

	if update.EmbeddingModel != nil {
		updated.EmbeddingModel = *update.EmbeddingModel
	}

	if update.RerankModel != nil {
		updated.RerankModel = *update.RerankModel
	}

	if update.VectorStoreCollection != nil {
		updated.VectorStoreCollection = *update.VectorStoreCollection
	}

	if err := updated.Validate(); err != nil {
		return domain.KnowledgeBase{}, err
	}

	updated.UpdatedAt = m.now()

	m.store.PutKnowledgeBase(updated)

	return updated, nil
}

func (m *knowledgeBaseManager) ToggleKnowledgeBase(ctx context.Context, knowledgeBaseID string) (domain.KnowledgeBase, error) {
	kb, ok := m.store.GetKnowledgeBase(knowledgeBaseID)
	if !ok {
		return domain.KnowledgeBase{}, fmt.Errorf("%w: %s", domain.ErrKnowledgeBaseNotFound, knowledgeBaseID)
	}

	kb.Enabled = !kb.Enabled
	kb.UpdatedAt = m.now()

	m.store.PutKnowledgeBase(kb)

	log.Info().
		Str("knowledge_base_id", kb.ID).
		Bool("enabled", kb.Enabled).
		Msg("Toggled knowledge base")

	return kb, nil
}

func (m *knowledgeBaseManager) DeleteKnowledgeBase(ctx context.Context, knowledgeBaseID string) error {
	removedFiles, ok := m.store.DeleteKnowledgeBase(knowledgeBaseID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrKnowledgeBaseNotFound, knowledgeBaseID)
	}

	log.Info().
		Str("knowledge_base_id", knowledgeBaseID).
		Int("removed_files", removedFiles).
		Msg("Deleted knowledge base")

	return nil
}
