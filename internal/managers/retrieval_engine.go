package managers

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	"github.com/lorekeep/lorekeep/internal/domain"
)

const (
	vectorJitterSpan = 0.05
	rerankJitterSpan = 0.1
	rerankScoreCap   = 0.99
)

// RandomSource supplies the jitter used by vector recall and rerank.
// Tests inject a pinned source to make scoring deterministic.
type RandomSource interface {
	Float64() float64
}

type mathRandSource struct{}

func (mathRandSource) Float64() float64 {
	return rand.Float64()
}

type retrievalEngine struct {
	store       *ChunkStore
	random      RandomSource
	searchDelay time.Duration
	now         func() time.Time
}

type RetrievalEngineDependencies struct {
	Store  *ChunkStore
	Random RandomSource

	// SearchDelay simulates index latency before scanning. Zero skips
	// the wait entirely.
	SearchDelay time.Duration
}

func NewRetrievalEngine(deps RetrievalEngineDependencies) domain.RetrievalEngine {
	random := deps.Random
	if random == nil {
		random = mathRandSource{}
	}

	return &retrievalEngine{
		store:       deps.Store,
		random:      random,
		searchDelay: deps.SearchDelay,
		now:         time.Now,
	}
}

// Search scores every chunk in the base against the query and returns
// the full ranked list. TopK is advisory paging granularity for the
// caller, not a cap on the scored set, so load-more paging never needs
// a second scan.
func (e *retrievalEngine) Search(ctx context.Context, knowledgeBaseID string, query string, settings domain.RetrievalSettings) (domain.SearchOutput, error) {
	kb, ok := e.store.GetKnowledgeBase(knowledgeBaseID)
	if !ok {
		return domain.SearchOutput{}, fmt.Errorf("%w: %s", domain.ErrKnowledgeBaseNotFound, knowledgeBaseID)
	}

	settings, err := normalizeSettings(settings, kb)
	if err != nil {
		return domain.SearchOutput{}, err
	}

	started := e.now()

	output := domain.SearchOutput{
		RequestID:     uuid.NewString(),
		Query:         query,
		Results:       []domain.SearchResult{},
		TokenEstimate: utf8.RuneCountInString(query),
	}

	phrase := strings.ToLower(strings.TrimSpace(query))
	if phrase == "" {
		output.ElapsedSeconds = e.now().Sub(started).Seconds()

		return output, nil
	}

	if err := e.waitSearchDelay(ctx); err != nil {
		return domain.SearchOutput{}, err
	}

	terms := strings.Fields(phrase)
	minScore := *settings.MinScore

	for _, file := range e.store.ListFiles(knowledgeBaseID) {
		for _, chunk := range file.Chunks {
			text := strings.ToLower(chunk.Text)

			score := scoreChunk(text, phrase, terms)

			switch settings.RecallMethod {
			case domain.RecallMethod_Keyword:
				if !strings.Contains(text, phrase) {
					score = 0
				}
			case domain.RecallMethod_Vector:
				if score > 0 {
					score += e.random.Float64() * vectorJitterSpan
				}
			case domain.RecallMethod_Hybrid:
				// VectorRatio is accepted for interface compatibility
				// but never blended into the score.
			}

			if score <= 0 || score < minScore {
				continue
			}

			if settings.RerankEnabled {
				score += e.random.Float64() * rerankJitterSpan
				if score > rerankScoreCap {
					score = rerankScoreCap
				}
			}

			output.Results = append(output.Results, domain.SearchResult{
				ID:             xid.New().String(),
				Chunk:          chunk,
				SourceFileID:   file.ID,
				SourceFileName: file.Name,
				ChunkIndex:     chunk.Index,
				Score:          score,
			})
		}
	}

	sort.SliceStable(output.Results, func(i, j int) bool {
		return output.Results[i].Score > output.Results[j].Score
	})

	output.ElapsedSeconds = e.now().Sub(started).Seconds()

	log.Debug().
		Str("request_id", output.RequestID).
		Str("knowledge_base_id", knowledgeBaseID).
		Str("recall_method", string(settings.RecallMethod)).
		Int("result_count", len(output.Results)).
		Float64("elapsed_seconds", output.ElapsedSeconds).
		Msg("Search completed")

	return output, nil
}

func (e *retrievalEngine) waitSearchDelay(ctx context.Context) error {
	if e.searchDelay <= 0 {
		return nil
	}

	timer := time.NewTimer(e.searchDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// normalizeSettings fills unset knobs from the base's configuration
// and rejects unknown recall methods.
func normalizeSettings(settings domain.RetrievalSettings, kb domain.KnowledgeBase) (domain.RetrievalSettings, error) {
	if settings.RecallMethod == "" {
		settings.RecallMethod = domain.RecallMethod_Hybrid
	}

	if !settings.RecallMethod.Valid() {
		return domain.RetrievalSettings{}, fmt.Errorf("%w: unknown recall method %q", domain.ErrInvalidConfig, settings.RecallMethod)
	}

	if settings.TopK <= 0 {
		settings.TopK = kb.TopK
	}

	if settings.MinScore == nil {
		minScore := kb.ScoreThreshold
		settings.MinScore = &minScore
	}

	if settings.VectorRatio < 0 {
		settings.VectorRatio = 0
	}

	if settings.VectorRatio > 1 {
		settings.VectorRatio = 1
	}

	return settings, nil
}
