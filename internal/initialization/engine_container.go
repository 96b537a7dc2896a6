package initialization

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/controllers"
	"github.com/lorekeep/lorekeep/internal/domain"
	"github.com/lorekeep/lorekeep/internal/managers"
	"github.com/lorekeep/lorekeep/internal/splitter"
)

// EngineDependencies bundles the wired knowledge base engine. Both the
// HTTP service and the interactive console run off the same assembly.
type EngineDependencies struct {
	Store                *managers.ChunkStore
	Broadcaster          *managers.ProgressBroadcaster
	KnowledgeBaseManager domain.KnowledgeBaseManager
	IngestionManager     *managers.IngestionManager
	RetrievalEngine      domain.RetrievalEngine
	KnowledgeController  *controllers.KnowledgeController
}

func BuildEngineDependencies(ctx context.Context, cfg *config.Config) *EngineDependencies {
	log.Info().Msg("Building engine dependencies")

	store := managers.NewChunkStore()
	broadcaster := managers.NewProgressBroadcaster()

	knowledgeBaseManager := managers.NewKnowledgeBaseManager(managers.KnowledgeBaseManagerDependencies{
		Store: store,
		Defaults: managers.KnowledgeBaseDefaults{
			ChunkSize:      cfg.DefaultChunkSize,
			ChunkOverlap:   cfg.DefaultChunkOverlap,
			TopK:           cfg.DefaultTopK,
			ScoreThreshold: cfg.DefaultScoreThreshold,
		},
	})

	ingestionManager := managers.NewIngestionManager(managers.IngestionManagerDependencies{
		Store:             store,
		Splitter:          splitter.NewSplitter(),
		ProgressPublisher: broadcaster,
		ProgressStep:      cfg.ProgressStep,
		ProgressInterval:  cfg.ProgressInterval,
	})

	retrievalEngine := managers.NewRetrievalEngine(managers.RetrievalEngineDependencies{
		Store:       store,
		SearchDelay: cfg.SearchDelay,
	})

	knowledgeController := controllers.NewKnowledgeController(controllers.KnowledgeControllerDependencies{
		KnowledgeBaseManager: knowledgeBaseManager,
		IngestionManager:     ingestionManager,
		RetrievalEngine:      retrievalEngine,
	})

	log.Info().Msg("Engine dependencies built successfully")

	return &EngineDependencies{
		Store:                store,
		Broadcaster:          broadcaster,
		KnowledgeBaseManager: knowledgeBaseManager,
		IngestionManager:     ingestionManager,
		RetrievalEngine:      retrievalEngine,
		KnowledgeController:  knowledgeController,
	}
}

// Close releases everything the container owns that has a lifecycle.
func (d *EngineDependencies) Close() error {
	return d.IngestionManager.Close()
}
