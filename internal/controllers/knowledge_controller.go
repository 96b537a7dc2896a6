package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/lorekeep/lorekeep/internal/domain"
)

// KnowledgeController exposes the engine over HTTP: base management,
// file ingestion, and retrieval.
type KnowledgeController struct {
	knowledgeBaseManager domain.KnowledgeBaseManager
	ingestionManager     domain.IngestionManager
	retrievalEngine      domain.RetrievalEngine
}

type KnowledgeControllerDependencies struct {
	KnowledgeBaseManager domain.KnowledgeBaseManager
	IngestionManager     domain.IngestionManager
	RetrievalEngine      domain.RetrievalEngine
}

func NewKnowledgeController(deps KnowledgeControllerDependencies) *KnowledgeController {
	return &KnowledgeController{
		knowledgeBaseManager: deps.KnowledgeBaseManager,
		ingestionManager:     deps.IngestionManager,
		retrievalEngine:      deps.RetrievalEngine,
	}
}

func (c *KnowledgeController) CreateKnowledgeBase(ctx fiber.Ctx) error {
	var req CreateKnowledgeBaseRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	kb, err := c.knowledgeBaseManager.CreateKnowledgeBase(ctx.RequestCtx(), domain.CreateKnowledgeBaseParams{
		Name:                  req.Name,
		Description:           req.Description,
		ChunkSize:             req.ChunkSize,
		ChunkOverlap:          req.ChunkOverlap,
		ScoreThreshold:        req.ScoreThreshold,
		TopK:                  req.TopK,
		EmbeddingModel:        req.EmbeddingModel,
		RerankModel:           req.RerankModel,
		VectorStoreCollection: req.VectorStoreCollection,
	})
	if err != nil {
		return mapDomainError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(toKnowledgeBaseResponse(kb))
}

func (c *KnowledgeController) ListKnowledgeBases(ctx fiber.Ctx) error {
	kbs, err := c.knowledgeBaseManager.ListKnowledgeBases(ctx.RequestCtx())
	if err != nil {
		return mapDomainError(err)
	}

	return ctx.JSON(toKnowledgeBaseResponses(kbs))
}

func (c *KnowledgeController) GetKnowledgeBase(ctx fiber.Ctx) error {
	kb, err := c.knowledgeBaseManager.GetKnowledgeBase(ctx.RequestCtx(), ctx.Params("knowledgeBaseID"))
	if err != nil {
		return mapDomainError(err)
	}

	return ctx.JSON(toKnowledgeBaseResponse(kb))
}

func (c *KnowledgeController) UpdateKnowledgeBase(ctx fiber.Ctx) error {
	var req UpdateKnowledgeBaseRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	kb, err := c.knowledgeBaseManager.UpdateKnowledgeBase(ctx.RequestCtx(), ctx.Params("knowledgeBaseID"), domain.KnowledgeBaseUpdate{
		Name:                  req.Name,
		Description:           req.Description,
		ChunkSize:             req.ChunkSize,
		ChunkOverlap:          req.ChunkOverlap,
		ScoreThreshold:        req.ScoreThreshold,
		TopK:                  req.TopK,
		EmbeddingModel:        req.EmbeddingModel,
		RerankModel:           req.RerankModel,
		VectorStoreCollection: req.VectorStoreCollection,
	})
	if err != nil {
		return mapDomainError(err)
	}

	return ctx.JSON(toKnowledgeBaseResponse(kb))
}

func (c *KnowledgeController) ToggleKnowledgeBase(ctx fiber.Ctx) error {
	kb, err := c.knowledgeBaseManager.ToggleKnowledgeBase(ctx.RequestCtx(), ctx.Params("knowledgeBaseID"))
	if err != nil {
		return mapDomainError(err)
	}

	return ctx.JSON(toKnowledgeBaseResponse(kb))
}

func (c *KnowledgeController) DeleteKnowledgeBase(ctx fiber.Ctx) error {
	if err := c.knowledgeBaseManager.DeleteKnowledgeBase(ctx.RequestCtx(), ctx.Params("knowledgeBaseID")); err != nil {
		return mapDomainError(err)
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

// SubmitFile ingests content into a base. An undecodable source still
// creates a file record in error status, reported as 422 with the
// record attached so the caller has its id.
func (c *KnowledgeController) SubmitFile(ctx fiber.Ctx) error {
	var req SubmitFileRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	file, err := c.ingestionManager.SubmitFile(ctx.RequestCtx(), domain.SubmitFileParams{
		KnowledgeBaseID: ctx.Params("knowledgeBaseID"),
		Name:            req.Name,
		SourceKind:      domain.SourceKind(req.SourceKind),
		Content:         req.Content,
	})
	if err != nil {
		if errors.Is(err, domain.ErrSourceUnreadable) && file.ID != "" {
			return ctx.Status(fiber.StatusUnprocessableEntity).JSON(toKnowledgeFileResponse(file))
		}

		return mapDomainError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(toKnowledgeFileResponse(file))
}

func (c *KnowledgeController) ListFiles(ctx fiber.Ctx) error {
	files, err := c.ingestionManager.ListFiles(ctx.RequestCtx(), ctx.Params("knowledgeBaseID"))
	if err != nil {
		return mapDomainError(err)
	}

	return ctx.JSON(toKnowledgeFileResponses(files))
}

// GetFile returns one file including its chunk list. List responses
// stay chunk-free.
func (c *KnowledgeController) GetFile(ctx fiber.Ctx) error {
	file, err := c.ingestionManager.GetFile(ctx.RequestCtx(), ctx.Params("fileID"))
	if err != nil {
		return mapDomainError(err)
	}

	return ctx.JSON(toKnowledgeFileDetailResponse(file))
}

func (c *KnowledgeController) ReindexFile(ctx fiber.Ctx) error {
	file, err := c.ingestionManager.ReindexFile(ctx.RequestCtx(), ctx.Params("fileID"))
	if err != nil {
		if errors.Is(err, domain.ErrSourceUnreadable) && file.ID != "" {
			return ctx.Status(fiber.StatusUnprocessableEntity).JSON(toKnowledgeFileResponse(file))
		}

		return mapDomainError(err)
	}

	return ctx.JSON(toKnowledgeFileResponse(file))
}

func (c *KnowledgeController) DeleteFile(ctx fiber.Ctx) error {
	if err := c.ingestionManager.DeleteFile(ctx.RequestCtx(), ctx.Params("fileID")); err != nil {
		return mapDomainError(err)
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *KnowledgeController) Search(ctx fiber.Ctx) error {
	var req SearchRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	output, err := c.retrievalEngine.Search(ctx.RequestCtx(), ctx.Params("knowledgeBaseID"), req.Query, domain.RetrievalSettings{
		RecallMethod:  domain.RecallMethod(req.RecallMethod),
		VectorRatio:   req.VectorRatio,
		TopK:          req.TopK,
		MinScore:      req.MinScore,
		RerankEnabled: req.RerankEnabled,
	})
	if err != nil {
		return mapDomainError(err)
	}

	return ctx.JSON(toSearchResponse(output))
}

func mapDomainError(err error) error {
	switch {
	case errors.Is(err, domain.ErrKnowledgeBaseNotFound), errors.Is(err, domain.ErrFileNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidConfig):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrReindexInProgress):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrSourceUnreadable):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		log.Error().Err(err).Msg("Unhandled error in knowledge controller")

		return fiber.NewError(fiber.StatusInternalServerError, "Internal server error")
	}
}
