package server

import (
	"context"
	"errors"
	"time"

	"github.com/lorekeep/lorekeep/internal/controllers"
	"github.com/lorekeep/lorekeep/internal/middlewares"
	"github.com/lorekeep/lorekeep/internal/version"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type HTTPServerDependencies struct {
	KnowledgeController *controllers.KnowledgeController
}

func NewHTTPServer(ctx context.Context, deps HTTPServerDependencies) *fiber.App {
	router := fiber.New(fiber.Config{
		AppName: "lorekeep",
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError

			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
			}

			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Add basic middleware
	router.Use(cors.New())
	router.Use(logger.New())
	router.Use(middlewares.RequestIDMiddleware())

	router.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"service":   "lorekeep",
			"version":   version.GetVersion(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	knowledgeBases := router.Group("/knowledge-bases")

	knowledgeBases.Post("/", deps.KnowledgeController.CreateKnowledgeBase)
	knowledgeBases.Get("/", deps.KnowledgeController.ListKnowledgeBases)

	specificBase := router.Group("/knowledge-bases/:knowledgeBaseID")

	specificBase.Get("/", deps.KnowledgeController.GetKnowledgeBase)
	specificBase.Patch("/", deps.KnowledgeController.UpdateKnowledgeBase)
	specificBase.Delete("/", deps.KnowledgeController.DeleteKnowledgeBase)
	specificBase.Post("/toggle", deps.KnowledgeController.ToggleKnowledgeBase)
	specificBase.Post("/files", deps.KnowledgeController.SubmitFile)
	specificBase.Get("/files", deps.KnowledgeController.ListFiles)
	specificBase.Post("/search", deps.KnowledgeController.Search)

	files := router.Group("/files/:fileID")

	files.Get("/", deps.KnowledgeController.GetFile)
	files.Post("/reindex", deps.KnowledgeController.ReindexFile)
	files.Delete("/", deps.KnowledgeController.DeleteFile)

	return router
}
