package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/initialization"
	"github.com/lorekeep/lorekeep/internal/server"
)

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the knowledge base HTTP service",
		Long:  `Start the HTTP service exposing knowledge base management, file ingestion and search.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	return cmd
}

func runServe() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("address", cfg.HTTPAddress).
		Int("default_chunk_size", cfg.DefaultChunkSize).
		Int("default_chunk_overlap", cfg.DefaultChunkOverlap).
		Msg("Starting lorekeep service")

	deps := initialization.BuildEngineDependencies(ctx, cfg)
	defer deps.Close()

	httpServer := server.NewHTTPServer(ctx, server.HTTPServerDependencies{
		KnowledgeController: deps.KnowledgeController,
	})

	if err := httpServer.Listen(cfg.HTTPAddress, fiber.ListenConfig{
		GracefulContext:       ctx,
		DisableStartupMessage: true,
	}); err != nil {
		log.Error().Err(err).Msg("HTTP server failed")
	}

	log.Info().Msg("Lorekeep service stopped")

	return nil
}
