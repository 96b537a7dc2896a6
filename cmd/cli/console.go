package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/domain"
	"github.com/lorekeep/lorekeep/internal/initialization"
	"github.com/lorekeep/lorekeep/internal/managers"
	"github.com/lorekeep/lorekeep/internal/tui"
	"github.com/lorekeep/lorekeep/pkg/clients/lorekeep"
)

func NewConsoleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Ingest files and search them interactively",
		Long: `Create a knowledge base, ingest the given files through the indexing
pipeline and open an interactive search prompt over the result. The engine
runs in-process unless --server points at a running lorekeep service.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			description, _ := cmd.Flags().GetString("description")
			files, _ := cmd.Flags().GetStringArray("file")
			chunkSize, _ := cmd.Flags().GetInt("chunk-size")
			chunkOverlap, _ := cmd.Flags().GetInt("chunk-overlap")
			serverURL, _ := cmd.Flags().GetString("server")

			return runConsole(consoleOptions{
				Name:         name,
				Description:  description,
				Files:        files,
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
				ServerURL:    serverURL,
			})
		},
	}

	cmd.Flags().String("name", "", "Knowledge base name (prompted for when omitted)")
	cmd.Flags().String("description", "", "Knowledge base description")
	cmd.Flags().StringArray("file", nil, "File to ingest, repeatable")
	cmd.Flags().Int("chunk-size", 0, "Chunk size in characters, 0 uses the configured default")
	cmd.Flags().Int("chunk-overlap", -1, "Chunk overlap in characters, negative uses the configured default")
	cmd.Flags().String("server", "", "Base URL of a running lorekeep service instead of the in-process engine")

	cmd.MarkFlagRequired("file")

	return cmd
}

type consoleOptions struct {
	Name         string
	Description  string
	Files        []string
	ChunkSize    int
	ChunkOverlap int
	ServerURL    string
}

func runConsole(opts consoleOptions) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if opts.Name == "" {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Knowledge base name").
					Placeholder("My notes").
					Value(&opts.Name),
				huh.NewInput().
					Title("Description (optional)").
					Value(&opts.Description),
			),
		)

		if err := form.Run(); err != nil {
			return err
		}
	}

	if opts.ServerURL != "" {
		return runRemoteConsole(ctx, opts)
	}

	return runLocalConsole(ctx, opts)
}

func runLocalConsole(ctx context.Context, opts consoleOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	deps := initialization.BuildEngineDependencies(ctx, cfg)
	defer deps.Close()

	params := domain.CreateKnowledgeBaseParams{
		Name:        opts.Name,
		Description: opts.Description,
		ChunkSize:   opts.ChunkSize,
	}

	if opts.ChunkOverlap >= 0 {
		params.ChunkOverlap = &opts.ChunkOverlap
	}

	kb, err := deps.KnowledgeBaseManager.CreateKnowledgeBase(ctx, params)
	if err != nil {
		return err
	}

	fmt.Printf("Knowledge base %q (chunk size %d, overlap %d)\n", kb.Name, kb.ChunkSize, kb.ChunkOverlap)

	totalChunks := 0
	indexedFiles := 0

	for _, path := range opts.Files {
		file, err := ingestFile(ctx, deps.IngestionManager, kb.ID, path)
		if err != nil {
			if errors.Is(err, domain.ErrSourceUnreadable) && file.ID != "" {
				fmt.Printf("  %s: %s\n", file.Name, file.FailureReason)
			} else {
				fmt.Printf("  %s: %v\n", filepath.Base(path), err)
			}

			continue
		}

		file = waitForIndexing(ctx, deps.IngestionManager, deps.Broadcaster, file)

		switch file.Status {
		case domain.FileStatus_Indexed:
			fmt.Printf("\r  %s: %d chunks\n", file.Name, file.ChunkCount())

			indexedFiles++
			totalChunks += file.ChunkCount()
		case domain.FileStatus_Error:
			fmt.Printf("\r  %s: %s\n", file.Name, file.FailureReason)
		default:
			fmt.Printf("\r  %s: interrupted\n", file.Name)
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	summary := fmt.Sprintf("%s: %d files, %d chunks", kb.Name, indexedFiles, totalChunks)

	model := tui.New(deps.RetrievalEngine, kb.ID, kb.TopK, summary)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return err
	}

	return nil
}

func runRemoteConsole(ctx context.Context, opts consoleOptions) error {
	client := lorekeep.NewClient(lorekeep.WithBaseURL(opts.ServerURL))

	health, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("service at %s is not reachable: %w", opts.ServerURL, err)
	}

	fmt.Printf("Connected to %s (%s)\n", opts.ServerURL, health.Version)

	req := &lorekeep.CreateKnowledgeBaseRequest{
		Name:        opts.Name,
		Description: opts.Description,
		ChunkSize:   opts.ChunkSize,
	}

	if opts.ChunkOverlap >= 0 {
		req.ChunkOverlap = &opts.ChunkOverlap
	}

	kb, err := client.CreateKnowledgeBase(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("Knowledge base %q (chunk size %d, overlap %d)\n", kb.Name, kb.ChunkSize, kb.ChunkOverlap)

	totalChunks := 0
	indexedFiles := 0

	for _, path := range opts.Files {
		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("  %s: %v\n", filepath.Base(path), err)

			continue
		}

		file, err := client.SubmitFile(ctx, kb.ID, &lorekeep.SubmitFileRequest{
			Name:       filepath.Base(path),
			SourceKind: lorekeep.SourceKindUpload,
			Content:    string(content),
		})
		if err != nil {
			if file != nil {
				fmt.Printf("  %s: %s\n", file.Name, file.FailureReason)
			} else {
				fmt.Printf("  %s: %v\n", filepath.Base(path), err)
			}

			continue
		}

		file = waitForRemoteIndexing(ctx, client, file)

		switch file.Status {
		case lorekeep.FileStatusIndexed:
			fmt.Printf("\r  %s: %d chunks\n", file.Name, file.ChunkCount)

			indexedFiles++
			totalChunks += file.ChunkCount
		case lorekeep.FileStatusError:
			fmt.Printf("\r  %s: %s\n", file.Name, file.FailureReason)
		default:
			fmt.Printf("\r  %s: interrupted\n", file.Name)
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	summary := fmt.Sprintf("%s @ %s: %d files, %d chunks", kb.Name, opts.ServerURL, indexedFiles, totalChunks)

	model := tui.New(remoteSearchPort{client: client}, kb.ID, kb.TopK, summary)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return err
	}

	return nil
}

func ingestFile(ctx context.Context, ingestionManager *managers.IngestionManager, knowledgeBaseID string, path string) (domain.KnowledgeFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.KnowledgeFile{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ingestionManager.SubmitFileFromReader(ctx, domain.SubmitReaderParams{
		KnowledgeBaseID: knowledgeBaseID,
		Name:            filepath.Base(path),
		SourceKind:      domain.SourceKind_Upload,
		Reader:          f,
	})
}

// waitForIndexing blocks until the file leaves processing status,
// echoing progress events as they stream in.
func waitForIndexing(ctx context.Context, ingestionManager *managers.IngestionManager, listener domain.ProgressListener, file domain.KnowledgeFile) domain.KnowledgeFile {
	events, cancel := listener.SubscribeFile(ctx, file.ID)
	defer cancel()

	for {
		current, err := ingestionManager.GetFile(ctx, file.ID)
		if err != nil {
			return file
		}

		if current.Status != domain.FileStatus_Processing {
			return current
		}

		select {
		case <-ctx.Done():
			return current
		case event, ok := <-events:
			if !ok {
				return current
			}

			fmt.Printf("\r  %s: indexing %3d%%", file.Name, event.Progress)
		case <-time.After(time.Second):
		}
	}
}

// waitForRemoteIndexing polls the service until the file leaves
// processing status.
func waitForRemoteIndexing(ctx context.Context, client *lorekeep.Client, file *lorekeep.KnowledgeFile) *lorekeep.KnowledgeFile {
	for file.Status == lorekeep.FileStatusProcessing {
		select {
		case <-ctx.Done():
			return file
		case <-time.After(200 * time.Millisecond):
		}

		current, err := client.GetFile(ctx, file.ID)
		if err != nil {
			return file
		}

		file = current

		fmt.Printf("\r  %s: indexing %3d%%", file.Name, file.Progress)
	}

	return file
}

// remoteSearchPort adapts the HTTP client to the console's search
// interface.
type remoteSearchPort struct {
	client *lorekeep.Client
}

func (r remoteSearchPort) Search(ctx context.Context, knowledgeBaseID string, query string, settings domain.RetrievalSettings) (domain.SearchOutput, error) {
	resp, err := r.client.Search(ctx, knowledgeBaseID, &lorekeep.SearchRequest{
		Query:         query,
		RecallMethod:  string(settings.RecallMethod),
		VectorRatio:   settings.VectorRatio,
		TopK:          settings.TopK,
		MinScore:      settings.MinScore,
		RerankEnabled: settings.RerankEnabled,
	})
	if err != nil {
		return domain.SearchOutput{}, err
	}

	results := make([]domain.SearchResult, len(resp.Results))
	for i, result := range resp.Results {
		results[i] = domain.SearchResult{
			ID: result.ID,
			Chunk: domain.TextChunk{
				ID:         result.ChunkID,
				FileID:     result.SourceFileID,
				Index:      result.ChunkIndex,
				Text:       result.Text,
				StartIndex: result.StartIndex,
				EndIndex:   result.EndIndex,
			},
			SourceFileID:   result.SourceFileID,
			SourceFileName: result.SourceFileName,
			ChunkIndex:     result.ChunkIndex,
			Score:          result.Score,
		}
	}

	return domain.SearchOutput{
		RequestID:      resp.RequestID,
		Query:          query,
		Results:        results,
		ElapsedSeconds: resp.ElapsedSeconds,
		TokenEstimate:  resp.TokenEstimate,
	}, nil
}
