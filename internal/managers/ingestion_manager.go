package managers

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	"github.com/lorekeep/lorekeep/internal/domain"
)

const (
	defaultFileName      = "Untitled file"
	defaultProgressStep  = 20
	invalidContentReason = "content is not valid UTF-8"
)

// IngestionManager turns submitted sources into chunked, indexed
// files. Chunking happens synchronously on submission; the indexing
// progress that follows is a timed walk from 0 to 100 so observers can
// watch a file move through processing into indexed. A positive
// ProgressInterval drives that walk on a ticker, a non-positive one
// completes files immediately.
type IngestionManager struct {
	store             *ChunkStore
	splitter          domain.TextSplitter
	progressPublisher domain.ProgressPublisher
	progressStep      int
	progressInterval  time.Duration
	now               func() time.Time

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu    sync.Mutex
	tasks map[string]context.CancelFunc
}

type IngestionManagerDependencies struct {
	Store             *ChunkStore
	Splitter          domain.TextSplitter
	ProgressPublisher domain.ProgressPublisher
	ProgressStep      int
	ProgressInterval  time.Duration
}

var _ domain.IngestionManager = (*IngestionManager)(nil)

func NewIngestionManager(deps IngestionManagerDependencies) *IngestionManager {
	if deps.ProgressStep <= 0 {
		deps.ProgressStep = defaultProgressStep
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())

	return &IngestionManager{
		store:             deps.Store,
		splitter:          deps.Splitter,
		progressPublisher: deps.ProgressPublisher,
		progressStep:      deps.ProgressStep,
		progressInterval:  deps.ProgressInterval,
		now:               time.Now,
		baseCtx:           baseCtx,
		baseCancel:        baseCancel,
		tasks:             make(map[string]context.CancelFunc),
	}
}

// Close stops every in-flight indexing task and waits for them to
// drain. Files caught mid-progress stay in processing status.
func (m *IngestionManager) Close() error {
	m.baseCancel()
	m.wg.Wait()

	return nil
}

func (m *IngestionManager) SubmitFile(ctx context.Context, params domain.SubmitFileParams) (domain.KnowledgeFile, error) {
	kb, ok := m.store.GetKnowledgeBase(params.KnowledgeBaseID)
	if !ok {
		return domain.KnowledgeFile{}, fmt.Errorf("%w: %s", domain.ErrKnowledgeBaseNotFound, params.KnowledgeBaseID)
	}

	now := m.now()

	file := domain.KnowledgeFile{
		ID:              xid.New().String(),
		KnowledgeBaseID: kb.ID,
		Name:            params.Name,
		SourceKind:      params.SourceKind,
		RawContent:      params.Content,
		Status:          domain.FileStatus_Processing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if file.Name == "" {
		file.Name = defaultFileName
	}

	if file.SourceKind == "" {
		file.SourceKind = domain.SourceKind_Upload
	}

	if !utf8.ValidString(params.Content) {
		file.Status = domain.FileStatus_Error
		file.FailureReason = invalidContentReason

		m.store.PutFile(file)
		m.publishProgress(file)

		log.Warn().
			Str("file_id", file.ID).
			Str("knowledge_base_id", kb.ID).
			Msg("Rejected file with undecodable content")

		return file, fmt.Errorf("%w: %s", domain.ErrSourceUnreadable, invalidContentReason)
	}

	file.Chunks = m.chunkContent(file.ID, params.Content, kb)

	m.store.PutFile(file)
	m.publishProgress(file)

	log.Info().
		Str("file_id", file.ID).
		Str("knowledge_base_id", kb.ID).
		Str("source_kind", string(file.SourceKind)).
		Int("chunk_count", len(file.Chunks)).
		Msg("Submitted knowledge file")

	taskCtx, release, err := m.reserveIndexingTask(file.ID)
	if err != nil {
		return file, err
	}

	m.startIndexing(taskCtx, release, file.ID)

	indexed, ok := m.store.GetFile(file.ID)
	if !ok {
		return file, nil
	}

	return indexed, nil
}

// SubmitFileFromReader reads the source before handing it to
// SubmitFile. A failed read still produces a file record, parked in
// error status, so the submission is visible rather than lost.
func (m *IngestionManager) SubmitFileFromReader(ctx context.Context, params domain.SubmitReaderParams) (domain.KnowledgeFile, error) {
	kb, ok := m.store.GetKnowledgeBase(params.KnowledgeBaseID)
	if !ok {
		return domain.KnowledgeFile{}, fmt.Errorf("%w: %s", domain.ErrKnowledgeBaseNotFound, params.KnowledgeBaseID)
	}

	data, err := io.ReadAll(params.Reader)
	if err != nil {
		now := m.now()

		file := domain.KnowledgeFile{
			ID:              xid.New().String(),
			KnowledgeBaseID: kb.ID,
			Name:            params.Name,
			SourceKind:      params.SourceKind,
			Status:          domain.FileStatus_Error,
			FailureReason:   err.Error(),
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if file.Name == "" {
			file.Name = defaultFileName
		}

		if file.SourceKind == "" {
			file.SourceKind = domain.SourceKind_Upload
		}

		m.store.PutFile(file)
		m.publishProgress(file)

		log.Warn().
			Err(err).
			Str("file_id", file.ID).
			Str("knowledge_base_id", kb.ID).
			Msg("Failed to read file source")

		return file, fmt.Errorf("%w: %s", domain.ErrSourceUnreadable, err)
	}

	return m.SubmitFile(ctx, domain.SubmitFileParams{
		KnowledgeBaseID: params.KnowledgeBaseID,
		Name:            params.Name,
		SourceKind:      params.SourceKind,
		Content:         string(data),
	})
}

// ReindexFile re-chunks a file's raw content under the owning base's
// current settings. The new chunk list replaces the old one in a
// single store update, so concurrent searches see either the previous
// index or the new one, never a partial mix. At most one indexing pass
// may run per file at a time.
func (m *IngestionManager) ReindexFile(ctx context.Context, fileID string) (domain.KnowledgeFile, error) {
	file, ok := m.store.GetFile(fileID)
	if !ok {
		return domain.KnowledgeFile{}, fmt.Errorf("%w: %s", domain.ErrFileNotFound, fileID)
	}

	kb, ok := m.store.GetKnowledgeBase(file.KnowledgeBaseID)
	if !ok {
		return domain.KnowledgeFile{}, fmt.Errorf("%w: %s", domain.ErrKnowledgeBaseNotFound, file.KnowledgeBaseID)
	}

	taskCtx, release, err := m.reserveIndexingTask(fileID)
	if err != nil {
		return file, err
	}

	if !utf8.ValidString(file.RawContent) {
		release()

		failed, _ := m.store.UpdateFile(fileID, func(f *domain.KnowledgeFile) {
			f.Status = domain.FileStatus_Error
			f.FailureReason = invalidContentReason
			f.Chunks = nil
			f.Progress = 0
			f.UpdatedAt = m.now()
		})

		m.publishProgress(failed)

		return failed, fmt.Errorf("%w: %s", domain.ErrSourceUnreadable, invalidContentReason)
	}

	chunks := m.chunkContent(fileID, file.RawContent, kb)

	updated, ok := m.store.UpdateFile(fileID, func(f *domain.KnowledgeFile) {
		f.Chunks = chunks
		f.Status = domain.FileStatus_Processing
		f.Progress = 0
		f.FailureReason = ""
		f.UpdatedAt = m.now()
	})
	if !ok {
		release()

		return domain.KnowledgeFile{}, fmt.Errorf("%w: %s", domain.ErrFileNotFound, fileID)
	}

	m.publishProgress(updated)

	log.Info().
		Str("file_id", fileID).
		Str("knowledge_base_id", kb.ID).
		Int("chunk_count", len(chunks)).
		Msg("Reindexing knowledge file")

	m.startIndexing(taskCtx, release, fileID)

	current, ok := m.store.GetFile(fileID)
	if !ok {
		return updated, nil
	}

	return current, nil
}

func (m *IngestionManager) GetFile(ctx context.Context, fileID string) (domain.KnowledgeFile, error) {
	file, ok := m.store.GetFile(fileID)
	if !ok {
		return domain.KnowledgeFile{}, fmt.Errorf("%w: %s", domain.ErrFileNotFound, fileID)
	}

	return file, nil
}

func (m *IngestionManager) ListFiles(ctx context.Context, knowledgeBaseID string) ([]domain.KnowledgeFile, error) {
	if _, ok := m.store.GetKnowledgeBase(knowledgeBaseID); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrKnowledgeBaseNotFound, knowledgeBaseID)
	}

	return m.store.ListFiles(knowledgeBaseID), nil
}

func (m *IngestionManager) DeleteFile(ctx context.Context, fileID string) error {
	m.mu.Lock()
	cancel, busy := m.tasks[fileID]
	if busy {
		delete(m.tasks, fileID)
	}
	m.mu.Unlock()

	if busy {
		cancel()
	}

	file, ok := m.store.DeleteFile(fileID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrFileNotFound, fileID)
	}

	log.Info().
		Str("file_id", fileID).
		Str("knowledge_base_id", file.KnowledgeBaseID).
		Msg("Deleted knowledge file")

	return nil
}

func (m *IngestionManager) chunkContent(fileID string, content string, kb domain.KnowledgeBase) []domain.TextChunk {
	chunks := m.splitter.Split(content, kb.ChunkSize, kb.ChunkOverlap)

	for i := range chunks {
		chunks[i].ID = xid.New().String()
		chunks[i].FileID = fileID
	}

	return chunks
}

// reserveIndexingTask enforces the one-pass-per-file rule. In
// immediate mode there is nothing to reserve and both the ctx and the
// release func are inert.
func (m *IngestionManager) reserveIndexingTask(fileID string) (context.Context, func(), error) {
	if m.progressInterval <= 0 {
		return nil, func() {}, nil
	}

	taskCtx, cancel := context.WithCancel(m.baseCtx)

	m.mu.Lock()
	if _, busy := m.tasks[fileID]; busy {
		m.mu.Unlock()
		cancel()

		return nil, nil, fmt.Errorf("%w: %s", domain.ErrReindexInProgress, fileID)
	}

	m.tasks[fileID] = cancel
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		delete(m.tasks, fileID)
		m.mu.Unlock()

		cancel()
	}

	return taskCtx, release, nil
}

func (m *IngestionManager) startIndexing(taskCtx context.Context, release func(), fileID string) {
	if taskCtx == nil {
		completed, ok := m.store.UpdateFile(fileID, func(f *domain.KnowledgeFile) {
			f.Status = domain.FileStatus_Indexed
			f.Progress = 100
			f.UpdatedAt = m.now()
		})
		if ok {
			m.publishProgress(completed)
		}

		return
	}

	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		defer release()

		m.advanceProgress(taskCtx, fileID)
	}()
}

// advanceProgress walks the file's progress up by progressStep every
// tick until it reaches 100 and the file flips to indexed. Cancelling
// taskCtx stops the walk without touching the file.
func (m *IngestionManager) advanceProgress(ctx context.Context, fileID string) {
	ticker := time.NewTicker(m.progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			file, ok := m.store.UpdateFile(fileID, func(f *domain.KnowledgeFile) {
				f.Progress += m.progressStep
				if f.Progress >= 100 {
					f.Progress = 100
					f.Status = domain.FileStatus_Indexed
				}

				f.UpdatedAt = m.now()
			})
			if !ok {
				return
			}

			m.publishProgress(file)

			if file.Status != domain.FileStatus_Processing {
				return
			}
		}
	}
}

func (m *IngestionManager) publishProgress(file domain.KnowledgeFile) {
	event := domain.FileProgressEvent{
		FileID:          file.ID,
		KnowledgeBaseID: file.KnowledgeBaseID,
		Status:          file.Status,
		Progress:        file.Progress,
		ChunkCount:      len(file.Chunks),
		FailureReason:   file.FailureReason,
		OccurredAt:      m.now(),
	}

	if err := m.progressPublisher.PublishProgress(context.Background(), event); err != nil {
		log.Error().
			Err(err).
			Str("file_id", file.ID).
			Msg("Failed to publish progress event")
	}
}
