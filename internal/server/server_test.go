package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/internal/controllers"
	"github.com/lorekeep/lorekeep/internal/domain"
	"github.com/lorekeep/lorekeep/internal/managers"
	"github.com/lorekeep/lorekeep/internal/splitter"
)

// newTestApp wires the full engine behind the HTTP surface. A zero
// progressInterval completes indexing inside the submit request, which
// keeps the tests synchronous.
func newTestApp(t *testing.T, progressInterval time.Duration) *fiber.App {
	t.Helper()

	store := managers.NewChunkStore()
	broadcaster := managers.NewProgressBroadcaster()

	knowledgeBaseManager := managers.NewKnowledgeBaseManager(managers.KnowledgeBaseManagerDependencies{
		Store: store,
		Defaults: managers.KnowledgeBaseDefaults{
			ChunkSize:      64,
			ChunkOverlap:   8,
			TopK:           5,
			ScoreThreshold: 0.05,
		},
	})

	ingestionManager := managers.NewIngestionManager(managers.IngestionManagerDependencies{
		Store:             store,
		Splitter:          splitter.NewSplitter(),
		ProgressPublisher: broadcaster,
		ProgressStep:      50,
		ProgressInterval:  progressInterval,
	})
	t.Cleanup(func() {
		ingestionManager.Close()
	})

	retrievalEngine := managers.NewRetrievalEngine(managers.RetrievalEngineDependencies{
		Store: store,
	})

	controller := controllers.NewKnowledgeController(controllers.KnowledgeControllerDependencies{
		KnowledgeBaseManager: knowledgeBaseManager,
		IngestionManager:     ingestionManager,
		RetrievalEngine:      retrievalEngine,
	})

	return NewHTTPServer(context.Background(), HTTPServerDependencies{
		KnowledgeController: controller,
	})
}

func doJSON(t *testing.T, app *fiber.App, method, path, payload string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != "" {
		body = strings.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, target))
}

func createTestBase(t *testing.T, app *fiber.App, payload string) controllers.KnowledgeBaseResponse {
	t.Helper()

	resp := doJSON(t, app, "POST", "/knowledge-bases", payload)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var kb controllers.KnowledgeBaseResponse
	decodeJSON(t, resp, &kb)

	return kb
}

func submitTestFile(t *testing.T, app *fiber.App, knowledgeBaseID, payload string) controllers.KnowledgeFileResponse {
	t.Helper()

	resp := doJSON(t, app, "POST", "/knowledge-bases/"+knowledgeBaseID+"/files", payload)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var file controllers.KnowledgeFileResponse
	decodeJSON(t, resp, &file)

	return file
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t, 0)

	resp := doJSON(t, app, "GET", "/health", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]string
	decodeJSON(t, resp, &result)
	assert.Equal(t, "healthy", result["status"])
	assert.Equal(t, "lorekeep", result["service"])
}

func TestRequestIDHeader(t *testing.T) {
	app := newTestApp(t, 0)

	resp := doJSON(t, app, "GET", "/health", "")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "req-custom")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-custom", resp.Header.Get("X-Request-ID"))
}

func TestCreateKnowledgeBaseAppliesDefaults(t *testing.T) {
	app := newTestApp(t, 0)

	kb := createTestBase(t, app, `{"name": "Docs"}`)

	assert.NotEmpty(t, kb.ID)
	assert.Equal(t, "Docs", kb.Name)
	assert.True(t, kb.Enabled)
	assert.Equal(t, 64, kb.ChunkSize)
	assert.Equal(t, 8, kb.ChunkOverlap)
	assert.Equal(t, 5, kb.TopK)
	assert.InDelta(t, 0.05, kb.ScoreThreshold, 1e-9)
}

func TestCreateKnowledgeBaseRejectsInvalidConfig(t *testing.T) {
	app := newTestApp(t, 0)

	resp := doJSON(t, app, "POST", "/knowledge-bases", `{"name": "Docs", "chunk_size": 100, "chunk_overlap": 200}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var result map[string]string
	decodeJSON(t, resp, &result)
	assert.NotEmpty(t, result["error"])
}

func TestCreateKnowledgeBaseRejectsMalformedBody(t *testing.T) {
	app := newTestApp(t, 0)

	resp := doJSON(t, app, "POST", "/knowledge-bases", `{"name": `)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestMissingKnowledgeBaseReturns404(t *testing.T) {
	app := newTestApp(t, 0)

	resp := doJSON(t, app, "GET", "/knowledge-bases/nope", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var result map[string]string
	decodeJSON(t, resp, &result)
	assert.Contains(t, result["error"], "nope")

	resp = doJSON(t, app, "POST", "/knowledge-bases/nope/files", `{"name": "a.txt", "content": "hello"}`)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/knowledge-bases/nope/files", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/knowledge-bases/nope/search", `{"query": "hello"}`)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUpdateAndToggleKnowledgeBase(t *testing.T) {
	app := newTestApp(t, 0)
	kb := createTestBase(t, app, `{"name": "Docs"}`)

	resp := doJSON(t, app, "PATCH", "/knowledge-bases/"+kb.ID, `{"name": "Renamed", "top_k": 9}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var updated controllers.KnowledgeBaseResponse
	decodeJSON(t, resp, &updated)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, 9, updated.TopK)
	assert.Equal(t, kb.ChunkSize, updated.ChunkSize)

	// An update that breaks the config leaves the stored base untouched.
	resp = doJSON(t, app, "PATCH", "/knowledge-bases/"+kb.ID, `{"chunk_overlap": 999}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/knowledge-bases/"+kb.ID, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &updated)
	assert.Equal(t, kb.ChunkOverlap, updated.ChunkOverlap)

	resp = doJSON(t, app, "POST", "/knowledge-bases/"+kb.ID+"/toggle", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &updated)
	assert.False(t, updated.Enabled)

	resp = doJSON(t, app, "POST", "/knowledge-bases/"+kb.ID+"/toggle", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &updated)
	assert.True(t, updated.Enabled)
}

func TestSubmitFileIndexesImmediately(t *testing.T) {
	app := newTestApp(t, 0)
	kb := createTestBase(t, app, `{"name": "Docs"}`)

	file := submitTestFile(t, app, kb.ID, `{"name": "guide.txt", "content": "The quick brown fox jumps over the lazy dog"}`)

	assert.NotEmpty(t, file.ID)
	assert.Equal(t, kb.ID, file.KnowledgeBaseID)
	assert.Equal(t, "guide.txt", file.Name)
	assert.Equal(t, "upload", file.SourceKind)
	assert.Equal(t, "indexed", file.Status)
	assert.Equal(t, 100, file.Progress)
	assert.GreaterOrEqual(t, file.ChunkCount, 1)
}

func TestFileLifecycle(t *testing.T) {
	app := newTestApp(t, 0)
	kb := createTestBase(t, app, `{"name": "Docs"}`)
	file := submitTestFile(t, app, kb.ID, `{"name": "guide.txt", "content": "alpha beta gamma"}`)

	resp := doJSON(t, app, "GET", "/files/"+file.ID, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var fetched controllers.KnowledgeFileResponse
	decodeJSON(t, resp, &fetched)
	assert.Equal(t, file.ID, fetched.ID)
	require.Len(t, fetched.Chunks, 1)
	assert.Equal(t, "alpha beta gamma", fetched.Chunks[0].Text)

	resp = doJSON(t, app, "GET", "/knowledge-bases/"+kb.ID+"/files", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var files []controllers.KnowledgeFileResponse
	decodeJSON(t, resp, &files)
	require.Len(t, files, 1)

	resp = doJSON(t, app, "POST", "/files/"+file.ID+"/reindex", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &fetched)
	assert.Equal(t, "indexed", fetched.Status)
	assert.Equal(t, 100, fetched.Progress)

	resp = doJSON(t, app, "DELETE", "/files/"+file.ID, "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/files/"+file.ID, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/knowledge-bases/"+kb.ID+"/files", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &files)
	assert.Empty(t, files)
}

func TestReindexConflictWhileProcessing(t *testing.T) {
	app := newTestApp(t, time.Hour)
	kb := createTestBase(t, app, `{"name": "Docs"}`)

	file := submitTestFile(t, app, kb.ID, `{"name": "guide.txt", "content": "alpha beta gamma"}`)
	require.Equal(t, "processing", file.Status)

	resp := doJSON(t, app, "POST", "/files/"+file.ID+"/reindex", "")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestDeleteKnowledgeBaseCascades(t *testing.T) {
	app := newTestApp(t, 0)
	kb := createTestBase(t, app, `{"name": "Docs"}`)
	file := submitTestFile(t, app, kb.ID, `{"name": "guide.txt", "content": "alpha beta gamma"}`)

	resp := doJSON(t, app, "DELETE", "/knowledge-bases/"+kb.ID, "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/knowledge-bases/"+kb.ID, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/files/"+file.ID, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSearchRanksMatchingChunks(t *testing.T) {
	app := newTestApp(t, 0)
	kb := createTestBase(t, app, `{"name": "Docs", "score_threshold": 0.01}`)

	submitTestFile(t, app, kb.ID, `{"name": "animals.txt", "content": "The quick brown fox jumps over the lazy dog"}`)
	submitTestFile(t, app, kb.ID, `{"name": "logs.txt", "content": "Structured logging keeps services observable"}`)

	resp := doJSON(t, app, "POST", "/knowledge-bases/"+kb.ID+"/search", `{"query": "brown fox", "recall_method": "keyword"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result controllers.SearchResponse
	decodeJSON(t, resp, &result)

	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, 9, result.TokenEstimate)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "animals.txt", result.Results[0].SourceFileName)
	assert.Contains(t, result.Results[0].Text, "brown fox")
	assert.InDelta(t, 0.75, result.Results[0].Score, 1e-9)
}

func TestSearchEmptyQueryReturnsNoResults(t *testing.T) {
	app := newTestApp(t, 0)
	kb := createTestBase(t, app, `{"name": "Docs"}`)
	submitTestFile(t, app, kb.ID, `{"name": "guide.txt", "content": "alpha beta gamma"}`)

	resp := doJSON(t, app, "POST", "/knowledge-bases/"+kb.ID+"/search", `{"query": "   "}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result controllers.SearchResponse
	decodeJSON(t, resp, &result)
	assert.NotEmpty(t, result.RequestID)
	assert.Empty(t, result.Results)
}

func TestSearchRejectsUnknownRecallMethod(t *testing.T) {
	app := newTestApp(t, 0)
	kb := createTestBase(t, app, `{"name": "Docs"}`)

	resp := doJSON(t, app, "POST", "/knowledge-bases/"+kb.ID+"/search", `{"query": "hello", "recall_method": "semantic"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

// stubIngestionManager lets handler tests exercise error contracts the
// real pipeline cannot reach over JSON, like undecodable content.
type stubIngestionManager struct {
	file domain.KnowledgeFile
	err  error
}

func (s stubIngestionManager) SubmitFile(ctx context.Context, params domain.SubmitFileParams) (domain.KnowledgeFile, error) {
	return s.file, s.err
}

func (s stubIngestionManager) SubmitFileFromReader(ctx context.Context, params domain.SubmitReaderParams) (domain.KnowledgeFile, error) {
	return s.file, s.err
}

func (s stubIngestionManager) ReindexFile(ctx context.Context, fileID string) (domain.KnowledgeFile, error) {
	return s.file, s.err
}

func (s stubIngestionManager) GetFile(ctx context.Context, fileID string) (domain.KnowledgeFile, error) {
	return s.file, s.err
}

func (s stubIngestionManager) ListFiles(ctx context.Context, knowledgeBaseID string) ([]domain.KnowledgeFile, error) {
	return []domain.KnowledgeFile{s.file}, s.err
}

func (s stubIngestionManager) DeleteFile(ctx context.Context, fileID string) error {
	return s.err
}

func newStubApp(t *testing.T, ingestion domain.IngestionManager) *fiber.App {
	t.Helper()

	store := managers.NewChunkStore()

	controller := controllers.NewKnowledgeController(controllers.KnowledgeControllerDependencies{
		KnowledgeBaseManager: managers.NewKnowledgeBaseManager(managers.KnowledgeBaseManagerDependencies{Store: store}),
		IngestionManager:     ingestion,
		RetrievalEngine:      managers.NewRetrievalEngine(managers.RetrievalEngineDependencies{Store: store}),
	})

	return NewHTTPServer(context.Background(), HTTPServerDependencies{
		KnowledgeController: controller,
	})
}

func TestSubmitUnreadableFileReturnsRecord(t *testing.T) {
	failed := domain.KnowledgeFile{
		ID:              "file-1",
		KnowledgeBaseID: "kb-1",
		Name:            "broken.bin",
		SourceKind:      domain.SourceKind_Upload,
		Status:          domain.FileStatus_Error,
		FailureReason:   "content is not valid UTF-8",
	}

	app := newStubApp(t, stubIngestionManager{
		file: failed,
		err:  fmt.Errorf("%w: content is not valid UTF-8", domain.ErrSourceUnreadable),
	})

	resp := doJSON(t, app, "POST", "/knowledge-bases/kb-1/files", `{"name": "broken.bin", "content": "x"}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var file controllers.KnowledgeFileResponse
	decodeJSON(t, resp, &file)
	assert.Equal(t, "file-1", file.ID)
	assert.Equal(t, "error", file.Status)
	assert.Equal(t, "content is not valid UTF-8", file.FailureReason)
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	app := newStubApp(t, stubIngestionManager{
		err: fmt.Errorf("store exploded"),
	})

	resp := doJSON(t, app, "GET", "/files/file-1", "")
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var result map[string]string
	decodeJSON(t, resp, &result)
	assert.Equal(t, "Internal server error", result["error"])
}
