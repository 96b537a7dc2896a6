package lorekeep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// ClientInterface defines the main interface for interacting with the Lorekeep API
type ClientInterface interface {
	// Knowledge base operations
	CreateKnowledgeBase(ctx context.Context, req *CreateKnowledgeBaseRequest) (*KnowledgeBase, error)
	GetKnowledgeBase(ctx context.Context, knowledgeBaseID string) (*KnowledgeBase, error)
	ListKnowledgeBases(ctx context.Context) ([]KnowledgeBase, error)
	UpdateKnowledgeBase(ctx context.Context, knowledgeBaseID string, req *UpdateKnowledgeBaseRequest) (*KnowledgeBase, error)
	ToggleKnowledgeBase(ctx context.Context, knowledgeBaseID string) (*KnowledgeBase, error)
	DeleteKnowledgeBase(ctx context.Context, knowledgeBaseID string) error

	// File operations
	SubmitFile(ctx context.Context, knowledgeBaseID string, req *SubmitFileRequest) (*KnowledgeFile, error)
	GetFile(ctx context.Context, fileID string) (*KnowledgeFile, error)
	ListFiles(ctx context.Context, knowledgeBaseID string) ([]KnowledgeFile, error)
	ReindexFile(ctx context.Context, fileID string) (*KnowledgeFile, error)
	DeleteFile(ctx context.Context, fileID string) error

	// Search operations
	Search(ctx context.Context, knowledgeBaseID string, req *SearchRequest) (*SearchResponse, error)

	// Service operations
	Health(ctx context.Context) (*HealthResponse, error)
}

// Client provides a high-level interface for interacting with the Lorekeep API
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

var _ ClientInterface = (*Client)(nil)

// NewClient creates a new Lorekeep client with the given options
func NewClient(options ...ClientOption) *Client {
	config := DefaultConfig()

	for _, option := range options {
		option(config)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// CreateKnowledgeBase creates a new knowledge base
func (c *Client) CreateKnowledgeBase(ctx context.Context, req *CreateKnowledgeBaseRequest) (*KnowledgeBase, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	resp, err := c.doRequest(ctx, "POST", "/knowledge-bases", req)
	if err != nil {
		return nil, fmt.Errorf("failed to create knowledge base: %w", err)
	}

	var result KnowledgeBase
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process create knowledge base response: %w", err)
	}

	return &result, nil
}

// GetKnowledgeBase retrieves a single knowledge base
func (c *Client) GetKnowledgeBase(ctx context.Context, knowledgeBaseID string) (*KnowledgeBase, error) {
	if knowledgeBaseID == "" {
		return nil, fmt.Errorf("knowledge base ID is required")
	}

	path := fmt.Sprintf("/knowledge-bases/%s", knowledgeBaseID)

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get knowledge base: %w", err)
	}

	var result KnowledgeBase
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process get knowledge base response: %w", err)
	}

	return &result, nil
}

// ListKnowledgeBases retrieves all knowledge bases
func (c *Client) ListKnowledgeBases(ctx context.Context) ([]KnowledgeBase, error) {
	resp, err := c.doRequest(ctx, "GET", "/knowledge-bases", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge bases: %w", err)
	}

	var result []KnowledgeBase
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process list knowledge bases response: %w", err)
	}

	return result, nil
}

// UpdateKnowledgeBase applies a partial update to a knowledge base
func (c *Client) UpdateKnowledgeBase(ctx context.Context, knowledgeBaseID string, req *UpdateKnowledgeBaseRequest) (*KnowledgeBase, error) {
	if knowledgeBaseID == "" {
		return nil, fmt.Errorf("knowledge base ID is required")
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	path := fmt.Sprintf("/knowledge-bases/%s", knowledgeBaseID)

	resp, err := c.doRequest(ctx, "PATCH", path, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update knowledge base: %w", err)
	}

	var result KnowledgeBase
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process update knowledge base response: %w", err)
	}

	return &result, nil
}

// ToggleKnowledgeBase flips whether the knowledge base participates in
// retrieval by default
func (c *Client) ToggleKnowledgeBase(ctx context.Context, knowledgeBaseID string) (*KnowledgeBase, error) {
	if knowledgeBaseID == "" {
		return nil, fmt.Errorf("knowledge base ID is required")
	}

	path := fmt.Sprintf("/knowledge-bases/%s/toggle", knowledgeBaseID)

	resp, err := c.doRequest(ctx, "POST", path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle knowledge base: %w", err)
	}

	var result KnowledgeBase
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process toggle knowledge base response: %w", err)
	}

	return &result, nil
}

// DeleteKnowledgeBase deletes a knowledge base and all its files
func (c *Client) DeleteKnowledgeBase(ctx context.Context, knowledgeBaseID string) error {
	if knowledgeBaseID == "" {
		return fmt.Errorf("knowledge base ID is required")
	}

	path := fmt.Sprintf("/knowledge-bases/%s", knowledgeBaseID)

	resp, err := c.doRequest(ctx, "DELETE", path, nil)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge base: %w", err)
	}

	if err := c.handleResponse(resp, nil); err != nil {
		return fmt.Errorf("failed to process delete knowledge base response: %w", err)
	}

	return nil
}

// SubmitFile submits content for ingestion into a knowledge base. When
// the content cannot be decoded the API still creates a file record in
// error status; in that case the record is returned together with the
// API error.
func (c *Client) SubmitFile(ctx context.Context, knowledgeBaseID string, req *SubmitFileRequest) (*KnowledgeFile, error) {
	if knowledgeBaseID == "" {
		return nil, fmt.Errorf("knowledge base ID is required")
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	path := fmt.Sprintf("/knowledge-bases/%s/files", knowledgeBaseID)

	resp, err := c.doRequest(ctx, "POST", path, req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit file: %w", err)
	}

	var result KnowledgeFile
	if err := c.handleResponse(resp, &result); err != nil {
		if apiErr, ok := IsLorekeepError(err); ok && apiErr.IsUnprocessable() {
			var failed KnowledgeFile
			if json.Unmarshal([]byte(apiErr.Body), &failed) == nil && failed.ID != "" {
				return &failed, apiErr
			}
		}

		return nil, fmt.Errorf("failed to process submit file response: %w", err)
	}

	return &result, nil
}

// GetFile retrieves a single file with its indexing state
func (c *Client) GetFile(ctx context.Context, fileID string) (*KnowledgeFile, error) {
	if fileID == "" {
		return nil, fmt.Errorf("file ID is required")
	}

	path := fmt.Sprintf("/files/%s", fileID)

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	var result KnowledgeFile
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process get file response: %w", err)
	}

	return &result, nil
}

// ListFiles retrieves all files in a knowledge base
func (c *Client) ListFiles(ctx context.Context, knowledgeBaseID string) ([]KnowledgeFile, error) {
	if knowledgeBaseID == "" {
		return nil, fmt.Errorf("knowledge base ID is required")
	}

	path := fmt.Sprintf("/knowledge-bases/%s/files", knowledgeBaseID)

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var result []KnowledgeFile
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process list files response: %w", err)
	}

	return result, nil
}

// ReindexFile re-chunks a file with the knowledge base's current
// settings and replays its indexing sequence
func (c *Client) ReindexFile(ctx context.Context, fileID string) (*KnowledgeFile, error) {
	if fileID == "" {
		return nil, fmt.Errorf("file ID is required")
	}

	path := fmt.Sprintf("/files/%s/reindex", fileID)

	resp, err := c.doRequest(ctx, "POST", path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to reindex file: %w", err)
	}

	var result KnowledgeFile
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process reindex file response: %w", err)
	}

	return &result, nil
}

// DeleteFile deletes a file and its chunks
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if fileID == "" {
		return fmt.Errorf("file ID is required")
	}

	path := fmt.Sprintf("/files/%s", fileID)

	resp, err := c.doRequest(ctx, "DELETE", path, nil)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	if err := c.handleResponse(resp, nil); err != nil {
		return fmt.Errorf("failed to process delete file response: %w", err)
	}

	return nil
}

// Search runs a query against a knowledge base and returns the full
// ranked result list
func (c *Client) Search(ctx context.Context, knowledgeBaseID string, req *SearchRequest) (*SearchResponse, error) {
	if knowledgeBaseID == "" {
		return nil, fmt.Errorf("knowledge base ID is required")
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	path := fmt.Sprintf("/knowledge-bases/%s/search", knowledgeBaseID)

	resp, err := c.doRequest(ctx, "POST", path, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var result SearchResponse
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process search response: %w", err)
	}

	return &result, nil
}

// Health reports service liveness and version
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, "GET", "/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check health: %w", err)
	}

	var result HealthResponse
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process health response: %w", err)
	}

	return &result, nil
}

// doRequest performs an HTTP request against the API, retrying on
// transport failures and server errors
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyBytes []byte
	var requestBody io.Reader

	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		requestBody = bytes.NewBuffer(bodyBytes)
	}

	url := c.config.BaseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
			// Reset body reader for retry
			if bodyBytes != nil {
				requestBody = bytes.NewBuffer(bodyBytes)
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, requestBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		for key, value := range c.config.DefaultHeaders {
			req.Header.Set(key, value)
		}

		if c.config.UserAgent != "" {
			req.Header.Set("User-Agent", c.config.UserAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			log.Error().
				Int("status_code", resp.StatusCode).
				Str("path", path).
				Str("request_id", resp.Header.Get("X-Request-ID")).
				Msg("server error")

			resp.Body.Close()
			lastErr = &Error{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("server error: %d", resp.StatusCode),
			}
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.config.RetryAttempts, lastErr)
}

// handleResponse processes the HTTP response and unmarshals JSON if successful
func (c *Client) handleResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errorResponse struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}

		message := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if json.Unmarshal(body, &errorResponse) == nil {
			if errorResponse.Error != "" {
				message = errorResponse.Error
			} else if errorResponse.Message != "" {
				message = errorResponse.Message
			}
		}

		return &Error{
			StatusCode: resp.StatusCode,
			Message:    message,
			Body:       string(body),
			RequestID:  resp.Header.Get("X-Request-ID"),
		}
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
