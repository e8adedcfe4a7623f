package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ctxmcp/ctxmcp/internal/httplog"
	"github.com/ctxmcp/ctxmcp/pkg/types"
)

type blobPayload struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type uploadRequest struct {
	Blobs []blobPayload `json:"blobs"`
}

type uploadResponse struct {
	BlobNames []string `json:"blob_names"`
}

// attemptResult is everything the retry loop needs to classify one HTTP
// attempt, win or lose.
type attemptResult struct {
	chunkNames []string
	statusCode int
	retryAfter string
	transport  error
}

// HTTPClient posts batches to the upload endpoint of a retrieval backend.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewHTTPClient builds a client against baseURL (already normalized, no
// trailing slash) using token for bearer authentication. logger may be nil
// to leave every request unlogged.
func NewHTTPClient(baseURL, token string, logger *httplog.Logger) *HTTPClient {
	client := &http.Client{Transport: httplog.Transport(logger, nil)}
	return &HTTPClient{httpClient: client, baseURL: baseURL, token: token}
}

func (c *HTTPClient) attempt(ctx context.Context, batch Batch, timeout time.Duration) attemptResult {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload := uploadRequest{Blobs: make([]blobPayload, len(batch.Chunks))}
	for i, c := range batch.Chunks {
		payload.Blobs[i] = blobPayload{Path: c.LogicalPath, Content: c.Content}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return attemptResult{transport: fmt.Errorf("encode batch: %w", err)}
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/api/upload", bytes.NewReader(body))
	if err != nil {
		return attemptResult{transport: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return attemptResult{transport: err}
	}
	defer resp.Body.Close()

	retryAfter := resp.Header.Get("Retry-After")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, types.MaxBatchBytes))
		return attemptResult{statusCode: resp.StatusCode, retryAfter: retryAfter}
	}

	var parsed uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, types.MaxBatchBytes)).Decode(&parsed); err != nil {
		return attemptResult{statusCode: resp.StatusCode, retryAfter: retryAfter, transport: fmt.Errorf("parse response: %w", err)}
	}

	return attemptResult{chunkNames: parsed.BlobNames, statusCode: resp.StatusCode, retryAfter: retryAfter}
}
