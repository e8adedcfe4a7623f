// Package retrieval implements the Retrieval Client of spec.md §4.8: a
// single deadline-bounded POST carrying the project's full current
// chunk-name set plus the caller's query, returning formatted text
// verbatim.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/ctxmcp/ctxmcp/internal/httplog"
	"github.com/ctxmcp/ctxmcp/pkg/errtax"
)

const defaultTimeout = 60 * time.Second

// NoResultsText is returned verbatim when the backend responds with an
// empty formatted text, so callers always have something displayable.
const NoResultsText = "No relevant context was found for this query."

type searchRequest struct {
	Query      string   `json:"query"`
	BlobNames  []string `json:"blob_names"`
	ProjectDir string   `json:"project_dir"`
}

type searchResponse struct {
	FormattedText string `json:"formatted_retrieval"`
}

// Client submits retrieval queries against the upload endpoint's
// sibling search route.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	timeout    time.Duration
}

// New builds a Client. timeout <= 0 uses the spec default of 60s. logger
// may be nil to leave every request unlogged.
func New(baseURL, token string, timeout time.Duration, logger *httplog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &http.Client{Transport: httplog.Transport(logger, nil)}
	return &Client{httpClient: client, baseURL: baseURL, token: token, timeout: timeout}
}

// Search sends query against the full set of currently indexed chunk
// names and returns the backend's formatted text, substituting
// NoResultsText for an empty response.
func (c *Client) Search(ctx context.Context, projectDir, query string, chunkNames []string) (string, error) {
	sorted := make([]string, len(chunkNames))
	copy(sorted, chunkNames)
	sort.Strings(sorted)

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload := searchRequest{Query: query, BlobNames: sorted, ProjectDir: projectDir}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/api/search", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errtax.Classify(0, "", err, reqCtx.Err())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return "", errtax.Classify(resp.StatusCode, resp.Header.Get("Retry-After"), nil, nil)
	}

	var parsed searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16<<20)).Decode(&parsed); err != nil {
		return "", fmt.Errorf("parse search response: %w", err)
	}

	if parsed.FormattedText == "" {
		return NoResultsText, nil
	}
	return parsed.FormattedText, nil
}
