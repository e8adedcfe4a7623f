package enhancer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ctxmcp/ctxmcp/internal/httplog"
)

const (
	augmentNodeIDSimplified = 0
	augmentNodeIDStreamed   = 1
	augmentMode             = "CHAT"
	augmentDefaultModel     = "claude-sonnet-4-5"
	userAgent               = "ctxmcp/1.0/mcp"
)

type promptNode struct {
	ID       int    `json:"id"`
	NodeType int    `json:"type"`
	TextNode struct {
		Content string `json:"content"`
	} `json:"text_node"`
}

func newPromptNode(id int, content string) promptNode {
	n := promptNode{ID: id, NodeType: 0}
	n.TextNode.Content = content
	return n
}

type blobsPayload struct {
	AddedBlobs   []string `json:"added_blobs"`
	DeletedBlobs []string `json:"deleted_blobs"`
}

type simplifiedRequest struct {
	Nodes       []promptNode  `json:"nodes"`
	ChatHistory []ChatMessage `json:"chat_history"`
	Model       string        `json:"model"`
	Mode        string        `json:"mode"`
}

type streamedRequest struct {
	Model       string        `json:"model"`
	Message     string        `json:"message"`
	ChatHistory []ChatMessage `json:"chat_history"`
	Blobs       blobsPayload  `json:"blobs"`
	Nodes       []promptNode  `json:"nodes"`
	Mode        string        `json:"mode"`
}

type promptEnhancerResponse struct {
	Text *string `json:"text"`
}

// AugmentProvider talks to the Augment prompt-enhancer backend, in
// either its Simplified (/prompt-enhancer) or Streamed (/chat-stream)
// shape.
type AugmentProvider struct {
	httpClient *http.Client
	baseURL    string
	token      string
	streamed   bool
}

// NewAugmentProvider builds a provider against baseURL (no trailing
// slash). streamed selects the richer /chat-stream shape instead of the
// simplified /prompt-enhancer one. logger may be nil to leave every
// request unlogged.
func NewAugmentProvider(baseURL, token string, streamed bool, logger *httplog.Logger) *AugmentProvider {
	client := &http.Client{Transport: httplog.Transport(logger, nil)}
	return &AugmentProvider{httpClient: client, baseURL: baseURL, token: token, streamed: streamed}
}

func (p *AugmentProvider) Enhance(ctx context.Context, req Request) (string, error) {
	if p.streamed {
		return p.enhanceStreamed(ctx, req)
	}
	return p.enhanceSimplified(ctx, req)
}

func (p *AugmentProvider) enhanceSimplified(ctx context.Context, req Request) (string, error) {
	history := ParseChatHistory(req.ConversationHistory)
	payload := simplifiedRequest{
		Nodes:       []promptNode{newPromptNode(augmentNodeIDSimplified, req.OriginalPrompt)},
		ChatHistory: history,
		Model:       augmentDefaultModel,
		Mode:        augmentMode,
	}

	body, statusCode, err := p.post(ctx, "/prompt-enhancer", payload)
	if err != nil {
		return "", err
	}
	if authErr := mapAuthError(statusCode); authErr != nil {
		return "", authErr
	}
	if statusCode < 200 || statusCode >= 300 {
		return "", fmt.Errorf("prompt enhancer API failed: %d - %s", statusCode, body)
	}

	var parsed promptEnhancerResponse
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return "", fmt.Errorf("parse prompt enhancer response: %w", err)
	}
	if parsed.Text == nil {
		return "", fmt.Errorf("prompt enhancer API returned empty result")
	}

	return ReplaceToolNames(*parsed.Text), nil
}

func (p *AugmentProvider) enhanceStreamed(ctx context.Context, req Request) (string, error) {
	history := ParseChatHistory(req.ConversationHistory)

	finalPrompt, err := RenderEnhancePrompt(req.OriginalPrompt)
	if err != nil {
		return "", err
	}

	sortedBlobs := make([]string, len(req.ChunkNames))
	copy(sortedBlobs, req.ChunkNames)
	sort.Strings(sortedBlobs)

	payload := streamedRequest{
		Model:       augmentDefaultModel,
		Message:     finalPrompt,
		ChatHistory: history,
		Blobs:       blobsPayload{AddedBlobs: sortedBlobs, DeletedBlobs: []string{}},
		Nodes:       []promptNode{newPromptNode(augmentNodeIDStreamed, finalPrompt)},
		Mode:        augmentMode,
	}

	body, statusCode, err := p.post(ctx, "/chat-stream", payload)
	if err != nil {
		return "", err
	}
	if authErr := mapAuthError(statusCode); authErr != nil {
		return "", authErr
	}
	if statusCode < 200 || statusCode >= 300 {
		return "", fmt.Errorf("prompt enhancer API failed: %d - %s", statusCode, body)
	}

	combined, err := parseStreamedResponse(body)
	if err != nil {
		return "", err
	}

	if inner, ok := ExtractEnhancedPrompt(combined); ok {
		combined = inner
	}
	return ReplaceToolNames(combined), nil
}

// parseStreamedResponse concatenates every text fragment from a
// sequence of newline-delimited JSON objects, tolerating an SSE
// `data:` prefix and `[DONE]` termination. Falls back to parsing the
// whole body as one JSON object when no line parsed as a fragment.
func parseStreamedResponse(body string) (string, error) {
	var combined strings.Builder
	parsedAny := false

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			line = strings.TrimSpace(rest)
		}
		if line == "" || line == "[DONE]" {
			continue
		}

		var chunk promptEnhancerResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			continue
		}
		if chunk.Text != nil {
			combined.WriteString(*chunk.Text)
			parsedAny = true
		}
	}

	if parsedAny {
		return combined.String(), nil
	}

	var whole promptEnhancerResponse
	if err := json.Unmarshal([]byte(body), &whole); err != nil {
		return "", fmt.Errorf("parse streamed response: %w", err)
	}
	if whole.Text == nil {
		return "", fmt.Errorf("prompt enhancer API returned empty result")
	}
	return *whole.Text, nil
}

func (p *AugmentProvider) post(ctx context.Context, path string, payload any) (string, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", 0, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("x-request-id", uuid.NewString())
	httpReq.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	return string(respBody), resp.StatusCode, nil
}
