package enhancer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/ctxmcp/ctxmcp/internal/httplog"
)

const defaultGeminiModel = "gemini-2.0-flash-exp"

// GeminiLikeProvider enhances prompts through Google's Gemini API,
// folding conversation history and the rendered prompt into one
// multi-turn content list.
type GeminiLikeProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiLikeProvider builds a provider using token as the API key.
// model defaults to defaultGeminiModel when empty. logger may be nil to
// leave every request unlogged.
func NewGeminiLikeProvider(ctx context.Context, token, model string, logger *httplog.Logger) (*GeminiLikeProvider, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     token,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Transport: httplog.Transport(logger, nil)},
	})
	if err != nil {
		return nil, fmt.Errorf("build gemini client: %w", err)
	}
	return &GeminiLikeProvider{client: client, model: model}, nil
}

func (p *GeminiLikeProvider) Enhance(ctx context.Context, req Request) (string, error) {
	finalPrompt, err := BuildThirdPartyPrompt(req.OriginalPrompt)
	if err != nil {
		return "", err
	}

	history := ParseChatHistory(req.ConversationHistory)
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.Role(role)))
	}
	contents = append(contents, genai.NewContentFromText(finalPrompt, genai.RoleUser))

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini API request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini API returned empty response")
	}

	if inner, ok := ExtractEnhancedPrompt(text); ok {
		text = inner
	}
	return ReplaceToolNames(text), nil
}
