package enhancer

import (
	"context"
	"errors"
	"fmt"

	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ctxmcp/ctxmcp/internal/httplog"
)

const defaultClaudeModel = "claude-sonnet-4-20250514"

// ClaudeLikeProvider enhances prompts through the Anthropic Messages
// API, folding parsed conversation history into the message list ahead
// of the rendered prompt.
type ClaudeLikeProvider struct {
	client anthropic.Client
	model  string
}

// NewClaudeLikeProvider builds a provider against baseURL using token
// for auth. model defaults to defaultClaudeModel when empty. logger may
// be nil to leave every request unlogged.
func NewClaudeLikeProvider(baseURL, token, model string, logger *httplog.Logger) *ClaudeLikeProvider {
	if model == "" {
		model = defaultClaudeModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(token),
		option.WithHTTPClient(&http.Client{Transport: httplog.Transport(logger, nil)}),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &ClaudeLikeProvider{client: anthropic.NewClient(opts...), model: model}
}

func (p *ClaudeLikeProvider) Enhance(ctx context.Context, req Request) (string, error) {
	finalPrompt, err := BuildThirdPartyPrompt(req.OriginalPrompt)
	if err != nil {
		return "", err
	}

	history := ParseChatHistory(req.ConversationHistory)
	messages := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, m := range history {
		if m.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(finalPrompt)))

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 4096,
		Messages:  messages,
	})
	if err != nil {
		if authErr := claudeAuthError(err); authErr != nil {
			return "", authErr
		}
		return "", fmt.Errorf("claude API request failed: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("claude API returned empty response")
	}

	if inner, ok := ExtractEnhancedPrompt(text); ok {
		text = inner
	}
	return ReplaceToolNames(text), nil
}

func claudeAuthError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return nil
	}
	return mapAuthError(apiErr.StatusCode)
}
