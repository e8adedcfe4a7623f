package enhancer

import (
	"context"
	"errors"
	"fmt"

	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ctxmcp/ctxmcp/internal/httplog"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAILikeProvider enhances prompts through an OpenAI-compatible Chat
// Completions API (the operator's own base URL/token, not necessarily
// OpenAI itself).
type OpenAILikeProvider struct {
	client openai.Client
	model  string
}

// NewOpenAILikeProvider builds a provider against baseURL using token
// for auth. model defaults to defaultOpenAIModel when empty. logger may
// be nil to leave every request unlogged.
func NewOpenAILikeProvider(baseURL, token, model string, logger *httplog.Logger) *OpenAILikeProvider {
	if model == "" {
		model = defaultOpenAIModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(token),
		option.WithHTTPClient(&http.Client{Transport: httplog.Transport(logger, nil)}),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAILikeProvider{client: openai.NewClient(opts...), model: model}
}

func (p *OpenAILikeProvider) Enhance(ctx context.Context, req Request) (string, error) {
	finalPrompt, err := BuildThirdPartyPrompt(req.OriginalPrompt)
	if err != nil {
		return "", err
	}

	history := ParseChatHistory(req.ConversationHistory)
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	for _, m := range history {
		if m.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(finalPrompt))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    p.model,
		Messages: messages,
	})
	if err != nil {
		if authErr := openaiAuthError(err); authErr != nil {
			return "", authErr
		}
		return "", fmt.Errorf("openai API request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai API returned empty response")
	}
	text := resp.Choices[0].Message.Content
	if text == "" {
		return "", fmt.Errorf("openai API returned empty response")
	}

	if inner, ok := ExtractEnhancedPrompt(text); ok {
		text = inner
	}
	return ReplaceToolNames(text), nil
}

func openaiAuthError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return nil
	}
	return mapAuthError(apiErr.StatusCode)
}
