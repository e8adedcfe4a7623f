package enhancer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ctxmcp/ctxmcp/internal/httplog"
)

// Endpoint selects which backend shape handles enhancement.
type Endpoint int

const (
	// EndpointNew is Augment's Simplified /prompt-enhancer shape (default).
	EndpointNew Endpoint = iota
	// EndpointOld is Augment's Streamed /chat-stream shape.
	EndpointOld
	EndpointClaude
	EndpointOpenAI
	EndpointGemini
)

func (e Endpoint) String() string {
	switch e {
	case EndpointOld:
		return "old"
	case EndpointClaude:
		return "claude"
	case EndpointOpenAI:
		return "openai"
	case EndpointGemini:
		return "gemini"
	default:
		return "new"
	}
}

// IsThirdParty reports whether e is one of the non-Augment providers.
func (e Endpoint) IsThirdParty() bool {
	return e == EndpointClaude || e == EndpointOpenAI || e == EndpointGemini
}

// ParseEndpoint maps an operator-supplied selector string to an
// Endpoint, defaulting to EndpointNew for anything unrecognized.
func ParseEndpoint(s string) Endpoint {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "old":
		return EndpointOld
	case "claude":
		return EndpointClaude
	case "openai":
		return EndpointOpenAI
	case "gemini":
		return EndpointGemini
	default:
		return EndpointNew
	}
}

// ThirdPartyConfig resolves the base URL, token, and model for a
// third-party endpoint from operator configuration, applying per-provider
// default models.
type ThirdPartyConfig struct {
	BaseURL string
	Token   string
	Model   string
}

func defaultModelFor(e Endpoint) string {
	switch e {
	case EndpointClaude:
		return defaultClaudeModel
	case EndpointOpenAI:
		return defaultOpenAIModel
	case EndpointGemini:
		return defaultGeminiModel
	default:
		return augmentDefaultModel
	}
}

// ResolveThirdPartyConfig validates that baseURL and token are present
// (required for every third-party endpoint) and fills in a default model
// when model is empty.
func ResolveThirdPartyConfig(e Endpoint, baseURL, token, model string) (ThirdPartyConfig, error) {
	baseURL = strings.TrimSpace(baseURL)
	token = strings.TrimSpace(token)
	if baseURL == "" {
		return ThirdPartyConfig{}, fmt.Errorf("enhancer base URL is required for the %q endpoint", e)
	}
	if token == "" {
		return ThirdPartyConfig{}, fmt.Errorf("enhancer token is required for the %q endpoint", e)
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultModelFor(e)
	}

	return ThirdPartyConfig{BaseURL: baseURL, Token: token, Model: model}, nil
}

// BuildProvider constructs the Provider for e. augmentBaseURL/Token back
// the Augment-shaped endpoints (new/old); tpCfg backs the third-party
// ones, already resolved via ResolveThirdPartyConfig. logger may be nil
// to leave every request unlogged.
func BuildProvider(ctx context.Context, e Endpoint, augmentBaseURL, augmentToken string, tpCfg ThirdPartyConfig, logger *httplog.Logger) (Provider, error) {
	switch e {
	case EndpointOld:
		return NewAugmentProvider(augmentBaseURL, augmentToken, true, logger), nil
	case EndpointClaude:
		return NewClaudeLikeProvider(tpCfg.BaseURL, tpCfg.Token, tpCfg.Model, logger), nil
	case EndpointOpenAI:
		return NewOpenAILikeProvider(tpCfg.BaseURL, tpCfg.Token, tpCfg.Model, logger), nil
	case EndpointGemini:
		return NewGeminiLikeProvider(ctx, tpCfg.Token, tpCfg.Model, logger)
	default:
		return NewAugmentProvider(augmentBaseURL, augmentToken, false, logger), nil
	}
}
