package enhancer

import "context"

// Request bundles everything a provider needs to produce an enhanced
// prompt: the caller's text, prior conversation, and (for the Streamed
// shape) the project's current chunk-name set.
type Request struct {
	OriginalPrompt      string
	ConversationHistory string
	ChunkNames          []string
}

// Provider is the one interface behind every enhancer shape: Augment's
// Simplified and Streamed endpoints, and the Claude/OpenAI/Gemini
// third-party variants.
type Provider interface {
	Enhance(ctx context.Context, req Request) (string, error)
}

// mapAuthError turns a provider's 401/403 into the two user-visible
// messages spec.md §4.9 requires, regardless of which backend produced
// them.
func mapAuthError(statusCode int) error {
	switch statusCode {
	case 401:
		return errTokenInvalid
	case 403:
		return errAccessDenied
	default:
		return nil
	}
}

var (
	errTokenInvalid = providerError("token invalid or expired")
	errAccessDenied = providerError("access denied")
)

type providerError string

func (e providerError) Error() string { return string(e) }
