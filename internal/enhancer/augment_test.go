package enhancer

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAugmentSimplified_SuccessReturnsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/prompt-enhancer", r.URL.Path)
		w.Write([]byte(`{"text":"use codebase-retrieval to search"}`))
	}))
	defer srv.Close()

	p := NewAugmentProvider(srv.URL, "tok", false, nil)
	text, err := p.Enhance(t.Context(), Request{OriginalPrompt: "find the bug"})
	require.NoError(t, err)
	require.Equal(t, "use search_context to search", text)
}

func TestAugmentSimplified_401MapsToTokenInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewAugmentProvider(srv.URL, "tok", false, nil)
	_, err := p.Enhance(t.Context(), Request{OriginalPrompt: "x"})
	require.ErrorIs(t, err, errTokenInvalid)
}

func TestAugmentStreamed_ConcatenatesNDJSONFragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat-stream", r.URL.Path)
		w.Write([]byte("data: {\"text\":\"<augment-enhanced-prompt>\"}\n{\"text\":\"hello world\"}\ndata: [DONE]\n{\"text\":\"</augment-enhanced-prompt>\"}\n"))
	}))
	defer srv.Close()

	p := NewAugmentProvider(srv.URL, "tok", true, nil)
	text, err := p.Enhance(t.Context(), Request{OriginalPrompt: "x", ChunkNames: []string{"b", "a"}})
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
}

func TestAugmentStreamed_403MapsToAccessDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewAugmentProvider(srv.URL, "tok", true, nil)
	_, err := p.Enhance(t.Context(), Request{OriginalPrompt: "x"})
	require.ErrorIs(t, err, errAccessDenied)
}
