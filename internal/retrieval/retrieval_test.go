package retrieval

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearch_ReturnsFormattedTextVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "find the parser", req.Query)
		json.NewEncoder(w).Encode(searchResponse{FormattedText: "## result\nfoo.go:1"})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 0, nil)
	text, err := c.Search(t.Context(), "/proj", "find the parser", []string{"b", "a"})
	require.NoError(t, err)
	require.Equal(t, "## result\nfoo.go:1", text)
}

func TestSearch_EmptyTextYieldsPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchResponse{FormattedText: ""})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 0, nil)
	text, err := c.Search(t.Context(), "/proj", "q", nil)
	require.NoError(t, err)
	require.Equal(t, NoResultsText, text)
}

func TestSearch_NonOKStatusIsClassifiedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 0, nil)
	_, err := c.Search(t.Context(), "/proj", "q", nil)
	require.Error(t, err)
}
