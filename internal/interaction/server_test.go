package interaction

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cb EnhanceCallback) (*Server, *Store) {
	t.Helper()
	store := NewStore(time.Minute)
	s := New(store, cb, nil, nil, zerolog.Nop())
	return s, store
}

func TestHandleGetSession_MissingIDIsBadRequest(t *testing.T) {
	s, _ := newTestServer(t, nil)
	srv := httptest.NewServer(s.router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/session")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleGetSession_ReturnsSessionFields(t *testing.T) {
	s, store := newTestServer(t, nil)
	id, _ := store.CreateSession("enhanced text", "original text", "", nil)

	srv := httptest.NewServer(s.router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/session?id=" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "enhanced text", body["enhanced_prompt"])
	require.Equal(t, "pending", body["status"])
}

func TestHandleSubmit_ResolvesSessionAndReturnsOK(t *testing.T) {
	s, store := newTestServer(t, nil)
	id, ch := store.CreateSession("enhanced", "original", "", nil)

	srv := httptest.NewServer(s.router())
	defer srv.Close()

	payload, _ := json.Marshal(map[string]string{"id": id, "content": "edited"})
	resp, err := http.Post(srv.URL+"/api/submit", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case result := <-ch:
		require.Equal(t, "edited", result)
	case <-time.After(time.Second):
		t.Fatal("submit did not deliver a result")
	}
}

func TestHandleSubmit_UnknownSessionIs404(t *testing.T) {
	s, _ := newTestServer(t, nil)
	srv := httptest.NewServer(s.router())
	defer srv.Close()

	payload, _ := json.Marshal(map[string]string{"id": "nope", "content": "x"})
	resp, err := http.Post(srv.URL+"/api/submit", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleSubmit_OversizedBodyRejected(t *testing.T) {
	s, store := newTestServer(t, nil)
	id, _ := store.CreateSession("enhanced", "original", "", nil)

	srv := httptest.NewServer(s.router())
	defer srv.Close()

	huge := strings.Repeat("x", maxBodyBytes+1024)
	payload, _ := json.Marshal(map[string]string{"id": id, "content": huge})
	resp, err := http.Post(srv.URL+"/api/submit", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleReEnhance_ReturnsRefreshedPrompt(t *testing.T) {
	cb := func(_ context.Context, currentPrompt, _ string, _ []string) (string, error) {
		return "refreshed: " + currentPrompt, nil
	}
	s, store := newTestServer(t, cb)
	id, _ := store.CreateSession("enhanced", "original", "", nil)

	srv := httptest.NewServer(s.router())
	defer srv.Close()

	payload, _ := json.Marshal(map[string]string{"id": id, "current_prompt": "edited"})
	resp, err := http.Post(srv.URL+"/api/re-enhance", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "refreshed: edited", body["enhanced_prompt"])
}

func TestListen_BindsLoopbackAddress(t *testing.T) {
	s, _ := newTestServer(t, nil)
	require.NoError(t, s.Listen())
	require.Contains(t, s.Addr(), "127.0.0.1:")
}

func TestTopRouter_MetricsRouteOmittedByDefault(t *testing.T) {
	s, _ := newTestServer(t, nil)
	srv := httptest.NewServer(s.topRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTopRouter_MetricsRouteServedWhenConfigured(t *testing.T) {
	store := NewStore(time.Minute)
	s := New(store, nil, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# HELP fake\n"))
	}), zerolog.Nop())

	srv := httptest.NewServer(s.topRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
