package interaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds every request body read by this server; the spec's
// 1MiB cap is enforced by streaming (http.MaxBytesReader), not by
// buffering the whole body first.
const maxBodyBytes = 1 << 20

const (
	basePort     = 3000
	maxPortTries = 100
)

// Server is the loopback HTTP front end for human-in-the-loop prompt
// review: it serves the enhancement UI and exposes the session API the
// UI polls and posts to.
type Server struct {
	store          *Store
	log            zerolog.Logger
	callback       EnhanceCallback
	ui             []byte
	metricsHandler http.Handler

	httpServer *http.Server
	listener   net.Listener
	addr       string
}

// New builds a Server bound to no socket yet; call Listen to bind. A nil
// uiHTML falls back to the built-in review page. metricsHandler may be
// nil to omit GET /metrics entirely (the default).
func New(store *Store, callback EnhanceCallback, uiHTML []byte, metricsHandler http.Handler, log zerolog.Logger) *Server {
	if uiHTML == nil {
		uiHTML = []byte(enhancerUIHTML)
	}
	s := &Server{store: store, log: log, callback: callback, ui: uiHTML, metricsHandler: metricsHandler}
	s.httpServer = &http.Server{Handler: s.topRouter()}
	return s
}

// topRouter mounts the CORS-wrapped interactive routes and, when a
// metrics handler is configured, an unwrapped GET /metrics alongside
// them: the metrics route is same-origin scrape-only and emits no CORS
// headers, per spec.md §11.2.
func (s *Server) topRouter() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", s.router())
	if s.metricsHandler != nil {
		mux.Handle("/metrics", s.metricsHandler)
	}
	return mux
}

// Listen binds to 127.0.0.1, trying basePort, basePort+1, ... up to
// maxPortTries times before giving up, matching spec.md §4.10's
// port-increment rule for a busy default port.
func (s *Server) Listen() error {
	var lastErr error
	for i := 0; i < maxPortTries; i++ {
		port := basePort + i
		addr := fmt.Sprintf("127.0.0.1:%d", port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		s.listener = ln
		s.addr = addr
		return nil
	}
	return fmt.Errorf("interaction server: no free port in [%d, %d]: %w", basePort, basePort+maxPortTries-1, lastErr)
}

// Addr returns the bound loopback address (host:port). Valid after Listen.
func (s *Server) Addr() string { return s.addr }

// Serve blocks, accepting connections until ctx is cancelled or Shutdown
// is called.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.Serve(s.listener) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost", "http://localhost:*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/enhance", s.handleEnhanceUI)
	r.Get("/api/session", s.handleGetSession)
	r.Post("/api/submit", s.handleSubmit)
	r.Post("/api/re-enhance", s.handleReEnhance)

	return r
}

func (s *Server) handleEnhanceUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.ui)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "missing id")
		return
	}
	sess, ok := s.store.Get(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":                   sess.ID,
		"enhanced_prompt":      sess.EnhancedPrompt,
		"original_prompt":      sess.OriginalPrompt,
		"conversation_history": sess.ConversationHistory,
		"status":               sess.Status.String(),
		"timeout_ms":           s.store.TimeoutMs(),
	})
}

type submitRequest struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Action  string `json:"action"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, bodyErrorMessage(err))
		return
	}
	if req.ID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing id")
		return
	}

	if err := s.store.Submit(req.ID, req.Content, req.Action); err != nil {
		if errors.Is(err, errSessionNotFound) {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type reEnhanceRequest struct {
	ID            string `json:"id"`
	CurrentPrompt string `json:"current_prompt"`
}

func (s *Server) handleReEnhance(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req reEnhanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, bodyErrorMessage(err))
		return
	}
	if req.ID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing id")
		return
	}
	if s.callback == nil {
		writeJSONError(w, http.StatusInternalServerError, "re-enhancement is not configured")
		return
	}

	enhanced, err := s.store.ReEnhance(r.Context(), req.ID, req.CurrentPrompt, s.callback)
	if err != nil {
		if errors.Is(err, errSessionNotFound) {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		s.log.Warn().Err(err).Str("session_id", req.ID).Msg("re-enhance failed")
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"enhanced_prompt": enhanced})
}

func bodyErrorMessage(err error) string {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return "request body too large"
	}
	return "malformed request body"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
