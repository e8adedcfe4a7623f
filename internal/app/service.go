// Package app wires every component package into the two tool
// operations spec.md §6 exposes: search_context and enhance_prompt. It
// owns the one shared retrieval client, enhancer provider, and
// interaction server, and lazily builds a walk/chunk/index/upload
// pipeline per distinct project root the first time a tool call names
// it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"

	"github.com/ctxmcp/ctxmcp/internal/chunker"
	"github.com/ctxmcp/ctxmcp/internal/config"
	"github.com/ctxmcp/ctxmcp/internal/enhancer"
	"github.com/ctxmcp/ctxmcp/internal/httplog"
	"github.com/ctxmcp/ctxmcp/internal/ignore"
	"github.com/ctxmcp/ctxmcp/internal/index"
	"github.com/ctxmcp/ctxmcp/internal/indexer"
	"github.com/ctxmcp/ctxmcp/internal/interaction"
	"github.com/ctxmcp/ctxmcp/internal/pathloc"
	"github.com/ctxmcp/ctxmcp/internal/retrieval"
	"github.com/ctxmcp/ctxmcp/internal/strategy"
	"github.com/ctxmcp/ctxmcp/internal/telemetry"
	"github.com/ctxmcp/ctxmcp/internal/uploader"
	"github.com/ctxmcp/ctxmcp/internal/walker"
	"github.com/ctxmcp/ctxmcp/pkg/types"
)

// ErrEnhancementCancelled is returned when the user ends the review
// conversation instead of submitting a prompt.
var ErrEnhancementCancelled = errors.New("user cancelled the prompt enhancement")

// project bundles the per-root pipeline lazily built on first use.
type project struct {
	loc       *pathloc.Locator
	ix        *indexer.Indexer
	stopWatch func()
}

// Service implements dispatcher.SearchContextFunc and
// dispatcher.EnhancePromptFunc against the rest of the component tree.
type Service struct {
	cfg      *config.Config
	log      zerolog.Logger
	retrieve *retrieval.Client
	provider enhancer.Provider
	metrics  *telemetry.Registry
	reqLog   *httplog.Logger

	sessions *interaction.Store
	ui       *interaction.Server
	uiMu     sync.Mutex
	uiCtx    context.Context
	uiCancel context.CancelFunc
	uiDone   chan struct{}

	mu       sync.Mutex
	projects map[string]*project
}

// New builds a Service. provider may be nil when enhance_prompt is
// disabled; metrics may be nil to omit the /metrics route from the
// interaction server entirely; reqLog may be nil to leave every outbound
// HTTP request unlogged.
func New(cfg *config.Config, provider enhancer.Provider, metrics *telemetry.Registry, reqLog *httplog.Logger, log zerolog.Logger) *Service {
	s := &Service{
		cfg:      cfg,
		log:      log,
		retrieve: retrieval.New(cfg.BaseURL, cfg.Token, time.Duration(cfg.RetrievalTimeoutMs)*time.Millisecond, reqLog),
		provider: provider,
		metrics:  metrics,
		reqLog:   reqLog,
		sessions: interaction.NewStore(0),
		projects: make(map[string]*project),
	}

	var metricsHandler http.Handler
	if metrics != nil {
		metricsHandler = metrics.Handler()
	}
	s.ui = interaction.New(s.sessions, s.reEnhance, nil, metricsHandler, log)
	return s
}

// reEnhance backs the interaction server's re-enhance API: it re-runs
// the configured provider against a possibly-edited prompt.
func (s *Service) reEnhance(ctx context.Context, currentPrompt, history string, chunkNames []string) (string, error) {
	if s.provider == nil {
		return "", errors.New("enhance_prompt is not configured")
	}
	return s.provider.Enhance(ctx, enhancer.Request{
		OriginalPrompt:      currentPrompt,
		ConversationHistory: history,
		ChunkNames:          chunkNames,
	})
}

// projectFor returns the cached pipeline for root, building one the
// first time root is seen.
func (s *Service) projectFor(root string) (*project, error) {
	loc, err := pathloc.Resolve(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[loc.Root]; ok {
		return p, nil
	}

	classifier := walker.DefaultClassifier()
	matcher, err := ignore.New(loc.Root, ".gitignore", config.DefaultExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("load ignore rules: %w", err)
	}
	workers := index.NumCPUWorkers()
	w := walker.New(loc, classifier, matcher, types.MaxChunkBytes, workers, s.log)
	ck := chunker.New(s.cfg.MaxLinesPerChunk)
	store := index.NewStore(loc.IndexFilePath(), 0, s.log)
	var overrides strategy.Overrides
	if s.cfg.ConcurrencyOverride > 0 {
		c := s.cfg.ConcurrencyOverride
		overrides.Concurrency = &c
	}
	if s.cfg.TimeoutMsOverride > 0 {
		ms := s.cfg.TimeoutMsOverride
		overrides.TimeoutMs = &ms
	}
	strat := strategy.New(0, overrides, !s.cfg.DisableAdaptive, s.log)
	up := uploader.New(uploader.NewHTTPClient(s.cfg.BaseURL, s.cfg.Token, s.reqLog), strat, s.log)
	fprint := index.ConfigFingerprint(s.cfg.MaxLinesPerChunk)

	p := &project{
		loc: loc,
		ix:  indexer.New(loc, w, ck, store, up, strat, fprint, workers, s.log),
	}

	if s.cfg.WatchMode {
		if stop, err := w.Watch(); err != nil {
			s.log.Warn().Err(err).Str("project", loc.Root).Msg("could not start background watch")
		} else {
			p.stopWatch = stop
		}
	}

	s.projects[loc.Root] = p
	return p, nil
}

// SearchContext runs one indexing pass for projectRootPath, then submits
// the project's full current chunk-name set alongside query.
func (s *Service) SearchContext(ctx context.Context, projectRootPath, query string) (string, error) {
	p, err := s.projectFor(projectRootPath)
	if err != nil {
		return "", err
	}

	var chunkNames []string
	result, err := p.ix.Run(ctx)
	switch {
	case errors.Is(err, indexer.ErrIndexingInProgress):
		s.log.Info().Str("project", p.loc.Root).Msg("indexing already in progress, searching against the last saved index")
		idx := p.ix.LoadIndex()
		for _, entry := range idx.Entries {
			chunkNames = append(chunkNames, entry.ChunkNames...)
		}
	case err != nil:
		return "", fmt.Errorf("index project: %w", err)
	default:
		if result.Err != nil {
			s.log.Warn().Err(result.Err).Str("project", p.loc.Root).Msg("indexing pass was only partially successful")
		}
		chunkNames = result.ChunkNames
	}

	return s.retrieve.Search(ctx, p.loc.Root, query, chunkNames)
}

// EnhancePrompt resolves the project's current chunk-name set (from the
// last saved index, never triggering a fresh walk), asks the configured
// provider for an initial enhancement, and — unless browser review is
// disabled — hands the result to a human via the interaction server
// before returning. A user-ended review converts to
// ErrEnhancementCancelled at this boundary rather than surfacing the
// raw sentinel as a successful result.
func (s *Service) EnhancePrompt(ctx context.Context, projectRootPath, prompt, conversationHistory string) (string, error) {
	if s.provider == nil {
		return "", errors.New("enhance_prompt is not configured")
	}

	chunkNames, err := s.chunkNamesFor(projectRootPath)
	if err != nil {
		return "", err
	}

	enhanced, err := s.provider.Enhance(ctx, enhancer.Request{
		OriginalPrompt:      prompt,
		ConversationHistory: conversationHistory,
		ChunkNames:          chunkNames,
	})
	if err != nil {
		return "", err
	}

	if s.cfg.DisableBrowser {
		return enhanced, nil
	}

	return s.reviewInBrowser(enhanced, prompt, conversationHistory, chunkNames)
}

// chunkNamesFor loads the last saved index for root without triggering
// a walk or upload; an empty or missing root yields no chunk names.
func (s *Service) chunkNamesFor(root string) ([]string, error) {
	if root == "" {
		return nil, nil
	}
	p, err := s.projectFor(root)
	if err != nil {
		return nil, err
	}
	idx := p.ix.LoadIndex()
	names := make([]string, 0, len(idx.Entries))
	for _, entry := range idx.Entries {
		names = append(names, entry.ChunkNames...)
	}
	return names, nil
}

// reviewInBrowser starts the interaction server on first use, opens the
// review UI, and blocks for the user's decision.
func (s *Service) reviewInBrowser(enhanced, original, history string, chunkNames []string) (string, error) {
	if err := s.ensureUIServerStarted(); err != nil {
		s.log.Warn().Err(err).Msg("interaction server unavailable, returning the enhancement without review")
		return enhanced, nil
	}

	id, ch := s.sessions.CreateSession(enhanced, original, history, chunkNames)
	url := fmt.Sprintf("http://%s/enhance?id=%s", s.ui.Addr(), id)

	s.log.Info().Str("url", url).Msg("opening browser for prompt review")
	if err := browser.OpenURL(url); err != nil {
		s.log.Warn().Err(err).Str("url", url).Msg("could not auto-open a browser; open the URL manually")
	}

	result, err := s.sessions.Wait(id, ch)
	if err != nil {
		return "", err
	}
	return sentinelToCancelled(result)
}

// sentinelToCancelled converts a session's raw result into the tool
// boundary's contract: the end_conversation sentinel becomes a distinct
// error rather than a successful result the caller might mistake for an
// actual enhanced prompt.
func sentinelToCancelled(result string) (string, error) {
	if result == interaction.EndConversationSentinel {
		return "", ErrEnhancementCancelled
	}
	return result, nil
}

// ensureUIServerStarted binds and runs the interaction server exactly
// once, for the lifetime of the process: every enhance_prompt call that
// needs browser review shares the same server and session store.
func (s *Service) ensureUIServerStarted() error {
	s.uiMu.Lock()
	defer s.uiMu.Unlock()

	if s.uiDone != nil {
		return nil
	}
	if err := s.ui.Listen(); err != nil {
		return err
	}

	s.uiCtx, s.uiCancel = context.WithCancel(context.Background())
	s.uiDone = make(chan struct{})
	go func() {
		defer close(s.uiDone)
		if err := s.ui.Serve(s.uiCtx); err != nil {
			s.log.Error().Err(err).Msg("interaction server stopped")
		}
	}()
	return nil
}

// Close shuts down the interaction server (if it was ever started) and
// every project's background watcher (if watch mode is enabled).
func (s *Service) Close() {
	s.mu.Lock()
	for _, p := range s.projects {
		if p.stopWatch != nil {
			p.stopWatch()
		}
	}
	s.mu.Unlock()

	s.uiMu.Lock()
	defer s.uiMu.Unlock()
	if s.uiCancel == nil {
		return
	}
	s.uiCancel()
	<-s.uiDone
}
