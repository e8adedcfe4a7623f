// Package interaction implements the loopback Interaction Server +
// Session state machine of spec.md §4.10: a per-session result channel
// registered before the session becomes visible to any HTTP handler, an
// 8-minute deadline, and the use_original/end_conversation sentinels.
package interaction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is a session's lifecycle state.
type Status int

const (
	Pending Status = iota
	Completed
	Timeout
)

func (s Status) String() string {
	switch s {
	case Completed:
		return "completed"
	case Timeout:
		return "timeout"
	default:
		return "pending"
	}
}

// EndConversationSentinel propagates out of the tool call when the user
// chooses to end the conversation instead of submitting a prompt.
const EndConversationSentinel = "__END_CONVERSATION__"

// legacy magic strings, recognized alongside the action field for
// backward compatibility with older UI builds.
const (
	legacyUseOriginal     = "__USE_ORIGINAL__"
	legacyEndConversation = "__END_CONVERSATION__"
)

// DefaultTimeout is the session deadline: 8 minutes from creation.
const DefaultTimeout = 8 * time.Minute

// EnhanceCallback re-runs prompt enhancement for a re-enhance request,
// given the current prompt text, the conversation history, and the
// chunk names captured when the session was created.
type EnhanceCallback func(ctx context.Context, currentPrompt, history string, chunkNames []string) (string, error)

// Session is one pending (or just-resolved) interaction awaiting a user
// decision in the browser UI.
type Session struct {
	ID                  string
	EnhancedPrompt      string
	OriginalPrompt      string
	ConversationHistory string
	ChunkNames          []string
	Status              Status
	CreatedAtMonotonic  time.Time
	CreatedAtWallMs     int64
}

// Store owns every live session and its result channel, and serializes
// access with read-mostly locks: GETs take a read lock, every mutation
// takes a write lock.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	resultChans map[string]chan string
	timeout     time.Duration
}

// NewStore builds an empty Store with the given session deadline.
// timeout <= 0 uses DefaultTimeout.
func NewStore(timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{
		sessions:    make(map[string]*Session),
		resultChans: make(map[string]chan string),
		timeout:     timeout,
	}
}

// CreateSession allocates a session id and registers its result channel
// atomically with the write lock, so no /api/submit can observe the
// session before a waiter exists for it.
func (s *Store) CreateSession(enhanced, original, history string, chunkNames []string) (string, <-chan string) {
	id := uuid.NewString()
	now := time.Now()

	ch := make(chan string, 1)

	s.mu.Lock()
	s.resultChans[id] = ch
	s.sessions[id] = &Session{
		ID:                  id,
		EnhancedPrompt:      enhanced,
		OriginalPrompt:      original,
		ConversationHistory: history,
		ChunkNames:          chunkNames,
		Status:              Pending,
		CreatedAtMonotonic:  now,
		CreatedAtWallMs:     now.UnixMilli(),
	}
	s.mu.Unlock()

	return id, ch
}

// Get returns a snapshot of a session for reads (GET /api/session).
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// TimeoutMs reports the configured session deadline in milliseconds.
func (s *Store) TimeoutMs() int64 { return s.timeout.Milliseconds() }

var errSessionNotFound = fmt.Errorf("session not found")
var errSessionNotPending = fmt.Errorf("session already completed or timed out")

// Submit resolves a Pending session with content (or the sentinel chosen
// by action / a legacy magic string), marks it Completed, and delivers
// the result to the waiting receiver.
func (s *Store) Submit(id, content, action string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return errSessionNotFound
	}
	if sess.Status != Pending {
		s.mu.Unlock()
		return errSessionNotPending
	}

	result := resolveSubmission(content, action, sess.OriginalPrompt)
	sess.Status = Completed

	ch, hasChan := s.resultChans[id]
	delete(s.resultChans, id)
	s.mu.Unlock()

	if hasChan {
		ch <- result
	}
	return nil
}

func resolveSubmission(content, action, originalPrompt string) string {
	switch action {
	case "use_original":
		return originalPrompt
	case "end_conversation":
		return EndConversationSentinel
	}
	switch content {
	case legacyUseOriginal:
		return originalPrompt
	case legacyEndConversation:
		return legacyEndConversation
	default:
		return content
	}
}

// ReEnhance re-runs enhancement for a Pending session via callback and
// stores the refreshed text so subsequent GETs observe it; the session
// stays Pending.
func (s *Store) ReEnhance(ctx context.Context, id, currentPrompt string, callback EnhanceCallback) (string, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	var history string
	var chunkNames []string
	var status Status
	if ok {
		history = sess.ConversationHistory
		chunkNames = sess.ChunkNames
		status = sess.Status
	}
	s.mu.RUnlock()

	if !ok {
		return "", errSessionNotFound
	}
	if status != Pending {
		return "", errSessionNotPending
	}

	enhanced, err := callback(ctx, currentPrompt, history, chunkNames)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if sess, ok := s.sessions[id]; ok {
		sess.EnhancedPrompt = enhanced
	}
	s.mu.Unlock()

	return enhanced, nil
}

// Wait blocks on ch until it resolves or the session's deadline passes.
// On timeout it marks the session Timeout and removes both the session
// and its result channel so a late submit is a no-op.
func (s *Store) Wait(id string, ch <-chan string) (string, error) {
	select {
	case result := <-ch:
		s.mu.Lock()
		delete(s.sessions, id)
		delete(s.resultChans, id)
		s.mu.Unlock()
		return result, nil
	case <-time.After(s.timeout):
		s.mu.Lock()
		if sess, ok := s.sessions[id]; ok {
			sess.Status = Timeout
		}
		delete(s.sessions, id)
		delete(s.resultChans, id)
		s.mu.Unlock()
		return "", fmt.Errorf("user interaction timeout (%s)", s.timeout)
	}
}
