package interaction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateSession_ReceiverRegisteredBeforeVisible(t *testing.T) {
	store := NewStore(time.Minute)
	id, ch := store.CreateSession("enhanced", "original", "", nil)

	sess, ok := store.Get(id)
	require.True(t, ok)
	require.Equal(t, Pending, sess.Status)

	require.NoError(t, store.Submit(id, "edited", ""))
	result, err := store.Wait(id, ch)
	require.NoError(t, err)
	require.Equal(t, "edited", result)
}

func TestSubmit_UseOriginalAction(t *testing.T) {
	store := NewStore(time.Minute)
	id, ch := store.CreateSession("enhanced", "original prompt", "", nil)

	require.NoError(t, store.Submit(id, "ignored content", "use_original"))
	result, err := store.Wait(id, ch)
	require.NoError(t, err)
	require.Equal(t, "original prompt", result)
}

func TestSubmit_EndConversationAction(t *testing.T) {
	store := NewStore(time.Minute)
	id, ch := store.CreateSession("enhanced", "original", "", nil)

	require.NoError(t, store.Submit(id, "", "end_conversation"))
	result, err := store.Wait(id, ch)
	require.NoError(t, err)
	require.Equal(t, EndConversationSentinel, result)
}

func TestSubmit_LegacyMagicStrings(t *testing.T) {
	store := NewStore(time.Minute)
	id, ch := store.CreateSession("enhanced", "original prompt", "", nil)

	require.NoError(t, store.Submit(id, legacyUseOriginal, ""))
	result, err := store.Wait(id, ch)
	require.NoError(t, err)
	require.Equal(t, "original prompt", result)
}

func TestSubmit_UnknownSessionErrors(t *testing.T) {
	store := NewStore(time.Minute)
	err := store.Submit("nonexistent", "x", "")
	require.ErrorIs(t, err, errSessionNotFound)
}

func TestSubmit_AlreadyCompletedErrors(t *testing.T) {
	store := NewStore(time.Minute)
	id, _ := store.CreateSession("enhanced", "original", "", nil)
	require.NoError(t, store.Submit(id, "a", ""))
	require.ErrorIs(t, store.Submit(id, "b", ""), errSessionNotPending)
}

func TestWait_TimeoutMarksSessionAndCleansUp(t *testing.T) {
	store := NewStore(20 * time.Millisecond)
	id, ch := store.CreateSession("enhanced", "original", "", nil)

	_, err := store.Wait(id, ch)
	require.Error(t, err)

	_, ok := store.Get(id)
	require.False(t, ok)

	require.ErrorIs(t, store.Submit(id, "too late", ""), errSessionNotFound)
}

func TestReEnhance_InvokesCallbackAndUpdatesEnhancedPrompt(t *testing.T) {
	store := NewStore(time.Minute)
	id, ch := store.CreateSession("old enhanced", "original", "history", []string{"chunk1"})

	var gotPrompt, gotHistory string
	var gotChunks []string
	cb := func(_ context.Context, currentPrompt, history string, chunkNames []string) (string, error) {
		gotPrompt, gotHistory, gotChunks = currentPrompt, history, chunkNames
		return "refreshed enhanced", nil
	}

	enhanced, err := store.ReEnhance(t.Context(), id, "edited by user", cb)
	require.NoError(t, err)
	require.Equal(t, "refreshed enhanced", enhanced)
	require.Equal(t, "edited by user", gotPrompt)
	require.Equal(t, "history", gotHistory)
	require.Equal(t, []string{"chunk1"}, gotChunks)

	sess, ok := store.Get(id)
	require.True(t, ok)
	require.Equal(t, "refreshed enhanced", sess.EnhancedPrompt)
	require.Equal(t, Pending, sess.Status)

	require.NoError(t, store.Submit(id, "final", ""))
	result, err := store.Wait(id, ch)
	require.NoError(t, err)
	require.Equal(t, "final", result)
}

func TestReEnhance_CompletedSessionErrors(t *testing.T) {
	store := NewStore(time.Minute)
	id, _ := store.CreateSession("enhanced", "original", "", nil)
	require.NoError(t, store.Submit(id, "a", ""))

	_, err := store.ReEnhance(t.Context(), id, "x", func(context.Context, string, string, []string) (string, error) {
		t.Fatal("callback should not be invoked for a completed session")
		return "", nil
	})
	require.ErrorIs(t, err, errSessionNotPending)
}
