package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nutrichat/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator is a scriptable Generator: fail the first failUntil calls,
// optionally sleep, and record what it was asked.
type fakeGenerator struct {
	mu          sync.Mutex
	reply       string
	err         error
	failUntil   int
	delay       time.Duration
	calls       int
	lastHistory string
}

func (f *fakeGenerator) Generate(ctx context.Context, question, history string) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.lastHistory = history
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return "", f.err
	}
	if call <= f.failUntil {
		return "", errors.New("transient upstream failure")
	}
	return f.reply, nil
}

func newChatFixture(t *testing.T, gen Generator, cfg ChatConfig) (*ChatService, *ConversationService) {
	t.Helper()
	db := newTestDB(t)
	conversations := NewConversationService(db, nil, 0)
	chat := NewChatService(db, conversations, gen, newTestBreaker(), cfg, newTestLogger())
	return chat, conversations
}

func fastChatConfig() ChatConfig {
	return ChatConfig{Timeout: time.Second, MaxRetries: 2, Backoff: time.Millisecond}
}

func TestHandleTurnPersistsBothMessages(t *testing.T) {
	gen := &fakeGenerator{reply: "eat more fiber"}
	chat, conversations := newChatFixture(t, gen, fastChatConfig())
	ctx := context.Background()

	conversation, err := conversations.Create(ctx, 1, "diet-plan")
	require.NoError(t, err)

	start := time.Now()
	reply, err := chat.HandleTurn(ctx, 1, "diet-plan", "what should I eat?")
	require.NoError(t, err)
	assert.Equal(t, "eat more fiber", reply)

	messages, err := conversations.Messages(conversation.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, "what should I eat?", messages[0].Content)
	require.NotNil(t, messages[0].SenderID)
	assert.Equal(t, uint(1), *messages[0].SenderID)

	assert.Equal(t, models.RoleAssistant, messages[1].Role)
	assert.Equal(t, "eat more fiber", messages[1].Content)
	assert.Nil(t, messages[1].SenderID)

	assert.False(t, messages[0].SentAt.Before(start.Add(-time.Second)))
	assert.False(t, messages[1].SentAt.Before(messages[0].SentAt))
}

func TestHandleTurnEmptyMessage(t *testing.T) {
	gen := &fakeGenerator{reply: "unused"}
	chat, conversations := newChatFixture(t, gen, fastChatConfig())
	ctx := context.Background()

	_, err := conversations.Create(ctx, 1, "diet-plan")
	require.NoError(t, err)

	_, err = chat.HandleTurn(ctx, 1, "diet-plan", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, 0, gen.calls)
}

func TestHandleTurnUnknownConversation(t *testing.T) {
	gen := &fakeGenerator{reply: "unused"}
	chat, conversations := newChatFixture(t, gen, fastChatConfig())
	ctx := context.Background()

	_, err := chat.HandleTurn(ctx, 1, "missing", "hello")
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.Equal(t, 0, gen.calls)

	// Owned by another user looks the same as missing
	_, err = conversations.Create(ctx, 2, "diet-plan")
	require.NoError(t, err)
	_, err = chat.HandleTurn(ctx, 1, "diet-plan", "hello")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestHandleTurnTimeoutWritesNothing(t *testing.T) {
	gen := &fakeGenerator{reply: "too late", delay: 200 * time.Millisecond}
	cfg := ChatConfig{Timeout: 20 * time.Millisecond, MaxRetries: 2, Backoff: time.Millisecond}
	chat, conversations := newChatFixture(t, gen, cfg)
	ctx := context.Background()

	conversation, err := conversations.Create(ctx, 1, "diet-plan")
	require.NoError(t, err)

	_, err = chat.HandleTurn(ctx, 1, "diet-plan", "hello")
	assert.ErrorIs(t, err, ErrGenerationTimeout)

	messages, err := conversations.Messages(conversation.ID)
	require.NoError(t, err)
	assert.Empty(t, messages, "a failed turn must not persist either message")
}

func TestHandleTurnRetriesTransientFailures(t *testing.T) {
	gen := &fakeGenerator{reply: "recovered", failUntil: 2}
	chat, conversations := newChatFixture(t, gen, fastChatConfig())
	ctx := context.Background()

	_, err := conversations.Create(ctx, 1, "diet-plan")
	require.NoError(t, err)

	reply, err := chat.HandleTurn(ctx, 1, "diet-plan", "hello")
	require.NoError(t, err)
	assert.Equal(t, "recovered", reply)
	assert.Equal(t, 3, gen.calls)
}

func TestHandleTurnExhaustedRetries(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	chat, conversations := newChatFixture(t, gen, fastChatConfig())
	ctx := context.Background()

	conversation, err := conversations.Create(ctx, 1, "diet-plan")
	require.NoError(t, err)

	_, err = chat.HandleTurn(ctx, 1, "diet-plan", "hello")
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, 3, gen.calls, "one initial attempt plus MaxRetries")

	messages, err := conversations.Messages(conversation.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestHandleTurnFeedsHistoryToGenerator(t *testing.T) {
	gen := &fakeGenerator{reply: "second answer"}
	chat, conversations := newChatFixture(t, gen, fastChatConfig())
	ctx := context.Background()

	_, err := conversations.Create(ctx, 1, "diet-plan")
	require.NoError(t, err)

	_, err = chat.HandleTurn(ctx, 1, "diet-plan", "first question")
	require.NoError(t, err)
	assert.Empty(t, gen.lastHistory, "first turn starts from an empty history")

	_, err = chat.HandleTurn(ctx, 1, "diet-plan", "second question")
	require.NoError(t, err)
	assert.Contains(t, gen.lastHistory, "User: first question")
	assert.Contains(t, gen.lastHistory, "LLM: ")
}

func TestRenderHistory(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
		{Role: models.RoleUser, Content: "bye"},
	}
	assert.Equal(t, "User: hi\nLLM: hello\nUser: bye", RenderHistory(messages))
}

func TestRenderHistoryRolelessFallback(t *testing.T) {
	// Imported rows without a role alternate by position
	messages := []models.Message{
		{Content: "hi"},
		{Content: "hello"},
		{Content: "bye"},
	}
	assert.Equal(t, "User: hi\nLLM: hello\nUser: bye", RenderHistory(messages))
}
