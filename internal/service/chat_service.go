package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"nutrichat/backend/internal/models"
	"nutrichat/backend/pkg/logger"
	"nutrichat/backend/pkg/resilience"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

var (
	ErrEmptyMessage      = errors.New("message text must not be empty")
	ErrGenerationTimeout = errors.New("generation timed out")
	ErrGenerationFailed  = errors.New("generation failed")
)

// Generator produces a reply for a question given the rendered conversation
// history. Implemented by the RAG pipeline; faked in tests.
type Generator interface {
	Generate(ctx context.Context, question, history string) (string, error)
}

// ChatConfig tunes the orchestrator's generation call
type ChatConfig struct {
	// Timeout bounds one whole turn's generation, retries included
	Timeout time.Duration
	// MaxRetries is the number of additional generation attempts
	MaxRetries int
	// Backoff is the base delay between attempts, scaled linearly
	Backoff time.Duration
}

// DefaultChatConfig returns the default orchestrator tuning
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		Timeout:    30 * time.Second,
		MaxRetries: 2,
		Backoff:    500 * time.Millisecond,
	}
}

// ChatService orchestrates one conversational exchange: load history, call
// retrieval + generation, persist the turn transactionally.
type ChatService struct {
	db            *gorm.DB
	conversations *ConversationService
	generator     Generator
	breaker       *resilience.CircuitBreaker
	config        ChatConfig
	locks         keyedMutex
	log           *logger.Logger
	turnsCounter  metric.Int64Counter
}

// NewChatService creates the chat turn orchestrator
func NewChatService(
	db *gorm.DB,
	conversations *ConversationService,
	generator Generator,
	breaker *resilience.CircuitBreaker,
	config ChatConfig,
	log *logger.Logger,
) *ChatService {
	meter := otel.Meter("nutrichat/backend/internal/service")
	turns, _ := meter.Int64Counter("chat_turns_total",
		metric.WithDescription("Completed chat turns by outcome"))

	return &ChatService{
		db:            db,
		conversations: conversations,
		generator:     generator,
		breaker:       breaker,
		config:        config,
		log:           log,
		turnsCounter:  turns,
	}
}

// HandleTurn runs one chat turn for a user's conversation and returns the
// generated reply. The conversation must already exist; it is never created
// here. On any failure nothing is persisted.
func (s *ChatService) HandleTurn(ctx context.Context, userID uint, title, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}

	conversation, err := s.conversations.Find(userID, title)
	if err != nil {
		return "", err
	}

	// Turns on the same conversation are serialized so interleaved requests
	// cannot corrupt the history ordering
	unlock := s.locks.lock(conversation.ID)
	defer unlock()

	messages, err := s.conversations.Messages(conversation.ID)
	if err != nil {
		return "", err
	}
	history := RenderHistory(messages)

	reply, err := s.generate(ctx, text, history)
	if err != nil {
		s.recordTurn(ctx, "error")
		return "", err
	}

	now := time.Now()
	userMessage := models.Message{
		ConversationID: conversation.ID,
		SenderID:       &userID,
		Role:           models.RoleUser,
		Content:        text,
		SentAt:         now,
	}
	assistantMessage := models.Message{
		ConversationID: conversation.ID,
		Role:           models.RoleAssistant,
		Content:        reply,
		SentAt:         time.Now(),
	}

	// Both halves of the turn commit together or not at all
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&userMessage).Error; err != nil {
			return err
		}
		return tx.Create(&assistantMessage).Error
	})
	if err != nil {
		s.recordTurn(ctx, "error")
		return "", err
	}

	s.recordTurn(ctx, "ok")
	return reply, nil
}

// generate calls the Generator under the turn deadline, through the circuit
// breaker, with bounded linear-backoff retries for transient failures.
func (s *ChatService) generate(ctx context.Context, question, history string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	var reply string
	var lastErr error

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ErrGenerationTimeout
			case <-time.After(time.Duration(attempt) * s.config.Backoff):
			}
		}

		lastErr = s.breaker.Execute(func() error {
			var genErr error
			reply, genErr = s.generator.Generate(ctx, question, history)
			return genErr
		})
		if lastErr == nil {
			return reply, nil
		}

		if errors.Is(lastErr, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", ErrGenerationTimeout
		}
		if errors.Is(lastErr, resilience.ErrCircuitOpen) {
			break
		}

		s.log.Warn("generation attempt failed",
			"attempt", attempt+1,
			"error", lastErr.Error(),
		)
	}

	return "", errors.Join(ErrGenerationFailed, lastErr)
}

func (s *ChatService) recordTurn(ctx context.Context, outcome string) {
	if s.turnsCounter != nil {
		s.turnsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// RenderHistory renders stored messages as alternating "User:" / "LLM:"
// lines for the prompt. The stored role decides the label; rows without a
// role (imported data) fall back to positional parity.
func RenderHistory(messages []models.Message) string {
	var b strings.Builder
	for i, message := range messages {
		label := "User"
		switch message.Role {
		case models.RoleAssistant:
			label = "LLM"
		case models.RoleUser:
			label = "User"
		default:
			if i%2 == 1 {
				label = "LLM"
			}
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(message.Content)
	}
	return b.String()
}

// keyedMutex serializes work per conversation ID
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func (k *keyedMutex) lock(key uint) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[uint]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
