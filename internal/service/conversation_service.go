package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nutrichat/backend/internal/models"
	"nutrichat/backend/pkg/cache"

	"gorm.io/gorm"
)

var (
	ErrConversationExists   = errors.New("conversation with this title already exists")
	ErrConversationNotFound = errors.New("conversation does not exist")
)

// ConversationService persists conversations and their messages
type ConversationService struct {
	db       *gorm.DB
	cache    cache.Store
	cacheTTL time.Duration
}

// NewConversationService creates a new conversation service. The cache may
// be nil, in which case title listings always hit the database.
func NewConversationService(db *gorm.DB, store cache.Store, cacheTTL time.Duration) *ConversationService {
	return &ConversationService{db: db, cache: store, cacheTTL: cacheTTL}
}

// Create starts a new conversation for a user. Titles are unique per user.
func (s *ConversationService) Create(ctx context.Context, userID uint, title string) (*models.Conversation, error) {
	var existing models.Conversation
	result := s.db.Where("user_id = ? AND title = ?", userID, title).First(&existing)
	if result.RowsAffected > 0 {
		return nil, ErrConversationExists
	}

	conversation := models.Conversation{
		Title:  title,
		UserID: userID,
	}

	if err := s.db.Create(&conversation).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConversationExists
		}
		return nil, err
	}

	if s.cache != nil {
		s.cache.Delete(ctx, titlesCacheKey(userID))
	}

	return &conversation, nil
}

// Find resolves a conversation by owner and title
func (s *ConversationService) Find(userID uint, title string) (*models.Conversation, error) {
	var conversation models.Conversation
	result := s.db.Where("user_id = ? AND title = ?", userID, title).First(&conversation)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, result.Error
	}
	return &conversation, nil
}

// ListTitles returns the titles of all conversations owned by a user
func (s *ConversationService) ListTitles(ctx context.Context, userID uint) ([]string, error) {
	key := titlesCacheKey(userID)

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			var titles []string
			if err := json.Unmarshal([]byte(cached), &titles); err == nil {
				return titles, nil
			}
		}
	}

	var titles []string
	err := s.db.Model(&models.Conversation{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("title", &titles).Error
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(titles); err == nil {
			s.cache.Set(ctx, key, string(data), s.cacheTTL)
		}
	}

	return titles, nil
}

// Messages returns all messages of a conversation in history order
func (s *ConversationService) Messages(conversationID uint) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("sent_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// AppendMessage records a single message row
func (s *ConversationService) AppendMessage(message *models.Message) error {
	return s.db.Create(message).Error
}

func titlesCacheKey(userID uint) string {
	return fmt.Sprintf("conversations:%d", userID)
}
