package models

import (
	"time"
)

// Conversation belongs to exactly one user. Titles are unique per user; a
// duplicate create attempt is rejected as a conflict.
type Conversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"uniqueIndex:idx_user_title" json:"title"`
	UserID    uint      `gorm:"uniqueIndex:idx_user_title;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Messages []Message `json:"-"`
}

// CreateConversationRequest is the request body for starting a conversation
type CreateConversationRequest struct {
	Title string `json:"title" binding:"required"`
}
