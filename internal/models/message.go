package models

import (
	"time"
)

// Message roles. The role is stored explicitly rather than inferred from the
// message's position in the conversation, so a partially failed or retried
// turn can never mislabel the rendered history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn half in a conversation. Append-only: created once,
// never mutated or deleted. Ordered by SentAt within a conversation.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"index" json:"conversation_id"`
	SenderID       *uint     `json:"sender_id,omitempty"` // set for user turns only
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	SentAt         time.Time `gorm:"index" json:"sent_at"`
	CreatedAt      time.Time `json:"created_at"`
}
