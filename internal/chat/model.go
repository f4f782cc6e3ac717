// Package chat stores consumer-advisor conversations.
package chat

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("chat not found")
	ErrEmptyMessage = errors.New("message body is required")
	ErrTooLong      = errors.New("message is too long")
)

const maxBodyLength = 4000

// Chat is the single conversation between one consumer and one advisor.
type Chat struct {
	ID         string    `json:"id"`
	ConsumerID string    `json:"consumer_id"`
	AdvisorID  string    `json:"advisor_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasParticipant reports whether userID is on either side of the chat.
func (c Chat) HasParticipant(userID string) bool {
	return userID != "" && (c.ConsumerID == userID || c.AdvisorID == userID)
}

// Message is one chat line.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
