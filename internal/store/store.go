package store

import (
	"context"
	"time"
)

// Message represents a persisted chat message.
type Message struct {
	ID        string    `json:"_id,omitempty" bson:"-"`
	ChatID    string    `json:"chatId" bson:"chatId"`
	Sender    string    `json:"sender" bson:"sender"`
	Text      string    `json:"text" bson:"text"`
	Time      string    `json:"time" bson:"time"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// MessageStore handles message persistence for chat rooms.
type MessageStore interface {
	// SaveMessage persists a message. It sets msg.ID and, when zero, msg.CreatedAt.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages returns every message of a room ordered by creation time ascending.
	// A room without messages yields an empty, non-nil slice.
	ListMessages(ctx context.Context, chatID string) ([]Message, error)

	// ClearRoom removes all messages of a room. Clearing an empty room is not an error.
	ClearRoom(ctx context.Context, chatID string) error
}

// Store is a message store bound to an underlying connection.
type Store interface {
	MessageStore

	// Close releases the underlying connection.
	Close() error
}
