package core

import (
	"encoding/json"

	"github.com/vovakirdan/messenger-server/internal/store"
)

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventNewMessage delivers a stored message to room subscribers.
	EventNewMessage EventKind = iota
	// EventUserTyping relays a typing indicator from another subscriber.
	EventUserTyping
	// EventChatCleared notifies subscribers that the room history was purged.
	EventChatCleared
	// EventError notifies a single client about a failed command.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Room    string
	Message store.Message   // EventNewMessage
	Payload json.RawMessage // EventUserTyping
	Error   *CoreError      // EventError
}
