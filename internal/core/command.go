package core

import (
	"encoding/json"

	"github.com/vovakirdan/messenger-server/internal/store"
)

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom subscribes the client to a room.
	CommandJoinRoom CommandKind = iota
	// CommandSendMessage persists a message and fans it out to the room.
	CommandSendMessage
	// CommandTyping relays a typing indicator to the other room subscribers.
	CommandTyping
	// CommandClearRoom purges the room history and notifies subscribers.
	CommandClearRoom
)

func (k CommandKind) String() string {
	switch k {
	case CommandJoinRoom:
		return "join_room"
	case CommandSendMessage:
		return "send_message"
	case CommandTyping:
		return "typing"
	case CommandClearRoom:
		return "clear_room"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind    CommandKind
	Room    string
	Message store.Message   // CommandSendMessage
	Payload json.RawMessage // CommandTyping, relayed verbatim
}
