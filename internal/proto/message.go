package proto

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin   = "join_chat"
	InboundTypeSend   = "send_message"
	InboundTypeTyping = "typing"
	InboundTypeClear  = "clear_chat"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNewMessage  = "new_message"
	EventUserTyping  = "user_typing"
	EventChatCleared = "chat_cleared"
)

var errEmptyRoom = errors.New("chatId is required")

// RoomRef names a room. On the wire it is either a bare string or an object
// with a chatId field.
type RoomRef string

// UnmarshalJSON accepts "r1" and {"chatId":"r1"}.
func (r *RoomRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			ChatID string `json:"chatId"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*r = RoomRef(obj.ChatID)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = RoomRef(s)
	return nil
}

// Validate reports an empty room reference.
func (r RoomRef) Validate() error {
	if r == "" {
		return errEmptyRoom
	}
	return nil
}

// SendMessageData is a chat message from the client. Time is optional.
type SendMessageData struct {
	ChatID string `json:"chatId"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Time   string `json:"time,omitempty"`
}

// Validate checks the required fields.
func (d SendMessageData) Validate() error {
	switch {
	case d.ChatID == "":
		return errEmptyRoom
	case d.Sender == "":
		return errors.New("sender is required")
	case d.Text == "":
		return errors.New("text is required")
	}
	return nil
}

// TypingData is the only part of a typing payload the server reads; the full
// payload is relayed untouched.
type TypingData struct {
	ChatID string `json:"chatId"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventMessage is a stored message as delivered to subscribers.
type EventMessage struct {
	ID        string    `json:"_id"`
	ChatID    string    `json:"chatId"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Time      string    `json:"time"`
	CreatedAt time.Time `json:"createdAt"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
