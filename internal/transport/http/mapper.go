package http

import (
	"encoding/json"

	"github.com/vovakirdan/messenger-server/internal/core"
	"github.com/vovakirdan/messenger-server/internal/proto"
	"github.com/vovakirdan/messenger-server/internal/store"
)

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

// inboundToCommand validates an inbound frame and turns it into a hub command.
// Invalid frames yield a protocol error for the sender and no command.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoin, proto.InboundTypeClear:
		var room proto.RoomRef
		if err := json.Unmarshal(inbound.Data, &room); err != nil {
			return nil, badRequest("invalid room payload")
		}
		if err := room.Validate(); err != nil {
			return nil, badRequest(err.Error())
		}
		kind := core.CommandJoinRoom
		if inbound.Type == proto.InboundTypeClear {
			kind = core.CommandClearRoom
		}
		return &core.Command{Kind: kind, Room: string(room)}, nil
	case proto.InboundTypeSend:
		var msg proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, badRequest("invalid message payload")
		}
		if err := msg.Validate(); err != nil {
			return nil, badRequest(err.Error())
		}
		return &core.Command{
			Kind: core.CommandSendMessage,
			Room: msg.ChatID,
			Message: store.Message{
				ChatID: msg.ChatID,
				Sender: msg.Sender,
				Text:   msg.Text,
				Time:   msg.Time,
			},
		}, nil
	case proto.InboundTypeTyping:
		var typing proto.TypingData
		if err := json.Unmarshal(inbound.Data, &typing); err != nil {
			return nil, badRequest("invalid typing payload")
		}
		if typing.ChatID == "" {
			return nil, badRequest("chatId is required")
		}
		return &core.Command{
			Kind:    core.CommandTyping,
			Room:    typing.ChatID,
			Payload: append(json.RawMessage(nil), inbound.Data...),
		}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

func messageToProto(msg store.Message) proto.EventMessage {
	return proto.EventMessage{
		ID:        msg.ID,
		ChatID:    msg.ChatID,
		Sender:    msg.Sender,
		Text:      msg.Text,
		Time:      msg.Time,
		CreatedAt: msg.CreatedAt,
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventNewMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNewMessage,
			Data:  messageToProto(event.Message),
		}
	case core.EventUserTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserTyping,
			Data:  event.Payload,
		}
	case core.EventChatCleared:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventChatCleared,
			Data:  event.Room,
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
