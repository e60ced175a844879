package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/messenger-server/internal/core"
	"github.com/vovakirdan/messenger-server/internal/proto"
	"github.com/vovakirdan/messenger-server/internal/store"
)

// MessageHandlers provides HTTP handlers for message history endpoints.
type MessageHandlers struct {
	hub            *core.Hub
	store          store.MessageStore
	log            *zerolog.Logger
	storageTimeout time.Duration
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(hub *core.Hub, st store.MessageStore, logger *zerolog.Logger, storageTimeout time.Duration) *MessageHandlers {
	if storageTimeout <= 0 {
		storageTimeout = 5 * time.Second
	}
	return &MessageHandlers{
		hub:            hub,
		store:          st,
		log:            logger,
		storageTimeout: storageTimeout,
	}
}

// PostMessageRequest represents the post message request body.
type PostMessageRequest struct {
	ChatID string `json:"chatId" binding:"required"`
	Sender string `json:"sender" binding:"required"`
	Text   string `json:"text" binding:"required"`
	Time   string `json:"time"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// List returns the room history in creation order.
// GET /messages/:roomId
func (h *MessageHandlers) List(c *gin.Context) {
	chatID := c.Param("roomId")

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.storageTimeout)
	defer cancel()

	msgs, err := h.store.ListMessages(ctx, chatID)
	if err != nil {
		h.log.Error().Err(err).Str("chat_id", chatID).Msg("failed to load messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load messages"})
		return
	}

	resp := make([]proto.EventMessage, 0, len(msgs))
	for _, msg := range msgs {
		resp = append(resp, messageToProto(msg))
	}
	c.JSON(http.StatusOK, resp)
}

// Post stores a message and relays it to the room's live subscribers.
// POST /messages
func (h *MessageHandlers) Post(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid post message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.hub.PostMessage(c.Request.Context(), store.Message{
		ChatID: req.ChatID,
		Sender: req.Sender,
		Text:   req.Text,
		Time:   req.Time,
	})
	if err != nil {
		h.log.Error().Err(err).Str("chat_id", req.ChatID).Msg("failed to save message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to save message"})
		return
	}

	c.JSON(http.StatusOK, messageToProto(msg))
}

// Clear purges the room history and notifies live subscribers.
// DELETE /messages/:roomId
func (h *MessageHandlers) Clear(c *gin.Context) {
	chatID := c.Param("roomId")

	if err := h.hub.ClearRoom(c.Request.Context(), chatID); err != nil {
		h.log.Error().Err(err).Str("chat_id", chatID).Msg("failed to clear messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to clear messages"})
		return
	}

	c.Status(http.StatusNoContent)
}
