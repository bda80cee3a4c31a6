package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/chatdir/internal/core"
	"github.com/vovakirdan/chatdir/internal/service/messages"
	"github.com/vovakirdan/chatdir/internal/store"
)

// MessageHandlers provides HTTP handlers for message endpoints.
type MessageHandlers struct {
	service *messages.Service
	log     *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(svc *messages.Service, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		service: svc,
		log:     logger,
	}
}

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// SendMessage posts a message to a chat.
// POST /api/chats/:id/messages
func (h *MessageHandlers) SendMessage(c *gin.Context) {
	uid, ok := currentUserID(c, h.log)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.service.Send(c.Request.Context(), c.Param("id"), uid, req.Text)
	if err != nil {
		respondError(c, h.log, err, "failed to send message")
		return
	}

	c.JSON(http.StatusCreated, core.PickMessageData(msg))
}

// ListMessages returns a page of a chat's messages, newest first.
// GET /api/chats/:id/messages?limit=50&before=RFC3339
func (h *MessageHandlers) ListMessages(c *gin.Context) {
	uid, ok := currentUserID(c, h.log)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid before timestamp"})
			return
		}
		before = &ts
	}

	msgs, err := h.service.List(c.Request.Context(), c.Param("id"), uid, limit, before)
	if err != nil {
		respondError(c, h.log, err, "failed to list messages")
		return
	}

	c.JSON(http.StatusOK, lo.Map(msgs, func(m *store.Message, _ int) core.MessageView {
		return core.PickMessageData(m)
	}))
}

// LikeMessage adds the requester to a message's likes.
// POST /api/messages/:id/like
func (h *MessageHandlers) LikeMessage(c *gin.Context) {
	uid, ok := currentUserID(c, h.log)
	if !ok {
		return
	}

	msg, err := h.service.Like(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		respondError(c, h.log, err, "failed to like message")
		return
	}

	c.JSON(http.StatusOK, core.PickMessageData(msg))
}
