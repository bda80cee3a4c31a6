package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/chatdir/internal/core"
	"github.com/vovakirdan/chatdir/internal/service/chats"
)

// ChatHandlers provides HTTP handlers for chat endpoints.
type ChatHandlers struct {
	service *chats.Service
	log     *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(svc *chats.Service, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		service: svc,
		log:     logger,
	}
}

// CreateChatRequest represents the create chat request body.
type CreateChatRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// CreateChat opens (or returns) the direct chat with another user.
// POST /api/chats
func (h *ChatHandlers) CreateChat(c *gin.Context) {
	uid, ok := currentUserID(c, h.log)
	if !ok {
		return
	}

	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create chat request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	chat, created, err := h.service.CreateDirectChat(c.Request.Context(), uid, req.UserID)
	if err != nil {
		respondError(c, h.log, err, "failed to create chat")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.log.Info().Str("chat_id", chat.Chat.ID).Str("user_id", uid).Str("other_id", req.UserID).Msg("chat created")
	}
	c.JSON(status, core.PickChatData(chat))
}

// GetChat returns a chat with its participants' public profiles.
// GET /api/chats/:id
func (h *ChatHandlers) GetChat(c *gin.Context) {
	uid, ok := currentUserID(c, h.log)
	if !ok {
		return
	}

	chat, err := h.service.GetOneChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "failed to get chat")
		return
	}

	if !lo.Contains(chat.Chat.Participants, uid) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a participant of this chat"})
		return
	}

	c.JSON(http.StatusOK, core.PickChatData(chat))
}
