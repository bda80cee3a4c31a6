package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatdir/internal/service/users"
)

// UserHandlers provides HTTP handlers for user operations.
type UserHandlers struct {
	service *users.Service
	log     *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(svc *users.Service, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		service: svc,
		log:     logger,
	}
}

// UpdateAvatarRequest represents the update avatar request body.
type UpdateAvatarRequest struct {
	Avatar string `json:"avatar" binding:"required,max=2048"`
}

// UpdateUsernameRequest represents the update username request body.
type UpdateUsernameRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
}

// FindUsers handles searching for users by username or email.
// GET /api/users/search?value=query
func (h *UserHandlers) FindUsers(c *gin.Context) {
	uid, ok := currentUserID(c, h.log)
	if !ok {
		return
	}

	found, err := h.service.FindUsers(c.Request.Context(), c.Query("value"), uid)
	if err != nil {
		respondError(c, h.log, err, "failed to search users")
		return
	}

	c.JSON(http.StatusOK, found)
}

// GetMe returns the requester's profile with all of their chats.
// GET /api/users/me
func (h *UserHandlers) GetMe(c *gin.Context) {
	uid, ok := currentUserID(c, h.log)
	if !ok {
		return
	}

	user, err := h.service.GetByID(c.Request.Context(), uid)
	if err != nil {
		respondError(c, h.log, err, "failed to get user")
		return
	}

	data, err := h.service.GetUserDataWithChats(c.Request.Context(), user)
	if err != nil {
		respondError(c, h.log, err, "failed to assemble user chats")
		return
	}

	c.JSON(http.StatusOK, data)
}

// GetUser returns the public profile of a user.
// GET /api/users/:id
func (h *UserHandlers) GetUser(c *gin.Context) {
	user, err := h.service.FindByIDPublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "failed to get user")
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateAvatar replaces the requester's avatar.
// PATCH /api/users/avatar
func (h *UserHandlers) UpdateAvatar(c *gin.Context) {
	uid, ok := currentUserID(c, h.log)
	if !ok {
		return
	}

	var req UpdateAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update avatar request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.service.UpdateAvatar(c.Request.Context(), uid, req.Avatar)
	if err != nil {
		respondError(c, h.log, err, "failed to update avatar")
		return
	}

	h.log.Info().Str("user_id", uid).Msg("avatar updated")
	c.JSON(http.StatusOK, result)
}

// UpdateUsername replaces the requester's username.
// PATCH /api/users/username
func (h *UserHandlers) UpdateUsername(c *gin.Context) {
	uid, ok := currentUserID(c, h.log)
	if !ok {
		return
	}

	var req UpdateUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update username request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.service.UpdateUsername(c.Request.Context(), uid, req.Username)
	if err != nil {
		respondError(c, h.log, err, "failed to update username")
		return
	}

	h.log.Info().Str("user_id", uid).Str("username", result.Username).Msg("username updated")
	c.JSON(http.StatusOK, result)
}
