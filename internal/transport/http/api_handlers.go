package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatdir/internal/core"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// currentUserID returns the authenticated requester.
func currentUserID(c *gin.Context, logger *zerolog.Logger) (string, bool) {
	uid := c.GetString(ContextKeyUserID)
	if uid == "" {
		logger.Error().Msg("user_id not found in context")
		respondError(c, logger, core.Unauthorized("unauthorized", nil), "missing requester")
		return "", false
	}
	return uid, true
}

// respondError maps domain errors to status codes. Anything that is not a
// domain error is logged and reported as a 500.
func respondError(c *gin.Context, logger *zerolog.Logger, err error, msg string) {
	switch core.CodeOf(err) {
	case core.ErrCodeNotFound:
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case core.ErrCodeBadRequest:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case core.ErrCodeForbidden:
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case core.ErrCodeUnauthorized:
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	default:
		logger.Error().
			Err(err).
			Str("request_id", c.GetString(ContextKeyRequestID)).
			Msg(msg)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// abortWithError responds like respondError and stops the handler chain.
func abortWithError(c *gin.Context, logger *zerolog.Logger, err error) {
	respondError(c, logger, err, "request aborted")
	c.Abort()
}
