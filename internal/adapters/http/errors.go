package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Collab/internal/app/sessions"
	"github.com/dkeye/Collab/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTopicEmpty),
		errors.Is(err, domain.ErrTopicTooLong),
		errors.Is(err, domain.ErrHostEmpty):
		return http.StatusBadRequest
	case errors.Is(err, sessions.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sessions.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, sessions.ErrSessionCompleted),
		errors.Is(err, sessions.ErrHostCannotJoin),
		errors.Is(err, sessions.ErrSessionFull):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError maps err to a status; server errors hide the detail.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Str("module", "adapters.http").Str("path", c.FullPath()).Err(err).Msg("request failed")
		c.JSON(status, gin.H{"message": "Internal Server Error"})
		return
	}
	c.JSON(status, gin.H{"message": err.Error()})
}
