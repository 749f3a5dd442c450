package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/dkeye/Collab/internal/app/events"
	"github.com/dkeye/Collab/internal/core"
	"github.com/dkeye/Collab/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type UserResolver interface {
	Resolve(ctx context.Context, externalID string) (*domain.User, error)
}

type SessionService interface {
	Create(ctx context.Context, hostID string, in core.CreateSessionInput) (*domain.Session, error)
	Active(ctx context.Context) ([]domain.Session, error)
	MyRecent(ctx context.Context, userID string) ([]domain.Session, error)
	Get(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	Join(ctx context.Context, id domain.SessionID, userID string) (*domain.Session, error)
	End(ctx context.Context, id domain.SessionID, userID string) (*domain.Session, error)
}

type EventQueue interface {
	Enqueue(ev events.Event) (bool, error)
}

// Handlers holds everything the routes call into.
type Handlers struct {
	Verifier core.SessionVerifier
	Users    UserResolver
	Sessions SessionService
	Tokens   core.TokenIssuer
	Events   EventQueue
	Limiter  *RateLimiter
}

func sessionsOrEmpty(list []domain.Session) []domain.Session {
	if list == nil {
		return []domain.Session{}
	}
	return list
}

func (h *Handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"msg": "api is up and running"})
}

func (h *Handlers) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
}

func (h *Handlers) chatToken(c *gin.Context) {
	user := currentUser(c)
	token, err := h.Tokens.Issue(user.ExternalID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.Credential{
		Token:     token,
		UserID:    user.ExternalID,
		UserName:  user.Name,
		UserImage: user.ImageURL,
	})
}

func (h *Handlers) createSession(c *gin.Context) {
	var in core.CreateSessionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}
	sess, err := h.Sessions.Create(c.Request.Context(), currentUser(c).ExternalID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": sess})
}

func (h *Handlers) activeSessions(c *gin.Context) {
	list, err := h.Sessions.Active(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessionsOrEmpty(list)})
}

func (h *Handlers) myRecentSessions(c *gin.Context) {
	list, err := h.Sessions.MyRecent(c.Request.Context(), currentUser(c).ExternalID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessionsOrEmpty(list)})
}

func (h *Handlers) getSession(c *gin.Context) {
	sess, err := h.Sessions.Get(c.Request.Context(), domain.SessionID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (h *Handlers) joinSession(c *gin.Context) {
	sess, err := h.Sessions.Join(c.Request.Context(), domain.SessionID(c.Param("id")), currentUser(c).ExternalID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (h *Handlers) endSession(c *gin.Context) {
	sess, err := h.Sessions.End(c.Request.Context(), domain.SessionID(c.Param("id")), currentUser(c).ExternalID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (h *Handlers) inngest(c *gin.Context) {
	var ev events.Event
	if err := c.ShouldBindJSON(&ev); err != nil || ev.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid event"})
		return
	}
	handled, err := h.Events.Enqueue(ev)
	switch {
	case errors.Is(err, events.ErrQueueFull):
		log.Warn().Str("module", "adapters.http").Str("event", ev.Name).Msg("event queue full")
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "event queue full"})
	case err != nil:
		writeError(c, err)
	case !handled:
		c.JSON(http.StatusAccepted, gin.H{"status": "ignored"})
	default:
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
	}
}
