package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dkeye/Collab/internal/app/users"
	"github.com/dkeye/Collab/internal/core"
	"github.com/dkeye/Collab/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const userKey = "user"

// CORS reflects the request origin and allows credentials.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
			if c.Request.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				if req := c.GetHeader("Access-Control-Request-Headers"); req != "" {
					h.Set("Access-Control-Allow-Headers", req)
				}
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// ProtectRoute verifies the bearer token and attaches the local user,
// provisioning it from the identity provider on first sight.
func ProtectRoute(v core.SessionVerifier, resolver UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		externalID, err := v.Verify(bearerToken(c))
		if err != nil || externalID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), externalID)
		switch {
		case errors.Is(err, users.ErrMissingContact):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Email not found from identity provider profile"})
			return
		case err != nil:
			log.Error().Str("module", "adapters.http").Str("user", externalID).Err(err).Msg("protect route")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal Server Error"})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	u, _ := c.Get(userKey)
	user, _ := u.(*domain.User)
	return user
}

// RateLimit must run after ProtectRoute.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user != nil && !rl.Allow(user.ExternalID) {
			log.Warn().Str("module", "adapters.http").Str("user", user.ExternalID).Str("path", c.FullPath()).Msg("rate limited")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests"})
			return
		}
		c.Next()
	}
}
