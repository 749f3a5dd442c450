package http

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dkeye/Collab/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func SetupRouter(cfg *config.Config, h *Handlers) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(CORS())

	r.GET("/health", h.health)

	api := r.Group("/api")
	api.POST("/inngest", h.inngest)

	auth := api.Group("", ProtectRoute(h.Verifier, h.Users))
	limited := RateLimit(h.Limiter)

	auth.GET("/chat/token", h.chatToken)
	auth.GET("/users/me", h.me)

	s := auth.Group("/sessions")
	s.POST("", limited, h.createSession)
	s.GET("/active", h.activeSessions)
	s.GET("/my-recent", h.myRecentSessions)
	s.GET("/:id", h.getSession)
	s.POST("/:id/join", limited, h.joinSession)
	s.POST("/:id/end", h.endSession)

	if cfg.Mode == "release" && cfg.StaticPath != "" {
		r.NoRoute(spaHandler(cfg.StaticPath))
	}

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Str("static", cfg.StaticPath).Msg("router setup")
	return r
}

// spaHandler serves files from the bundle and falls back to index.html for
// client-side routes.
func spaHandler(root string) gin.HandlerFunc {
	index := filepath.Join(root, "index.html")
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/api/") || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
			return
		}
		// path.Clean on a rooted path never climbs above root.
		file := filepath.Join(root, filepath.FromSlash(path.Clean("/"+p)))
		if fi, err := os.Stat(file); err == nil && fi.Mode().IsRegular() {
			c.File(file)
			return
		}
		c.File(index)
	}
}
