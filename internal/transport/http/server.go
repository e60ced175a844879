package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/messenger-server/internal/config"
	"github.com/vovakirdan/messenger-server/internal/core"
	"github.com/vovakirdan/messenger-server/internal/metrics"
	"github.com/vovakirdan/messenger-server/internal/store"
)

// NewServer builds an HTTP server with the REST, WebSocket and metrics routes.
func NewServer(hub *core.Hub, st store.MessageStore, cfg *config.Config, logger *zerolog.Logger, m *metrics.Metrics) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(MetricsMiddleware(m))
	router.Use(CORSMiddleware(cfg.AllowedOrigins))

	router.GET("/health", healthHandler)

	messages := NewMessageHandlers(hub, st, logger, cfg.StorageTimeout)
	router.GET("/messages/:roomId", messages.List)
	router.POST("/messages", messages.Post)
	router.DELETE("/messages/:roomId", messages.Clear)

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, cfg, logger)))
	router.GET("/metrics", gin.WrapH(m.Handler()))

	return &stdhttp.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
