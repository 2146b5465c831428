package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/config"
	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/core"
	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/metrics"
)

// NewServer builds the gateway's HTTP server: the websocket endpoint
// plus health and counter-snapshot routes.
func NewServer(router core.Router, counters *metrics.Counters, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(LoggerMiddleware(logger))

	engine.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	engine.GET("/stats", func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, counters.Snapshot())
	})
	engine.GET("/ws", gin.WrapH(NewWSHandler(router, counters, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
