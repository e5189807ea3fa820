package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mossy-p/snp-signaling/config"
	"github.com/mossy-p/snp-signaling/internal/metrics"
	"github.com/mossy-p/snp-signaling/internal/middleware"
	"github.com/mossy-p/snp-signaling/internal/server"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	// Base bounds the lifetime of WebSocket sessions.
	Base     context.Context
	Log      *zap.Logger
	Hub      *server.Hub
	Gatherer prometheus.Gatherer
}

// NewRouter builds the gin engine serving health, metrics, the admin API and
// the WebSocket transport.
func NewRouter(cfg *config.Config, d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Base == nil {
		d.Base = context.Background()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Global CORS middleware (runs before routing)
	router.Use(OriginFilter(cfg.AllowedOrigins))

	router.GET("/health", Health(d.Hub))
	if d.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(d.Gatherer)))
	}

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/auth/login", Login(cfg.JWTSecret, cfg.Admin))

		peers := apiGroup.Group("/peers", middleware.JWTAuth(cfg.JWTSecret))
		peers.GET("", ListPeers(d.Hub))
		peers.GET("/advertisers", ListAdvertisers(d.Hub))
		peers.POST("/kick", KickPeer(d.Log, d.Hub))
	}

	// Same packet stream as the TCP listener, for browser peers
	router.GET("/ws", HandleSignaling(d.Base, d.Log, d.Hub))

	return router
}
