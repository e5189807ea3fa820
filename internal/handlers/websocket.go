package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mossy-p/snp-signaling/internal/server"
	"github.com/mossy-p/snp-signaling/internal/transport"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// HandleSignaling upgrades the request and runs a relay session over the
// WebSocket until it closes. Messages carry the same delimited packet
// stream as the TCP listener. Sessions end when base is cancelled.
func HandleSignaling(base context.Context, log *zap.Logger, hub *server.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", zap.String("remote", c.ClientIP()), zap.Error(err))
			return
		}
		hub.Serve(base, transport.NewWebSocket(conn))
	}
}
