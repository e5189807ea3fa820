package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mossy-p/snp-signaling/internal/identity"
	"github.com/mossy-p/snp-signaling/internal/models"
	"github.com/mossy-p/snp-signaling/internal/server"
	"github.com/mossy-p/snp-signaling/internal/session"
)

// Health reports liveness and the number of connected peers.
func Health(hub *server.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{Status: "ok", Peers: hub.Registry().Len()})
	}
}

// ListPeers returns every connected session, oldest first.
func ListPeers(hub *server.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		peers := hub.Registry().Peers()
		out := make([]models.PeerInfo, 0, len(peers))
		for _, p := range peers {
			info := models.PeerInfo{
				ID:          p.ID().String(),
				Advertising: p.Advertising(),
			}
			if s, ok := p.(*session.Session); ok {
				info.Remote = s.RemoteAddr()
				info.Transport = s.TransportKind()
				info.ConnectedAt = s.ConnectedAt()
			}
			out = append(out, info)
		}
		slices.SortFunc(out, func(a, b models.PeerInfo) int {
			return a.ConnectedAt.Compare(b.ConnectedAt)
		})
		c.JSON(http.StatusOK, models.PeersResponse{Count: len(out), Peers: out})
	}
}

// ListAdvertisers returns the identities currently advertising.
func ListAdvertisers(hub *server.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ids := hub.Registry().Advertisers(identity.Server)
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			out = append(out, id.String())
		}
		c.JSON(http.StatusOK, models.AdvertisersResponse{Advertisers: out})
	}
}

// KickPeer disconnects a peer by identity.
func KickPeer(log *zap.Logger, hub *server.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.KickRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, err := identity.Parse(req.PeerID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid peer ID"})
			return
		}

		p, ok := hub.Registry().Lookup(id)
		if !ok || !hub.Kick(p) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Peer not found"})
			return
		}

		userID, _ := c.Get("user_id")
		log.Info("peer kicked", zap.String("peer", id.String()), zap.Any("by", userID))
		c.JSON(http.StatusOK, gin.H{"message": "Peer disconnected"})
	}
}
