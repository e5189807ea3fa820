package models

import "time"

// PeerInfo describes one connected session for the admin API.
type PeerInfo struct {
	ID          string    `json:"id"`
	Remote      string    `json:"remote"`
	Transport   string    `json:"transport"`
	Advertising bool      `json:"advertising"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// PeersResponse is returned by GET /api/peers.
type PeersResponse struct {
	Count int        `json:"count"`
	Peers []PeerInfo `json:"peers"`
}

// AdvertisersResponse is returned by GET /api/peers/advertisers.
type AdvertisersResponse struct {
	Advertisers []string `json:"advertisers"`
}

// KickRequest is the body of POST /api/peers/kick.
type KickRequest struct {
	PeerID string `json:"peerId" binding:"required"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Peers  int    `json:"peers"`
}
