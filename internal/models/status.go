package models

import "time"

// Counters are the read-only numbers the core exposes to status collaborators
type Counters struct {
	RegisteredConnections int `json:"activeUsers"`
	ActiveCalls           int `json:"activeCalls"`
	BufferedOffers        int `json:"bufferedOffers"`
	AttachedSockets       int `json:"activeConnections"`
}

// HealthResponse is served on /health
type HealthResponse struct {
	Status         string    `json:"status"`
	Environment    string    `json:"environment"`
	ActiveUsers    int       `json:"activeUsers"`
	ActiveCalls    int       `json:"activeCalls"`
	BufferedOffers int       `json:"bufferedOffers"`
	Timestamp      time.Time `json:"timestamp"`
}

// ServerStatus is served on /api/status
type ServerStatus struct {
	Server      string    `json:"server"`
	Version     string    `json:"version"`
	Status      string    `json:"status"`
	Environment string    `json:"environment"`
	Uptime      float64   `json:"uptime"` // seconds
	Timestamp   time.Time `json:"timestamp"`
}

// SignalingStatus is served on /api/webrtc/status
type SignalingStatus struct {
	Server string `json:"server"`
	Counters
}
