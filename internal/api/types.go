package api

import (
	"time"

	"github.com/satriahrh/arunika-actor/domain/entities"
)

// HealthResponse is returned by /health
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Actor   string `json:"actor"`
}

// ReadyResponse is returned by /ready
type ReadyResponse struct {
	Ready bool               `json:"ready"`
	State entities.TurnState `json:"state"`
	Bus   *bool              `json:"bus,omitempty"`
}

// StatusResponse is returned by /status
type StatusResponse struct {
	Actor       string                `json:"actor"`
	State       entities.TurnState    `json:"state"`
	Ready       bool                  `json:"ready"`
	Turns       int                   `json:"turns"`
	Uptime      string                `json:"uptime"`
	CacheSize   int                   `json:"cache_size"`
	CacheHits   uint64                `json:"cache_hits"`
	CacheMisses uint64                `json:"cache_misses"`
	Monitors    int                   `json:"monitors"`
	LastTurn    *entities.SessionTurn `json:"last_turn,omitempty"`
}

// TurnsResponse is returned by /turns
type TurnsResponse struct {
	Turns []*entities.SessionTurn `json:"turns"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func formatUptime(started, now time.Time) string {
	if started.IsZero() {
		return "0s"
	}
	return now.Sub(started).Truncate(time.Second).String()
}
