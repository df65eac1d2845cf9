// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"context"
	"net/http"

	"github.com/str-access/backend/internal/api/middleware"
)

// Pinger reports whether reservation storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Liveness answers that the process is up.
func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "status": "running"})
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status         string `json:"status"`
	StoreConnected bool   `json:"store_connected"`
}

// HealthCheck returns a handler that checks reservation storage.
func HealthCheck(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeConnected := store.Ping(r.Context()) == nil

		response := HealthResponse{Status: "healthy", StoreConnected: storeConnected}
		status := http.StatusOK
		if !storeConnected {
			response.Status = "degraded"
			status = http.StatusServiceUnavailable
		}

		middleware.WriteJSON(w, status, response)
	}
}
