// Package api provides HTTP routing for the guest access API.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/str-access/backend/internal/api/handlers"
	"github.com/str-access/backend/internal/api/middleware"
	"github.com/str-access/backend/internal/observe"
	"github.com/str-access/backend/internal/storage"
	"github.com/str-access/backend/internal/unlock"
	"github.com/str-access/backend/internal/webhook"
	"github.com/str-access/backend/internal/websocket"
)

// Deps are the services the router dispatches to.
type Deps struct {
	Store        storage.ReservationStore
	Reservations handlers.ReservationResolver
	Properties   handlers.ConfigResolver
	Authorizer   handlers.UnlockAuthorizer
	Verifier     *webhook.Verifier

	Webhooks *observe.Slot[handlers.WebhookDelivery]
	Unlocks  *observe.Slot[unlock.Attempt]

	Hub    *websocket.Hub
	Events *websocket.EventBroadcaster

	AllowedOrigins []string
	DebugEndpoints bool
	StaticDir      string

	Now    func() time.Time
	Logger zerolog.Logger
}

// NewRouter builds the HTTP handler with all routes. Middleware wraps the
// whole router so unmatched paths and preflight requests are covered too.
func NewRouter(deps Deps) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := mux.NewRouter()

	r.HandleFunc("/health", handlers.Liveness()).Methods("GET")

	// Webhook ingestion
	r.HandleFunc("/webhooks/hospitable", handlers.HospitableWebhook(handlers.WebhookDeps{
		Store:      deps.Store,
		Verifier:   deps.Verifier,
		Deliveries: deps.Webhooks,
		Events:     optionalEvents(deps.Events),
		Now:        deps.Now,
		Logger:     deps.Logger,
	})).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", handlers.HealthCheck(deps.Store)).Methods("GET")
	api.HandleFunc("/reservations/by-code/{code}", handlers.GetReservationByCode(deps.Reservations, deps.Now)).Methods("GET")
	api.HandleFunc("/unlock", handlers.Unlock(deps.Authorizer)).Methods("POST")

	if deps.DebugEndpoints {
		// Live events include access codes.
		if deps.Hub != nil {
			api.HandleFunc("/ws", handlers.WebSocketUpgrade(deps.Hub, deps.AllowedOrigins, deps.Logger)).Methods("GET")
		}

		debug := r.PathPrefix("/debug").Subrouter()
		debug.HandleFunc("/last-hospitable-webhook", handlers.LastObserved(deps.Webhooks, "No webhook yet")).Methods("GET")
		debug.HandleFunc("/last-unlock", handlers.LastObserved(deps.Unlocks, "No unlock yet")).Methods("GET")
		debug.HandleFunc("/reservations", handlers.DebugReservations(deps.Store)).Methods("GET")
		debug.HandleFunc("/seed", handlers.Seed(deps.Store, optionalEvents(deps.Events), deps.Now, deps.Logger)).Methods("GET", "POST")
		debug.HandleFunc("/config", handlers.EffectiveConfig(deps.Properties)).Methods("GET")
	}

	// Serve static frontend files
	if deps.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(deps.StaticDir)))
	}

	var h http.Handler = r
	h = middleware.CORS(deps.AllowedOrigins)(h)
	h = middleware.ErrorRecovery(deps.Logger)(h)
	h = middleware.Logging(deps.Logger)(h)
	return h
}

// optionalEvents keeps a nil broadcaster from becoming a non-nil interface.
func optionalEvents(b *websocket.EventBroadcaster) handlers.Events {
	if b == nil {
		return nil
	}
	return b
}
