package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/str-access/backend/internal/api/middleware"
	"github.com/str-access/backend/internal/observe"
	"github.com/str-access/backend/internal/storage/models"
	"github.com/str-access/backend/internal/webhook"
)

const maxBodyBytes = 1 << 20

// Source labels for reservation.upserted events.
const (
	SourceWebhook = "webhook"
	SourceSeed    = "seed"
)

// ReservationWriter stores reservation records.
type ReservationWriter interface {
	Upsert(ctx context.Context, id, code *string, payload json.RawMessage) (*models.ReservationRecord, error)
}

// Events announces ingestion activity to live listeners.
type Events interface {
	BroadcastWebhookReceived(at time.Time, verified bool)
	BroadcastReservationUpserted(rec models.ReservationRecord, source string)
}

// WebhookDelivery is the last webhook body received, kept for diagnostics.
type WebhookDelivery struct {
	At   time.Time       `json:"at"`
	Body json.RawMessage `json:"body"`
}

// WebhookDeps are the collaborators of the webhook handler. Events may be nil.
type WebhookDeps struct {
	Store      ReservationWriter
	Verifier   *webhook.Verifier
	Deliveries *observe.Slot[WebhookDelivery]
	Events     Events
	Now        func() time.Time
	Logger     zerolog.Logger
}

// HospitableWebhook returns a handler for POST /webhooks/hospitable.
func HospitableWebhook(deps WebhookDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Payload too large")
			return
		}

		payload := json.RawMessage(bytes.TrimSpace(raw))
		if len(payload) == 0 {
			payload = json.RawMessage(`{}`)
		}
		var body any
		if err := json.Unmarshal(payload, &body); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}

		at := deps.Now().UTC()
		deps.Deliveries.Put(WebhookDelivery{At: at, Body: payload})

		verified := deps.Verifier.Verify(r.Header, raw)
		if deps.Events != nil {
			deps.Events.BroadcastWebhookReceived(at, verified)
		}
		if !verified {
			deps.Logger.Warn().Time("at", at).Msg("webhook signature mismatch")
			middleware.WriteError(w, http.StatusUnauthorized, "Invalid signature")
			return
		}

		ident := webhook.IdentityOf(body)
		rec, err := deps.Store.Upsert(r.Context(), ident.ID, ident.Code, payload)
		if err != nil {
			deps.Logger.Error().Err(err).Msg("storing webhook reservation")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to store reservation")
			return
		}

		deps.Logger.Info().
			Time("at", at).
			Str("code", orDash(rec.CodeValue())).
			Str("id", orDash(rec.IDValue())).
			Msg("webhook received")
		if deps.Events != nil {
			deps.Events.BroadcastReservationUpserted(*rec, SourceWebhook)
		}

		middleware.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
