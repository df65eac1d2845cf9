package websocket

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/str-access/backend/internal/access"
	"github.com/str-access/backend/internal/storage/models"
	"github.com/str-access/backend/internal/unlock"
)

// EventBroadcaster handles broadcasting WebSocket events.
type EventBroadcaster struct {
	hub *Hub
	log zerolog.Logger
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub, log zerolog.Logger) *EventBroadcaster {
	return &EventBroadcaster{hub: hub, log: log}
}

// BroadcastWebhookReceived announces an incoming webhook delivery.
func (b *EventBroadcaster) BroadcastWebhookReceived(at time.Time, verified bool) {
	b.broadcast(NewMessage(TypeWebhookReceived, WebhookPayload{At: at, Verified: verified}))
}

// BroadcastReservationUpserted announces a stored reservation record.
func (b *EventBroadcaster) BroadcastReservationUpserted(rec models.ReservationRecord, source string) {
	payload := ReservationPayload{
		ID:        rec.ID,
		Code:      rec.Code,
		UpdatedAt: rec.UpdatedAt,
		Source:    source,
	}
	b.broadcast(NewMessage(TypeReservationUpserted, payload))
}

// BroadcastUnlockCompleted announces an unlock attempt, blocked or not.
func (b *EventBroadcaster) BroadcastUnlockCompleted(attempt unlock.Attempt) {
	b.broadcast(NewMessage(TypeUnlockCompleted, attempt))
}

// BroadcastPhaseChanged announces a reservation moving between access phases.
func (b *EventBroadcaster) BroadcastPhaseChanged(code, reservationID string, previous, next access.Phase) {
	payload := PhaseChangedPayload{
		Code:          code,
		ReservationID: reservationID,
		PreviousPhase: string(previous),
		NewPhase:      string(next),
	}
	b.broadcast(NewMessage(TypeReservationPhaseShift, payload))
}

// broadcast sends a message to all connected clients.
func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.log.Error().Err(err).Str("type", string(msg.Type)).Msg("encoding websocket message")
		return
	}

	b.hub.Broadcast(data)
}
