package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeWebhookReceived       MessageType = "webhook.received"
	TypeReservationUpserted   MessageType = "reservation.upserted"
	TypeUnlockCompleted       MessageType = "unlock.completed"
	TypeReservationPhaseShift MessageType = "reservation.phase_changed"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// WebhookPayload is the payload for webhook.received events.
type WebhookPayload struct {
	At       time.Time `json:"at"`
	Verified bool      `json:"verified"`
}

// ReservationPayload is the payload for reservation.upserted events.
type ReservationPayload struct {
	ID        *string   `json:"id"`
	Code      *string   `json:"code"`
	UpdatedAt time.Time `json:"updatedAt"`
	Source    string    `json:"source"` // "webhook" or "seed"
}

// PhaseChangedPayload is the payload for reservation.phase_changed events.
type PhaseChangedPayload struct {
	Code          string `json:"code"`
	ReservationID string `json:"reservationId"`
	PreviousPhase string `json:"previousPhase"`
	NewPhase      string `json:"newPhase"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}
