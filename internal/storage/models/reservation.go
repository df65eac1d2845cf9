// Package models contains the persisted data shapes.
package models

import (
	"encoding/json"
	"time"
)

// ReservationRecord is a reservation as received from the booking platform.
// Payload is kept verbatim; everything guest-facing is derived from it on read.
type ReservationRecord struct {
	ID        *string         `json:"id"`
	Code      *string         `json:"code"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Payload   json.RawMessage `json:"payload"`
}

// CodeValue returns the record's code, or "" when it has none.
func (r *ReservationRecord) CodeValue() string {
	if r == nil || r.Code == nil {
		return ""
	}
	return *r.Code
}

// IDValue returns the record's id, or "" when it has none.
func (r *ReservationRecord) IDValue() string {
	if r == nil || r.ID == nil {
		return ""
	}
	return *r.ID
}

// ReservationSnapshot is the full store contents in its persisted layout.
// The two indexes are maintained independently and may hold different records.
type ReservationSnapshot struct {
	ByCode map[string]ReservationRecord `json:"byCode"`
	ByID   map[string]ReservationRecord `json:"byId"`
}

// NewReservationSnapshot returns an empty snapshot with both indexes allocated.
func NewReservationSnapshot() ReservationSnapshot {
	return ReservationSnapshot{
		ByCode: make(map[string]ReservationRecord),
		ByID:   make(map[string]ReservationRecord),
	}
}
