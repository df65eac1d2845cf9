package storage

import (
	"context"
	"encoding/json"

	"github.com/str-access/backend/internal/storage/models"
)

// ReservationStore is implemented by FileStore and ReservationRepository.
type ReservationStore interface {
	// Upsert fully replaces the record under code and under id, whichever are
	// non-empty, and stamps UpdatedAt.
	Upsert(ctx context.Context, id, code *string, payload json.RawMessage) (*models.ReservationRecord, error)
	// GetByCode returns nil, nil when the code index has no entry.
	GetByCode(ctx context.Context, code string) (*models.ReservationRecord, error)
	List(ctx context.Context) ([]models.ReservationRecord, error)
	Snapshot(ctx context.Context) (models.ReservationSnapshot, error)
	Ping(ctx context.Context) error
	// Driver names the backend, "file" or "sqlite".
	Driver() string
}

var (
	_ ReservationStore = (*FileStore)(nil)
	_ ReservationStore = (*ReservationRepository)(nil)
)
