package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/str-access/backend/internal/storage/models"
)

// ReservationRepository stores reservation records in SQLite.
type ReservationRepository struct {
	BaseRepository
}

// NewReservationRepository creates a reservation repository.
func NewReservationRepository(db *DB) *ReservationRepository {
	return &ReservationRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const (
	tableByCode = "reservations_by_code"
	tableByID   = "reservations_by_id"
)

// Upsert replaces the record under its code and under its id, whichever are
// non-nil, in one transaction.
func (r *ReservationRepository) Upsert(ctx context.Context, id, code *string, payload json.RawMessage) (*models.ReservationRecord, error) {
	rec := newRecord(id, code, payload, r.Now())

	err := r.DB().Transaction(ctx, func(tx *sql.Tx) error {
		if rec.Code != nil {
			if err := putRecord(ctx, tx, tableByCode, *rec.Code, rec); err != nil {
				return err
			}
		}
		if rec.ID != nil {
			if err := putRecord(ctx, tx, tableByID, *rec.ID, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upserting reservation: %w", err)
	}

	return rec, nil
}

func putRecord(ctx context.Context, q Queryable, table, key string, rec *models.ReservationRecord) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO `+table+` (index_key, id, code, updated_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(index_key) DO UPDATE SET
			id = excluded.id, code = excluded.code,
			updated_at = excluded.updated_at, payload = excluded.payload
	`, key, rec.ID, rec.Code, rec.UpdatedAt.Format(time.RFC3339Nano), string(rec.Payload))
	if err != nil {
		return fmt.Errorf("writing %s[%s]: %w", table, key, err)
	}
	return nil
}

// GetByCode returns the record stored under code in the code index, or nil.
func (r *ReservationRepository) GetByCode(ctx context.Context, code string) (*models.ReservationRecord, error) {
	row := r.DB().QueryRowContext(ctx, `
		SELECT index_key, id, code, updated_at, payload
		FROM reservations_by_code WHERE index_key = ?
	`, code)

	_, rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying reservation by code: %w", err)
	}
	return rec, nil
}

// List returns every record in the code index, ordered by index key.
func (r *ReservationRepository) List(ctx context.Context) ([]models.ReservationRecord, error) {
	byCode, err := r.listTable(ctx, tableByCode)
	if err != nil {
		return nil, err
	}

	records := make([]models.ReservationRecord, 0, len(byCode))
	for _, e := range byCode {
		records = append(records, e.rec)
	}
	return records, nil
}

// Snapshot returns both indexes in the persisted layout.
func (r *ReservationRepository) Snapshot(ctx context.Context) (models.ReservationSnapshot, error) {
	snap := models.NewReservationSnapshot()

	byCode, err := r.listTable(ctx, tableByCode)
	if err != nil {
		return snap, err
	}
	for _, e := range byCode {
		snap.ByCode[e.key] = e.rec
	}

	byID, err := r.listTable(ctx, tableByID)
	if err != nil {
		return snap, err
	}
	for _, e := range byID {
		snap.ByID[e.key] = e.rec
	}

	return snap, nil
}

// Ping checks the database connection.
func (r *ReservationRepository) Ping(ctx context.Context) error {
	return r.DB().PingContext(ctx)
}

// Driver names the backing store.
func (r *ReservationRepository) Driver() string {
	return "sqlite"
}

type indexedRecord struct {
	key string
	rec models.ReservationRecord
}

func (r *ReservationRepository) listTable(ctx context.Context, table string) ([]indexedRecord, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT index_key, id, code, updated_at, payload
		FROM `+table+` ORDER BY index_key
	`)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var out []indexedRecord
	for rows.Next() {
		key, rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		out = append(out, indexedRecord{key: key, rec: *rec})
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (string, *models.ReservationRecord, error) {
	var (
		key       string
		id, code  sql.NullString
		updatedAt string
		payload   string
	)
	if err := s.Scan(&key, &id, &code, &updatedAt, &payload); err != nil {
		return "", nil, err
	}

	rec := &models.ReservationRecord{Payload: json.RawMessage(payload)}
	if id.Valid {
		rec.ID = &id.String
	}
	if code.Valid {
		rec.Code = &code.String
	}
	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return "", nil, fmt.Errorf("parsing updated_at %q: %w", updatedAt, err)
	}
	rec.UpdatedAt = ts

	return key, rec, nil
}

// newRecord builds the record written by an upsert. Empty strings count as absent.
func newRecord(id, code *string, payload json.RawMessage, now time.Time) *models.ReservationRecord {
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return &models.ReservationRecord{
		ID:        nonEmpty(id),
		Code:      nonEmpty(code),
		UpdatedAt: now,
		Payload:   payload,
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
