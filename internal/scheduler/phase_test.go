package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/str-access/backend/internal/access"
	"github.com/str-access/backend/internal/storage/models"
)

type staticLister struct {
	records []models.ReservationRecord
	err     error
}

func (l *staticLister) List(ctx context.Context) ([]models.ReservationRecord, error) {
	return l.records, l.err
}

type transition struct {
	code, id       string
	previous, next access.Phase
}

type recorder struct {
	got []transition
}

func (r *recorder) BroadcastPhaseChanged(code, reservationID string, previous, next access.Phase) {
	r.got = append(r.got, transition{code, reservationID, previous, next})
}

func stay(code string, in, out time.Time) models.ReservationRecord {
	payload := `{"data":{"id":"res_` + code + `","checkInISO":"` + in.Format(time.RFC3339) +
		`","checkOutISO":"` + out.Format(time.RFC3339) + `"}}`
	return models.ReservationRecord{Code: &code, Payload: json.RawMessage(payload)}
}

func TestScan_AnnouncesTransitionsOnly(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	checkIn, checkOut := base.Add(time.Hour), base.Add(3*time.Hour)

	store := &staticLister{records: []models.ReservationRecord{stay("c1", checkIn, checkOut)}}
	rec := &recorder{}
	s := NewPhaseScheduler("@every 1m", store, rec, zerolog.Nop())

	now := base
	s.now = func() time.Time { return now }

	assert.Equal(t, 0, s.Scan(context.Background()), "first observation is silent")
	assert.Equal(t, 0, s.Scan(context.Background()))

	now = checkIn
	assert.Equal(t, 1, s.Scan(context.Background()))
	now = checkOut.Add(time.Second)
	assert.Equal(t, 1, s.Scan(context.Background()))

	require.Len(t, rec.got, 2)
	assert.Equal(t, transition{"c1", "res_c1", access.PhaseBefore, access.PhaseActive}, rec.got[0])
	assert.Equal(t, transition{"c1", "res_c1", access.PhaseActive, access.PhaseAfter}, rec.got[1])
}

func TestScan_SkipsRecordsWithoutCode(t *testing.T) {
	store := &staticLister{records: []models.ReservationRecord{{Payload: json.RawMessage(`{}`)}}}
	s := NewPhaseScheduler("@every 1m", store, nil, zerolog.Nop())

	assert.Equal(t, 0, s.Scan(context.Background()))
	assert.Empty(t, s.seen)
}

func TestScan_StoreError(t *testing.T) {
	s := NewPhaseScheduler("@every 1m", &staticLister{err: errors.New("locked")}, nil, zerolog.Nop())
	assert.Equal(t, 0, s.Scan(context.Background()))
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := NewPhaseScheduler("not a schedule", &staticLister{}, nil, zerolog.Nop())
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s := NewPhaseScheduler("@every 1h", &staticLister{}, nil, zerolog.Nop())
	require.NoError(t, s.Start())
	s.Stop()
}
