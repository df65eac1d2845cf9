// Package scheduler periodically re-evaluates reservation access phases and
// announces transitions.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/str-access/backend/internal/access"
	"github.com/str-access/backend/internal/reservation"
	"github.com/str-access/backend/internal/storage/models"
)

// Lister returns every stored reservation record.
type Lister interface {
	List(ctx context.Context) ([]models.ReservationRecord, error)
}

// Publisher announces phase transitions.
type Publisher interface {
	BroadcastPhaseChanged(code, reservationID string, previous, next access.Phase)
}

// PhaseScheduler tracks the last phase seen for each code.
type PhaseScheduler struct {
	cron      *cron.Cron
	spec      string
	store     Lister
	publisher Publisher
	now       func() time.Time
	log       zerolog.Logger

	mu   sync.Mutex
	seen map[string]access.Phase
}

// NewPhaseScheduler creates a scheduler that scans on the given cron spec,
// e.g. "@every 1m". publisher may be nil.
func NewPhaseScheduler(spec string, store Lister, publisher Publisher, log zerolog.Logger) *PhaseScheduler {
	return &PhaseScheduler{
		cron:      cron.New(),
		spec:      spec,
		store:     store,
		publisher: publisher,
		now:       time.Now,
		log:       log.With().Str("component", "phase_scheduler").Logger(),
		seen:      make(map[string]access.Phase),
	}
}

// Start registers the scan job and starts the cron runner.
func (s *PhaseScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.Scan(context.Background()) }); err != nil {
		return fmt.Errorf("scheduling phase scan %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.log.Info().Str("schedule", s.spec).Msg("phase scheduler started")
	return nil
}

// Stop waits for a running scan to finish and stops the scheduler.
func (s *PhaseScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("phase scheduler stopped")
}

// Scan evaluates every reservation once and returns the number of
// transitions announced. A code seen for the first time is only recorded.
func (s *PhaseScheduler) Scan(ctx context.Context) int {
	records, err := s.store.List(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("listing reservations for phase scan")
		return 0
	}

	now := s.now()
	changed := 0

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		res := reservation.Normalize(rec.Payload, rec.IDValue(), rec.CodeValue())
		code := rec.CodeValue()
		if code == "" {
			continue
		}

		phase := access.Evaluate(now, res.CheckInISO, res.CheckOutISO)
		previous, known := s.seen[code]
		s.seen[code] = phase
		if !known || previous == phase {
			continue
		}

		changed++
		s.log.Info().
			Str("code", code).
			Str("previous", string(previous)).
			Str("phase", string(phase)).
			Msg("reservation phase changed")
		if s.publisher != nil {
			s.publisher.BroadcastPhaseChanged(code, res.ReservationID, previous, phase)
		}
	}

	return changed
}
