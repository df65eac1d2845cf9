package reservation

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/str-access/backend/internal/property"
	"github.com/str-access/backend/internal/storage/models"
)

// ErrNotFound is returned when no stored record matches an access code.
var ErrNotFound = errors.New("reservation not found")

// Store is the read side of reservation storage.
type Store interface {
	// GetByCode returns the record under code in the code index, or nil.
	GetByCode(ctx context.Context, code string) (*models.ReservationRecord, error)
	// List returns every record in the code index.
	List(ctx context.Context) ([]models.ReservationRecord, error)
}

// ConfigResolver supplies the effective property configuration.
type ConfigResolver interface {
	Resolve(ctx context.Context, code, propertyID string) property.Config
}

// Found is a stored record together with its normalized view.
type Found struct {
	Record      models.ReservationRecord
	Reservation Reservation
}

// Resolver looks reservations up by access code.
type Resolver struct {
	store  Store
	config ConfigResolver
	log    zerolog.Logger
}

// NewResolver creates a resolver.
func NewResolver(store Store, config ConfigResolver, log zerolog.Logger) *Resolver {
	return &Resolver{store: store, config: config, log: log}
}

// Find returns the stored record for code. The code index is tried first; if
// it has no entry, all records are scanned for one whose own code field
// matches, since the record content is authoritative over the index key.
// Storage failures are logged and reported as ErrNotFound.
func (r *Resolver) Find(ctx context.Context, code string) (*models.ReservationRecord, error) {
	if code == "" {
		return nil, ErrNotFound
	}

	rec, err := r.store.GetByCode(ctx, code)
	if err != nil {
		r.log.Warn().Err(err).Str("code", code).Msg("reservation store unavailable")
		return nil, ErrNotFound
	}
	if rec != nil {
		return rec, nil
	}

	all, err := r.store.List(ctx)
	if err != nil {
		r.log.Warn().Err(err).Str("code", code).Msg("reservation store unavailable")
		return nil, ErrNotFound
	}
	for i := range all {
		if all[i].CodeValue() == code {
			return &all[i], nil
		}
	}
	return nil, ErrNotFound
}

// Lookup returns the record for code with its normalized, unenriched view.
func (r *Resolver) Lookup(ctx context.Context, code string) (*Found, error) {
	rec, err := r.Find(ctx, code)
	if err != nil {
		return nil, err
	}
	return &Found{
		Record:      *rec,
		Reservation: Normalize(rec.Payload, rec.IDValue(), rec.CodeValue()),
	}, nil
}

// Resolve returns the guest-facing reservation for code: normalized,
// enriched from property configuration, with steps ordered and their photos
// resolved.
func (r *Resolver) Resolve(ctx context.Context, code string) (*Found, error) {
	found, err := r.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	cfg := property.Defaults()
	if r.config != nil {
		cfg = r.config.Resolve(ctx, code, found.Reservation.PropertyID)
	}

	res := Enrich(found.Reservation, cfg)
	res.Steps = AttachStepPhotos(OrderSteps(res.Steps), res.Photos)
	found.Reservation = res
	return found, nil
}

// Enrich fills the reservation from property configuration. Values present
// in the reservation are kept, except the map address, which configuration
// always overrides when it has one; the displayed address then mirrors the
// map address.
func Enrich(res Reservation, cfg property.Config) Reservation {
	if res.PropertyID == "" && cfg.PropertyID != "" {
		res.PropertyID = cfg.PropertyID
	}
	if len(res.Photos) == 0 {
		res.Photos = append([]string{}, cfg.Photos...)
	}
	if res.WiFi == nil && cfg.WiFi != nil {
		w := *cfg.WiFi
		res.WiFi = &w
	}
	if cfg.MapAddress != "" {
		res.MapAddress = cfg.MapAddress
	}
	if res.MapAddress != "" {
		res.Address = res.MapAddress
	}
	return res
}
