package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/str-access/backend/internal/api/middleware"
	"github.com/str-access/backend/internal/observe"
	"github.com/str-access/backend/internal/property"
	"github.com/str-access/backend/internal/reservation"
	"github.com/str-access/backend/internal/storage/models"
)

// Identity used by the seed endpoint when the payload carries none.
const (
	SeedFallbackID   = "res_test_1"
	SeedFallbackCode = "5039895833"
)

// LastObserved returns a handler that shows the content of slot, or
// {"msg": emptyMsg} when nothing was observed yet.
func LastObserved[T any](slot *observe.Slot[T], emptyMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := slot.Last()
		if !ok {
			middleware.WriteJSON(w, http.StatusOK, map[string]string{"msg": emptyMsg})
			return
		}
		middleware.WriteJSON(w, http.StatusOK, v)
	}
}

// Snapshotter exposes the full store contents.
type Snapshotter interface {
	Snapshot(ctx context.Context) (models.ReservationSnapshot, error)
}

// DebugReservations returns a handler that dumps the reservation store.
func DebugReservations(store Snapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := store.Snapshot(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		middleware.WriteJSON(w, http.StatusOK, snap)
	}
}

// SeedStore is the storage needed to seed a reservation.
type SeedStore interface {
	ReservationWriter
	Driver() string
}

// SeedPayload is the demo reservation stored when a seed request carries no
// payload: an active stay from an hour ago until two days from now.
func SeedPayload(now time.Time) json.RawMessage {
	payload := map[string]any{
		"data": map[string]any{
			"id":            "res_hospitable_5039895833",
			"code":          "5039895833",
			"reservationId": "res_hospitable_5039895833",
			"propertyId":    "prop_jersey_001",
			"address":       "Test Address - NYC",
			"checkInISO":    now.Add(-time.Hour).UTC().Format(time.RFC3339),
			"checkOutISO":   now.Add(48 * time.Hour).UTC().Format(time.RFC3339),
			"steps": []map[string]string{
				{
					"id":          "building",
					"title":       "Building entrance",
					"description": "Use the button to unlock the building door.",
					"actionLabel": "Open building door",
				},
				{
					"id":          "apartment",
					"title":       "Apartment door",
					"description": "Use the button to unlock the apartment door.",
					"actionLabel": "Open apartment door",
				},
			},
			"wifi": map[string]string{
				"ssid":     "MY_WIFI",
				"password": "MY_PASSWORD",
				"notes":    "Network is 2.4G/5G; use the same password.",
			},
		},
	}
	raw, _ := json.Marshal(payload)
	return raw
}

// Seed returns a handler for GET|POST /debug/seed. A JSON body of the form
// {"payload": {...}} replaces the demo reservation. events may be nil.
func Seed(store SeedStore, events Events, now func() time.Time, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Payload json.RawMessage `json:"payload"`
		}
		if raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes)); err == nil && len(raw) > 0 {
			_ = json.Unmarshal(raw, &req)
		}

		payload := req.Payload
		decoded := reservation.Decode(payload)
		if !truthy(decoded) {
			payload = SeedPayload(now())
			decoded = reservation.Decode(payload)
		}

		data := decoded
		if root, ok := decoded.(map[string]any); ok {
			if d, ok := root["data"]; ok && truthy(d) {
				data = d
			}
		}
		fields, _ := data.(map[string]any)

		id := reservation.FirstString(fields["id"], fields["reservationId"], SeedFallbackID)
		code := reservation.FirstString(fields["code"], fields["platform_id"], SeedFallbackCode)

		rec, err := store.Upsert(r.Context(), &id, &code, payload)
		if err != nil {
			log.Error().Err(err).Msg("seeding reservation")
			middleware.WriteErrorWithDetails(w, http.StatusInternalServerError, err.Error(), map[string]any{"store": store.Driver()})
			return
		}
		if events != nil {
			events.BroadcastReservationUpserted(*rec, SourceSeed)
		}

		middleware.WriteJSON(w, http.StatusOK, map[string]any{
			"ok":    true,
			"saved": rec,
			"store": store.Driver(),
		})
	}
}

// truthy reports whether a decoded JSON value would count as present.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	}
	return true
}

// ConfigResolver supplies the effective property configuration.
type ConfigResolver interface {
	Resolve(ctx context.Context, code, propertyID string) property.Config
}

// EffectiveConfig returns a handler for GET /debug/config?code=&propertyId=.
func EffectiveConfig(resolver ConfigResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		middleware.WriteJSON(w, http.StatusOK, resolver.Resolve(r.Context(), q.Get("code"), q.Get("propertyId")))
	}
}
