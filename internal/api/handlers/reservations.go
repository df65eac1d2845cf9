package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/str-access/backend/internal/access"
	"github.com/str-access/backend/internal/api/middleware"
	"github.com/str-access/backend/internal/reservation"
)

// ReservationResolver returns the guest-facing reservation for a code.
type ReservationResolver interface {
	Resolve(ctx context.Context, code string) (*reservation.Found, error)
}

// ReservationResponse is the body of a successful by-code lookup.
type ReservationResponse struct {
	OK          bool                    `json:"ok"`
	Code        string                  `json:"code"`
	ID          *string                 `json:"id"`
	UpdatedAt   time.Time               `json:"updatedAt"`
	Reservation reservation.Reservation `json:"reservation"`
	Access      access.Summary          `json:"access"`
}

// GetReservationByCode returns a handler for GET /api/reservations/by-code/{code}.
func GetReservationByCode(resolver ReservationResolver, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := mux.Vars(r)["code"]

		found, err := resolver.Resolve(r.Context(), code)
		if err != nil {
			if errors.Is(err, reservation.ErrNotFound) {
				middleware.WriteErrorWithDetails(w, http.StatusNotFound, "Not found", map[string]any{"code": code})
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, "Internal error")
			return
		}

		res := found.Reservation
		responseCode := res.Code
		if responseCode == "" {
			responseCode = code
		}

		middleware.WriteJSON(w, http.StatusOK, ReservationResponse{
			OK:          true,
			Code:        responseCode,
			ID:          found.Record.ID,
			UpdatedAt:   found.Record.UpdatedAt,
			Reservation: res,
			Access:      access.Summarize(now(), res.CheckInISO, res.CheckOutISO),
		})
	}
}
