package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/str-access/backend/internal/api/middleware"
	"github.com/str-access/backend/internal/reservation"
	"github.com/str-access/backend/internal/unlock"
)

// UnlockAuthorizer decides and performs unlock requests.
type UnlockAuthorizer interface {
	Authorize(ctx context.Context, cmd unlock.Command) (*unlock.Result, error)
}

// UnlockResponse is the body of an accepted unlock request.
type UnlockResponse struct {
	OK     bool   `json:"ok"`
	Code   string `json:"code"`
	StepID string `json:"stepId"`
	Action string `json:"action"`
	Result string `json:"result"`
}

// Unlock returns a handler for POST /api/unlock.
func Unlock(auth UnlockAuthorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Fields may arrive as numbers; a missing or unparseable body is
		// reported as missing fields.
		var body map[string]any
		_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body)

		cmd := unlock.Command{
			Code:   reservation.FirstString(body["code"]),
			StepID: reservation.FirstString(body["stepId"]),
			Action: reservation.FirstString(body["action"]),
		}

		result, err := auth.Authorize(r.Context(), cmd)
		if err != nil {
			var notActive *unlock.AccessNotActiveError
			switch {
			case errors.Is(err, unlock.ErrInvalidRequest):
				middleware.WriteError(w, http.StatusBadRequest, "Missing code or stepId")
			case errors.Is(err, reservation.ErrNotFound):
				middleware.WriteErrorWithDetails(w, http.StatusNotFound, "Reservation not found", map[string]any{"code": cmd.Code})
			case errors.As(err, &notActive):
				middleware.WriteErrorWithDetails(w, http.StatusForbidden, "Access not active", map[string]any{
					"phase":  notActive.Phase,
					"code":   cmd.Code,
					"stepId": cmd.StepID,
				})
			default:
				middleware.WriteError(w, http.StatusInternalServerError, "Internal error")
			}
			return
		}

		middleware.WriteJSON(w, http.StatusOK, UnlockResponse{
			OK:     true,
			Code:   result.Code,
			StepID: result.StepID,
			Action: result.Action,
			Result: result.Result,
		})
	}
}
