// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the scheduling engine's services.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/evently/scheduling-engine/internal/model"
	"github.com/evently/scheduling-engine/internal/service"
)

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// validationFailure is the 422 payload carrying the unmet prerequisites.
type validationFailure struct {
	Error string                    `json:"error"`
	Unmet []model.UnmetPrerequisite `json:"unmet_prerequisites"`
}

// writeServiceError maps engine errors to HTTP statuses so callers can act
// on them: unknown ids are 404, precondition violations 400, refused
// admissions 409, failed prerequisite validation 422 with the structured
// unmet list. Anything unexpected stays a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var vErr *service.ValidationFailedError
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCapacityExceeded),
		errors.Is(err, service.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, validationFailure{
			Error: "prerequisite validation failed",
			Unmet: vErr.Unmet,
		})
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
