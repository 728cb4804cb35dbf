package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evently/scheduling-engine/internal/model"
	"github.com/evently/scheduling-engine/internal/service"
)

// CapacityHandler exposes capacity arbitration: configs, availability,
// admissions, cancellations and waitlist promotion.
type CapacityHandler struct {
	svc *service.CapacityService
}

// NewCapacityHandler constructs a CapacityHandler.
func NewCapacityHandler(svc *service.CapacityService) *CapacityHandler {
	return &CapacityHandler{svc: svc}
}

// CreateCapacity handles POST /sessions/{id}/capacity
func (h *CapacityHandler) CreateCapacity(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var req model.CreateCapacityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sc, err := h.svc.CreateSessionCapacity(r.Context(), sessionID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

// UpdateCapacity handles PATCH /sessions/{id}/capacity
func (h *CapacityHandler) UpdateCapacity(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var req model.UpdateCapacityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sc, err := h.svc.UpdateSessionCapacity(r.Context(), sessionID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// CheckAvailability handles GET /sessions/{id}/availability
func (h *CapacityHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	availability, err := h.svc.CheckAvailability(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availability)
}

// Admit handles POST /sessions/{id}/registrations
func (h *CapacityHandler) Admit(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var req model.AdmitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.AdmitRegistration(r.Context(), sessionID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// cancelResponse reports a cancellation and the registration promoted from
// the waitlist, if any, so downstream notification can happen.
type cancelResponse struct {
	Cancelled string                     `json:"cancelled_registration_id"`
	Promoted  *model.SessionRegistration `json:"promoted_registration,omitempty"`
}

// Cancel handles DELETE /registrations/{id}
func (h *CapacityHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	promoted, err := h.svc.CancelRegistration(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{Cancelled: id, Promoted: promoted})
}

// Recount handles POST /sessions/{id}/capacity/recount
func (h *CapacityHandler) Recount(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	sc, err := h.svc.UpdateCapacityCounts(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// AutoPromote handles POST /capacity/auto-promote
func (h *CapacityHandler) AutoPromote(w http.ResponseWriter, r *http.Request) {
	changed, err := h.svc.AutoPromoteWaitlistedUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if changed == nil {
		changed = []model.SessionCapacity{}
	}
	writeJSON(w, http.StatusOK, changed)
}

// Suggestions handles GET /events/{eventID}/capacity/suggestions
func (h *CapacityHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	suggestions, err := h.svc.GetCapacityOptimizationSuggestions(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if suggestions == nil {
		suggestions = []model.CapacitySuggestion{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}
