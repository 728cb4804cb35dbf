package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evently/scheduling-engine/internal/model"
	"github.com/evently/scheduling-engine/internal/service"
)

// ConflictHandler exposes conflict detection and resolution.
type ConflictHandler struct {
	detector *service.ConflictDetector
	resolver *service.ConflictResolver
}

// NewConflictHandler constructs a ConflictHandler.
func NewConflictHandler(detector *service.ConflictDetector, resolver *service.ConflictResolver) *ConflictHandler {
	return &ConflictHandler{detector: detector, resolver: resolver}
}

type detectFunc func(ctx context.Context, eventID string) ([]model.ScheduleConflict, error)

func (h *ConflictHandler) detect(w http.ResponseWriter, r *http.Request, fn detectFunc) {
	eventID := chi.URLParam(r, "eventID")

	conflicts, err := fn(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if conflicts == nil {
		conflicts = []model.ScheduleConflict{}
	}
	writeJSON(w, http.StatusOK, conflicts)
}

// DetectAll handles POST /events/{eventID}/conflicts/detect
func (h *ConflictHandler) DetectAll(w http.ResponseWriter, r *http.Request) {
	h.detect(w, r, h.detector.DetectAllConflicts)
}

// DetectTimeOverlaps handles POST /events/{eventID}/conflicts/detect/time
func (h *ConflictHandler) DetectTimeOverlaps(w http.ResponseWriter, r *http.Request) {
	h.detect(w, r, h.detector.DetectTimeOverlapConflicts)
}

// DetectResources handles POST /events/{eventID}/conflicts/detect/resources
func (h *ConflictHandler) DetectResources(w http.ResponseWriter, r *http.Request) {
	h.detect(w, r, h.detector.DetectResourceConflicts)
}

// DetectCapacity handles POST /events/{eventID}/conflicts/detect/capacity
func (h *ConflictHandler) DetectCapacity(w http.ResponseWriter, r *http.Request) {
	h.detect(w, r, h.detector.DetectCapacityConflicts)
}

// DetectUsers handles POST /events/{eventID}/conflicts/detect/users
func (h *ConflictHandler) DetectUsers(w http.ResponseWriter, r *http.Request) {
	h.detect(w, r, h.detector.DetectUserConflicts)
}

// Resolve handles POST /conflicts/{id}/resolve
func (h *ConflictHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.ResolveConflictRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	conflict, err := h.resolver.ResolveConflict(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conflict)
}

// AutoResolve handles POST /conflicts/auto-resolve
func (h *ConflictHandler) AutoResolve(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.resolver.AutoResolveConflicts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if resolved == nil {
		resolved = []model.ScheduleConflict{}
	}
	writeJSON(w, http.StatusOK, resolved)
}
