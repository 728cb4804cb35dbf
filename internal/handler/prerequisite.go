package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evently/scheduling-engine/internal/model"
	"github.com/evently/scheduling-engine/internal/service"
)

// PrerequisiteHandler exposes prerequisite validation and the dependency
// graph operations.
type PrerequisiteHandler struct {
	svc *service.PrerequisiteService
}

// NewPrerequisiteHandler constructs a PrerequisiteHandler.
func NewPrerequisiteHandler(svc *service.PrerequisiteService) *PrerequisiteHandler {
	return &PrerequisiteHandler{svc: svc}
}

// Validate handles GET /sessions/{id}/prerequisites/validate?registration_id=...&override=true
func (h *PrerequisiteHandler) Validate(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	registrationID := r.URL.Query().Get("registration_id")
	if registrationID == "" {
		writeError(w, http.StatusBadRequest, "registration_id is required")
		return
	}
	override := r.URL.Query().Get("override") == "true"

	check, err := h.svc.ValidatePrerequisites(r.Context(), sessionID, registrationID, override)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// dependencyViolations is the payload for a dependency validation query.
type dependencyViolations struct {
	Violations []string `json:"violations"`
}

// ValidateDependencies handles GET /sessions/{id}/dependencies/validate?registration_id=...
func (h *PrerequisiteHandler) ValidateDependencies(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	registrationID := r.URL.Query().Get("registration_id")
	if registrationID == "" {
		writeError(w, http.StatusBadRequest, "registration_id is required")
		return
	}

	violations, err := h.svc.ValidateSessionDependencies(r.Context(), sessionID, registrationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if violations == nil {
		violations = []string{}
	}
	writeJSON(w, http.StatusOK, dependencyViolations{Violations: violations})
}

// CreatePrerequisite handles POST /prerequisites
func (h *PrerequisiteHandler) CreatePrerequisite(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePrerequisiteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p, err := h.svc.CreateSessionPrerequisite(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// DeletePrerequisite handles DELETE /prerequisites/{id}
func (h *PrerequisiteHandler) DeletePrerequisite(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePrerequisite(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateDependency handles POST /dependencies
func (h *PrerequisiteHandler) CreateDependency(w http.ResponseWriter, r *http.Request) {
	var req model.CreateDependencyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	d, err := h.svc.CreateSessionDependency(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// DeleteDependency handles DELETE /dependencies/{id}
func (h *PrerequisiteHandler) DeleteDependency(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDependency(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DetectCycles handles GET /events/{eventID}/dependencies/cycles
func (h *PrerequisiteHandler) DetectCycles(w http.ResponseWriter, r *http.Request) {
	cycles, err := h.svc.DetectCircularDependencies(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if cycles == nil {
		cycles = [][]string{}
	}
	writeJSON(w, http.StatusOK, map[string][][]string{"cycles": cycles})
}

// DependencyPath handles GET /dependencies/path?from=...&to=...
func (h *PrerequisiteHandler) DependencyPath(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to session ids are required")
		return
	}

	path, err := h.svc.GetSessionDependencyPath(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, path)
}

// Analyze handles GET /events/{eventID}/dependencies/analysis
func (h *PrerequisiteHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.svc.AnalyzeDependencyStructure(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}
