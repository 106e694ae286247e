package incidents

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/escalation"
	"github.com/bissquit/incident-relay/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrNotFound, Status: http.StatusNotFound, Message: "incident not found"},
	{Error: ErrInvalidTransition, Status: http.StatusConflict},
	{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
	{Error: ErrInvalidActionType, Status: http.StatusBadRequest},
	{Error: escalation.ErrUnknownSeverity, Status: http.StatusBadRequest},
}

// Handler handles HTTP requests for the incident surface.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers mutating incident routes (require auth).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/incidents", h.CreateIncident)
	r.Post("/incidents/{id}/actions", h.LogAction)
	r.Patch("/incidents/{id}/status", h.UpdateStatus)
}

// RegisterPublicRoutes registers read-only incident routes.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/incidents", h.ListActive)
	r.Get("/incidents/{id}", h.GetIncident)
	r.Get("/incidents/{id}/timeline", h.GetTimeline)
}

// CreateIncidentRequest represents request body for creating an incident.
type CreateIncidentRequest struct {
	Description string     `json:"description" validate:"required"`
	Severity    string     `json:"severity" validate:"required"`
	Service     string     `json:"service" validate:"required"`
	Reporter    string     `json:"reporter" validate:"required"`
	Timestamp   *time.Time `json:"timestamp"`
}

// LogActionRequest represents request body for logging an action.
type LogActionRequest struct {
	ActionType string         `json:"action_type" validate:"required"`
	Details    map[string]any `json:"details"`
	Timestamp  *time.Time     `json:"timestamp"`
}

// UpdateStatusRequest represents request body for a status transition.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes"`
}

// CreateIncident handles POST /incidents.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req CreateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	out, err := h.service.CreateIncident(r.Context(), CreateIncidentInput{
		Description: req.Description,
		Severity:    domain.Severity(req.Severity),
		Service:     req.Service,
		Reporter:    req.Reporter,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, map[string]any{
		"incident_id":   out.Incident.ID,
		"status":        out.Incident.Status,
		"escalation":    out.Escalation,
		"notifications": out.Notifications,
	})
}

// LogAction handles POST /incidents/{id}/actions.
func (h *Handler) LogAction(w http.ResponseWriter, r *http.Request) {
	incidentID := chi.URLParam(r, "id")

	var req LogActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	err := h.service.LogAction(r.Context(), incidentID, domain.ActionType(req.ActionType), req.Details, req.Timestamp)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]string{
		"status":      "logged",
		"action_type": req.ActionType,
	})
}

// UpdateStatus handles PATCH /incidents/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	incidentID := chi.URLParam(r, "id")

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.UpdateStatus(r.Context(), incidentID, domain.IncidentStatus(req.Status), req.Notes)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]any{
		"incident_id": incident.ID,
		"new_status":  incident.Status,
	})
}

// GetIncident handles GET /incidents/{id}.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	incident, err := h.service.GetIncident(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// GetTimeline handles GET /incidents/{id}/timeline.
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	incidentID := chi.URLParam(r, "id")

	events, err := h.service.GetTimeline(r.Context(), incidentID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]any{
		"incident_id": incidentID,
		"timeline":    events,
	})
}

// ListActive handles GET /incidents.
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	active, err := h.service.ListActive(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]any{
		"count":     len(active),
		"incidents": active,
	})
}
