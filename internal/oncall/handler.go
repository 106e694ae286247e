package oncall

import (
	"net/http"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/escalation"
	"github.com/bissquit/incident-relay/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: escalation.ErrUnknownSeverity, Status: http.StatusBadRequest},
}

// Handler handles HTTP requests for the directory surface.
type Handler struct {
	directory *Directory
}

// NewHandler creates a new oncall handler.
func NewHandler(directory *Directory) *Handler {
	return &Handler{directory: directory}
}

// RegisterRoutes registers directory routes. Lookups are read-only and
// public, like the service catalog.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/oncall/{team}", func(r chi.Router) {
		r.Get("/", h.GetEngineer)
		r.Get("/escalation", h.GetEscalationChain)
		r.Get("/channels", h.GetChannels)
	})
}

// GetEngineer handles GET /oncall/{team}.
func (h *Handler) GetEngineer(w http.ResponseWriter, r *http.Request) {
	team := chi.URLParam(r, "team")
	assignment := h.directory.GetOncallEngineer(r.Context(), team)
	httputil.Success(w, http.StatusOK, assignment)
}

// GetEscalationChain handles GET /oncall/{team}/escalation?severity=P0.
func (h *Handler) GetEscalationChain(w http.ResponseWriter, r *http.Request) {
	team := chi.URLParam(r, "team")
	severity := domain.Severity(r.URL.Query().Get("severity"))

	chain, err := h.directory.GetEscalationChain(r.Context(), team, severity)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, chain)
}

// GetChannels handles GET /oncall/{team}/channels.
func (h *Handler) GetChannels(w http.ResponseWriter, r *http.Request) {
	team := chi.URLParam(r, "team")
	channels := h.directory.GetTeamChannels(r.Context(), team)
	httputil.Success(w, http.StatusOK, channels)
}
