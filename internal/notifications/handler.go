package notifications

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/escalation"
	"github.com/bissquit/incident-relay/internal/oncall"
	"github.com/bissquit/incident-relay/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrEmptyDispatch, Status: http.StatusBadRequest},
	{Error: ErrMissingTarget, Status: http.StatusBadRequest},
	{Error: ErrUnknownChannel, Status: http.StatusBadRequest},
	{Error: ErrNoSender, Status: http.StatusBadRequest},
	{Error: ErrUnknownStatus, Status: http.StatusBadRequest},
	{Error: escalation.ErrUnknownSeverity, Status: http.StatusBadRequest},
}

// Handler handles HTTP requests for the notification surface. Channel
// failures surface inside the result set, not as HTTP errors; only
// validation gets a non-2xx status.
type Handler struct {
	router    *Router
	alerter   *Alerter
	directory *oncall.Directory
	validator *validator.Validate
}

// NewHandler creates a new notifications handler.
func NewHandler(router *Router, alerter *Alerter, directory *oncall.Directory) *Handler {
	return &Handler{
		router:    router,
		alerter:   alerter,
		directory: directory,
		validator: validator.New(),
	}
}

// RegisterRoutes registers the notification routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notify", func(r chi.Router) {
		r.Post("/slack", h.NotifySlack)
		r.Post("/sms", h.NotifySMS)
		r.Post("/email", h.NotifyEmail)
		r.Post("/discord", h.NotifyDiscord)
		r.Post("/incident-alert", h.IncidentAlert)
		r.Post("/status-update", h.StatusUpdate)
	})
	r.Post("/war-rooms", h.CreateWarRoom)
}

// SlackMessageRequest represents request body for a direct Slack send.
type SlackMessageRequest struct {
	Message  string `json:"message" validate:"required"`
	Severity string `json:"severity"`
	Channel  string `json:"channel"`
}

// SMSMessageRequest represents request body for a direct SMS send.
type SMSMessageRequest struct {
	Phone   string `json:"phone" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// EmailMessageRequest represents request body for a direct email send.
type EmailMessageRequest struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body" validate:"required"`
}

// DiscordMessageRequest represents request body for a direct Discord send.
type DiscordMessageRequest struct {
	Content  string `json:"content" validate:"required"`
	Username string `json:"username"`
}

// IncidentAlertRequest represents request body for the full multi-channel
// incident alert.
type IncidentAlertRequest struct {
	IncidentID  string `json:"incident_id" validate:"required"`
	Severity    string `json:"severity" validate:"required"`
	Description string `json:"description" validate:"required"`
	Service     string `json:"service" validate:"required"`
	Reporter    string `json:"reporter"`
}

// StatusUpdateRequest represents request body for broadcasting a status
// change to the team channels.
type StatusUpdateRequest struct {
	IncidentID string `json:"incident_id" validate:"required"`
	Status     string `json:"status" validate:"required"`
	Message    string `json:"message"`
	Service    string `json:"service"`
}

// WarRoomRequest represents request body for opening a war room.
type WarRoomRequest struct {
	IncidentID string `json:"incident_id" validate:"required"`
}

// NotifySlack handles POST /notify/slack.
func (h *Handler) NotifySlack(w http.ResponseWriter, r *http.Request) {
	var req SlackMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	channel := req.Channel
	if channel == "" {
		channel = h.directory.GetTeamChannels(r.Context(), "").Primary
	}
	h.dispatchOne(w, r, domain.NotificationRequest{
		Channel:  domain.ChannelTypeSlack,
		Target:   channel,
		Payload:  req.Message,
		Severity: domain.Severity(req.Severity),
	})
}

// NotifySMS handles POST /notify/sms.
func (h *Handler) NotifySMS(w http.ResponseWriter, r *http.Request) {
	var req SMSMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.dispatchOne(w, r, domain.NotificationRequest{
		Channel: domain.ChannelTypeSMS,
		Target:  req.Phone,
		Payload: req.Message,
	})
}

// NotifyEmail handles POST /notify/email.
func (h *Handler) NotifyEmail(w http.ResponseWriter, r *http.Request) {
	var req EmailMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.dispatchOne(w, r, domain.NotificationRequest{
		Channel: domain.ChannelTypeEmail,
		Target:  req.To,
		Subject: req.Subject,
		Payload: req.Body,
	})
}

// NotifyDiscord handles POST /notify/discord.
func (h *Handler) NotifyDiscord(w http.ResponseWriter, r *http.Request) {
	var req DiscordMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	username := req.Username
	if username == "" {
		username = "Incident Bot"
	}
	h.dispatchOne(w, r, domain.NotificationRequest{
		Channel: domain.ChannelTypeDiscord,
		Target:  username,
		Payload: req.Content,
	})
}

// IncidentAlert handles POST /notify/incident-alert: the same fan-out that
// runs on incident creation, invokable for re-paging.
func (h *Handler) IncidentAlert(w http.ResponseWriter, r *http.Request) {
	var req IncidentAlertRequest
	if !h.decode(w, r, &req) {
		return
	}

	severity := domain.Severity(req.Severity)
	chain, err := escalation.ChainFor(severity)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	incident := &domain.Incident{
		ID:          req.IncidentID,
		Description: req.Description,
		Severity:    severity,
		Service:     req.Service,
		Reporter:    req.Reporter,
	}
	results := h.alerter.NotifyCreated(r.Context(), incident, chain)

	httputil.Success(w, http.StatusOK, map[string]any{
		"incident_id":   req.IncidentID,
		"escalation":    chain,
		"notifications": results,
	})
}

// StatusUpdate handles POST /notify/status-update: broadcasts a lifecycle
// change to the owning team's Slack channel and Discord.
func (h *Handler) StatusUpdate(w http.ResponseWriter, r *http.Request) {
	var req StatusUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	status := domain.IncidentStatus(req.Status)
	if !status.IsValid() {
		httputil.HandleError(r.Context(), w, fmt.Errorf("%w: %q", ErrUnknownStatus, req.Status), errorMappings)
		return
	}

	body := fmt.Sprintf("%s Incident %s is now %s", StatusEmoji(status), req.IncidentID, status)
	if req.Message != "" {
		body += ": " + req.Message
	}
	fields := map[string]string{
		"Status":      string(status),
		"Incident ID": req.IncidentID,
	}

	channels := h.directory.GetTeamChannels(r.Context(), req.Service)
	results, err := h.router.Dispatch(r.Context(), []domain.NotificationRequest{
		{
			Channel: domain.ChannelTypeSlack,
			Target:  channels.Primary,
			Payload: body,
			Fields:  fields,
		},
		{
			Channel: domain.ChannelTypeDiscord,
			Target:  "Incident Bot",
			Payload: body,
			Fields:  fields,
		},
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]any{
		"incident_id":   req.IncidentID,
		"status":        status,
		"notifications": results,
	})
}

// CreateWarRoom handles POST /war-rooms. The room link is deterministic, so
// the endpoint is idempotent per incident.
func (h *Handler) CreateWarRoom(w http.ResponseWriter, r *http.Request) {
	var req WarRoomRequest
	if !h.decode(w, r, &req) {
		return
	}

	url := WarRoomURL(h.alerter.warRoomBaseURL, req.IncidentID)
	results, err := h.router.Dispatch(r.Context(), []domain.NotificationRequest{{
		Channel: domain.ChannelTypeWarRoom,
		Target:  url,
		Payload: fmt.Sprintf("War room for %s", req.IncidentID),
	}})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, map[string]any{
		"incident_id":   req.IncidentID,
		"war_room_url":  url,
		"notifications": results,
	})
}

// dispatchOne routes a single request and writes the result envelope. A
// delivery failure lands in the result row; only a malformed request maps
// to an error status.
func (h *Handler) dispatchOne(w http.ResponseWriter, r *http.Request, req domain.NotificationRequest) {
	results, err := h.router.Dispatch(r.Context(), []domain.NotificationRequest{req})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]any{
		"notifications": results,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httputil.ValidationError(w, err)
		return false
	}
	return true
}
