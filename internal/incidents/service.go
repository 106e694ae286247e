package incidents

import (
	"context"
	"fmt"
	"time"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/escalation"
	"github.com/bissquit/incident-relay/internal/pkg/ctxlog"
	"github.com/bissquit/incident-relay/internal/timeline"
)

// AlertNotifier dispatches the immediate-contact escalation levels for a
// newly created incident and reports per-channel outcomes. Implementations
// must be best-effort: a channel failure shows up in the results, never as
// an error that blocks incident creation.
type AlertNotifier interface {
	NotifyCreated(ctx context.Context, incident *domain.Incident, levels []escalation.Level) []domain.NotificationResult
}

// Service implements incident business logic: the lifecycle state machine,
// audit trail and creation-time escalation dispatch.
type Service struct {
	repo     Repository
	timeline timeline.Repository
	ids      *IDGenerator
	locks    *keyedMutex
	notifier AlertNotifier
}

// NewService creates a new incident service. notifier may be nil, in which
// case creation records no delivery outcomes.
func NewService(repo Repository, timelineRepo timeline.Repository, notifier AlertNotifier) *Service {
	return &Service{
		repo:     repo,
		timeline: timelineRepo,
		ids:      NewIDGenerator(),
		locks:    newKeyedMutex(),
		notifier: notifier,
	}
}

// CreateIncidentInput holds data for creating an incident.
type CreateIncidentInput struct {
	Description string
	Severity    domain.Severity
	Service     string
	Reporter    string
	Timestamp   *time.Time // defaults to now
}

// CreateIncidentOutput is the result of creating an incident: the record,
// the full escalation schedule and the outcomes of the immediate dispatch.
// Delayed levels are data for an external timer, not dispatched here.
type CreateIncidentOutput struct {
	Incident      *domain.Incident            `json:"incident"`
	Escalation    []escalation.Level          `json:"escalation"`
	Notifications []domain.NotificationResult `json:"notifications"`
}

// CreateIncident allocates a new incident in state open, computes the
// escalation chain for its severity and dispatches the immediate-contact
// levels.
func (s *Service) CreateIncident(ctx context.Context, input CreateIncidentInput) (*CreateIncidentOutput, error) {
	chain, err := escalation.ChainFor(input.Severity)
	if err != nil {
		return nil, err
	}

	createdAt := time.Now().UTC()
	if input.Timestamp != nil {
		createdAt = input.Timestamp.UTC()
	}

	incident := &domain.Incident{
		ID:          s.ids.Next(),
		Description: input.Description,
		Severity:    input.Severity,
		Service:     input.Service,
		Reporter:    input.Reporter,
		Status:      domain.IncidentStatusOpen,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	if err := s.repo.Create(ctx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	incidentsCreated.WithLabelValues(string(incident.Severity)).Inc()

	if err := s.appendEvent(ctx, incident.ID, domain.ActionCreated, map[string]any{
		"severity": string(incident.Severity),
		"service":  incident.Service,
		"reporter": incident.Reporter,
	}); err != nil {
		return nil, err
	}

	var results []domain.NotificationResult
	if s.notifier != nil {
		results = s.notifier.NotifyCreated(ctx, incident, escalation.Immediate(chain))
		for _, res := range results {
			if err := s.appendEvent(ctx, incident.ID, domain.ActionNotified, map[string]any{
				"channel": string(res.Channel),
				"target":  res.Target,
				"outcome": string(res.Outcome),
				"reason":  res.Reason,
			}); err != nil {
				return nil, err
			}
		}
	}

	ctxlog.FromContext(ctx).Info("incident created",
		"incident_id", incident.ID,
		"severity", incident.Severity,
		"service", incident.Service,
		"immediate_levels", len(escalation.Immediate(chain)),
	)

	return &CreateIncidentOutput{
		Incident:      incident,
		Escalation:    chain,
		Notifications: results,
	}, nil
}

// LogAction appends a timeline entry without changing incident status.
func (s *Service) LogAction(ctx context.Context, incidentID string, actionType domain.ActionType, details map[string]any, ts *time.Time) error {
	if !actionType.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidActionType, actionType)
	}

	s.locks.Lock(incidentID)
	defer s.locks.Unlock(incidentID)

	if _, err := s.repo.GetByID(ctx, incidentID); err != nil {
		return err
	}

	createdAt := time.Now().UTC()
	if ts != nil {
		createdAt = ts.UTC()
	}

	event := &domain.TimelineEvent{
		IncidentID: incidentID,
		ActionType: actionType,
		Details:    details,
		CreatedAt:  createdAt,
	}
	if err := s.timeline.Append(ctx, event); err != nil {
		return fmt.Errorf("append timeline event: %w", err)
	}
	return nil
}

// UpdateStatus moves an incident along the state machine. The only permitted
// edges are open→investigating, investigating→resolved, resolved→closed and
// resolved→investigating (reopen); anything else fails with
// ErrInvalidTransition.
func (s *Service) UpdateStatus(ctx context.Context, incidentID string, newStatus domain.IncidentStatus, notes string) (*domain.Incident, error) {
	if !newStatus.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	s.locks.Lock(incidentID)
	defer s.locks.Unlock(incidentID)

	incident, err := s.repo.GetByID(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	if !incident.Status.CanTransitionTo(newStatus) {
		rejectedTransitions.Inc()
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, incident.Status, newStatus)
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, incidentID, newStatus, now); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	statusTransitions.WithLabelValues(string(incident.Status), string(newStatus)).Inc()

	if err := s.appendEvent(ctx, incidentID, domain.ActionStatusChanged, map[string]any{
		"from":  string(incident.Status),
		"to":    string(newStatus),
		"notes": notes,
	}); err != nil {
		return nil, err
	}

	incident.Status = newStatus
	incident.UpdatedAt = now

	ctxlog.FromContext(ctx).Info("incident status updated",
		"incident_id", incidentID,
		"status", newStatus,
	)

	return incident, nil
}

// GetTimeline returns the ordered audit log for an incident. An incident
// with no events yields an empty list; a wholly unknown incident id fails
// with ErrNotFound.
func (s *Service) GetTimeline(ctx context.Context, incidentID string) ([]domain.TimelineEvent, error) {
	if _, err := s.repo.GetByID(ctx, incidentID); err != nil {
		return nil, err
	}
	return s.timeline.ListByIncident(ctx, incidentID)
}

// GetIncident returns a single incident by id.
func (s *Service) GetIncident(ctx context.Context, incidentID string) (*domain.Incident, error) {
	return s.repo.GetByID(ctx, incidentID)
}

// ListActive returns all incidents that are not closed.
func (s *Service) ListActive(ctx context.Context) ([]domain.Incident, error) {
	return s.repo.ListActive(ctx)
}

func (s *Service) appendEvent(ctx context.Context, incidentID string, actionType domain.ActionType, details map[string]any) error {
	event := &domain.TimelineEvent{
		IncidentID: incidentID,
		ActionType: actionType,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.timeline.Append(ctx, event); err != nil {
		return fmt.Errorf("append timeline event: %w", err)
	}
	return nil
}
