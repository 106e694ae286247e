package incidents_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/escalation"
	"github.com/bissquit/incident-relay/internal/incidents"
	"github.com/bissquit/incident-relay/internal/incidents/memory"
	tlmemory "github.com/bissquit/incident-relay/internal/timeline/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNotifier struct {
	mu        sync.Mutex
	results   []domain.NotificationResult
	gotLevels []escalation.Level
	calls     int
}

func (s *stubNotifier) NotifyCreated(_ context.Context, _ *domain.Incident, levels []escalation.Level) []domain.NotificationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gotLevels = levels
	s.calls++
	return s.results
}

func newTestService(notifier incidents.AlertNotifier) *incidents.Service {
	return incidents.NewService(memory.NewRepository(), tlmemory.NewRepository(), notifier)
}

func createP0(t *testing.T, svc *incidents.Service) *domain.Incident {
	t.Helper()
	out, err := svc.CreateIncident(context.Background(), incidents.CreateIncidentInput{
		Description: "db down",
		Severity:    domain.SeverityP0,
		Service:     "payments",
		Reporter:    "dana",
	})
	require.NoError(t, err)
	return out.Incident
}

func TestService_CreateIncident(t *testing.T) {
	notifier := &stubNotifier{
		results: []domain.NotificationResult{
			{Channel: domain.ChannelTypeSlack, Target: "#incidents", Outcome: domain.OutcomeDelivered},
		},
	}
	svc := newTestService(notifier)

	out, err := svc.CreateIncident(context.Background(), incidents.CreateIncidentInput{
		Description: "db down",
		Severity:    domain.SeverityP0,
		Service:     "payments",
		Reporter:    "dana",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out.Incident.ID, "INC-"))
	assert.Equal(t, domain.IncidentStatusOpen, out.Incident.Status)
	assert.Equal(t, domain.SeverityP0, out.Incident.Severity)
	assert.False(t, out.Incident.CreatedAt.IsZero())

	// full chain returned, delayed levels included
	require.Len(t, out.Escalation, 3)
	assert.Equal(t, escalation.RoleOncallEngineer, out.Escalation[0].Role)
	assert.Equal(t, escalation.RoleVPEngineering, out.Escalation[2].Role)

	// only the immediate levels reach the notifier
	require.Len(t, notifier.gotLevels, 1)
	assert.Equal(t, escalation.RoleOncallEngineer, notifier.gotLevels[0].Role)

	require.Len(t, out.Notifications, 1)
	assert.Equal(t, domain.OutcomeDelivered, out.Notifications[0].Outcome)
}

func TestService_CreateIncident_UnknownSeverity(t *testing.T) {
	svc := newTestService(nil)

	_, err := svc.CreateIncident(context.Background(), incidents.CreateIncidentInput{
		Description: "x",
		Severity:    "P9",
		Service:     "payments",
		Reporter:    "dana",
	})

	assert.ErrorIs(t, err, escalation.ErrUnknownSeverity)
}

func TestService_CreateIncident_TimelineSeeded(t *testing.T) {
	notifier := &stubNotifier{
		results: []domain.NotificationResult{
			{Channel: domain.ChannelTypeSlack, Target: "#incidents", Outcome: domain.OutcomeDelivered},
			{Channel: domain.ChannelTypeSMS, Target: "+15550123", Outcome: domain.OutcomeFailed, Reason: "invalid number"},
		},
	}
	svc := newTestService(notifier)
	incident := createP0(t, svc)

	events, err := svc.GetTimeline(context.Background(), incident.ID)
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, domain.ActionCreated, events[0].ActionType)
	assert.Equal(t, domain.ActionNotified, events[1].ActionType)
	assert.Equal(t, domain.ActionNotified, events[2].ActionType)
	assert.Equal(t, "delivered", events[1].Details["outcome"])
	assert.Equal(t, "failed", events[2].Details["outcome"])
}

func TestService_CreateIncident_ConcurrentIDsDistinct(t *testing.T) {
	svc := newTestService(nil)

	const n = 50
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := svc.CreateIncident(context.Background(), incidents.CreateIncidentInput{
				Description: "x",
				Severity:    domain.SeverityP2,
				Service:     "payments",
				Reporter:    "dana",
			})
			require.NoError(t, err)
			ids <- out.Incident.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, n)
	for id := range ids {
		assert.False(t, seen[id], "duplicate incident id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestService_UpdateStatus_FullLifecycle(t *testing.T) {
	svc := newTestService(nil)
	incident := createP0(t, svc)
	ctx := context.Background()

	for _, status := range []domain.IncidentStatus{
		domain.IncidentStatusInvestigating,
		domain.IncidentStatusResolved,
		domain.IncidentStatusClosed,
	} {
		updated, err := svc.UpdateStatus(ctx, incident.ID, status, "")
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
	}
}

func TestService_UpdateStatus_SkippingStateRejected(t *testing.T) {
	svc := newTestService(nil)
	incident := createP0(t, svc)

	_, err := svc.UpdateStatus(context.Background(), incident.ID, domain.IncidentStatusClosed, "")

	assert.ErrorIs(t, err, incidents.ErrInvalidTransition)
}

func TestService_UpdateStatus_Reopen(t *testing.T) {
	svc := newTestService(nil)
	incident := createP0(t, svc)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, incident.ID, domain.IncidentStatusInvestigating, "")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, incident.ID, domain.IncidentStatusResolved, "")
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, incident.ID, domain.IncidentStatusInvestigating, "regression")
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusInvestigating, updated.Status)
}

func TestService_UpdateStatus_ClosedIsTerminal(t *testing.T) {
	svc := newTestService(nil)
	incident := createP0(t, svc)
	ctx := context.Background()

	for _, status := range []domain.IncidentStatus{
		domain.IncidentStatusInvestigating,
		domain.IncidentStatusResolved,
		domain.IncidentStatusClosed,
	} {
		_, err := svc.UpdateStatus(ctx, incident.ID, status, "")
		require.NoError(t, err)
	}

	for _, status := range []domain.IncidentStatus{
		domain.IncidentStatusOpen,
		domain.IncidentStatusInvestigating,
		domain.IncidentStatusResolved,
	} {
		_, err := svc.UpdateStatus(ctx, incident.ID, status, "")
		assert.ErrorIs(t, err, incidents.ErrInvalidTransition, "closed -> %s should be rejected", status)
	}
}

func TestService_UpdateStatus_UnknownStatus(t *testing.T) {
	svc := newTestService(nil)
	incident := createP0(t, svc)

	_, err := svc.UpdateStatus(context.Background(), incident.ID, "on_fire", "")

	assert.ErrorIs(t, err, incidents.ErrInvalidStatus)
}

func TestService_UpdateStatus_UnknownIncident(t *testing.T) {
	svc := newTestService(nil)

	_, err := svc.UpdateStatus(context.Background(), "INC-NOPE", domain.IncidentStatusInvestigating, "")

	assert.ErrorIs(t, err, incidents.ErrNotFound)
}

func TestService_LogAction(t *testing.T) {
	svc := newTestService(nil)
	incident := createP0(t, svc)
	ctx := context.Background()

	err := svc.LogAction(ctx, incident.ID, domain.ActionNote, map[string]any{"text": "checked dashboards"}, nil)
	require.NoError(t, err)

	events, err := svc.GetTimeline(ctx, incident.ID)
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, domain.ActionNote, last.ActionType)
	assert.Equal(t, "checked dashboards", last.Details["text"])
}

func TestService_LogAction_InvalidType(t *testing.T) {
	svc := newTestService(nil)
	incident := createP0(t, svc)

	err := svc.LogAction(context.Background(), incident.ID, "party", nil, nil)

	assert.ErrorIs(t, err, incidents.ErrInvalidActionType)
}

func TestService_LogAction_UnknownIncident(t *testing.T) {
	svc := newTestService(nil)

	err := svc.LogAction(context.Background(), "INC-NOPE", domain.ActionNote, nil, nil)

	assert.ErrorIs(t, err, incidents.ErrNotFound)
}

func TestService_GetTimeline_UnknownIncident(t *testing.T) {
	svc := newTestService(nil)

	_, err := svc.GetTimeline(context.Background(), "INC-NOPE")

	assert.ErrorIs(t, err, incidents.ErrNotFound)
}

func TestService_GetTimeline_OrderMatchesCalls(t *testing.T) {
	svc := newTestService(nil)
	incident := createP0(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.LogAction(ctx, incident.ID, domain.ActionNote, map[string]any{"n": "first"}, nil))
	_, err := svc.UpdateStatus(ctx, incident.ID, domain.IncidentStatusInvestigating, "")
	require.NoError(t, err)
	require.NoError(t, svc.LogAction(ctx, incident.ID, domain.ActionNote, map[string]any{"n": "second"}, nil))

	events, err := svc.GetTimeline(ctx, incident.ID)
	require.NoError(t, err)

	types := make([]domain.ActionType, len(events))
	for i, e := range events {
		types[i] = e.ActionType
	}
	assert.Equal(t, []domain.ActionType{
		domain.ActionCreated,
		domain.ActionNote,
		domain.ActionStatusChanged,
		domain.ActionNote,
	}, types)
}

func TestService_ListActive_ExcludesClosed(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	open := createP0(t, svc)
	closing := createP0(t, svc)
	for _, status := range []domain.IncidentStatus{
		domain.IncidentStatusInvestigating,
		domain.IncidentStatusResolved,
		domain.IncidentStatusClosed,
	} {
		_, err := svc.UpdateStatus(ctx, closing.ID, status, "")
		require.NoError(t, err)
	}

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)

	require.Len(t, active, 1)
	assert.Equal(t, open.ID, active[0].ID)
}
