package notifications

import (
	"context"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/escalation"
	"github.com/bissquit/incident-relay/internal/oncall"
	"github.com/bissquit/incident-relay/internal/pkg/ctxlog"
)

// Alerter turns a freshly created incident into the initial notification
// fan-out: it resolves the owning team from the directory, builds one
// request per contact channel and hands the batch to the router. Delivery
// is best-effort; outcomes are reported per channel and never block
// incident creation.
type Alerter struct {
	directory      *oncall.Directory
	router         *Router
	warRoomBaseURL string
}

// NewAlerter creates an alerter over the given directory and router.
func NewAlerter(directory *oncall.Directory, router *Router, warRoomBaseURL string) *Alerter {
	return &Alerter{
		directory:      directory,
		router:         router,
		warRoomBaseURL: warRoomBaseURL,
	}
}

// NotifyCreated dispatches the immediate-contact levels of an escalation
// chain. Levels with a delay are a schedule for an external timer and are
// not dispatched here; if no level is immediate the dispatch is empty.
func (a *Alerter) NotifyCreated(ctx context.Context, incident *domain.Incident, levels []escalation.Level) []domain.NotificationResult {
	requests := a.buildRequests(ctx, incident, escalation.Immediate(levels))
	if len(requests) == 0 {
		return nil
	}

	results, err := a.router.Dispatch(ctx, requests)
	if err != nil {
		ctxlog.FromContext(ctx).ErrorContext(ctx, "initial alert dispatch rejected",
			"incident_id", incident.ID,
			"error", err)
		return nil
	}
	return results
}

func (a *Alerter) buildRequests(ctx context.Context, incident *domain.Incident, immediate []escalation.Level) []domain.NotificationRequest {
	var requests []domain.NotificationRequest
	body := AlertText(incident)
	fields := map[string]string{
		"Severity":    string(incident.Severity),
		"Service":     incident.Service,
		"Incident ID": incident.ID,
	}

	// A roster entry may lack a contact field; that channel is skipped so
	// the rest of the fan-out still goes out.
	add := func(req domain.NotificationRequest) {
		if req.Target == "" {
			ctxlog.FromContext(ctx).DebugContext(ctx, "skipping channel without target",
				"incident_id", incident.ID,
				"channel", req.Channel)
			return
		}
		requests = append(requests, req)
	}

	for _, level := range immediate {
		if level.Role != escalation.RoleOncallEngineer {
			continue
		}
		// The directory keys teams by the affected service; unknown
		// services resolve to the default on-call profile.
		assignment := a.directory.GetOncallEngineer(ctx, incident.Service)
		add(domain.NotificationRequest{
			Channel:  domain.ChannelTypeSlack,
			Target:   assignment.Channels.Primary,
			Subject:  AlertSubject(incident),
			Payload:  body,
			Severity: incident.Severity,
			Fields:   fields,
		})
		add(domain.NotificationRequest{
			Channel:  domain.ChannelTypeSMS,
			Target:   assignment.Engineer.Phone,
			Payload:  body,
			Severity: incident.Severity,
		})
		add(domain.NotificationRequest{
			Channel:  domain.ChannelTypeEmail,
			Target:   assignment.Engineer.Email,
			Subject:  AlertSubject(incident),
			Payload:  body,
			Severity: incident.Severity,
		})
	}

	// P0 incidents additionally get a war room opened right away.
	if incident.Severity == domain.SeverityP0 {
		add(domain.NotificationRequest{
			Channel:  domain.ChannelTypeWarRoom,
			Target:   WarRoomURL(a.warRoomBaseURL, incident.ID),
			Subject:  AlertSubject(incident),
			Payload:  body,
			Severity: incident.Severity,
		})
	}
	return requests
}
