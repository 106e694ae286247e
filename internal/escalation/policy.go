// Package escalation maps incident severity to an ordered escalation chain.
package escalation

import (
	"fmt"
	"time"

	"github.com/bissquit/incident-relay/internal/domain"
)

// Level is a single step in an escalation chain. Delay is measured from
// incident creation; zero means the level is part of the initial dispatch.
type Level struct {
	Role               string        `json:"role"`
	Delay              time.Duration `json:"delay"`
	ContactImmediately bool          `json:"contact_immediately"`
}

// Roles used in escalation chains.
const (
	RoleOncallEngineer = "on_call_engineer"
	RoleTeamLead       = "team_lead"
	RoleVPEngineering  = "vp_engineering"
	RoleTicketQueue    = "ticket_queue"
)

// ErrUnknownSeverity is returned for severities outside P0-P3. There is no
// silent default tier.
var ErrUnknownSeverity = fmt.Errorf("unknown severity")

// ChainFor returns the escalation chain for a severity, ordered ascending by
// delay. The chain for a given severity is fixed.
func ChainFor(severity domain.Severity) ([]Level, error) {
	switch severity {
	case domain.SeverityP0:
		return []Level{
			{Role: RoleOncallEngineer, Delay: 0, ContactImmediately: true},
			{Role: RoleTeamLead, Delay: 5 * time.Minute},
			{Role: RoleVPEngineering, Delay: 15 * time.Minute},
		}, nil
	case domain.SeverityP1:
		return []Level{
			{Role: RoleOncallEngineer, Delay: 0, ContactImmediately: true},
			{Role: RoleTeamLead, Delay: 30 * time.Minute},
		}, nil
	case domain.SeverityP2:
		return []Level{
			{Role: RoleOncallEngineer, Delay: 0},
		}, nil
	case domain.SeverityP3:
		return []Level{
			{Role: RoleTicketQueue, Delay: 0},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSeverity, severity)
	}
}

// Immediate filters a chain down to the levels that must be contacted as part
// of the initial dispatch. Delayed levels are a schedule for an external
// timer, not dispatched here.
func Immediate(levels []Level) []Level {
	out := make([]Level, 0, len(levels))
	for _, l := range levels {
		if l.ContactImmediately {
			out = append(out, l)
		}
	}
	return out
}
