// Package oncall resolves teams to on-call contacts, chat channels and
// escalation chains.
package oncall

import (
	"context"
	"log/slog"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/escalation"
)

// Team holds the directory entry for a single team.
type Team struct {
	Engineer domain.Engineer
	Channels domain.TeamChannels
}

// Directory is a read-only lookup over the team roster. Unknown teams resolve
// to the default profile rather than failing; the roster backend (PagerDuty
// or similar) is external and supplied through configuration.
type Directory struct {
	teams    map[string]Team
	fallback Team
}

// DefaultTeam is the documented fallback profile for unknown team names.
func DefaultTeam() Team {
	return Team{
		Engineer: domain.Engineer{
			Name:       "Default Oncall",
			Phone:      "+1-555-0100",
			Email:      "oncall@company.com",
			ChatHandle: "@oncall",
		},
		Channels: domain.TeamChannels{
			Primary: "#incidents",
			General: "#engineering",
			Alerts:  "#alerts",
		},
	}
}

// NewDirectory creates a directory over the given roster.
func NewDirectory(teams map[string]Team) *Directory {
	if teams == nil {
		teams = make(map[string]Team)
	}
	return &Directory{
		teams:    teams,
		fallback: DefaultTeam(),
	}
}

// Chain is an escalation chain annotated with directory metadata.
type Chain struct {
	Team     string             `json:"team"`
	Severity domain.Severity    `json:"severity"`
	Levels   []escalation.Level `json:"levels"`
}

// GetOncallEngineer returns the current on-call assignment for a team.
func (d *Directory) GetOncallEngineer(ctx context.Context, team string) domain.OncallAssignment {
	entry := d.lookup(ctx, team)
	return domain.OncallAssignment{
		Team:     team,
		Engineer: entry.Engineer,
		Channels: entry.Channels,
	}
}

// GetEscalationChain composes the severity policy with directory metadata.
// Unknown severities are rejected; unknown teams fall back to the default
// profile like every other lookup.
func (d *Directory) GetEscalationChain(ctx context.Context, team string, severity domain.Severity) (*Chain, error) {
	levels, err := escalation.ChainFor(severity)
	if err != nil {
		return nil, err
	}
	return &Chain{
		Team:     team,
		Severity: severity,
		Levels:   levels,
	}, nil
}

// GetTeamChannels returns the chat channels for a team.
func (d *Directory) GetTeamChannels(ctx context.Context, team string) domain.TeamChannels {
	return d.lookup(ctx, team).Channels
}

func (d *Directory) lookup(ctx context.Context, team string) Team {
	if entry, ok := d.teams[team]; ok {
		return entry
	}
	slog.DebugContext(ctx, "team not in roster, using default profile", "team", team)
	return d.fallback
}
