package domain

import "time"

// Severity represents the severity tier of an incident.
type Severity string

// Severity tiers. P0 is the most critical.
const (
	SeverityP0 Severity = "P0"
	SeverityP1 Severity = "P1"
	SeverityP2 Severity = "P2"
	SeverityP3 Severity = "P3"
)

// IsValid checks if the severity is one of the four tiers.
func (s Severity) IsValid() bool {
	return s == SeverityP0 || s == SeverityP1 || s == SeverityP2 || s == SeverityP3
}

// IncidentStatus represents the current lifecycle state of an incident.
type IncidentStatus string

// Incident statuses.
const (
	IncidentStatusOpen          IncidentStatus = "open"
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusResolved      IncidentStatus = "resolved"
	IncidentStatusClosed        IncidentStatus = "closed"
)

// IsValid checks if the status is a known lifecycle state.
func (s IncidentStatus) IsValid() bool {
	return s == IncidentStatusOpen ||
		s == IncidentStatusInvestigating ||
		s == IncidentStatusResolved ||
		s == IncidentStatusClosed
}

// CanTransitionTo reports whether the edge s -> target is in the allowed
// transition set. The only backward edge is resolved -> investigating
// (reopen); nothing leaves closed.
func (s IncidentStatus) CanTransitionTo(target IncidentStatus) bool {
	switch s {
	case IncidentStatusOpen:
		return target == IncidentStatusInvestigating
	case IncidentStatusInvestigating:
		return target == IncidentStatusResolved
	case IncidentStatusResolved:
		return target == IncidentStatusClosed || target == IncidentStatusInvestigating
	default:
		return false
	}
}

// IsActive reports whether the incident still counts toward the active set.
func (s IncidentStatus) IsActive() bool {
	return s != IncidentStatusClosed
}

// Incident represents a tracked operational problem.
type Incident struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Severity    Severity       `json:"severity"`
	Service     string         `json:"service"`
	Reporter    string         `json:"reporter"`
	Status      IncidentStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
