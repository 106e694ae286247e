package domain

import "time"

// ActionType represents the kind of event recorded on an incident timeline.
type ActionType string

// Action types.
const (
	ActionCreated       ActionType = "created"
	ActionNotified      ActionType = "notified"
	ActionEscalated     ActionType = "escalated"
	ActionStatusChanged ActionType = "status_changed"
	ActionResolved      ActionType = "resolved"
	ActionNote          ActionType = "note"
)

// IsValid checks if the action type is known.
func (a ActionType) IsValid() bool {
	switch a {
	case ActionCreated, ActionNotified, ActionEscalated,
		ActionStatusChanged, ActionResolved, ActionNote:
		return true
	}
	return false
}

// TimelineEvent is an immutable audit record of an action taken against an
// incident. Events are never reordered or rewritten once appended.
type TimelineEvent struct {
	ID         string         `json:"id"`
	IncidentID string         `json:"incident_id"`
	ActionType ActionType     `json:"action_type"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"timestamp"`
}
