package notifications

import (
	"fmt"
	"strings"

	"github.com/bissquit/incident-relay/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SeverityColorHex maps a severity tier to the hex color used by Slack
// attachments. The mapping is total: unknown tiers render gray.
func SeverityColorHex(severity domain.Severity) string {
	switch severity {
	case domain.SeverityP0:
		return "#FF0000"
	case domain.SeverityP1:
		return "#FFA500"
	case domain.SeverityP2:
		return "#FFFF00"
	case domain.SeverityP3:
		return "#00FF00"
	default:
		return "#808080"
	}
}

// SeverityColorDecimal maps a severity tier to the decimal color used by
// Discord embeds.
func SeverityColorDecimal(severity domain.Severity) int {
	switch severity {
	case domain.SeverityP0:
		return 16711680 // red
	case domain.SeverityP1:
		return 16753920 // orange
	case domain.SeverityP2:
		return 16776960 // yellow
	case domain.SeverityP3:
		return 65280 // green
	default:
		return 8421504 // gray
	}
}

// StatusColorDecimal maps an incident status to a Discord embed color for
// status-update messages.
func StatusColorDecimal(status domain.IncidentStatus) int {
	switch status {
	case domain.IncidentStatusInvestigating:
		return 16776960 // yellow
	case domain.IncidentStatusResolved:
		return 65280 // green
	case domain.IncidentStatusClosed:
		return 8421504 // gray
	default:
		return 3447003 // blue
	}
}

// StatusEmoji maps an incident status to the emoji prefix used in
// status-update titles.
func StatusEmoji(status domain.IncidentStatus) string {
	switch status {
	case domain.IncidentStatusInvestigating:
		return "\U0001F50D"
	case domain.IncidentStatusResolved:
		return "✅"
	case domain.IncidentStatusClosed:
		return "\U0001F512"
	default:
		return "\U0001F4DD"
	}
}

// WarRoomURL derives the deterministic war-room link for an incident. Any
// INC- prefix is stripped from the id before embedding it in the URL.
func WarRoomURL(baseURL, incidentID string) string {
	base := strings.TrimSuffix(baseURL, "/")
	if base == "" {
		base = "https://meet.google.com"
	}
	return fmt.Sprintf("%s/incident-%s", base, strings.TrimPrefix(incidentID, "INC-"))
}

var titleCaser = cases.Title(language.English)

// RoleTitle renders an escalation role name for humans:
// "on_call_engineer" becomes "On Call Engineer".
func RoleTitle(role string) string {
	return titleCaser.String(strings.ReplaceAll(role, "_", " "))
}

// AlertText builds the one-line alert body shared by chat and SMS channels.
func AlertText(incident *domain.Incident) string {
	return fmt.Sprintf("\U0001F6A8 %s incident %s: %s (service: %s, reporter: %s)",
		incident.Severity, incident.ID, incident.Description, incident.Service, incident.Reporter)
}

// AlertSubject builds the email subject for an incident alert.
func AlertSubject(incident *domain.Incident) string {
	return fmt.Sprintf("[%s] Incident %s: %s", incident.Severity, incident.ID, incident.Description)
}
