package domain

import "time"

// ChannelType represents a delivery channel for notifications.
type ChannelType string

// Channel types.
const (
	ChannelTypeSlack   ChannelType = "slack"
	ChannelTypeSMS     ChannelType = "sms"
	ChannelTypeEmail   ChannelType = "email"
	ChannelTypeDiscord ChannelType = "discord"
	ChannelTypeWarRoom ChannelType = "war_room"
)

// IsValid checks if the channel type is known.
func (c ChannelType) IsValid() bool {
	switch c {
	case ChannelTypeSlack, ChannelTypeSMS, ChannelTypeEmail,
		ChannelTypeDiscord, ChannelTypeWarRoom:
		return true
	}
	return false
}

// Outcome represents the delivery outcome of a single channel send.
type Outcome string

// Outcomes.
const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
)

// NotificationRequest describes one channel send. Constructed per dispatch,
// never persisted.
type NotificationRequest struct {
	Channel  ChannelType `json:"channel"`
	Target   string      `json:"target"`
	Subject  string      `json:"subject,omitempty"`
	Payload  string      `json:"payload"`
	Severity Severity    `json:"severity,omitempty"`
	// Fields carries structured extras for channels that render them
	// (Discord embed fields). Plain-text channels ignore it.
	Fields map[string]string `json:"fields,omitempty"`
}

// NotificationResult is the per-channel outcome of a dispatch.
type NotificationResult struct {
	Channel ChannelType   `json:"channel"`
	Target  string        `json:"target"`
	Outcome Outcome       `json:"outcome"`
	Reason  string        `json:"reason,omitempty"`
	Latency time.Duration `json:"latency"`
}
