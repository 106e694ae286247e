// Package notifications provides the fan-out dispatcher that delivers
// incident alerts across heterogeneous channels.
package notifications

import (
	"context"

	"github.com/bissquit/incident-relay/internal/domain"
)

// Notification is a single channel-agnostic message. Senders render it into
// their wire format; Fields carries structured extras for channels that
// display them (Discord embeds).
type Notification struct {
	To       string
	Subject  string
	Body     string
	Severity domain.Severity
	Fields   map[string]string
}

// Sender delivers notifications over one channel type.
type Sender interface {
	Type() domain.ChannelType
	Send(ctx context.Context, notification Notification) error
}
