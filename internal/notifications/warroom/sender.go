// Package warroom provides the war-room channel. Room links are
// deterministic, derived from the incident id, so opening a room is a local
// operation: the sender validates and announces the link, nothing external
// is provisioned.
package warroom

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/notifications"
)

// Sender implements the war-room channel.
type Sender struct{}

// NewSender creates a new war-room sender.
func NewSender() *Sender {
	return &Sender{}
}

// Type returns the channel type.
func (s *Sender) Type() domain.ChannelType {
	return domain.ChannelTypeWarRoom
}

// Send records the war-room link. notification.To carries the room URL.
func (s *Sender) Send(ctx context.Context, notification notifications.Notification) error {
	if !strings.HasPrefix(notification.To, "http://") && !strings.HasPrefix(notification.To, "https://") {
		return &notifications.PermanentError{Message: "war room target is not a URL"}
	}

	slog.InfoContext(ctx, "war room opened", "url", notification.To)
	return nil
}
