// Package slack provides Slack notification sending via Incoming Webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/notifications"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultUsername = "Incident Bot"
	footerText      = "Incident Response System"
)

// Config holds Slack sender configuration. The webhook URL is global; the
// notification target selects the channel to post into.
type Config struct {
	WebhookURL string
	Username   string
	IconEmoji  string
	Timeout    time.Duration
}

// Sender implements Slack notification sending via Incoming Webhooks.
type Sender struct {
	config     Config
	httpClient *http.Client
}

// NewSender creates a new Slack sender.
func NewSender(config Config) *Sender {
	if config.Username == "" {
		config.Username = defaultUsername
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Sender{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Type returns the channel type.
func (s *Sender) Type() domain.ChannelType {
	return domain.ChannelTypeSlack
}

type attachment struct {
	Color  string `json:"color"`
	Title  string `json:"title,omitempty"`
	Text   string `json:"text"`
	Footer string `json:"footer"`
	Ts     int64  `json:"ts"`
}

type webhookPayload struct {
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	IconEmoji   string       `json:"icon_emoji,omitempty"`
	Attachments []attachment `json:"attachments"`
}

// Send posts a notification to Slack. notification.To selects the channel;
// the attachment color tracks severity.
func (s *Sender) Send(ctx context.Context, notification notifications.Notification) error {
	if s.config.WebhookURL == "" {
		return &notifications.PermanentError{Message: "slack webhook URL is not configured"}
	}

	payload := webhookPayload{
		Channel:   notification.To,
		Username:  s.config.Username,
		IconEmoji: s.config.IconEmoji,
		Attachments: []attachment{{
			Color:  notifications.SeverityColorHex(notification.Severity),
			Title:  notification.Subject,
			Text:   notification.Body,
			Footer: footerText,
			Ts:     time.Now().Unix(),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &notifications.RetryableError{Message: fmt.Sprintf("send request: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	return s.handleResponse(ctx, resp, notification.To)
}

func (s *Sender) handleResponse(ctx context.Context, resp *http.Response, channel string) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		slog.DebugContext(ctx, "slack message sent", "channel", channel)
		return nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return &notifications.RetryableError{
			Status:  resp.StatusCode,
			Message: "rate limited",
		}

	case resp.StatusCode >= 500:
		return &notifications.RetryableError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("server error: %s", string(body)),
		}

	default:
		return &notifications.PermanentError{
			Status:  resp.StatusCode,
			Message: string(body),
		}
	}
}
