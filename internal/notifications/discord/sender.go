// Package discord provides Discord notification sending via webhooks, using
// rich embeds with per-severity colors.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/notifications"
)

const (
	defaultTimeout = 10 * time.Second
	footerText     = "Incident Response System"
)

// fieldOrder pins the well-known embed fields to a stable position; any
// remaining fields follow alphabetically.
var fieldOrder = []string{"Severity", "Service", "Incident ID", "Status"}

// Config holds Discord sender configuration.
type Config struct {
	WebhookURL string
	Timeout    time.Duration
}

// Sender implements Discord notification sending via webhooks.
type Sender struct {
	config     Config
	httpClient *http.Client
}

// NewSender creates a new Discord sender.
func NewSender(config Config) *Sender {
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
	return domain.ChannelTypeDiscord
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      embedFooter  `json:"footer"`
	Timestamp   string       `json:"timestamp"`
}

type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds"`
}

// Send posts a notification to Discord as an embed. notification.To carries
// the display username of the webhook bot.
func (s *Sender) Send(ctx context.Context, notification notifications.Notification) error {
	if s.config.WebhookURL == "" {
		return &notifications.PermanentError{Message: "discord webhook URL is not configured"}
	}

	payload := webhookPayload{
		Username: notification.To,
		Embeds: []embed{{
			Title:       notification.Subject,
			Description: notification.Body,
			Color:       embedColor(notification),
			Fields:      buildFields(notification.Fields),
			Footer:      embedFooter{Text: footerText},
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
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

	return s.handleResponse(ctx, resp)
}

// embedColor picks the embed color: severity wins, otherwise a Status field
// selects the lifecycle color, otherwise neutral blue.
func embedColor(notification notifications.Notification) int {
	if notification.Severity != "" {
		return notifications.SeverityColorDecimal(notification.Severity)
	}
	if status, ok := notification.Fields["Status"]; ok {
		return notifications.StatusColorDecimal(domain.IncidentStatus(status))
	}
	return 3447003
}

func buildFields(fields map[string]string) []embedField {
	if len(fields) == 0 {
		return nil
	}

	out := make([]embedField, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, name := range fieldOrder {
		if value, ok := fields[name]; ok {
			out = append(out, embedField{Name: name, Value: value, Inline: true})
			seen[name] = true
		}
	}

	rest := make([]string, 0, len(fields))
	for name := range fields {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		out = append(out, embedField{Name: name, Value: fields[name], Inline: true})
	}
	return out
}

func (s *Sender) handleResponse(ctx context.Context, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK:
		slog.DebugContext(ctx, "discord message sent")
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
