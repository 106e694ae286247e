// Package sms provides SMS notification sending via the Twilio REST API.
package sms

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/notifications"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 10 * time.Second
	defaultAPIBase = "https://api.twilio.com"
	// Twilio long codes throttle outbound SMS around one message per
	// second per number.
	defaultRatePerSecond = 1
)

// Config holds Twilio sender configuration.
type Config struct {
	AccountSID    string
	AuthToken     string
	FromNumber    string
	APIBaseURL    string // overridable for tests
	Timeout       time.Duration
	RatePerSecond float64
}

// Sender implements SMS notification sending via Twilio.
type Sender struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSender creates a new SMS sender.
func NewSender(config Config) *Sender {
	if config.APIBaseURL == "" {
		config.APIBaseURL = defaultAPIBase
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = defaultRatePerSecond
	}

	return &Sender{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RatePerSecond), 1),
	}
}

// Type returns the channel type.
func (s *Sender) Type() domain.ChannelType {
	return domain.ChannelTypeSMS
}

// Send delivers one SMS. notification.To carries the recipient phone number
// in E.164-ish form.
func (s *Sender) Send(ctx context.Context, notification notifications.Notification) error {
	if s.config.AccountSID == "" || s.config.AuthToken == "" {
		return &notifications.PermanentError{Message: "twilio credentials are not configured"}
	}
	if s.config.FromNumber == "" {
		return &notifications.PermanentError{Message: "twilio from number is not configured"}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return &notifications.RetryableError{Message: fmt.Sprintf("rate limiter: %v", err)}
	}

	form := url.Values{}
	form.Set("To", notification.To)
	form.Set("From", s.config.FromNumber)
	form.Set("Body", notification.Body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimSuffix(s.config.APIBaseURL, "/"), s.config.AccountSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(s.config.AccountSID, s.config.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &notifications.RetryableError{Message: fmt.Sprintf("send request: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	return s.handleResponse(ctx, resp, notification.To)
}

func (s *Sender) handleResponse(ctx context.Context, resp *http.Response, to string) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		slog.DebugContext(ctx, "sms sent", "to", maskPhone(to))
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

// maskPhone hides all but the last four digits for logging.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
