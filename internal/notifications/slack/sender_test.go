package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSender_Defaults(t *testing.T) {
	sender := NewSender(Config{})

	assert.Equal(t, defaultUsername, sender.config.Username)
	assert.Equal(t, defaultTimeout, sender.config.Timeout)
	assert.NotNil(t, sender.httpClient)
}

func TestSender_Type(t *testing.T) {
	sender := NewSender(Config{})
	assert.Equal(t, domain.ChannelTypeSlack, sender.Type())
}

func TestSender_Send_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload webhookPayload
		err := json.NewDecoder(r.Body).Decode(&payload)
		require.NoError(t, err)
		assert.Equal(t, "#incidents", payload.Channel)
		assert.Equal(t, "Incident Bot", payload.Username)
		require.Len(t, payload.Attachments, 1)
		assert.Equal(t, "#FF0000", payload.Attachments[0].Color)
		assert.Equal(t, "db down", payload.Attachments[0].Text)
		assert.Equal(t, footerText, payload.Attachments[0].Footer)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(Config{WebhookURL: server.URL})
	err := sender.Send(context.Background(), notifications.Notification{
		To:       "#incidents",
		Body:     "db down",
		Severity: domain.SeverityP0,
	})

	assert.NoError(t, err)
}

func TestSender_Send_NoWebhookConfigured(t *testing.T) {
	sender := NewSender(Config{})

	err := sender.Send(context.Background(), notifications.Notification{
		To:   "#incidents",
		Body: "hello",
	})

	var permanent *notifications.PermanentError
	assert.ErrorAs(t, err, &permanent)
}

func TestSender_Send_ServerError_Retryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sender := NewSender(Config{WebhookURL: server.URL})
	err := sender.Send(context.Background(), notifications.Notification{To: "#incidents", Body: "x"})

	var retryable *notifications.RetryableError
	require.ErrorAs(t, err, &retryable)
	assert.Equal(t, http.StatusServiceUnavailable, retryable.Status)
}

func TestSender_Send_RateLimited_Retryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	sender := NewSender(Config{WebhookURL: server.URL})
	err := sender.Send(context.Background(), notifications.Notification{To: "#incidents", Body: "x"})

	var retryable *notifications.RetryableError
	assert.ErrorAs(t, err, &retryable)
}

func TestSender_Send_BadRequest_Permanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	sender := NewSender(Config{WebhookURL: server.URL})
	err := sender.Send(context.Background(), notifications.Notification{To: "#incidents", Body: "x"})

	var permanent *notifications.PermanentError
	require.ErrorAs(t, err, &permanent)
	assert.Equal(t, http.StatusNotFound, permanent.Status)
}

func TestSender_Send_ConnectionError_Retryable(t *testing.T) {
	sender := NewSender(Config{
		WebhookURL: "http://127.0.0.1:1",
		Timeout:    100 * time.Millisecond,
	})

	err := sender.Send(context.Background(), notifications.Notification{To: "#incidents", Body: "x"})

	var retryable *notifications.RetryableError
	assert.ErrorAs(t, err, &retryable)
}
