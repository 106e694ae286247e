package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/oncall"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(senders ...Sender) (*Handler, *chi.Mux) {
	directory := oncall.NewDirectory(nil)
	router := NewRouter(fastConfig(), senders...)
	alerter := NewAlerter(directory, router, "https://meet.example.com")
	handler := NewHandler(router, alerter, directory)

	mux := chi.NewRouter()
	handler.RegisterRoutes(mux)
	return handler, mux
}

func doJSON(t *testing.T, mux *chi.Mux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeDispatch(t *testing.T, rec *httptest.ResponseRecorder) []domain.NotificationResult {
	t.Helper()
	var result struct {
		Data struct {
			Notifications []domain.NotificationResult `json:"notifications"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result.Data.Notifications
}

func TestHandler_NotifySMS(t *testing.T) {
	sender := &fakeSender{channel: domain.ChannelTypeSMS}
	_, mux := newTestHandler(sender)

	rec := doJSON(t, mux, http.MethodPost, "/notify/sms",
		`{"phone": "+15550123", "message": "paging"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	results := decodeDispatch(t, rec)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ChannelTypeSMS, results[0].Channel)
	assert.Equal(t, "+15550123", results[0].Target)
	assert.Equal(t, domain.OutcomeDelivered, results[0].Outcome)
	assert.Equal(t, 1, sender.callCount())
}

func TestHandler_NotifySlack_DefaultChannel(t *testing.T) {
	sender := &fakeSender{channel: domain.ChannelTypeSlack}
	_, mux := newTestHandler(sender)

	rec := doJSON(t, mux, http.MethodPost, "/notify/slack",
		`{"message": "no channel given"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	results := decodeDispatch(t, rec)
	require.Len(t, results, 1)
	// No channel in the request: falls back to the default primary channel.
	assert.Equal(t, "#incidents", results[0].Target)
	assert.Equal(t, domain.OutcomeDelivered, results[0].Outcome)
}

func TestHandler_NotifyDiscord_DeliveryFailureIsResultRow(t *testing.T) {
	sender := &fakeSender{
		channel: domain.ChannelTypeDiscord,
		errs: []error{
			&PermanentError{Status: 404, Message: "webhook gone"},
		},
	}
	_, mux := newTestHandler(sender)

	rec := doJSON(t, mux, http.MethodPost, "/notify/discord",
		`{"content": "deploy rolled back"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	results := decodeDispatch(t, rec)
	require.Len(t, results, 1)
	assert.Equal(t, domain.OutcomeFailed, results[0].Outcome)
	assert.Contains(t, results[0].Reason, "webhook gone")
}

func TestHandler_NotifyEmail_NoSender(t *testing.T) {
	_, mux := newTestHandler(&fakeSender{channel: domain.ChannelTypeSlack})

	rec := doJSON(t, mux, http.MethodPost, "/notify/email",
		`{"to": "dana@example.com", "subject": "s", "body": "b"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_NotifySMS_ValidationError(t *testing.T) {
	sender := &fakeSender{channel: domain.ChannelTypeSMS}
	_, mux := newTestHandler(sender)

	rec := doJSON(t, mux, http.MethodPost, "/notify/sms", `{"phone": "+15550123"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, sender.callCount())
}
