//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/bissquit/incident-relay/internal/pkg/httputil"
	"github.com/bissquit/incident-relay/internal/testutil"
	"github.com/stretchr/testify/require"
)

// authedClient returns a validated client carrying a bearer token for the
// mutating routes.
func authedClient(t *testing.T) *testutil.Client {
	t.Helper()
	token, err := httputil.NewToken(testJWTSecret, "integration-tests", time.Hour)
	require.NoError(t, err)
	return newTestClient(t).WithToken(token)
}

// createIncident creates an incident and returns its id.
func createIncident(t *testing.T, client *testutil.Client, severity, service string) string {
	t.Helper()

	resp, err := client.POST("/api/v1/incidents", map[string]interface{}{
		"description": "integration test incident",
		"severity":    severity,
		"service":     service,
		"reporter":    "integration-tests",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			IncidentID string `json:"incident_id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.NotEmpty(t, result.Data.IncidentID)
	return result.Data.IncidentID
}

// updateStatus transitions an incident and returns the raw response.
func updateStatus(t *testing.T, client *testutil.Client, incidentID, status string) *http.Response {
	t.Helper()

	resp, err := client.PATCH("/api/v1/incidents/"+incidentID+"/status", map[string]interface{}{
		"status": status,
	})
	require.NoError(t, err)
	return resp
}

func resetHooks() {
	slackHook.reset()
	discordHook.reset()
	twilioFake.reset()
}
