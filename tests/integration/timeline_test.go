//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bissquit/incident-relay/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeline_SeededOnCreate(t *testing.T) {
	resetHooks()
	client := authedClient(t)
	id := createIncident(t, client, "P1", "payments")

	resp, err := client.GET("/api/v1/incidents/" + id + "/timeline")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			IncidentID string `json:"incident_id"`
			Timeline   []struct {
				ActionType string            `json:"action_type"`
				Details    map[string]string `json:"details"`
			} `json:"timeline"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)

	assert.Equal(t, id, result.Data.IncidentID)
	require.NotEmpty(t, result.Data.Timeline)
	assert.Equal(t, "created", result.Data.Timeline[0].ActionType)

	// Initial notifications are recorded after the creation event.
	var notified int
	for _, event := range result.Data.Timeline[1:] {
		if event.ActionType == "notified" {
			notified++
		}
	}
	assert.Greater(t, notified, 0)
}

func TestTimeline_RecordsActionsAndTransitions(t *testing.T) {
	client := authedClient(t)
	id := createIncident(t, client, "P2", "payments")

	resp, err := client.POST("/api/v1/incidents/"+id+"/actions", map[string]interface{}{
		"action_type": "note",
		"details":     map[string]string{"text": "checking dashboards"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = updateStatus(t, client, id, "investigating")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = client.GET("/api/v1/incidents/" + id + "/timeline")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			Timeline []struct {
				ActionType string            `json:"action_type"`
				Details    map[string]string `json:"details"`
			} `json:"timeline"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)

	types := make([]string, 0, len(result.Data.Timeline))
	for _, event := range result.Data.Timeline {
		types = append(types, event.ActionType)
	}
	require.GreaterOrEqual(t, len(types), 3)
	assert.Equal(t, "created", types[0])
	assert.Equal(t, "note", types[len(types)-2])
	assert.Equal(t, "status_changed", types[len(types)-1])

	last := result.Data.Timeline[len(result.Data.Timeline)-1]
	assert.Equal(t, "open", last.Details["from"])
	assert.Equal(t, "investigating", last.Details["to"])
}

func TestTimeline_UnknownActionType(t *testing.T) {
	client := authedClient(t)
	id := createIncident(t, client, "P2", "payments")

	resp, err := client.POST("/api/v1/incidents/"+id+"/actions", map[string]interface{}{
		"action_type": "interpretive_dance",
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTimeline_UnknownIncident(t *testing.T) {
	client := authedClient(t)

	resp, err := client.GET("/api/v1/incidents/INC-00000000000000000000000000/timeline")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
