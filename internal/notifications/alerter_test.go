package notifications

import (
	"context"
	"testing"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/escalation"
	"github.com/bissquit/incident-relay/internal/oncall"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAlerter(senders ...Sender) *Alerter {
	directory := oncall.NewDirectory(map[string]oncall.Team{
		"payments": {
			Engineer: domain.Engineer{
				Name:       "Dana",
				Phone:      "+15550123",
				Email:      "dana@example.com",
				ChatHandle: "@dana",
			},
			Channels: domain.TeamChannels{
				Primary: "#payments-incidents",
				General: "#payments",
				Alerts:  "#payments-alerts",
			},
		},
	})
	router := NewRouter(fastConfig(), senders...)
	return NewAlerter(directory, router, "https://meet.example.com")
}

func allChannelSenders() []Sender {
	return []Sender{
		&fakeSender{channel: domain.ChannelTypeSlack},
		&fakeSender{channel: domain.ChannelTypeSMS},
		&fakeSender{channel: domain.ChannelTypeEmail},
		&fakeSender{channel: domain.ChannelTypeWarRoom},
	}
}

func channelsOf(results []domain.NotificationResult) []domain.ChannelType {
	out := make([]domain.ChannelType, len(results))
	for i, r := range results {
		out[i] = r.Channel
	}
	return out
}

func TestAlerter_NotifyCreated_P0(t *testing.T) {
	alerter := newTestAlerter(allChannelSenders()...)
	incident := &domain.Incident{
		ID:          "INC-01J3ZK",
		Description: "db down",
		Severity:    domain.SeverityP0,
		Service:     "payments",
		Reporter:    "dana",
	}
	chain, err := escalation.ChainFor(domain.SeverityP0)
	require.NoError(t, err)

	results := alerter.NotifyCreated(context.Background(), incident, chain)

	require.Len(t, results, 4)
	assert.ElementsMatch(t,
		[]domain.ChannelType{
			domain.ChannelTypeSlack,
			domain.ChannelTypeSMS,
			domain.ChannelTypeEmail,
			domain.ChannelTypeWarRoom,
		},
		channelsOf(results))

	byChannel := make(map[domain.ChannelType]domain.NotificationResult)
	for _, r := range results {
		byChannel[r.Channel] = r
	}
	assert.Equal(t, "#payments-incidents", byChannel[domain.ChannelTypeSlack].Target)
	assert.Equal(t, "+15550123", byChannel[domain.ChannelTypeSMS].Target)
	assert.Equal(t, "dana@example.com", byChannel[domain.ChannelTypeEmail].Target)
	assert.Equal(t, "https://meet.example.com/incident-01J3ZK", byChannel[domain.ChannelTypeWarRoom].Target)
}

func TestAlerter_NotifyCreated_P1NoWarRoom(t *testing.T) {
	alerter := newTestAlerter(allChannelSenders()...)
	incident := &domain.Incident{
		ID:       "INC-01J3ZK",
		Severity: domain.SeverityP1,
		Service:  "payments",
	}
	chain, err := escalation.ChainFor(domain.SeverityP1)
	require.NoError(t, err)

	results := alerter.NotifyCreated(context.Background(), incident, chain)

	require.Len(t, results, 3)
	assert.NotContains(t, channelsOf(results), domain.ChannelTypeWarRoom)
}

func TestAlerter_NotifyCreated_P2NothingImmediate(t *testing.T) {
	alerter := newTestAlerter(allChannelSenders()...)
	incident := &domain.Incident{
		ID:       "INC-01J3ZK",
		Severity: domain.SeverityP2,
		Service:  "payments",
	}
	chain, err := escalation.ChainFor(domain.SeverityP2)
	require.NoError(t, err)

	results := alerter.NotifyCreated(context.Background(), incident, chain)

	assert.Empty(t, results)
}

func TestAlerter_NotifyCreated_UnknownServiceUsesDefaultProfile(t *testing.T) {
	alerter := newTestAlerter(allChannelSenders()...)
	incident := &domain.Incident{
		ID:       "INC-01J3ZK",
		Severity: domain.SeverityP1,
		Service:  "mystery-service",
	}
	chain, err := escalation.ChainFor(domain.SeverityP1)
	require.NoError(t, err)

	results := alerter.NotifyCreated(context.Background(), incident, chain)

	require.Len(t, results, 3)
	byChannel := make(map[domain.ChannelType]domain.NotificationResult)
	for _, r := range results {
		byChannel[r.Channel] = r
	}
	assert.Equal(t, "#incidents", byChannel[domain.ChannelTypeSlack].Target)
	assert.Equal(t, "+1-555-0100", byChannel[domain.ChannelTypeSMS].Target)
	assert.Equal(t, "oncall@company.com", byChannel[domain.ChannelTypeEmail].Target)
}

func TestAlerter_NotifyCreated_ChannelFailureDoesNotDropOthers(t *testing.T) {
	senders := []Sender{
		&fakeSender{channel: domain.ChannelTypeSlack},
		&fakeSender{
			channel: domain.ChannelTypeSMS,
			errs: []error{
				&PermanentError{Status: 400, Message: "invalid number"},
			},
		},
		&fakeSender{channel: domain.ChannelTypeEmail},
		&fakeSender{channel: domain.ChannelTypeWarRoom},
	}
	alerter := newTestAlerter(senders...)
	incident := &domain.Incident{
		ID:       "INC-01J3ZK",
		Severity: domain.SeverityP1,
		Service:  "payments",
	}
	chain, err := escalation.ChainFor(domain.SeverityP1)
	require.NoError(t, err)

	results := alerter.NotifyCreated(context.Background(), incident, chain)

	require.Len(t, results, 3)
	outcomes := make(map[domain.ChannelType]domain.Outcome)
	for _, r := range results {
		outcomes[r.Channel] = r.Outcome
	}
	assert.Equal(t, domain.OutcomeFailed, outcomes[domain.ChannelTypeSMS])
	assert.Equal(t, domain.OutcomeDelivered, outcomes[domain.ChannelTypeSlack])
	assert.Equal(t, domain.OutcomeDelivered, outcomes[domain.ChannelTypeEmail])
}

func TestAlerter_NotifyCreated_SkipsChannelsWithoutTarget(t *testing.T) {
	// Roster entry with no phone number: the SMS channel is dropped from
	// the fan-out, everything else still goes out.
	directory := oncall.NewDirectory(map[string]oncall.Team{
		"payments": {
			Engineer: domain.Engineer{
				Name:  "Dana",
				Email: "dana@example.com",
			},
			Channels: domain.TeamChannels{Primary: "#payments-incidents"},
		},
	})
	router := NewRouter(fastConfig(), allChannelSenders()...)
	alerter := NewAlerter(directory, router, "https://meet.example.com")

	incident := &domain.Incident{
		ID:       "INC-01J3ZK",
		Severity: domain.SeverityP1,
		Service:  "payments",
	}
	chain, err := escalation.ChainFor(domain.SeverityP1)
	require.NoError(t, err)

	results := alerter.NotifyCreated(context.Background(), incident, chain)

	require.Len(t, results, 2)
	assert.ElementsMatch(t,
		[]domain.ChannelType{domain.ChannelTypeSlack, domain.ChannelTypeEmail},
		channelsOf(results))
	for _, r := range results {
		assert.Equal(t, domain.OutcomeDelivered, r.Outcome)
	}
}
