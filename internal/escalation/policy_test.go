package escalation

import (
	"testing"
	"time"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainFor(t *testing.T) {
	tests := []struct {
		name     string
		severity domain.Severity
		expected []Level
	}{
		{
			name:     "P0 has three levels",
			severity: domain.SeverityP0,
			expected: []Level{
				{Role: RoleOncallEngineer, Delay: 0, ContactImmediately: true},
				{Role: RoleTeamLead, Delay: 5 * time.Minute},
				{Role: RoleVPEngineering, Delay: 15 * time.Minute},
			},
		},
		{
			name:     "P1 has two levels",
			severity: domain.SeverityP1,
			expected: []Level{
				{Role: RoleOncallEngineer, Delay: 0, ContactImmediately: true},
				{Role: RoleTeamLead, Delay: 30 * time.Minute},
			},
		},
		{
			name:     "P2 is a single deferred oncall ping",
			severity: domain.SeverityP2,
			expected: []Level{
				{Role: RoleOncallEngineer, Delay: 0},
			},
		},
		{
			name:     "P3 goes to the ticket queue",
			severity: domain.SeverityP3,
			expected: []Level{
				{Role: RoleTicketQueue, Delay: 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, err := ChainFor(tt.severity)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, chain)
		})
	}
}

func TestChainFor_AscendingByDelay(t *testing.T) {
	for _, sev := range []domain.Severity{domain.SeverityP0, domain.SeverityP1, domain.SeverityP2, domain.SeverityP3} {
		chain, err := ChainFor(sev)
		require.NoError(t, err)
		for i := 1; i < len(chain); i++ {
			assert.GreaterOrEqual(t, chain[i].Delay, chain[i-1].Delay,
				"chain for %s must be ordered ascending by delay", sev)
		}
	}
}

func TestChainFor_UnknownSeverity(t *testing.T) {
	for _, sev := range []domain.Severity{"", "P4", "critical", "p0"} {
		_, err := ChainFor(sev)
		assert.ErrorIs(t, err, ErrUnknownSeverity, "severity %q", sev)
	}
}

func TestImmediate(t *testing.T) {
	p0, err := ChainFor(domain.SeverityP0)
	require.NoError(t, err)

	immediate := Immediate(p0)
	require.Len(t, immediate, 1)
	assert.Equal(t, RoleOncallEngineer, immediate[0].Role)

	p3, err := ChainFor(domain.SeverityP3)
	require.NoError(t, err)
	assert.Empty(t, Immediate(p3))
}
