// Package incidents owns incident records, the lifecycle state machine and
// the orchestration of escalation and alerting on creation.
package incidents

import (
	"context"
	"time"

	"github.com/bissquit/incident-relay/internal/domain"
)

// Repository defines the interface for incident data access.
type Repository interface {
	Create(ctx context.Context, incident *domain.Incident) error
	GetByID(ctx context.Context, id string) (*domain.Incident, error)
	UpdateStatus(ctx context.Context, id string, status domain.IncidentStatus, updatedAt time.Time) error
	ListActive(ctx context.Context) ([]domain.Incident, error)
}
