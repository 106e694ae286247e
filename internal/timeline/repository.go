// Package timeline provides the append-only per-incident audit log.
package timeline

import (
	"context"

	"github.com/bissquit/incident-relay/internal/domain"
)

// Repository defines the interface for timeline data access. The log is
// append-only: events are never updated or deleted, and ListByIncident must
// return them in insertion order.
type Repository interface {
	Append(ctx context.Context, event *domain.TimelineEvent) error
	ListByIncident(ctx context.Context, incidentID string) ([]domain.TimelineEvent, error)
}
