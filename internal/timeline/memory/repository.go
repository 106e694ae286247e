// Package memory provides an in-memory implementation of the timeline
// repository, used when no database is configured and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/google/uuid"
)

// Repository implements timeline.Repository in process memory.
type Repository struct {
	mu     sync.RWMutex
	events map[string][]domain.TimelineEvent
}

// NewRepository creates a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		events: make(map[string][]domain.TimelineEvent),
	}
}

// Append adds an event to the end of the incident's log.
func (r *Repository) Append(_ context.Context, event *domain.TimelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	r.events[event.IncidentID] = append(r.events[event.IncidentID], *event)
	return nil
}

// ListByIncident returns the incident's events in insertion order. An
// incident with no events yields an empty slice.
func (r *Repository) ListByIncident(_ context.Context, incidentID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.events[incidentID]
	out := make([]domain.TimelineEvent, len(stored))
	copy(out, stored)
	return out, nil
}
