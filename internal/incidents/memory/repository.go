// Package memory provides an in-memory implementation of the incidents
// repository, used when no database is configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/incidents"
)

// Repository implements incidents.Repository in process memory.
type Repository struct {
	mu        sync.RWMutex
	incidents map[string]domain.Incident
}

// NewRepository creates a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		incidents: make(map[string]domain.Incident),
	}
}

// Create stores a new incident.
func (r *Repository) Create(_ context.Context, incident *domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.incidents[incident.ID] = *incident
	return nil
}

// GetByID returns an incident by id.
func (r *Repository) GetByID(_ context.Context, id string) (*domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	incident, ok := r.incidents[id]
	if !ok {
		return nil, incidents.ErrNotFound
	}
	return &incident, nil
}

// UpdateStatus sets the status of an existing incident.
func (r *Repository) UpdateStatus(_ context.Context, id string, status domain.IncidentStatus, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	incident, ok := r.incidents[id]
	if !ok {
		return incidents.ErrNotFound
	}
	incident.Status = status
	incident.UpdatedAt = updatedAt
	r.incidents[id] = incident
	return nil
}

// ListActive returns all incidents that are not closed, newest first.
func (r *Repository) ListActive(_ context.Context) ([]domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]domain.Incident, 0)
	for _, incident := range r.incidents {
		if incident.Status.IsActive() {
			active = append(active, incident)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].ID > active[j].ID
		}
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	return active, nil
}
