// Package postgres provides PostgreSQL implementation of the timeline
// repository.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements timeline.Repository using PostgreSQL. Ordering is
// backed by a bigserial sequence so replay order always equals insertion
// order, even for events sharing a timestamp tick.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Append adds an event to the end of the incident's log.
func (r *Repository) Append(ctx context.Context, event *domain.TimelineEvent) error {
	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	query := `
		INSERT INTO timeline_events (incident_id, action_type, details, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err = r.db.QueryRow(ctx, query,
		event.IncidentID,
		event.ActionType,
		details,
		event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("append timeline event: %w", err)
	}
	return nil
}

// ListByIncident returns the incident's events in insertion order.
func (r *Repository) ListByIncident(ctx context.Context, incidentID string) ([]domain.TimelineEvent, error) {
	query := `
		SELECT id, incident_id, action_type, details, created_at
		FROM timeline_events
		WHERE incident_id = $1
		ORDER BY seq ASC
	`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.TimelineEvent, 0)
	for rows.Next() {
		var event domain.TimelineEvent
		var details []byte
		err := rows.Scan(
			&event.ID,
			&event.IncidentID,
			&event.ActionType,
			&details,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &event.Details); err != nil {
				return nil, fmt.Errorf("unmarshal details: %w", err)
			}
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
