// Package postgres provides PostgreSQL implementation of the incidents
// repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/incidents"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements incidents.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create stores a new incident.
func (r *Repository) Create(ctx context.Context, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (id, description, severity, service, reporter, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		incident.ID,
		incident.Description,
		incident.Severity,
		incident.Service,
		incident.Reporter,
		incident.Status,
		incident.CreatedAt,
		incident.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

// GetByID returns an incident by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Incident, error) {
	query := `
		SELECT id, description, severity, service, reporter, status, created_at, updated_at
		FROM incidents
		WHERE id = $1
	`
	var incident domain.Incident
	err := r.db.QueryRow(ctx, query, id).Scan(
		&incident.ID,
		&incident.Description,
		&incident.Severity,
		&incident.Service,
		&incident.Reporter,
		&incident.Status,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return &incident, nil
}

// UpdateStatus sets the status of an existing incident.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.IncidentStatus, updatedAt time.Time) error {
	query := `
		UPDATE incidents
		SET status = $2, updated_at = $3
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, status, updatedAt)
	if err != nil {
		return fmt.Errorf("update incident status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return incidents.ErrNotFound
	}
	return nil
}

// ListActive returns all incidents that are not closed, newest first.
func (r *Repository) ListActive(ctx context.Context) ([]domain.Incident, error) {
	query := `
		SELECT id, description, severity, service, reporter, status, created_at, updated_at
		FROM incidents
		WHERE status != 'closed'
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active incidents: %w", err)
	}
	defer rows.Close()

	active := make([]domain.Incident, 0)
	for rows.Next() {
		var incident domain.Incident
		err := rows.Scan(
			&incident.ID,
			&incident.Description,
			&incident.Severity,
			&incident.Service,
			&incident.Reporter,
			&incident.Status,
			&incident.CreatedAt,
			&incident.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		active = append(active, incident)
	}

	return active, rows.Err()
}
