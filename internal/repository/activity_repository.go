package repository

import (
	"context"
	"fmt"

	"github.com/dwelora/api/internal/database"
	"github.com/dwelora/api/internal/models"
	"github.com/google/uuid"
)

// ActivityRepository defines the interface for the append-only activity log.
type ActivityRepository interface {
	// Insert appends one entry. Entries are never updated or deleted.
	Insert(ctx context.Context, entry *models.ActivityLogEntry) error

	// ListByProperty returns the activity feed for a property, newest first.
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.ActivityLogEntry, error)
}

// activityRepository is the concrete implementation of ActivityRepository.
type activityRepository struct {
	db *database.Database
}

// NewActivityRepository creates a new instance of ActivityRepository.
func NewActivityRepository(db *database.Database) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Insert(ctx context.Context, entry *models.ActivityLogEntry) error {
	query := `
		INSERT INTO activity_log (id, property_id, actor_id, activity, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		entry.ID,
		entry.PropertyID,
		entry.ActorID,
		entry.Activity,
		entry.Detail,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity entry %s: %w", entry.ID, err)
	}
	return nil
}

func (r *activityRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.ActivityLogEntry, error) {
	query := `
		SELECT id, property_id, actor_id, activity, detail, created_at
		FROM activity_log
		WHERE property_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity log: %w", err)
	}
	defer rows.Close()

	var entries []models.ActivityLogEntry
	for rows.Next() {
		var entry models.ActivityLogEntry
		err := rows.Scan(
			&entry.ID,
			&entry.PropertyID,
			&entry.ActorID,
			&entry.Activity,
			&entry.Detail,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}

	if entries == nil {
		entries = []models.ActivityLogEntry{}
	}
	return entries, nil
}
