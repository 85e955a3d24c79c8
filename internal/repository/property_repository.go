package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dwelora/api/internal/database"
	"github.com/dwelora/api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PropertyRepository defines the interface for property data access operations.
type PropertyRepository interface {
	// GetByID returns the property with the given id.
	// Returns nil, nil if no property is found (not an error).
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)

	// Create inserts a new property.
	Create(ctx context.Context, property *models.Property) error

	// ListByActor returns properties where the actor is the creator, seller,
	// or assigned agent. Returns an empty slice if none exist.
	ListByActor(ctx context.Context, actorID uuid.UUID) ([]models.Property, error)

	// ListUnassigned returns active or pending properties with no assigned
	// agent. Used by the lead reconciliation worker.
	ListUnassigned(ctx context.Context) ([]models.Property, error)

	// UpdateStatus sets the listing status.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.PropertyStatus) error

	// SetAgent sets the assigned agent id. Idempotent when the agent is
	// already assigned.
	SetAgent(ctx context.Context, id, agentID uuid.UUID) error

	// Delete removes a property. Callers enforce the no-assigned-agent rule.
	Delete(ctx context.Context, id uuid.UUID) error
}

// propertyRepository is the concrete implementation of PropertyRepository.
type propertyRepository struct {
	db *database.Database
}

// NewPropertyRepository creates a new instance of PropertyRepository.
func NewPropertyRepository(db *database.Database) PropertyRepository {
	return &propertyRepository{db: db}
}

const propertyColumns = `id, street, city, state, zip, status, created_by, seller_id, agent_id, created_at, updated_at`

func scanProperty(row pgx.Row) (*models.Property, error) {
	var p models.Property
	err := row.Scan(
		&p.ID,
		&p.Street,
		&p.City,
		&p.State,
		&p.Zip,
		&p.Status,
		&p.CreatedBy,
		&p.SellerID,
		&p.AgentID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *propertyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`

	property, err := scanProperty(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query property %s: %w", id, err)
	}
	return property, nil
}

func (r *propertyRepository) Create(ctx context.Context, property *models.Property) error {
	query := `
		INSERT INTO properties (id, street, city, state, zip, status, created_by, seller_id, agent_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		property.ID,
		property.Street,
		property.City,
		property.State,
		property.Zip,
		property.Status,
		property.CreatedBy,
		property.SellerID,
		property.AgentID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert property %s: %w", property.ID, err)
	}
	return nil
}

func (r *propertyRepository) ListByActor(ctx context.Context, actorID uuid.UUID) ([]models.Property, error) {
	query := `
		SELECT ` + propertyColumns + `
		FROM properties
		WHERE created_by = $1 OR seller_id = $1 OR agent_id = $1
		ORDER BY created_at DESC
	`

	return r.queryProperties(ctx, query, actorID)
}

func (r *propertyRepository) ListUnassigned(ctx context.Context) ([]models.Property, error) {
	query := `
		SELECT ` + propertyColumns + `
		FROM properties
		WHERE agent_id IS NULL AND status IN ($1, $2)
		ORDER BY created_at
	`

	return r.queryProperties(ctx, query, models.PropertyActive, models.PropertyPending)
}

func (r *propertyRepository) queryProperties(ctx context.Context, query string, args ...any) ([]models.Property, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		property, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property row: %w", err)
		}
		properties = append(properties, *property)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating property rows: %w", err)
	}

	if properties == nil {
		properties = []models.Property{}
	}
	return properties, nil
}

func (r *propertyRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PropertyStatus) error {
	query := `UPDATE properties SET status = $2, updated_at = now() WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update status for property %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no property %s to update", id)
	}
	return nil
}

func (r *propertyRepository) SetAgent(ctx context.Context, id, agentID uuid.UUID) error {
	query := `UPDATE properties SET agent_id = $2, updated_at = now() WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, id, agentID)
	if err != nil {
		return fmt.Errorf("failed to set agent for property %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no property %s to update", id)
	}
	return nil
}

func (r *propertyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM properties WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete property %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no property %s to delete", id)
	}
	return nil
}
