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

// LeadRepository defines the interface for agent lead data access operations.
type LeadRepository interface {
	// GetByID returns the lead with the given id.
	// Returns nil, nil if no lead is found (not an error).
	GetByID(ctx context.Context, id uuid.UUID) (*models.AgentLead, error)

	// CreateBatch inserts a batch of leads for a property.
	CreateBatch(ctx context.Context, leads []models.AgentLead) error

	// ListByAgent returns all leads offered to an agent, newest first.
	ListByAgent(ctx context.Context, agentID uuid.UUID) ([]models.AgentLead, error)

	// ListByProperty returns all leads for a property ordered by rank.
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.AgentLead, error)

	// Claim atomically transitions a lead from available to claimed. The
	// update succeeds only if the lead is still available, belongs to the
	// claiming agent, and no other lead for the same property is already
	// claimed. Returns false when the conditional update matched no row;
	// callers surface that as a state conflict.
	Claim(ctx context.Context, id, agentID uuid.UUID) (bool, error)

	// DeleteByProperty removes all leads for a property. Leads are destroyed
	// only by property deletion.
	DeleteByProperty(ctx context.Context, propertyID uuid.UUID) error
}

// leadRepository is the concrete implementation of LeadRepository.
type leadRepository struct {
	db *database.Database
}

// NewLeadRepository creates a new instance of LeadRepository.
func NewLeadRepository(db *database.Database) LeadRepository {
	return &leadRepository{db: db}
}

const leadColumns = `id, property_id, agent_id, status, rank, created_at, updated_at`

func scanLead(row pgx.Row) (*models.AgentLead, error) {
	var lead models.AgentLead
	err := row.Scan(
		&lead.ID,
		&lead.PropertyID,
		&lead.AgentID,
		&lead.Status,
		&lead.Rank,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AgentLead, error) {
	query := `SELECT ` + leadColumns + ` FROM agent_leads WHERE id = $1`

	lead, err := scanLead(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query lead %s: %w", id, err)
	}
	return lead, nil
}

func (r *leadRepository) CreateBatch(ctx context.Context, leads []models.AgentLead) error {
	if len(leads) == 0 {
		return nil
	}

	query := `
		INSERT INTO agent_leads (id, property_id, agent_id, status, rank)
		VALUES ($1, $2, $3, $4, $5)
	`

	batch := &pgx.Batch{}
	for _, lead := range leads {
		batch.Queue(query, lead.ID, lead.PropertyID, lead.AgentID, lead.Status, lead.Rank)
	}

	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	for range leads {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert lead batch: %w", err)
		}
	}
	return nil
}

func (r *leadRepository) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]models.AgentLead, error) {
	query := `SELECT ` + leadColumns + ` FROM agent_leads WHERE agent_id = $1 ORDER BY created_at DESC`

	return r.queryLeads(ctx, query, agentID)
}

func (r *leadRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.AgentLead, error) {
	query := `SELECT ` + leadColumns + ` FROM agent_leads WHERE property_id = $1 ORDER BY rank`

	return r.queryLeads(ctx, query, propertyID)
}

func (r *leadRepository) queryLeads(ctx context.Context, query string, args ...any) ([]models.AgentLead, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []models.AgentLead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead row: %w", err)
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lead rows: %w", err)
	}

	if leads == nil {
		leads = []models.AgentLead{}
	}
	return leads, nil
}

// Claim performs the one compare-and-swap in the system. The WHERE clause
// closes the race between two agents claiming concurrently: only the
// transaction that still sees the lead as available gets a row count of 1.
func (r *leadRepository) Claim(ctx context.Context, id, agentID uuid.UUID) (bool, error) {
	query := `
		UPDATE agent_leads
		SET status = $3, updated_at = now()
		WHERE id = $1
		  AND agent_id = $2
		  AND status = $4
		  AND NOT EXISTS (
			SELECT 1 FROM agent_leads other
			WHERE other.property_id = agent_leads.property_id
			  AND other.status = $3
			  AND other.id <> agent_leads.id
		  )
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, agentID, models.LeadClaimed, models.LeadAvailable)
	if err != nil {
		return false, fmt.Errorf("failed to claim lead %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *leadRepository) DeleteByProperty(ctx context.Context, propertyID uuid.UUID) error {
	query := `DELETE FROM agent_leads WHERE property_id = $1`

	if _, err := r.db.Pool.Exec(ctx, query, propertyID); err != nil {
		return fmt.Errorf("failed to delete leads for property %s: %w", propertyID, err)
	}
	return nil
}
