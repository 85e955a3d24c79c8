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

// AgreementRepository defines the interface for agreement data access
// operations. Superseded agreements remain for audit; "current" queries
// resolve by recency.
type AgreementRepository interface {
	// GetByID returns the agreement with the given id.
	// Returns nil, nil if no agreement is found (not an error).
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agreement, error)

	// Create inserts a new agreement.
	Create(ctx context.Context, agreement *models.Agreement) error

	// Update persists the mutable fields of an agreement.
	Update(ctx context.Context, agreement *models.Agreement) error

	// FindCurrent returns the most recent agreement of the given type for a
	// property. Returns nil, nil when none exists.
	FindCurrent(ctx context.Context, propertyID uuid.UUID, agreementType models.AgreementType) (*models.Agreement, error)

	// FindGlobalBRBC returns the most recent global BRBC for a buyer/agent
	// pair. Returns nil, nil when none exists.
	FindGlobalBRBC(ctx context.Context, buyerID, agentID uuid.UUID) (*models.Agreement, error)

	// FindReferralByAgent returns the agent's referral agreement if one
	// exists. Returns nil, nil when none exists.
	FindReferralByAgent(ctx context.Context, agentID uuid.UUID) (*models.Agreement, error)

	// ListByActor returns agreements where the actor is the buyer or agent,
	// newest first.
	ListByActor(ctx context.Context, actorID uuid.UUID) ([]models.Agreement, error)
}

// agreementRepository is the concrete implementation of AgreementRepository.
type agreementRepository struct {
	db *database.Database
}

// NewAgreementRepository creates a new instance of AgreementRepository.
func NewAgreementRepository(db *database.Database) AgreementRepository {
	return &agreementRepository{db: db}
}

const agreementColumns = `id, type, property_id, buyer_id, agent_id, status,
	buyer_signature, agent_signature, seller_signature,
	document_ref, edited_document, created_at, updated_at`

func scanAgreement(row pgx.Row) (*models.Agreement, error) {
	var a models.Agreement
	err := row.Scan(
		&a.ID,
		&a.Type,
		&a.PropertyID,
		&a.BuyerID,
		&a.AgentID,
		&a.Status,
		&a.BuyerSignature,
		&a.AgentSignature,
		&a.SellerSignature,
		&a.DocumentRef,
		&a.EditedDocument,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *agreementRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Agreement, error) {
	query := `SELECT ` + agreementColumns + ` FROM agreements WHERE id = $1`

	return r.queryOne(ctx, query, id)
}

func (r *agreementRepository) Create(ctx context.Context, agreement *models.Agreement) error {
	query := `
		INSERT INTO agreements (
			id, type, property_id, buyer_id, agent_id, status,
			buyer_signature, agent_signature, seller_signature,
			document_ref, edited_document
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		agreement.ID,
		agreement.Type,
		agreement.PropertyID,
		agreement.BuyerID,
		agreement.AgentID,
		agreement.Status,
		agreement.BuyerSignature,
		agreement.AgentSignature,
		agreement.SellerSignature,
		agreement.DocumentRef,
		agreement.EditedDocument,
	)
	if err != nil {
		return fmt.Errorf("failed to insert agreement %s: %w", agreement.ID, err)
	}
	return nil
}

func (r *agreementRepository) Update(ctx context.Context, agreement *models.Agreement) error {
	query := `
		UPDATE agreements
		SET status = $2,
		    buyer_signature = $3,
		    agent_signature = $4,
		    seller_signature = $5,
		    document_ref = $6,
		    edited_document = $7,
		    updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		agreement.ID,
		agreement.Status,
		agreement.BuyerSignature,
		agreement.AgentSignature,
		agreement.SellerSignature,
		agreement.DocumentRef,
		agreement.EditedDocument,
	)
	if err != nil {
		return fmt.Errorf("failed to update agreement %s: %w", agreement.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no agreement %s to update", agreement.ID)
	}
	return nil
}

func (r *agreementRepository) FindCurrent(ctx context.Context, propertyID uuid.UUID, agreementType models.AgreementType) (*models.Agreement, error) {
	query := `
		SELECT ` + agreementColumns + `
		FROM agreements
		WHERE property_id = $1 AND type = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.queryOne(ctx, query, propertyID, agreementType)
}

func (r *agreementRepository) FindGlobalBRBC(ctx context.Context, buyerID, agentID uuid.UUID) (*models.Agreement, error) {
	query := `
		SELECT ` + agreementColumns + `
		FROM agreements
		WHERE buyer_id = $1 AND agent_id = $2 AND type = $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.queryOne(ctx, query, buyerID, agentID, models.AgreementGlobalBRBC)
}

func (r *agreementRepository) FindReferralByAgent(ctx context.Context, agentID uuid.UUID) (*models.Agreement, error) {
	query := `
		SELECT ` + agreementColumns + `
		FROM agreements
		WHERE agent_id = $1 AND type = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.queryOne(ctx, query, agentID, models.AgreementAgentReferral)
}

func (r *agreementRepository) ListByActor(ctx context.Context, actorID uuid.UUID) ([]models.Agreement, error) {
	query := `
		SELECT ` + agreementColumns + `
		FROM agreements
		WHERE buyer_id = $1 OR agent_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query agreements: %w", err)
	}
	defer rows.Close()

	var agreements []models.Agreement
	for rows.Next() {
		agreement, err := scanAgreement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agreement row: %w", err)
		}
		agreements = append(agreements, *agreement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agreement rows: %w", err)
	}

	if agreements == nil {
		agreements = []models.Agreement{}
	}
	return agreements, nil
}

func (r *agreementRepository) queryOne(ctx context.Context, query string, args ...any) (*models.Agreement, error) {
	agreement, err := scanAgreement(r.db.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query agreement: %w", err)
	}
	return agreement, nil
}
