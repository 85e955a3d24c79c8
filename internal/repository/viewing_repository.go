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

// ViewingRepository defines the interface for viewing request data access
// operations. Viewing requests are never deleted; cancellation is recorded
// as a terminal status.
type ViewingRepository interface {
	// GetByID returns the viewing request with the given id.
	// Returns nil, nil if no request is found (not an error).
	GetByID(ctx context.Context, id uuid.UUID) (*models.ViewingRequest, error)

	// Create inserts a new viewing request.
	Create(ctx context.Context, request *models.ViewingRequest) error

	// Update persists the mutable fields of a viewing request.
	Update(ctx context.Context, request *models.ViewingRequest) error

	// ListByProperty returns all viewing requests for a property, newest first.
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.ViewingRequest, error)

	// ListOpenByBuyer returns the buyer's non-terminal requests for a
	// property. Used when an override supersedes prior requests.
	ListOpenByBuyer(ctx context.Context, propertyID, buyerID uuid.UUID) ([]models.ViewingRequest, error)

	// HasPending reports whether the property has any viewing request still
	// in pending status. Gates agency disclosure completion.
	HasPending(ctx context.Context, propertyID uuid.UUID) (bool, error)
}

// viewingRepository is the concrete implementation of ViewingRepository.
type viewingRepository struct {
	db *database.Database
}

// NewViewingRepository creates a new instance of ViewingRepository.
func NewViewingRepository(db *database.Database) ViewingRepository {
	return &viewingRepository{db: db}
}

const viewingColumns = `id, property_id, buyer_id, buyer_agent_id, seller_agent_id,
	requested_start, requested_end, confirmed_start, confirmed_end, status,
	seller_agent_approval, seller_agent_approval_source,
	buyer_agent_approval, buyer_agent_approval_source,
	note, created_at, updated_at`

func scanViewing(row pgx.Row) (*models.ViewingRequest, error) {
	var v models.ViewingRequest
	err := row.Scan(
		&v.ID,
		&v.PropertyID,
		&v.BuyerID,
		&v.BuyerAgentID,
		&v.SellerAgentID,
		&v.RequestedStart,
		&v.RequestedEnd,
		&v.ConfirmedStart,
		&v.ConfirmedEnd,
		&v.Status,
		&v.SellerAgentApproval,
		&v.SellerAgentApprovalSource,
		&v.BuyerAgentApproval,
		&v.BuyerAgentApprovalSource,
		&v.Note,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *viewingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ViewingRequest, error) {
	query := `SELECT ` + viewingColumns + ` FROM viewing_requests WHERE id = $1`

	request, err := scanViewing(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query viewing request %s: %w", id, err)
	}
	return request, nil
}

func (r *viewingRepository) Create(ctx context.Context, request *models.ViewingRequest) error {
	query := `
		INSERT INTO viewing_requests (
			id, property_id, buyer_id, buyer_agent_id, seller_agent_id,
			requested_start, requested_end, status,
			seller_agent_approval, buyer_agent_approval
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		request.ID,
		request.PropertyID,
		request.BuyerID,
		request.BuyerAgentID,
		request.SellerAgentID,
		request.RequestedStart,
		request.RequestedEnd,
		request.Status,
		request.SellerAgentApproval,
		request.BuyerAgentApproval,
	)
	if err != nil {
		return fmt.Errorf("failed to insert viewing request %s: %w", request.ID, err)
	}
	return nil
}

func (r *viewingRepository) Update(ctx context.Context, request *models.ViewingRequest) error {
	query := `
		UPDATE viewing_requests
		SET confirmed_start = $2,
		    confirmed_end = $3,
		    status = $4,
		    seller_agent_approval = $5,
		    seller_agent_approval_source = $6,
		    buyer_agent_approval = $7,
		    buyer_agent_approval_source = $8,
		    note = $9,
		    updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		request.ID,
		request.ConfirmedStart,
		request.ConfirmedEnd,
		request.Status,
		request.SellerAgentApproval,
		request.SellerAgentApprovalSource,
		request.BuyerAgentApproval,
		request.BuyerAgentApprovalSource,
		request.Note,
	)
	if err != nil {
		return fmt.Errorf("failed to update viewing request %s: %w", request.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no viewing request %s to update", request.ID)
	}
	return nil
}

func (r *viewingRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.ViewingRequest, error) {
	query := `SELECT ` + viewingColumns + ` FROM viewing_requests WHERE property_id = $1 ORDER BY created_at DESC`

	return r.queryViewings(ctx, query, propertyID)
}

func (r *viewingRepository) ListOpenByBuyer(ctx context.Context, propertyID, buyerID uuid.UUID) ([]models.ViewingRequest, error) {
	query := `
		SELECT ` + viewingColumns + `
		FROM viewing_requests
		WHERE property_id = $1 AND buyer_id = $2 AND status NOT IN ($3, $4)
		ORDER BY created_at
	`

	return r.queryViewings(ctx, query, propertyID, buyerID, models.ViewingCompleted, models.ViewingCancelled)
}

func (r *viewingRepository) queryViewings(ctx context.Context, query string, args ...any) ([]models.ViewingRequest, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query viewing requests: %w", err)
	}
	defer rows.Close()

	var requests []models.ViewingRequest
	for rows.Next() {
		request, err := scanViewing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan viewing request row: %w", err)
		}
		requests = append(requests, *request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating viewing request rows: %w", err)
	}

	if requests == nil {
		requests = []models.ViewingRequest{}
	}
	return requests, nil
}

func (r *viewingRepository) HasPending(ctx context.Context, propertyID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM viewing_requests WHERE property_id = $1 AND status = $2)`

	var pending bool
	err := r.db.Pool.QueryRow(ctx, query, propertyID, models.ViewingPending).Scan(&pending)
	if err != nil {
		return false, fmt.Errorf("failed to check pending viewings for property %s: %w", propertyID, err)
	}
	return pending, nil
}
