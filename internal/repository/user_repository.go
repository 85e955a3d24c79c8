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

// UserRepository defines the interface for user data access operations.
type UserRepository interface {
	// GetByID returns the user with the given id.
	// Returns nil, nil if no user is found (not an error).
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// Create inserts a new user.
	Create(ctx context.Context, user *models.User) error

	// ListVerifiedAgents returns all verified, non-blocked agents.
	// Returns an empty slice if none exist (not an error).
	ListVerifiedAgents(ctx context.Context) ([]models.User, error)

	// SetVerificationStatus updates a user's verification status.
	SetVerificationStatus(ctx context.Context, id uuid.UUID, status models.VerificationStatus) error
}

// userRepository is the concrete implementation of UserRepository.
type userRepository struct {
	db *database.Database
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *database.Database) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, role, email, first_name, last_name, state, verification_status, blocked, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Role,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.State,
		&user.VerificationStatus,
		&user.Blocked,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user %s: %w", id, err)
	}
	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, role, email, first_name, last_name, state, verification_status, blocked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		user.ID,
		user.Role,
		user.Email,
		user.FirstName,
		user.LastName,
		user.State,
		user.VerificationStatus,
		user.Blocked,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user %s: %w", user.ID, err)
	}
	return nil
}

func (r *userRepository) ListVerifiedAgents(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = $1 AND verification_status = $2 AND blocked = FALSE
		ORDER BY created_at
	`

	rows, err := r.db.Pool.Query(ctx, query, models.RoleAgent, models.VerificationVerified)
	if err != nil {
		return nil, fmt.Errorf("failed to query verified agents: %w", err)
	}
	defer rows.Close()

	var agents []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent row: %w", err)
		}
		agents = append(agents, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agent rows: %w", err)
	}

	if agents == nil {
		agents = []models.User{}
	}
	return agents, nil
}

func (r *userRepository) SetVerificationStatus(ctx context.Context, id uuid.UUID, status models.VerificationStatus) error {
	query := `UPDATE users SET verification_status = $2, updated_at = now() WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update verification status for user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no user %s to update", id)
	}
	return nil
}
