package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dwelora/api/internal/logger"
	"github.com/dwelora/api/internal/models"
	"github.com/dwelora/api/internal/repository"
	"github.com/google/uuid"
)

// RegisterUserInput is an admin's provisioning request for a participant.
// Credentials and sessions live outside this service; only the workflow
// identity is recorded here.
type RegisterUserInput struct {
	Role      models.Role
	Email     string
	FirstName string
	LastName  string
	State     *string
}

// UserService manages the participant records the workflow machines act on.
type UserService interface {
	// Register provisions a participant. Admin only. Everyone starts with
	// pending verification; only agents are gated on it.
	Register(ctx context.Context, actor *models.User, input RegisterUserInput) (*models.User, error)

	// Get returns a user visible to the actor (self or admin).
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.User, error)
}

// userService is the concrete implementation of UserService.
type userService struct {
	users repository.UserRepository
	log   *logger.Logger
}

// NewUserService creates a new instance of UserService.
func NewUserService(users repository.UserRepository, log *logger.Logger) UserService {
	return &userService{
		users: users,
		log:   log,
	}
}

func validRole(role models.Role) bool {
	switch role {
	case models.RoleBuyer, models.RoleSeller, models.RoleAgent, models.RoleAdmin:
		return true
	default:
		return false
	}
}

func (s *userService) Register(ctx context.Context, actor *models.User, input RegisterUserInput) (*models.User, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if !validRole(input.Role) {
		return nil, fmt.Errorf("role %q is not valid: %w", input.Role, ErrInvalidInput)
	}
	if strings.TrimSpace(input.Email) == "" {
		return nil, fmt.Errorf("email is required: %w", ErrInvalidInput)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:                 uuid.New(),
		Role:               input.Role,
		Email:              strings.ToLower(strings.TrimSpace(input.Email)),
		FirstName:          input.FirstName,
		LastName:           input.LastName,
		State:              input.State,
		VerificationStatus: models.VerificationPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("User registered", map[string]interface{}{
		"user_id": user.ID.String(),
		"role":    string(user.Role),
	})
	return user, nil
}

func (s *userService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.User, error) {
	if actor.Role != models.RoleAdmin && actor.ID != id {
		return nil, ErrForbidden
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}
