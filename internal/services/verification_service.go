package services

import (
	"context"
	"fmt"

	"github.com/dwelora/api/internal/external"
	"github.com/dwelora/api/internal/logger"
	"github.com/dwelora/api/internal/models"
	"github.com/dwelora/api/internal/repository"
	"github.com/google/uuid"
)

// VerificationService drives identity verification through the external
// decision service and applies the outcome to the user record.
type VerificationService interface {
	// Start opens a verification session for the user.
	Start(ctx context.Context, userID uuid.UUID) (*external.VerificationSession, error)

	// Sync polls the session status. An approved outcome marks the user
	// verified; for agents it also re-runs lead matching against existing
	// unassigned properties, best-effort.
	Sync(ctx context.Context, userID uuid.UUID, sessionID string) (external.VerificationStatus, error)
}

// verificationService is the concrete implementation of VerificationService.
type verificationService struct {
	users    repository.UserRepository
	verifier external.IdentityVerifier
	leads    LeadService
	log      *logger.Logger
}

// NewVerificationService creates a new instance of VerificationService.
func NewVerificationService(
	users repository.UserRepository,
	verifier external.IdentityVerifier,
	leads LeadService,
	log *logger.Logger,
) VerificationService {
	return &verificationService{
		users:    users,
		verifier: verifier,
		leads:    leads,
		log:      log,
	}
}

func (s *verificationService) Start(ctx context.Context, userID uuid.UUID) (*external.VerificationSession, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}

	session, err := s.verifier.StartSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to start verification session: %w", ErrExternalService)
	}
	return session, nil
}

func (s *verificationService) Sync(ctx context.Context, userID uuid.UUID, sessionID string) (external.VerificationStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return "", ErrNotFound
	}

	status, err := s.verifier.CheckStatus(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to check verification status: %w", ErrExternalService)
	}
	if status != external.VerificationApproved {
		return status, nil
	}

	if user.VerificationStatus != models.VerificationVerified {
		if err := s.users.SetVerificationStatus(ctx, userID, models.VerificationVerified); err != nil {
			return status, fmt.Errorf("failed to mark user verified: %w", err)
		}
		s.log.Info("User verified", map[string]interface{}{
			"user_id": userID.String(),
			"role":    string(user.Role),
		})
	}

	// A newly verified agent becomes a candidate for every property still
	// waiting for one. Failures are logged; the verification itself stands.
	if user.Role == models.RoleAgent {
		if seeded, err := s.leads.ReseedUnassigned(ctx); err != nil {
			s.log.Error("Failed to reseed leads after verification", err, map[string]interface{}{
				"user_id": userID.String(),
			})
		} else if seeded > 0 {
			s.log.Info("Leads reseeded after agent verification", map[string]interface{}{
				"user_id":    userID.String(),
				"properties": seeded,
			})
		}
	}
	return status, nil
}
