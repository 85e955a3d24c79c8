package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Service-level errors shared by all workflow machines. Handlers branch on
// these with errors.Is to choose the right HTTP outcome.
var (
	// ErrNotFound means a referenced entity is absent.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden means the authorization gate denied the action. No state
	// was changed.
	ErrForbidden = errors.New("actor is not permitted to perform this action")

	// ErrStateConflict means the requested transition is illegal from the
	// current state, including losing a claim race. Callers should prompt a
	// refresh rather than report bad input.
	ErrStateConflict = errors.New("requested change conflicts with current state")

	// ErrExternalService means a collaborator (verification, extraction,
	// rendering, storage) failed or timed out. It never aborts an
	// already-committed state transition.
	ErrExternalService = errors.New("external service unavailable")

	// ErrInvalidInput means malformed or missing required input, rejected
	// before touching state.
	ErrInvalidInput = errors.New("invalid input")
)

// RequiresBRBCError is returned when a buyer requests a viewing through an
// agent without a completed or buyer-signed global representation agreement
// (BRBC). It names the blocking agent so the client can start the signing
// flow.
type RequiresBRBCError struct {
	AgentID uuid.UUID
}

func (e *RequiresBRBCError) Error() string {
	return fmt.Sprintf("a signed representation agreement with agent %s is required", e.AgentID)
}

// BRBCCompletedError is returned when a buyer attempts to create a global
// BRBC for a pair that already has a completed one. It carries the existing
// agreement's identity instead of creating a new row.
type BRBCCompletedError struct {
	AgreementID uuid.UUID
}

func (e *BRBCCompletedError) Error() string {
	return fmt.Sprintf("a completed representation agreement %s already exists for this pair", e.AgreementID)
}

// Unwrap lets errors.Is treat a completed-BRBC rejection as a state conflict.
func (e *BRBCCompletedError) Unwrap() error { return ErrStateConflict }
