package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies which party a user acts as in a transaction.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAgent  Role = "agent"
	RoleAdmin  Role = "admin"
)

// VerificationStatus tracks the outcome of identity verification.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
)

// User represents a participant in a transaction. Credentials and sessions
// are managed outside this service; only role and verification status drive
// workflow decisions here.
type User struct {
	ID                 uuid.UUID          `json:"id"`
	Role               Role               `json:"role"`
	Email              string             `json:"email"`
	FirstName          string             `json:"firstName"`
	LastName           string             `json:"lastName"`
	State              *string            `json:"state,omitempty"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	Blocked            bool               `json:"blocked"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// IsVerifiedAgent reports whether the user is an agent eligible for lead
// matching.
func (u *User) IsVerifiedAgent() bool {
	return u.Role == RoleAgent && u.VerificationStatus == VerificationVerified && !u.Blocked
}
