// Package external declares the narrow contracts for third-party
// collaborators the workflow core consumes. The core never depends on a
// particular provider; implementations are injected, and tests use fakes
// returning canned results.
package external

import (
	"context"

	"github.com/dwelora/api/internal/models"
)

// VerificationStatus is the decision state of an identity check session.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
	VerificationError    VerificationStatus = "error"
)

// VerificationSession is a handle to an in-progress identity check.
type VerificationSession struct {
	SessionID string
	URL       string
}

// IdentityVerifier submits identity evidence to a third-party decision
// service and polls for the outcome.
type IdentityVerifier interface {
	StartSession(ctx context.Context, user *models.User) (*VerificationSession, error)
	CheckStatus(ctx context.Context, sessionID string) (VerificationStatus, error)
}

// PropertyDetails is a best-effort structured record extracted from raw
// input. Fields the extractor could not determine are left empty.
type PropertyDetails struct {
	Street string
	City   string
	State  string
	Zip    string
}

// Extractor turns an address, URL, or image set into a best-effort partial
// property record. "Nothing found" is an empty record, never an error.
type Extractor interface {
	Extract(ctx context.Context, input string) (PropertyDetails, error)
}

// Renderer materializes a legal document's field and signature state into
// bytes. Both operations are idempotent given identical inputs.
type Renderer interface {
	// Fill renders field values into the template for the given agreement
	// type, layering over prior bytes when provided.
	Fill(ctx context.Context, kind models.AgreementType, fields map[string]string, prior []byte) ([]byte, error)

	// OverlaySignature composites a captured signature image into the named
	// slot of an already-rendered document.
	OverlaySignature(ctx context.Context, document []byte, signature []byte, slot string) ([]byte, error)
}

// BlobStore persists rendered document bytes.
type BlobStore interface {
	Save(ctx context.Context, data []byte) (string, error)
	Load(ctx context.Context, ref string) ([]byte, error)
}
