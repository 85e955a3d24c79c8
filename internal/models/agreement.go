package models

import (
	"time"

	"github.com/google/uuid"
)

// AgreementType distinguishes the four legal document kinds that share one
// record shape.
type AgreementType string

const (
	AgreementAgencyDisclosure AgreementType = "agency_disclosure"
	AgreementStandard         AgreementType = "standard"
	AgreementGlobalBRBC       AgreementType = "global_brbc"
	AgreementAgentReferral    AgreementType = "agent_referral"
)

// AgreementStatus is the shared signature lifecycle vocabulary. Each
// agreement type uses a subset with its own legal semantics.
type AgreementStatus string

const (
	AgreementDraft          AgreementStatus = "draft"
	AgreementPendingBuyer   AgreementStatus = "pending_buyer"
	AgreementSignedByBuyer  AgreementStatus = "signed_by_buyer"
	AgreementSignedBuyer    AgreementStatus = "signed_buyer"
	AgreementPendingReview  AgreementStatus = "pending"
	AgreementSignedBySeller AgreementStatus = "signed_by_seller"
	AgreementCompleted      AgreementStatus = "completed"
)

// Agreement is one legal document instance. PropertyID is nil for
// agent-level agreements (global BRBC before a property exists, referral).
// Signature fields hold opaque captured signature data and are each written
// only by the party that owns the slot.
type Agreement struct {
	ID              uuid.UUID       `json:"id"`
	Type            AgreementType   `json:"type"`
	PropertyID      *uuid.UUID      `json:"propertyId,omitempty"`
	BuyerID         *uuid.UUID      `json:"buyerId,omitempty"`
	AgentID         uuid.UUID       `json:"agentId"`
	Status          AgreementStatus `json:"status"`
	BuyerSignature  *string         `json:"buyerSignature,omitempty"`
	AgentSignature  *string         `json:"agentSignature,omitempty"`
	SellerSignature *string         `json:"sellerSignature,omitempty"`
	DocumentRef     *string         `json:"documentRef,omitempty"`
	EditedDocument  []byte          `json:"-"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// HasBuyerSignature reports whether the buyer slot has been signed.
func (a *Agreement) HasBuyerSignature() bool { return a.BuyerSignature != nil }

// HasAgentSignature reports whether the agent slot has been signed.
func (a *Agreement) HasAgentSignature() bool { return a.AgentSignature != nil }

// HasSellerSignature reports whether the seller slot has been signed.
func (a *Agreement) HasSellerSignature() bool { return a.SellerSignature != nil }

// GrantsViewingAccess reports whether a global BRBC in this status allows
// the buyer to request viewings through the agent.
func (a *Agreement) GrantsViewingAccess() bool {
	if a.Type != AgreementGlobalBRBC {
		return false
	}
	return a.Status == AgreementCompleted || a.Status == AgreementSignedByBuyer
}
