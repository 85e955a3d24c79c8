package models

import (
	"time"

	"github.com/google/uuid"
)

// ViewingStatus is the top-level booking lifecycle status.
type ViewingStatus string

const (
	ViewingPending     ViewingStatus = "pending"
	ViewingAccepted    ViewingStatus = "accepted"
	ViewingRejected    ViewingStatus = "rejected"
	ViewingRescheduled ViewingStatus = "rescheduled"
	ViewingCompleted   ViewingStatus = "completed"
	ViewingCancelled   ViewingStatus = "cancelled"
)

// ApprovalStatus is the state of an independent agent sign-off slot.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// viewingTransitions is the allowed top-level status graph. Cancelled and
// completed are terminal.
var viewingTransitions = map[ViewingStatus][]ViewingStatus{
	ViewingPending:     {ViewingAccepted, ViewingRejected, ViewingRescheduled, ViewingCancelled},
	ViewingAccepted:    {ViewingCompleted, ViewingRescheduled, ViewingCancelled},
	ViewingRejected:    {ViewingCompleted, ViewingCancelled},
	ViewingRescheduled: {ViewingAccepted, ViewingRejected, ViewingCompleted, ViewingCancelled},
}

// CanTransition reports whether a viewing request may move from one status
// to another.
func CanTransition(from, to ViewingStatus) bool {
	for _, allowed := range viewingTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s ViewingStatus) IsTerminal() bool {
	return s == ViewingCompleted || s == ViewingCancelled
}

// ViewingRequest is one requested visit to a property. Requests are never
// hard-deleted; cancellation is a terminal status that preserves history.
type ViewingRequest struct {
	ID                        uuid.UUID      `json:"id"`
	PropertyID                uuid.UUID      `json:"propertyId"`
	BuyerID                   uuid.UUID      `json:"buyerId"`
	BuyerAgentID              *uuid.UUID     `json:"buyerAgentId,omitempty"`
	SellerAgentID             *uuid.UUID     `json:"sellerAgentId,omitempty"`
	RequestedStart            time.Time      `json:"requestedStart"`
	RequestedEnd              time.Time      `json:"requestedEnd"`
	ConfirmedStart            *time.Time     `json:"confirmedStart,omitempty"`
	ConfirmedEnd              *time.Time     `json:"confirmedEnd,omitempty"`
	Status                    ViewingStatus  `json:"status"`
	SellerAgentApproval       ApprovalStatus `json:"sellerAgentApproval"`
	SellerAgentApprovalSource *string        `json:"sellerAgentApprovalSource,omitempty"`
	BuyerAgentApproval        ApprovalStatus `json:"buyerAgentApproval"`
	BuyerAgentApprovalSource  *string        `json:"buyerAgentApprovalSource,omitempty"`
	Note                      *string        `json:"note,omitempty"`
	CreatedAt                 time.Time      `json:"createdAt"`
	UpdatedAt                 time.Time      `json:"updatedAt"`
}
