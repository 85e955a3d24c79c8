package models

import (
	"time"

	"github.com/google/uuid"
)

// PropertyStatus is the listing lifecycle status of a property.
type PropertyStatus string

const (
	PropertyActive    PropertyStatus = "active"
	PropertyPending   PropertyStatus = "pending"
	PropertySold      PropertyStatus = "sold"
	PropertyWithdrawn PropertyStatus = "withdrawn"
)

// Property is the record all workflow machines operate on.
// Nullable relations use pointers to distinguish unset from zero values.
// The agent id, once set, is only replaced through an explicit reassignment
// action; the lead allocator never overwrites it.
type Property struct {
	ID        uuid.UUID      `json:"id"`
	Street    string         `json:"street"`
	City      string         `json:"city"`
	State     string         `json:"state"`
	Zip       string         `json:"zip"`
	Status    PropertyStatus `json:"status"`
	CreatedBy uuid.UUID      `json:"createdBy"`
	SellerID  *uuid.UUID     `json:"sellerId,omitempty"`
	AgentID   *uuid.UUID     `json:"agentId,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// AcceptsViewings reports whether viewing requests may be created against
// the property in its current status.
func (p *Property) AcceptsViewings() bool {
	return p.Status == PropertyActive || p.Status == PropertyPending
}
