package models

import (
	"time"

	"github.com/google/uuid"
)

// LeadStatus is the claim state of an agent lead.
type LeadStatus string

const (
	LeadAvailable LeadStatus = "available"
	LeadClaimed   LeadStatus = "claimed"
)

// AgentLead pairs a candidate agent with a property. At most one lead per
// property may be claimed, and the claiming agent must match the property's
// assigned agent.
type AgentLead struct {
	ID         uuid.UUID  `json:"id"`
	PropertyID uuid.UUID  `json:"propertyId"`
	AgentID    uuid.UUID  `json:"agentId"`
	Status     LeadStatus `json:"status"`
	Rank       int        `json:"rank"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}
