package services

import (
	"context"

	"github.com/dwelora/api/internal/models"
	"github.com/google/uuid"
)

// Recorder appends activity ledger entries. Implementations must never
// block the caller; ledger failures are absorbed behind this seam.
type Recorder interface {
	Record(propertyID, actorID uuid.UUID, activity string, detail map[string]interface{})
}

// Broadcaster pushes best-effort events to connected recipients. Machines
// build explicit event values and hand them to a single broadcaster at the
// boundary, so the side effect stays visible and testable.
type Broadcaster interface {
	Broadcast(event models.Event)
}

// AgentRanker is the pluggable expertise-matching collaborator used to
// re-rank lead candidates. It is best-effort: a failure never blocks
// allocation.
type AgentRanker interface {
	Rank(ctx context.Context, property *models.Property, agents []models.User) ([]models.User, error)
}
