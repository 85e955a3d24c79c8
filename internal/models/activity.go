package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActivityLogEntry is one append-only "who touched what" record. Entries are
// immutable once written.
type ActivityLogEntry struct {
	ID         uuid.UUID       `json:"id"`
	PropertyID uuid.UUID       `json:"propertyId"`
	ActorID    uuid.UUID       `json:"actorId"`
	Activity   string          `json:"activity"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}
