package models

import "github.com/google/uuid"

// EventKind classifies outbound push events.
type EventKind string

const (
	EventPropertyUpdate EventKind = "property_update"
	EventNotification   EventKind = "notification"
)

// EventPayload carries the specifics of a change. Optional ids use pointers
// so absent fields are omitted from the wire format.
type EventPayload struct {
	PropertyID       *uuid.UUID `json:"propertyId,omitempty"`
	ViewingRequestID *uuid.UUID `json:"viewingRequestId,omitempty"`
	AgreementID      *uuid.UUID `json:"agreementId,omitempty"`
	Action           string     `json:"action,omitempty"`
	Message          string     `json:"message"`
}

// Event is a best-effort push message delivered to every connected
// recipient. Delivery is at-most-once; the authoritative state lives in the
// entities themselves.
type Event struct {
	Recipients []uuid.UUID  `json:"recipientUserIds"`
	Kind       EventKind    `json:"kind"`
	Payload    EventPayload `json:"payload"`
}
