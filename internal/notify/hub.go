// Package notify implements the best-effort event fan-out that keeps all
// parties' views of a transaction consistent. Delivery is at-most-once per
// connected recipient and unordered across recipients; a missed event only
// delays a client's refresh, it never loses data.
package notify

import (
	"sync"

	"github.com/dwelora/api/internal/logger"
	"github.com/dwelora/api/internal/models"
	"github.com/google/uuid"
)

// Subscription is one connected client's event channel. The channel is
// closed only by Unsubscribe.
type Subscription struct {
	UserID uuid.UUID
	C      chan models.Event
}

// Hub routes events to connected users. A user may hold several concurrent
// subscriptions (multiple tabs or devices); each gets its own buffered
// channel. Events for users with no subscription are dropped silently.
type Hub struct {
	log    *logger.Logger
	buffer int

	mu   sync.RWMutex
	subs map[uuid.UUID]map[*Subscription]struct{}
}

// NewHub creates a Hub with the given per-subscription buffer size.
func NewHub(log *logger.Logger, buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		log:    log,
		buffer: buffer,
		subs:   make(map[uuid.UUID]map[*Subscription]struct{}),
	}
}

// Subscribe registers a new subscription for the user.
func (h *Hub) Subscribe(userID uuid.UUID) *Subscription {
	sub := &Subscription{
		UserID: userID,
		C:      make(chan models.Event, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sub.UserID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.UserID)
	}
	close(sub.C)
}

// Broadcast pushes an event to every subscription of every recipient.
// Recipients are deduplicated. Sends never block: a subscriber whose buffer
// is full loses the event, which is acceptable because clients re-fetch
// authoritative state on reconnect.
func (h *Hub) Broadcast(event models.Event) {
	seen := make(map[uuid.UUID]struct{}, len(event.Recipients))

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, userID := range event.Recipients {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		for sub := range h.subs[userID] {
			select {
			case sub.C <- event:
			default:
				h.log.Warn("Dropping event for slow subscriber", map[string]interface{}{
					"user_id": userID.String(),
					"kind":    string(event.Kind),
				})
			}
		}
	}
}

// ConnectedUsers returns the number of distinct users with at least one
// active subscription.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
