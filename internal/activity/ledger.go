// Package activity implements the append-only "who touched what" ledger.
// Writes are behind a buffered queue so a slow or failing ledger never
// blocks or fails the primary state transition that produced the entry.
package activity

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dwelora/api/internal/logger"
	"github.com/dwelora/api/internal/models"
	"github.com/dwelora/api/internal/repository"
	"github.com/google/uuid"
)

const writeTimeout = 5 * time.Second

// Ledger is the write-behind activity log. Record never blocks; entries are
// persisted by a single background writer.
type Ledger struct {
	repo    repository.ActivityRepository
	log     *logger.Logger
	entries chan models.ActivityLogEntry

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewLedger creates a Ledger and starts its writer goroutine.
func NewLedger(repo repository.ActivityRepository, log *logger.Logger, buffer int) *Ledger {
	if buffer < 1 {
		buffer = 1
	}
	l := &Ledger{
		repo:    repo,
		log:     log,
		entries: make(chan models.ActivityLogEntry, buffer),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Record queues an activity entry. If the queue is full or the ledger is
// already closed the entry is dropped with a warning; ledger pressure must
// not slow down or fail the caller.
func (l *Ledger) Record(propertyID, actorID uuid.UUID, activity string, detail map[string]interface{}) {
	entry := models.ActivityLogEntry{
		ID:         uuid.New(),
		PropertyID: propertyID,
		ActorID:    actorID,
		Activity:   activity,
		CreatedAt:  time.Now().UTC(),
	}
	if detail != nil {
		raw, err := json.Marshal(detail)
		if err != nil {
			l.log.Warn("Failed to encode activity detail", map[string]interface{}{
				"activity": activity,
				"error":    err.Error(),
			})
		} else {
			entry.Detail = raw
		}
	}

	// The read lock pairs with Close: a closed channel would panic on send,
	// and select/default does not protect against that.
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.log.Warn("Activity ledger closed, dropping entry", map[string]interface{}{
			"property_id": propertyID.String(),
			"activity":    activity,
		})
		return
	}

	select {
	case l.entries <- entry:
	default:
		l.log.Warn("Activity ledger queue full, dropping entry", map[string]interface{}{
			"property_id": propertyID.String(),
			"activity":    activity,
		})
	}
}

// Close stops the writer after draining queued entries.
func (l *Ledger) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.entries)
		l.mu.Unlock()
		<-l.done
	})
}

func (l *Ledger) run() {
	defer close(l.done)

	for entry := range l.entries {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := l.repo.Insert(ctx, &entry)
		cancel()
		if err != nil {
			// Ledger failures are logged and swallowed; the primary
			// operation already committed.
			l.log.Error("Failed to persist activity entry", err, map[string]interface{}{
				"property_id": entry.PropertyID.String(),
				"activity":    entry.Activity,
			})
		}
	}
}
