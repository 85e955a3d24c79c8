// Package workers hosts the background jobs that run alongside the HTTP
// server.
package workers

import (
	"context"
	"time"

	"github.com/dwelora/api/internal/logger"
	"github.com/dwelora/api/internal/services"
	"github.com/robfig/cron/v3"
)

const rescanTimeout = 2 * time.Minute

// LeadReconciler periodically re-runs agent matching for properties that
// still have no assigned agent. It covers agents who verify after a
// property was created and transient allocator failures at creation time.
type LeadReconciler struct {
	leads services.LeadService
	log   *logger.Logger
	cron  *cron.Cron
}

// NewLeadReconciler creates a reconciler; Start schedules it.
func NewLeadReconciler(leads services.LeadService, log *logger.Logger) *LeadReconciler {
	return &LeadReconciler{
		leads: leads,
		log:   log,
		cron:  cron.New(),
	}
}

// Start registers the rescan job on the given cron schedule and starts the
// scheduler.
func (r *LeadReconciler) Start(schedule string) error {
	if _, err := r.cron.AddFunc(schedule, r.rescan); err != nil {
		return err
	}
	r.cron.Start()
	r.log.Info("Lead reconciliation worker started", map[string]interface{}{
		"schedule": schedule,
	})
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (r *LeadReconciler) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *LeadReconciler) rescan() {
	ctx, cancel := context.WithTimeout(context.Background(), rescanTimeout)
	defer cancel()

	seeded, err := r.leads.ReseedUnassigned(ctx)
	if err != nil {
		r.log.Error("Lead rescan failed", err, nil)
		return
	}
	if seeded > 0 {
		r.log.Info("Lead rescan assigned agents", map[string]interface{}{
			"properties": seeded,
		})
	}
}
