package service

import (
	"context"
	"time"

	"meetproof/pkg/logger"
)

// SweepWorker periodically runs the dispute detection query so stale bookings
// get flagged without waiting for an admin to open the dispute list.
type SweepWorker struct {
	service  DisputeService
	interval time.Duration
	log      *logger.Logger
}

func NewSweepWorker(service DisputeService, interval time.Duration, log *logger.Logger) *SweepWorker {
	return &SweepWorker{
		service:  service,
		interval: interval,
		log:      log,
	}
}

// Run blocks until ctx is cancelled. An interval of zero disables the worker.
func (w *SweepWorker) Run(ctx context.Context) {
	if w.interval <= 0 {
		w.log.Info("Dispute sweep worker disabled")
		return
	}

	w.log.Info("Dispute sweep worker started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Dispute sweep worker stopped")
			return
		case <-ticker.C:
			if err := w.service.Sweep(ctx); err != nil {
				w.log.Error("Dispute sweep failed", "error", err)
			}
		}
	}
}
