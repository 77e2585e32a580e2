package alert

import (
	"context"
	"log"
	"time"

	"github.com/dewasatria11/Device-Qris-Admin-CRUD/config"
	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/schema"
	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/store"
)

// Scheduler periodically scans heartbeat rows for soundboxes that were
// recently online but have gone quiet, and hands each finding to the worker
// pool. Devices silent for longer than the suppression ceiling are left
// alone until they report in again.
type Scheduler struct {
	cfg    *config.Config
	store  store.Store
	schema *schema.Resolver
	pool   *WorkerPool
}

// NewScheduler creates a scheduler wired to a store, the schema resolver and
// an alert worker pool.
func NewScheduler(cfg *config.Config, s store.Store, resolver *schema.Resolver, pool *WorkerPool) *Scheduler {
	return &Scheduler{cfg: cfg, store: s, schema: resolver, pool: pool}
}

// Run starts the periodic scan loop.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.cfg.Offline.Enabled {
		log.Println("Offline alert scheduler is disabled. Not starting.")
		return
	}
	log.Println("Starting offline alert scheduler...")

	s.pool.Start(ctx)

	s.ScanOnce(ctx)

	timer := time.NewTimer(s.cfg.Offline.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Offline alert scheduler shutting down.")
			return
		case <-timer.C:
			s.ScanOnce(ctx)
			timer.Reset(s.cfg.Offline.Interval)
		}
	}
}

// ScanOnce performs a single offline scan. Failures are logged and absorbed;
// the next scheduled run is unaffected.
func (s *Scheduler) ScanOnce(ctx context.Context) {
	if !s.schema.Capabilities().JoinAvailable() {
		log.Println("Offline scan skipped: heartbeat schema has no usable identity column.")
		return
	}

	now := time.Now().UTC()
	stale := time.Duration(s.cfg.Offline.StaleAfterMinutes) * time.Minute
	ceiling := time.Duration(s.cfg.Offline.SuppressAfterHours) * time.Hour

	devices, err := s.store.StaleHeartbeats(ctx, now, stale, ceiling)
	if err != nil {
		log.Printf("Offline scan failed: %v", err)
		return
	}

	for _, d := range devices {
		s.pool.Dispatch(Event{
			StoreName:      d.StoreName,
			MinutesOffline: int(now.Sub(d.LastSeen).Minutes()),
		})
	}

	log.Printf("Offline scan complete: %d device(s) alerted", len(devices))
}
