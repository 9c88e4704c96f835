package sweeper

import (
	"context"
	"log"
	"time"

	"smarthome-backend/config"
	"smarthome-backend/internal/obs"
	"smarthome-backend/internal/store"
)

// Pruner drops idle per-client state, such as rate limiter entries.
type Pruner interface {
	Prune(idle time.Duration) int
}

// Service periodically removes expired provisioning and invite state.
type Service struct {
	store      store.Store
	interval   time.Duration
	pendingTTL time.Duration
	pruners    []Pruner
	now        func() time.Time
}

// NewService creates a sweeper from the provisioning configuration.
func NewService(cfg config.ProvisioningConfig, s store.Store, pruners ...Pruner) *Service {
	return &Service{
		store:      s,
		interval:   cfg.SweepInterval,
		pendingTTL: cfg.PendingTTL,
		pruners:    pruners,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps once immediately and then on every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if s.interval <= 0 {
		log.Println("Sweeper interval is not positive. Not starting.")
		return
	}
	log.Println("Starting expiry sweeper...")

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Sweeper shutting down.")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

// SweepOnce performs a single pass.
func (s *Service) SweepOnce(ctx context.Context) store.SweepResult {
	now := s.now()

	var pendingBefore time.Time
	if s.pendingTTL > 0 {
		pendingBefore = now.Add(-s.pendingTTL)
	}

	result, err := s.store.SweepExpired(ctx, pendingBefore, now)
	if err != nil {
		log.Printf("Error sweeping expired records: %v", err)
		return result
	}
	if result.PendingDevices > 0 || result.Invites > 0 {
		log.Printf("Swept %d pending devices and %d expired invite codes", result.PendingDevices, result.Invites)
	}
	obs.SweptRecords.WithLabelValues("pending_device").Add(float64(result.PendingDevices))
	obs.SweptRecords.WithLabelValues("invite_code").Add(float64(result.Invites))

	// Limiter entries idle for ten sweeps are unlikely to be reused.
	for _, p := range s.pruners {
		p.Prune(10 * s.interval)
	}
	return result
}
