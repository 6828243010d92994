package registry

import (
	"context"
	"time"

	"github.com/agentrig/agentrig/control-plane/internal/store"
	"github.com/rs/zerolog/log"
)

// ── Instance Reaper ──────────────────────────────────────────

// Reaper marks instances stopped once their heartbeat has gone stale:
// no stop timestamp and a last heartbeat older than the stale-after
// horizon. Crashed processes converge to stopped without manual cleanup.
// The sweep never deletes rows.
type Reaper struct {
	store      store.Store
	interval   time.Duration
	staleAfter time.Duration
}

// NewReaper creates a reaper that sweeps on the given interval. The
// stale-after horizon must exceed both the heartbeat interval and every
// liveness threshold in use; defaults are a 10m sweep with a 1h horizon.
func NewReaper(s store.Store, interval, staleAfter time.Duration) *Reaper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = time.Hour
	}
	return &Reaper{store: s, interval: interval, staleAfter: staleAfter}
}

// Start runs the sweep loop. It blocks until ctx is canceled.
func (r *Reaper) Start(ctx context.Context) {
	log.Info().
		Dur("interval", r.interval).
		Dur("stale_after", r.staleAfter).
		Msg("Instance reaper started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	r.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Instance reaper stopped")
			return
		case <-ticker.C:
			r.runCycle(ctx)
		}
	}
}

// runCycle performs one sweep over the instance table.
func (r *Reaper) runCycle(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.staleAfter)
	stale, err := r.store.ListStaleInstances(ctx, cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("Reaper: failed to list stale instances")
		return
	}
	if len(stale) == 0 {
		return
	}

	reaped := 0
	for _, inst := range stale {
		if err := r.store.StopInstance(ctx, inst.ID, time.Now().UTC()); err != nil {
			log.Warn().Err(err).Str("instance_id", inst.ID).Msg("Reaper: failed to stop stale instance")
			continue
		}
		reaped++
	}

	log.Info().
		Int("reaped", reaped).
		Time("cutoff", cutoff).
		Msg("Reaper cycle complete")
}
