package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/agentrig/agentrig/control-plane/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

// ── Heartbeat Beacon ─────────────────────────────────────────

// Beacon keeps a registered instance alive from the client side. An agent
// process runs one after self-registering: the first beat fires
// immediately, then a ticker at the configured interval.
type Beacon struct {
	reg        *Registry
	instanceID string
	interval   time.Duration

	mu      sync.Mutex
	running bool
	stopped bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewBeacon creates a beacon for an already registered instance.
func NewBeacon(reg *Registry, instanceID string, interval time.Duration) *Beacon {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Beacon{
		reg:        reg,
		instanceID: instanceID,
		interval:   interval,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start begins the heartbeat loop in a background goroutine. Calling
// Start while running or after Stop is a no-op; a beacon is one-shot,
// like the instance it keeps alive.
func (b *Beacon) Start(ctx context.Context) {
	b.mu.Lock()
	if b.running || b.stopped {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	log.Info().
		Str("instance_id", b.instanceID).
		Dur("interval", b.interval).
		Msg("Heartbeat beacon started")

	go b.loop(ctx)
}

// Stop shuts the loop down and marks the instance stopped. Terminal:
// subsequent Stop and Start calls are no-ops.
func (b *Beacon) Stop(ctx context.Context) {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	b.stopped = true
	close(b.stopCh)
	b.mu.Unlock()

	<-b.done

	if err := b.reg.Stop(ctx, b.instanceID); err != nil {
		log.Warn().Err(err).Str("instance_id", b.instanceID).Msg("Beacon: failed to mark instance stopped")
	}
	log.Info().Str("instance_id", b.instanceID).Msg("Heartbeat beacon stopped")
}

// loop sends the first beat immediately, then one per tick.
func (b *Beacon) loop(ctx context.Context) {
	defer close(b.done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.beat(ctx)

	for {
		select {
		case <-ticker.C:
			b.beat(ctx)
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// beat refreshes the heartbeat, retrying briefly when the store is
// temporarily unreachable. Anything else is logged and dropped; the next
// tick tries again.
func (b *Beacon) beat(ctx context.Context) {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := b.reg.Heartbeat(ctx, b.instanceID)
		var unavail *store.ErrUnavailable
		if errors.As(err, &unavail) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		log.Warn().Err(err).Str("instance_id", b.instanceID).Msg("Heartbeat failed")
	}
}
