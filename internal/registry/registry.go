// Package registry tracks running agent instances for the control plane.
// Registration creates a live record, heartbeats keep it fresh, and a
// stop is terminal. The registry never deletes rows; liveness is derived
// from heartbeat recency at read time, so a crashed process simply ages
// out of the live set.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/agentrig/agentrig/control-plane/internal/store"
	"github.com/agentrig/agentrig/control-plane/pkg/models"
	"github.com/rs/zerolog/log"
)

// Options configures how self-registered instances advertise themselves.
type Options struct {
	// Hostname and Port build the advertised endpoint URL when a caller
	// registers without one.
	Hostname string
	Port     int
}

// Registry is the instance bookkeeping layer on top of the store.
type Registry struct {
	store store.Store
	opts  Options
}

// New creates a Registry. Zero option fields fall back to localhost:8000.
func New(s store.Store, opts Options) *Registry {
	if opts.Hostname == "" {
		opts.Hostname = "localhost"
	}
	if opts.Port <= 0 {
		opts.Port = 8000
	}
	return &Registry{store: s, opts: opts}
}

// Register records a running instance of the given agent version. The
// record is born live with its first heartbeat set to now. An empty
// endpoint is filled from the configured hostname and port; an empty
// transport defaults to http.
func (r *Registry) Register(ctx context.Context, agentID, versionID, endpoint string, transport models.Transport) (*models.AgentInstance, error) {
	if transport == "" {
		transport = models.TransportHTTP
	}
	if !transport.Valid() {
		return nil, fmt.Errorf("invalid transport %q", transport)
	}
	if endpoint == "" {
		endpoint = r.DefaultEndpoint()
	}

	inst := &models.AgentInstance{
		AgentID:        agentID,
		AgentVersionID: versionID,
		EndpointURL:    endpoint,
		Transport:      transport,
	}
	if err := r.store.CreateInstance(ctx, inst); err != nil {
		return nil, err
	}

	log.Info().
		Str("instance_id", inst.ID).
		Str("agent_id", agentID).
		Str("endpoint", endpoint).
		Msg("Instance registered")
	return inst, nil
}

// RegisterByName is the self-registration path an agent process takes at
// boot: resolve the agent by name, pin the instance to the currently
// active version, and register it.
func (r *Registry) RegisterByName(ctx context.Context, agentName, endpoint string, transport models.Transport) (*models.AgentInstance, error) {
	agent, err := r.store.GetAgentByName(ctx, agentName)
	if err != nil {
		return nil, err
	}
	active, err := r.store.GetActiveVersion(ctx, agent.ID)
	if err != nil {
		return nil, err
	}
	return r.Register(ctx, agent.ID, active.ID, endpoint, transport)
}

// Heartbeat refreshes an instance's liveness timestamp.
func (r *Registry) Heartbeat(ctx context.Context, instanceID string) error {
	return r.store.UpsertHeartbeat(ctx, instanceID, time.Now().UTC())
}

// Stop marks an instance stopped. Terminal: the row persists for audit
// and never returns to the live set.
func (r *Registry) Stop(ctx context.Context, instanceID string) error {
	if err := r.store.StopInstance(ctx, instanceID, time.Now().UTC()); err != nil {
		return err
	}
	log.Info().Str("instance_id", instanceID).Msg("Instance stopped")
	return nil
}

// FindLive returns the agent's instances with no stop timestamp and a
// heartbeat within the threshold, newest heartbeat first. Satisfies the
// resolver's LiveFinder.
func (r *Registry) FindLive(ctx context.Context, agentID string, threshold time.Duration) ([]models.AgentInstance, error) {
	return r.store.ListLiveInstances(ctx, agentID, threshold)
}

// DefaultEndpoint is the URL self-registered instances advertise when
// they do not supply one.
func (r *Registry) DefaultEndpoint() string {
	return fmt.Sprintf("http://%s:%d", r.opts.Hostname, r.opts.Port)
}
