// Package contracts defines the service interfaces for the AgentRig
// control plane.
//
// These interfaces form the boundary between the control plane and the
// processes it configures. The control plane ships concrete
// implementations (Resolver, Registry, the stores); agent runtimes and
// alternative frontends program against the interfaces, so swapping an
// implementation is a single line change in the wiring code (main.go).
package contracts

import (
	"context"
	"time"

	"github.com/agentrig/agentrig/control-plane/internal/store"
	"github.com/agentrig/agentrig/control-plane/pkg/models"
)

// Store is a type alias for the internal Store interface.
// Exposed in pkg/ so external tooling can reference it without
// importing internal/ directly.
type Store = store.Store

// ErrNotFound is a type alias for the internal ErrNotFound error.
type ErrNotFound = store.ErrNotFound

// ── Config Resolver Service ─────────────────────────────────

// ConfigResolver assembles the complete runtime configuration for an
// agent from its active version.
// Implementation: internal/resolver.Resolver; internal/catalog.Cache
// wraps one to serve repeated resolutions from memory.
type ConfigResolver interface {
	// Resolve builds the runtime configuration for the named agent.
	Resolve(ctx context.Context, agentName string) (*models.RuntimeConfiguration, error)
}

// ── Instance Registry Service ───────────────────────────────

// InstanceRegistry tracks running agent processes for discovery.
// Implementation: internal/registry.Registry.
type InstanceRegistry interface {
	// Register records a running instance of an agent version.
	Register(ctx context.Context, agentID, versionID, endpoint string, transport models.Transport) (*models.AgentInstance, error)

	// Heartbeat refreshes an instance's liveness timestamp.
	Heartbeat(ctx context.Context, instanceID string) error

	// Stop marks an instance stopped. Terminal.
	Stop(ctx context.Context, instanceID string) error

	// FindLive returns an agent's unstopped instances with a heartbeat
	// within the threshold, newest first.
	FindLive(ctx context.Context, agentID string, threshold time.Duration) ([]models.AgentInstance, error)
}

// ── Process Launcher ────────────────────────────────────────

// ProcessLauncher starts a resolved tool as a local process or client
// connection. The control plane only synthesizes the launch shape;
// executing it is the runtime's concern.
type ProcessLauncher interface {
	// Launch starts the tool and speaks its declared transport.
	Launch(ctx context.Context, tool models.ResolvedTool) error
}
