// Package store provides the catalog storage interface and implementations
// for the agentrig control plane. The memory store backs local development
// and tests; PostgreSQL backs production.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/agentrig/agentrig/control-plane/pkg/models"
)

// Store is the primary storage interface for the control plane.
// All resolver and handler code depends on this interface, making it easy
// to swap between in-memory (tests) and PostgreSQL (production)
// implementations.
type Store interface {
	AgentStore
	VersionStore
	ToolStore
	MiddlewareStore
	InstanceStore

	// Ping checks if the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}

// ── Agent Store ─────────────────────────────────────────────

type AgentStore interface {
	ListAgents(ctx context.Context) ([]models.Agent, error)
	GetAgent(ctx context.Context, id string) (*models.Agent, error)
	GetAgentByName(ctx context.Context, name string) (*models.Agent, error)
	CreateAgent(ctx context.Context, agent *models.Agent) error

	// DeleteAgent removes an agent and cascades to its versions, their
	// tool/middleware associations, and its stopped instance rows.
	// Refused with ErrIntegrity while the agent still has unstopped
	// instances.
	DeleteAgent(ctx context.Context, id string) error
}

// ── Version Store ───────────────────────────────────────────

type VersionStore interface {
	ListVersions(ctx context.Context, agentID string) ([]models.AgentVersion, error)
	GetVersion(ctx context.Context, id string) (*models.AgentVersion, error)

	// GetActiveVersion returns the single active version of an agent.
	// ErrNotFound when no version is active. If more than one active row
	// is observed the store's uniqueness guarantee has been violated and
	// ErrIntegrity is returned; the caller must never pick one silently.
	GetActiveVersion(ctx context.Context, agentID string) (*models.AgentVersion, error)

	CreateVersion(ctx context.Context, version *models.AgentVersion) error

	// ActivateVersion atomically deactivates the previously active version
	// (if any) and activates the target, with no observable window where
	// zero or two versions are active. A lost optimistic race surfaces as
	// ErrConflict and may be retried by the caller.
	ActivateVersion(ctx context.Context, versionID string) error
}

// ── Tool Store ──────────────────────────────────────────────

type ToolStore interface {
	ListMCPServers(ctx context.Context) ([]models.MCPServer, error)
	GetMCPServer(ctx context.Context, id string) (*models.MCPServer, error)
	CreateMCPServer(ctx context.Context, server *models.MCPServer) error
	UpdateMCPServer(ctx context.Context, server *models.MCPServer) error

	// AddVersionTool attaches a catalog tool to a version. Duplicate
	// (version, kind, id) references and agent-kind references back to the
	// version's own agent are refused with ErrIntegrity.
	AddVersionTool(ctx context.Context, tool *models.AgentVersionTool) error

	// GetVersionTools returns a version's tool associations in insertion
	// order.
	GetVersionTools(ctx context.Context, versionID string) ([]models.AgentVersionTool, error)

	// GetToolCatalogEntry reads one row of the derived tool catalog.
	GetToolCatalogEntry(ctx context.Context, kind models.ToolKind, id string) (*models.ToolCatalogEntry, error)

	// ListToolCatalog returns the whole derived catalog: every MCP server
	// plus every agent, with agent-kind enablement computed from activation
	// state at read time.
	ListToolCatalog(ctx context.Context) ([]models.ToolCatalogEntry, error)
}

// ── Middleware Store ────────────────────────────────────────

type MiddlewareStore interface {
	ListMiddlewareTypes(ctx context.Context) ([]models.MiddlewareType, error)
	GetMiddlewareType(ctx context.Context, typ string) (*models.MiddlewareType, error)
	CreateMiddlewareType(ctx context.Context, mt *models.MiddlewareType) error

	// AddVersionMiddleware attaches a middleware to a version. A duplicate
	// execution order within the version is refused with ErrIntegrity.
	AddVersionMiddleware(ctx context.Context, mw *models.AgentVersionMiddleware) error

	GetVersionMiddlewares(ctx context.Context, versionID string) ([]models.AgentVersionMiddleware, error)
}

// ── Instance Store ──────────────────────────────────────────

type InstanceStore interface {
	CreateInstance(ctx context.Context, inst *models.AgentInstance) error
	GetInstance(ctx context.Context, id string) (*models.AgentInstance, error)

	// UpsertHeartbeat refreshes an instance's heartbeat timestamp.
	UpsertHeartbeat(ctx context.Context, instanceID string, at time.Time) error

	// StopInstance sets the stop timestamp. Terminal; the row persists.
	StopInstance(ctx context.Context, instanceID string, at time.Time) error

	// ListLiveInstances returns instances of an agent with no stop
	// timestamp and a heartbeat within the threshold, newest heartbeat
	// first.
	ListLiveInstances(ctx context.Context, agentID string, threshold time.Duration) ([]models.AgentInstance, error)

	// ListStaleInstances returns unstopped instances across all agents
	// whose heartbeat is older than the cutoff. Used by the reaper.
	ListStaleInstances(ctx context.Context, olderThan time.Time) ([]models.AgentInstance, error)
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}

// ErrIntegrity is returned when stored data violates an invariant:
// two active versions, a duplicate execution order, a duplicate tool
// reference, or a tool cycle. Fatal for the operation that observed it,
// never resolved by silently picking a survivor.
type ErrIntegrity struct {
	Detail string
}

func (e *ErrIntegrity) Error() string {
	return "integrity violation: " + e.Detail
}

// ErrConflict is returned when a write conflicts with existing state:
// an optimistic activation that lost its race (retryable), or a create
// that collides with an existing unique key.
type ErrConflict struct {
	Op  string
	Key string
}

func (e *ErrConflict) Error() string {
	if e.Key != "" {
		return e.Op + ": conflict on " + e.Key
	}
	return e.Op + ": conflicting concurrent write"
}

// ErrUnavailable wraps an infrastructure failure talking to the backing
// store. Distinct from ErrNotFound: absence is a domain answer, this is
// not an answer at all.
type ErrUnavailable struct {
	Op  string
	Err error
}

func (e *ErrUnavailable) Error() string {
	return "store unavailable during " + e.Op + ": " + e.Err.Error()
}

func (e *ErrUnavailable) Unwrap() error { return e.Err }

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}
