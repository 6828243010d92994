package models

import (
	"encoding/json"
	"time"
)

// ── Transports & Tool Kinds ──────────────────────────────────

// Transport identifies how a tool server is spoken to.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
	TransportSSE   Transport = "sse"
)

// Valid reports whether t is one of the known transports.
func (t Transport) Valid() bool {
	switch t {
	case TransportStdio, TransportHTTP, TransportSSE:
		return true
	}
	return false
}

// ToolKind discriminates the two tool variants in the catalog.
type ToolKind string

const (
	// ToolKindMCPServer is an external protocol-server tool with its own
	// transport, command, args, and env.
	ToolKindMCPServer ToolKind = "mcp_server"
	// ToolKindAgent is a nested agent exposed as a tool. It carries no
	// launch configuration of its own; the resolver synthesizes one.
	ToolKindAgent ToolKind = "agent"
)

// Valid reports whether k is one of the known tool kinds.
func (k ToolKind) Valid() bool {
	return k == ToolKindMCPServer || k == ToolKindAgent
}

// ── Agent ────────────────────────────────────────────────────

type Agent struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// AgentVersion is an immutable configuration snapshot of an agent.
// At most one version per agent is active at any time; activation flips
// metadata and never edits content.
type AgentVersion struct {
	ID               string    `json:"id" db:"id"`
	AgentID          string    `json:"agent_id" db:"agent_id"`
	Version          int       `json:"version" db:"version"`
	ModelName        string    `json:"model_name" db:"model_name"`
	ModelTemperature float64   `json:"model_temperature" db:"model_temperature"`
	Prompt           string    `json:"prompt" db:"prompt"`
	SchemaVersion    int       `json:"schema_version" db:"schema_version"`
	IsActive         bool      `json:"is_active" db:"is_active"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// ── MCP Server ───────────────────────────────────────────────

// MCPServer is a protocol-server tool definition.
type MCPServer struct {
	ID          string            `json:"id" db:"id"`
	Name        string            `json:"name" db:"name"`
	Description string            `json:"description" db:"description"`
	Transport   Transport         `json:"transport" db:"transport"`
	Command     string            `json:"command" db:"command"`
	Args        []string          `json:"args" db:"args"`
	Env         map[string]string `json:"env" db:"env"`
	Enabled     bool              `json:"enabled" db:"enabled"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// ── Version Tool Association ─────────────────────────────────

// ToolOverride is a sparse field-level patch applied on top of a tool's
// base definition. A nil field means "keep the base value". Args and Env
// are replaced wholesale when present, never merged element-wise.
type ToolOverride struct {
	Transport *Transport        `json:"transport,omitempty"`
	Command   *string           `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

// AgentVersionTool attaches one catalog tool to one agent version.
// (AgentVersionID, ToolKind, ToolID) is unique: a version cannot
// reference the same tool twice.
type AgentVersionTool struct {
	ID             string        `json:"id" db:"id"`
	AgentVersionID string        `json:"agent_version_id" db:"agent_version_id"`
	ToolKind       ToolKind      `json:"tool_kind" db:"tool_kind"`
	ToolID         string        `json:"tool_id" db:"tool_id"`
	Enabled        bool          `json:"enabled" db:"enabled"`
	Priority       *int          `json:"priority,omitempty" db:"priority"`
	Override       *ToolOverride `json:"override,omitempty" db:"override"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// ── Middleware ───────────────────────────────────────────────

// MiddlewareType is a globally registered middleware schema, independent
// of any agent.
type MiddlewareType struct {
	Type          string          `json:"type" db:"type"`
	Description   string          `json:"description" db:"description"`
	ConfigSchema  json.RawMessage `json:"config_schema,omitempty" db:"config_schema"`
	SchemaVersion int             `json:"schema_version" db:"schema_version"`
	Enabled       bool            `json:"enabled" db:"enabled"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// AgentVersionMiddleware attaches one middleware to one agent version.
// ExecutionOrder is unique within a version; ties are impossible by
// construction, not by tie-break.
type AgentVersionMiddleware struct {
	ID             string          `json:"id" db:"id"`
	AgentVersionID string          `json:"agent_version_id" db:"agent_version_id"`
	MiddlewareType string          `json:"middleware_type" db:"middleware_type"`
	Config         json.RawMessage `json:"config,omitempty" db:"config"`
	Enabled        bool            `json:"enabled" db:"enabled"`
	ExecutionOrder int             `json:"execution_order" db:"execution_order"`
}

// ── Agent Instance ───────────────────────────────────────────

// AgentInstance is a live deployment record. Rows are never hard-deleted;
// a stopped instance keeps its row for audit, and liveness is always
// derived from heartbeat recency, never stored as a boolean.
type AgentInstance struct {
	ID             string     `json:"id" db:"id"`
	AgentID        string     `json:"agent_id" db:"agent_id"`
	AgentVersionID string     `json:"agent_version_id" db:"agent_version_id"`
	EndpointURL    string     `json:"endpoint_url" db:"endpoint_url"`
	Transport      Transport  `json:"transport" db:"transport"`
	LastHeartbeat  time.Time  `json:"last_heartbeat" db:"last_heartbeat"`
	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	StoppedAt      *time.Time `json:"stopped_at,omitempty" db:"stopped_at"`
}

// LiveAt reports whether the instance counts as live at the given moment:
// no stop timestamp and a heartbeat within the threshold.
func (i *AgentInstance) LiveAt(now time.Time, threshold time.Duration) bool {
	if i.StoppedAt != nil {
		return false
	}
	return now.Sub(i.LastHeartbeat) <= threshold
}

// ── Tool Catalog ─────────────────────────────────────────────

// ToolCatalogEntry is one row of the derived tool catalog: mcp_servers
// unioned with agents. Rows are computed, never stored, so agent-kind
// enablement always reflects live activation state. For agent-kind rows
// Transport/Command/Args/Env are nil and Enabled is true iff the
// referenced agent has an active version.
type ToolCatalogEntry struct {
	Kind        ToolKind          `json:"tool_kind" db:"tool_kind"`
	ID          string            `json:"tool_id" db:"tool_id"`
	Name        string            `json:"tool_name" db:"tool_name"`
	Description string            `json:"description" db:"description"`
	Transport   *Transport        `json:"transport,omitempty" db:"transport"`
	Command     *string           `json:"command,omitempty" db:"command"`
	Args        []string          `json:"args,omitempty" db:"args"`
	Env         map[string]string `json:"env,omitempty" db:"env"`
	Enabled     bool              `json:"enabled" db:"enabled"`
}

// ── Resolved Configuration ───────────────────────────────────

// ResolvedTool is the launchable shape both tool kinds resolve to.
// Stdio tools carry Command/Args/Env; http and sse tools carry Endpoint.
type ResolvedTool struct {
	Kind        ToolKind          `json:"kind"`
	ToolID      string            `json:"tool_id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Transport   Transport         `json:"transport"`
	Command     string            `json:"command,omitempty"`
	Args        []string          `json:"args,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`
	Priority    *int              `json:"priority,omitempty"`
}

// ResolvedMiddleware is one enabled middleware with its config, at
// pipeline position ExecutionOrder.
type ResolvedMiddleware struct {
	Type           string          `json:"type"`
	Config         json.RawMessage `json:"config,omitempty"`
	ExecutionOrder int             `json:"execution_order"`
}

// Warning codes attached to a RuntimeConfiguration.
const (
	WarnToolMissing  = "tool_missing"
	WarnToolDisabled = "tool_disabled"
)

// ResolutionWarning records a tool that was dropped from the active set
// without failing the whole resolution.
type ResolutionWarning struct {
	Code     string   `json:"code"`
	ToolKind ToolKind `json:"tool_kind,omitempty"`
	ToolID   string   `json:"tool_id,omitempty"`
	Message  string   `json:"message"`
}

// RuntimeConfiguration is the fully-resolved configuration of one agent:
// the sole artifact handed to an execution engine. Treat it as immutable
// once returned.
type RuntimeConfiguration struct {
	AgentID          string               `json:"agent_id"`
	AgentName        string               `json:"agent_name"`
	AgentVersionID   string               `json:"agent_version_id"`
	Version          int                  `json:"version"`
	ModelName        string               `json:"model_name"`
	ModelTemperature float64              `json:"model_temperature"`
	Prompt           string               `json:"prompt"`
	SchemaVersion    int                  `json:"schema_version"`
	Tools            []ResolvedTool       `json:"tools"`
	Middlewares      []ResolvedMiddleware `json:"middlewares"`
	Warnings         []ResolutionWarning  `json:"warnings,omitempty"`
	ResolvedAt       time.Time            `json:"resolved_at"`
}

// Clone returns a deep copy. Cached configurations are cloned on read so
// no caller can mutate the shared entry.
func (rc *RuntimeConfiguration) Clone() RuntimeConfiguration {
	out := *rc
	if rc.Tools != nil {
		out.Tools = make([]ResolvedTool, len(rc.Tools))
		for i, t := range rc.Tools {
			out.Tools[i] = t.clone()
		}
	}
	if rc.Middlewares != nil {
		out.Middlewares = make([]ResolvedMiddleware, len(rc.Middlewares))
		for i, m := range rc.Middlewares {
			out.Middlewares[i] = m
			if m.Config != nil {
				out.Middlewares[i].Config = append(json.RawMessage(nil), m.Config...)
			}
		}
	}
	if rc.Warnings != nil {
		out.Warnings = append([]ResolutionWarning(nil), rc.Warnings...)
	}
	return out
}

func (t ResolvedTool) clone() ResolvedTool {
	out := t
	if t.Args != nil {
		out.Args = append([]string(nil), t.Args...)
	}
	if t.Env != nil {
		out.Env = make(map[string]string, len(t.Env))
		for k, v := range t.Env {
			out.Env[k] = v
		}
	}
	if t.Priority != nil {
		p := *t.Priority
		out.Priority = &p
	}
	return out
}
