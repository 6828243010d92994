// Package handlers implements the HTTP handlers for the AgentRig control
// plane. Handlers are thin: validation and status mapping live here, all
// semantics live in the store, resolver, catalog, and registry.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/agentrig/agentrig/control-plane/internal/catalog"
	"github.com/agentrig/agentrig/control-plane/internal/registry"
	"github.com/agentrig/agentrig/control-plane/internal/resolver"
	"github.com/agentrig/agentrig/control-plane/internal/store"
	"github.com/agentrig/agentrig/control-plane/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Store    store.Store
	Resolver *resolver.Resolver
	Catalog  *catalog.Cache
	Registry *registry.Registry

	// LiveWindow is the default liveness threshold for instance listings
	// when the request does not carry one. Matches the resolver's window
	// so the HTTP view of "live" agrees with resolution.
	LiveWindow time.Duration
}

// New creates a new Handlers instance with all dependencies. A zero
// liveWindow falls back to 20m, the resolver's own default.
func New(s store.Store, res *resolver.Resolver, cache *catalog.Cache, reg *registry.Registry, liveWindow time.Duration) *Handlers {
	if liveWindow <= 0 {
		liveWindow = 20 * time.Minute
	}
	return &Handlers{
		Store:      s,
		Resolver:   res,
		Catalog:    cache,
		Registry:   reg,
		LiveWindow: liveWindow,
	}
}

// ══════════════════════════════════════════════════════════════
// ── Agent Handlers ───────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.Store.ListAgents(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if agents == nil {
		agents = []models.Agent{}
	}
	respondJSON(w, http.StatusOK, agents)
}

func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req models.Agent
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.Store.CreateAgent(r.Context(), &req); err != nil {
		respondStoreError(w, err)
		return
	}

	log.Info().Str("agent", req.Name).Str("id", req.ID).Msg("Agent created")
	respondJSON(w, http.StatusCreated, req)
}

func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	agentName := chi.URLParam(r, "agentName")

	agent, err := h.Store.GetAgentByName(r.Context(), agentName)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

func (h *Handlers) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	agentName := chi.URLParam(r, "agentName")

	agent, err := h.Store.GetAgentByName(r.Context(), agentName)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if err := h.Store.DeleteAgent(r.Context(), agent.ID); err != nil {
		respondStoreError(w, err)
		return
	}

	// The deleted agent may appear as an agent-kind tool inside other
	// agents' cached configurations.
	if h.Catalog != nil {
		h.Catalog.InvalidateAll()
	}

	log.Info().Str("agent", agentName).Msg("Agent deleted")
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted", "agent": agentName})
}

// ══════════════════════════════════════════════════════════════
// ── Version Handlers ─────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

type createVersionRequest struct {
	Version          int     `json:"version"`
	ModelName        string  `json:"model_name"`
	ModelTemperature float64 `json:"model_temperature"`
	Prompt           string  `json:"prompt"`
	SchemaVersion    int     `json:"schema_version"`
}

func (h *Handlers) ListVersions(w http.ResponseWriter, r *http.Request) {
	agentName := chi.URLParam(r, "agentName")

	agent, err := h.Store.GetAgentByName(r.Context(), agentName)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	versions, err := h.Store.ListVersions(r.Context(), agent.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if versions == nil {
		versions = []models.AgentVersion{}
	}
	respondJSON(w, http.StatusOK, versions)
}

// CreateVersion adds a configuration snapshot to an agent. Versions are
// born inactive; a separate activation call flips the pointer.
func (h *Handlers) CreateVersion(w http.ResponseWriter, r *http.Request) {
	agentName := chi.URLParam(r, "agentName")

	agent, err := h.Store.GetAgentByName(r.Context(), agentName)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	var req createVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ModelName == "" {
		respondError(w, http.StatusBadRequest, "model_name is required")
		return
	}

	version := models.AgentVersion{
		AgentID:          agent.ID,
		Version:          req.Version,
		ModelName:        req.ModelName,
		ModelTemperature: req.ModelTemperature,
		Prompt:           req.Prompt,
		SchemaVersion:    req.SchemaVersion,
	}
	if err := h.Store.CreateVersion(r.Context(), &version); err != nil {
		respondStoreError(w, err)
		return
	}

	log.Info().
		Str("agent", agentName).
		Str("version_id", version.ID).
		Int("version", version.Version).
		Msg("Version created")
	respondJSON(w, http.StatusCreated, version)
}

func (h *Handlers) GetVersion(w http.ResponseWriter, r *http.Request) {
	versionID := chi.URLParam(r, "versionID")

	version, err := h.Store.GetVersion(r.Context(), versionID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, version)
}

// ActivateVersion atomically promotes one version to active and drops
// every cached configuration: activation can flip agent-kind tool
// enablement inside any other agent's configuration.
func (h *Handlers) ActivateVersion(w http.ResponseWriter, r *http.Request) {
	versionID := chi.URLParam(r, "versionID")

	if err := h.Resolver.Activate(r.Context(), versionID); err != nil {
		respondStoreError(w, err)
		return
	}
	if h.Catalog != nil {
		h.Catalog.InvalidateAll()
	}

	version, err := h.Store.GetVersion(r.Context(), versionID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	log.Info().
		Str("version_id", versionID).
		Str("agent_id", version.AgentID).
		Int("version", version.Version).
		Msg("Version activated")
	respondJSON(w, http.StatusOK, version)
}

// ══════════════════════════════════════════════════════════════
// ── Version Tool / Middleware Handlers ───────────────────────
// ══════════════════════════════════════════════════════════════

type attachToolRequest struct {
	ToolKind models.ToolKind      `json:"tool_kind"`
	ToolID   string               `json:"tool_id"`
	Enabled  *bool                `json:"enabled"`
	Priority *int                 `json:"priority"`
	Override *models.ToolOverride `json:"override"`
}

func (h *Handlers) AttachVersionTool(w http.ResponseWriter, r *http.Request) {
	versionID := chi.URLParam(r, "versionID")

	var req attachToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.ToolKind.Valid() {
		respondError(w, http.StatusBadRequest, "tool_kind must be mcp_server or agent")
		return
	}
	if req.ToolID == "" {
		respondError(w, http.StatusBadRequest, "tool_id is required")
		return
	}
	if req.Override != nil && req.Override.Transport != nil && !req.Override.Transport.Valid() {
		respondError(w, http.StatusBadRequest, "override.transport must be stdio, http, or sse")
		return
	}

	tool := models.AgentVersionTool{
		AgentVersionID: versionID,
		ToolKind:       req.ToolKind,
		ToolID:         req.ToolID,
		Enabled:        true,
		Priority:       req.Priority,
		Override:       req.Override,
	}
	if req.Enabled != nil {
		tool.Enabled = *req.Enabled
	}

	if err := h.Store.AddVersionTool(r.Context(), &tool); err != nil {
		respondStoreError(w, err)
		return
	}

	log.Info().
		Str("version_id", versionID).
		Str("tool_kind", string(tool.ToolKind)).
		Str("tool_id", tool.ToolID).
		Msg("Tool attached")
	respondJSON(w, http.StatusCreated, tool)
}

func (h *Handlers) ListVersionTools(w http.ResponseWriter, r *http.Request) {
	versionID := chi.URLParam(r, "versionID")

	if _, err := h.Store.GetVersion(r.Context(), versionID); err != nil {
		respondStoreError(w, err)
		return
	}
	tools, err := h.Store.GetVersionTools(r.Context(), versionID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if tools == nil {
		tools = []models.AgentVersionTool{}
	}
	respondJSON(w, http.StatusOK, tools)
}

type attachMiddlewareRequest struct {
	MiddlewareType string          `json:"middleware_type"`
	Config         json.RawMessage `json:"config"`
	Enabled        *bool           `json:"enabled"`
	ExecutionOrder *int            `json:"execution_order"`
}

func (h *Handlers) AttachVersionMiddleware(w http.ResponseWriter, r *http.Request) {
	versionID := chi.URLParam(r, "versionID")

	var req attachMiddlewareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.MiddlewareType == "" {
		respondError(w, http.StatusBadRequest, "middleware_type is required")
		return
	}
	if req.ExecutionOrder == nil {
		respondError(w, http.StatusBadRequest, "execution_order is required")
		return
	}

	mw := models.AgentVersionMiddleware{
		AgentVersionID: versionID,
		MiddlewareType: req.MiddlewareType,
		Config:         req.Config,
		Enabled:        true,
		ExecutionOrder: *req.ExecutionOrder,
	}
	if req.Enabled != nil {
		mw.Enabled = *req.Enabled
	}

	if err := h.Store.AddVersionMiddleware(r.Context(), &mw); err != nil {
		respondStoreError(w, err)
		return
	}

	log.Info().
		Str("version_id", versionID).
		Str("middleware_type", mw.MiddlewareType).
		Int("execution_order", mw.ExecutionOrder).
		Msg("Middleware attached")
	respondJSON(w, http.StatusCreated, mw)
}

func (h *Handlers) ListVersionMiddlewares(w http.ResponseWriter, r *http.Request) {
	versionID := chi.URLParam(r, "versionID")

	if _, err := h.Store.GetVersion(r.Context(), versionID); err != nil {
		respondStoreError(w, err)
		return
	}
	middlewares, err := h.Store.GetVersionMiddlewares(r.Context(), versionID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if middlewares == nil {
		middlewares = []models.AgentVersionMiddleware{}
	}
	respondJSON(w, http.StatusOK, middlewares)
}

// ══════════════════════════════════════════════════════════════
// ── Configuration Resolution ─────────────────────────────────
// ══════════════════════════════════════════════════════════════

// GetAgentConfig returns the fully-resolved runtime configuration for an
// agent. Served from the cache unless ?fresh=1 forces a store walk.
func (h *Handlers) GetAgentConfig(w http.ResponseWriter, r *http.Request) {
	agentName := chi.URLParam(r, "agentName")

	var (
		cfg *models.RuntimeConfiguration
		err error
	)
	fresh := r.URL.Query().Get("fresh")
	switch {
	case h.Catalog == nil:
		cfg, err = h.Resolver.Resolve(r.Context(), agentName)
	case fresh == "1" || fresh == "true":
		cfg, err = h.Catalog.ResolveFresh(r.Context(), agentName)
	default:
		cfg, err = h.Catalog.Resolve(r.Context(), agentName)
	}
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// ══════════════════════════════════════════════════════════════
// ── MCP Server Handlers ──────────────────────────────────────
// ══════════════════════════════════════════════════════════════

type createMCPServerRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Transport   models.Transport  `json:"transport"`
	Command     string            `json:"command"`
	Args        []string          `json:"args"`
	Env         map[string]string `json:"env"`
	Enabled     *bool             `json:"enabled"`
}

func (h *Handlers) CreateMCPServer(w http.ResponseWriter, r *http.Request) {
	var req createMCPServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Transport == "" {
		req.Transport = models.TransportStdio
	}
	if !req.Transport.Valid() {
		respondError(w, http.StatusBadRequest, "transport must be stdio, http, or sse")
		return
	}
	if req.Transport == models.TransportStdio && req.Command == "" {
		respondError(w, http.StatusBadRequest, "command is required for stdio transport")
		return
	}

	server := models.MCPServer{
		Name:        req.Name,
		Description: req.Description,
		Transport:   req.Transport,
		Command:     req.Command,
		Args:        req.Args,
		Env:         req.Env,
		Enabled:     true,
	}
	if req.Enabled != nil {
		server.Enabled = *req.Enabled
	}

	if err := h.Store.CreateMCPServer(r.Context(), &server); err != nil {
		respondStoreError(w, err)
		return
	}

	log.Info().Str("server", server.Name).Str("id", server.ID).Msg("MCP server created")
	respondJSON(w, http.StatusCreated, server)
}

func (h *Handlers) ListMCPServers(w http.ResponseWriter, r *http.Request) {
	servers, err := h.Store.ListMCPServers(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if servers == nil {
		servers = []models.MCPServer{}
	}
	respondJSON(w, http.StatusOK, servers)
}

func (h *Handlers) GetMCPServer(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")

	server, err := h.Store.GetMCPServer(r.Context(), serverID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, server)
}

type updateMCPServerRequest struct {
	Name        *string           `json:"name"`
	Description *string           `json:"description"`
	Transport   *models.Transport `json:"transport"`
	Command     *string           `json:"command"`
	Args        []string          `json:"args"`
	Env         map[string]string `json:"env"`
	Enabled     *bool             `json:"enabled"`
}

// UpdateMCPServer patches a server definition. Absent fields keep their
// value; Args and Env are replaced wholesale when present.
func (h *Handlers) UpdateMCPServer(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")

	server, err := h.Store.GetMCPServer(r.Context(), serverID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	var req updateMCPServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Transport != nil && !req.Transport.Valid() {
		respondError(w, http.StatusBadRequest, "transport must be stdio, http, or sse")
		return
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		server.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		server.Description = *req.Description
	}
	if req.Transport != nil {
		server.Transport = *req.Transport
	}
	if req.Command != nil {
		server.Command = *req.Command
	}
	if req.Args != nil {
		server.Args = req.Args
	}
	if req.Env != nil {
		server.Env = req.Env
	}
	if req.Enabled != nil {
		server.Enabled = *req.Enabled
	}

	if err := h.Store.UpdateMCPServer(r.Context(), server); err != nil {
		respondStoreError(w, err)
		return
	}

	// Cached configurations may embed the old definition.
	if h.Catalog != nil {
		h.Catalog.InvalidateAll()
	}

	log.Info().Str("server", server.Name).Str("id", server.ID).Msg("MCP server updated")
	respondJSON(w, http.StatusOK, server)
}

// ══════════════════════════════════════════════════════════════
// ── Middleware Type Handlers ─────────────────────────────────
// ══════════════════════════════════════════════════════════════

type createMiddlewareTypeRequest struct {
	Type          string          `json:"type"`
	Description   string          `json:"description"`
	ConfigSchema  json.RawMessage `json:"config_schema"`
	SchemaVersion int             `json:"schema_version"`
	Enabled       *bool           `json:"enabled"`
}

func (h *Handlers) CreateMiddlewareType(w http.ResponseWriter, r *http.Request) {
	var req createMiddlewareTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Type = strings.TrimSpace(req.Type)
	if req.Type == "" {
		respondError(w, http.StatusBadRequest, "type is required")
		return
	}

	mt := models.MiddlewareType{
		Type:          req.Type,
		Description:   req.Description,
		ConfigSchema:  req.ConfigSchema,
		SchemaVersion: req.SchemaVersion,
		Enabled:       true,
	}
	if req.Enabled != nil {
		mt.Enabled = *req.Enabled
	}

	if err := h.Store.CreateMiddlewareType(r.Context(), &mt); err != nil {
		respondStoreError(w, err)
		return
	}

	log.Info().Str("type", mt.Type).Msg("Middleware type registered")
	respondJSON(w, http.StatusCreated, mt)
}

func (h *Handlers) ListMiddlewareTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ListMiddlewareTypes(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if types == nil {
		types = []models.MiddlewareType{}
	}
	respondJSON(w, http.StatusOK, types)
}

// ══════════════════════════════════════════════════════════════
// ── Tool Catalog Handlers ────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// ListToolCatalog returns the derived catalog: every MCP server plus
// every agent, with agent-kind enablement computed from activation state
// at read time.
func (h *Handlers) ListToolCatalog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.ListToolCatalog(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if entries == nil {
		entries = []models.ToolCatalogEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// ══════════════════════════════════════════════════════════════
// ── Instance Handlers ────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

type registerInstanceRequest struct {
	AgentName      string           `json:"agent_name"`
	AgentID        string           `json:"agent_id"`
	AgentVersionID string           `json:"agent_version_id"`
	EndpointURL    string           `json:"endpoint_url"`
	Transport      models.Transport `json:"transport"`
}

// RegisterInstance records a running agent process. Self-registration
// passes agent_name and gets the active version pinned; explicit
// registration passes agent_id plus agent_version_id.
func (h *Handlers) RegisterInstance(w http.ResponseWriter, r *http.Request) {
	var req registerInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		inst *models.AgentInstance
		err  error
	)
	switch {
	case req.AgentName != "":
		inst, err = h.Registry.RegisterByName(r.Context(), req.AgentName, req.EndpointURL, req.Transport)
	case req.AgentID != "" && req.AgentVersionID != "":
		inst, err = h.Registry.Register(r.Context(), req.AgentID, req.AgentVersionID, req.EndpointURL, req.Transport)
	default:
		respondError(w, http.StatusBadRequest, "agent_name or agent_id+agent_version_id is required")
		return
	}
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, inst)
}

func (h *Handlers) InstanceHeartbeat(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instanceID")

	if err := h.Registry.Heartbeat(r.Context(), instanceID); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) StopInstance(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instanceID")

	if err := h.Registry.Stop(r.Context(), instanceID); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "stopped", "instance_id": instanceID})
}

func (h *Handlers) GetInstance(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instanceID")

	inst, err := h.Store.GetInstance(r.Context(), instanceID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, inst)
}

// ListAgentInstances returns an agent's live instances. The liveness
// threshold defaults to the configured live window and accepts any Go
// duration via ?threshold=.
func (h *Handlers) ListAgentInstances(w http.ResponseWriter, r *http.Request) {
	agentName := chi.URLParam(r, "agentName")

	agent, err := h.Store.GetAgentByName(r.Context(), agentName)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	threshold := h.LiveWindow
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			respondError(w, http.StatusBadRequest, "threshold must be a positive duration, e.g. 30s")
			return
		}
		threshold = d
	}

	instances, err := h.Registry.FindLive(r.Context(), agent.ID, threshold)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if instances == nil {
		instances = []models.AgentInstance{}
	}
	respondJSON(w, http.StatusOK, instances)
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondStoreError maps domain errors onto HTTP statuses. Absence is
// 404, losing a race or resolving an agent with nothing active is 409,
// violated invariants are 500 with the violation spelled out, and an
// unreachable store is 503.
func respondStoreError(w http.ResponseWriter, err error) {
	var (
		notFound    *store.ErrNotFound
		integrity   *store.ErrIntegrity
		conflict    *store.ErrConflict
		unavailable *store.ErrUnavailable
		noActive    *resolver.ErrNoActiveVersion
		actConflict *resolver.ErrActivationConflict
		unknownMW   *resolver.ErrUnknownMiddlewareType
	)
	switch {
	case errors.As(err, &notFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &noActive):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &actConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &conflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &integrity):
		respondError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &unknownMW):
		respondError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &unavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
