package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/agentrig/agentrig/control-plane/internal/api"
	"github.com/agentrig/agentrig/control-plane/internal/api/handlers"
	"github.com/agentrig/agentrig/control-plane/internal/catalog"
	"github.com/agentrig/agentrig/control-plane/internal/config"
	"github.com/agentrig/agentrig/control-plane/internal/registry"
	"github.com/agentrig/agentrig/control-plane/internal/resolver"
	"github.com/agentrig/agentrig/control-plane/internal/store"
	"github.com/agentrig/agentrig/control-plane/pkg/models"
)

// newTestServer wires a fully assembled router over a fresh memory store
// and returns both, so tests can drive the HTTP surface and inspect or
// seed the store directly.
func newTestServer(t *testing.T) (http.Handler, store.Store) {
	t.Helper()
	return newTestServerWindow(t, 0)
}

// newTestServerWindow is newTestServer with an explicit default liveness
// window for instance listings.
func newTestServerWindow(t *testing.T, liveWindow time.Duration) (http.Handler, store.Store) {
	t.Helper()
	os.Unsetenv("AGENTRIG_API_KEYS")

	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })

	reg := registry.New(s, registry.Options{Hostname: "cp-test", Port: 9000})
	res := resolver.NewResolver(s, reg, resolver.Options{
		RunnerCommand:     "agentrig-agent",
		SourceType:        "postgres",
		StoreDSN:          "postgres://test",
		ActivationBackoff: time.Millisecond,
	})
	cache := catalog.NewCache(res, time.Minute)
	h := handlers.New(s, res, cache, reg, liveWindow)

	cfg := &config.Config{Version: "test"}
	return api.NewRouter(cfg, h), s
}

// doJSON performs a request with an optional JSON body.
func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// decode unmarshals a recorded JSON response into out.
func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

// ─── Health & Version ────────────────────────────────────────

func TestHealthzAndVersion(t *testing.T) {
	handler, _ := newTestServer(t)

	w := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /healthz status = %d, want 200", w.Code)
	}
	var health map[string]string
	decode(t, w, &health)
	if health["status"] != "ok" {
		t.Errorf("healthz status = %q, want %q", health["status"], "ok")
	}

	w = doJSON(t, handler, http.MethodGet, "/version", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /version status = %d, want 200", w.Code)
	}
	var version map[string]string
	decode(t, w, &version)
	if version["version"] != "test" {
		t.Errorf("version = %q, want %q", version["version"], "test")
	}
}

// ─── Agents ──────────────────────────────────────────────────

func TestAgentLifecycle(t *testing.T) {
	handler, _ := newTestServer(t)

	w := doJSON(t, handler, http.MethodPost, "/api/v1/agents", map[string]string{
		"name":        "summarizer",
		"description": "summarizes things",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /agents status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var created models.Agent
	decode(t, w, &created)
	if created.ID == "" {
		t.Fatal("created agent has no ID")
	}

	// Duplicate name conflicts
	w = doJSON(t, handler, http.MethodPost, "/api/v1/agents", map[string]string{"name": "summarizer"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate POST /agents status = %d, want 409", w.Code)
	}

	// Missing name is a validation error
	w = doJSON(t, handler, http.MethodPost, "/api/v1/agents", map[string]string{"description": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("POST /agents without name status = %d, want 400", w.Code)
	}

	w = doJSON(t, handler, http.MethodGet, "/api/v1/agents", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /agents status = %d, want 200", w.Code)
	}
	var agents []models.Agent
	decode(t, w, &agents)
	if len(agents) != 1 {
		t.Fatalf("GET /agents returned %d agents, want 1", len(agents))
	}

	w = doJSON(t, handler, http.MethodGet, "/api/v1/agents/summarizer", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /agents/summarizer status = %d, want 200", w.Code)
	}

	w = doJSON(t, handler, http.MethodGet, "/api/v1/agents/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /agents/ghost status = %d, want 404", w.Code)
	}

	w = doJSON(t, handler, http.MethodDelete, "/api/v1/agents/summarizer", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("DELETE /agents/summarizer status = %d, want 200", w.Code)
	}
	w = doJSON(t, handler, http.MethodGet, "/api/v1/agents/summarizer", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want 404", w.Code)
	}
}

// ─── Versions & Activation ───────────────────────────────────

func createAgentAndVersion(t *testing.T, handler http.Handler, name string) (models.Agent, models.AgentVersion) {
	t.Helper()

	w := doJSON(t, handler, http.MethodPost, "/api/v1/agents", map[string]string{"name": name})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /agents status = %d: %s", w.Code, w.Body.String())
	}
	var agent models.Agent
	decode(t, w, &agent)

	w = doJSON(t, handler, http.MethodPost, "/api/v1/agents/"+name+"/versions", map[string]interface{}{
		"model_name":        "gpt-4",
		"model_temperature": 0.7,
		"prompt":            "Summarize the provided content in three bullet points.",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST versions status = %d: %s", w.Code, w.Body.String())
	}
	var version models.AgentVersion
	decode(t, w, &version)
	return agent, version
}

func TestVersionCreateAndActivate(t *testing.T) {
	handler, _ := newTestServer(t)
	_, v1 := createAgentAndVersion(t, handler, "summarizer")

	if v1.IsActive {
		t.Error("freshly created version is active, want inactive")
	}
	if v1.Version != 1 {
		t.Errorf("first version number = %d, want 1", v1.Version)
	}

	w := doJSON(t, handler, http.MethodPost, "/api/v1/agents/summarizer/versions", map[string]interface{}{
		"model_name": "gpt-4o",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST second version status = %d", w.Code)
	}
	var v2 models.AgentVersion
	decode(t, w, &v2)
	if v2.Version != 2 {
		t.Errorf("second version number = %d, want 2", v2.Version)
	}

	// Activate v1, then flip to v2.
	w = doJSON(t, handler, http.MethodPost, "/api/v1/versions/"+v1.ID+"/activate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("activate v1 status = %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, handler, http.MethodPost, "/api/v1/versions/"+v2.ID+"/activate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("activate v2 status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, handler, http.MethodGet, "/api/v1/agents/summarizer/versions", nil)
	var versions []models.AgentVersion
	decode(t, w, &versions)
	active := 0
	for _, v := range versions {
		if v.IsActive {
			active++
			if v.ID != v2.ID {
				t.Errorf("active version = %s, want %s", v.ID, v2.ID)
			}
		}
	}
	if active != 1 {
		t.Errorf("active version count = %d, want exactly 1", active)
	}
}

func TestActivateUnknownVersion(t *testing.T) {
	handler, _ := newTestServer(t)

	w := doJSON(t, handler, http.MethodPost, "/api/v1/versions/00000000-0000-0000-0000-000000000000/activate", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("activate unknown version status = %d, want 404", w.Code)
	}
}

// ─── Tools & Middlewares ─────────────────────────────────────

func TestAttachToolValidationAndIntegrity(t *testing.T) {
	handler, s := newTestServer(t)
	_, v := createAgentAndVersion(t, handler, "summarizer")

	srv := &models.MCPServer{Name: "filesystem", Transport: models.TransportStdio, Command: "npx", Enabled: true}
	if err := s.CreateMCPServer(context.Background(), srv); err != nil {
		t.Fatalf("CreateMCPServer() error = %v", err)
	}

	// Unknown kind is a validation error.
	w := doJSON(t, handler, http.MethodPost, "/api/v1/versions/"+v.ID+"/tools", map[string]interface{}{
		"tool_kind": "webhook",
		"tool_id":   srv.ID,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("attach with bad kind status = %d, want 400", w.Code)
	}

	w = doJSON(t, handler, http.MethodPost, "/api/v1/versions/"+v.ID+"/tools", map[string]interface{}{
		"tool_kind": "mcp_server",
		"tool_id":   srv.ID,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("attach tool status = %d: %s", w.Code, w.Body.String())
	}
	var attached models.AgentVersionTool
	decode(t, w, &attached)
	if !attached.Enabled {
		t.Error("attached tool defaulted to disabled, want enabled")
	}

	// The same tool twice violates the uniqueness invariant.
	w = doJSON(t, handler, http.MethodPost, "/api/v1/versions/"+v.ID+"/tools", map[string]interface{}{
		"tool_kind": "mcp_server",
		"tool_id":   srv.ID,
	})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("duplicate attach status = %d, want 500", w.Code)
	}

	w = doJSON(t, handler, http.MethodGet, "/api/v1/versions/"+v.ID+"/tools", nil)
	var tools []models.AgentVersionTool
	decode(t, w, &tools)
	if len(tools) != 1 {
		t.Errorf("GET tools returned %d, want 1", len(tools))
	}
}

func TestAttachMiddleware(t *testing.T) {
	handler, _ := newTestServer(t)
	_, v := createAgentAndVersion(t, handler, "summarizer")

	w := doJSON(t, handler, http.MethodPost, "/api/v1/middleware-types", map[string]interface{}{
		"type":        "summarization",
		"description": "shrinks history",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST middleware-types status = %d: %s", w.Code, w.Body.String())
	}

	// execution_order is mandatory.
	w = doJSON(t, handler, http.MethodPost, "/api/v1/versions/"+v.ID+"/middlewares", map[string]interface{}{
		"middleware_type": "summarization",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("attach without execution_order status = %d, want 400", w.Code)
	}

	w = doJSON(t, handler, http.MethodPost, "/api/v1/versions/"+v.ID+"/middlewares", map[string]interface{}{
		"middleware_type": "summarization",
		"execution_order": 1,
		"config":          map[string]interface{}{"max_tokens": 2048},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("attach middleware status = %d: %s", w.Code, w.Body.String())
	}

	// Duplicate execution order violates the uniqueness invariant.
	w = doJSON(t, handler, http.MethodPost, "/api/v1/versions/"+v.ID+"/middlewares", map[string]interface{}{
		"middleware_type": "summarization",
		"execution_order": 1,
	})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("duplicate order status = %d, want 500", w.Code)
	}
}

// ─── MCP Servers ─────────────────────────────────────────────

func TestMCPServerCRUD(t *testing.T) {
	handler, _ := newTestServer(t)

	w := doJSON(t, handler, http.MethodPost, "/api/v1/mcp-servers", map[string]interface{}{
		"name":    "filesystem",
		"command": "npx",
		"args":    []string{"-y", "@modelcontextprotocol/server-filesystem"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST mcp-servers status = %d: %s", w.Code, w.Body.String())
	}
	var created models.MCPServer
	decode(t, w, &created)
	if created.Transport != models.TransportStdio {
		t.Errorf("transport = %q, want default stdio", created.Transport)
	}
	if !created.Enabled {
		t.Error("created server defaulted to disabled, want enabled")
	}

	// stdio requires a command.
	w = doJSON(t, handler, http.MethodPost, "/api/v1/mcp-servers", map[string]interface{}{"name": "broken"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("POST stdio server without command status = %d, want 400", w.Code)
	}

	w = doJSON(t, handler, http.MethodPut, "/api/v1/mcp-servers/"+created.ID, map[string]interface{}{
		"enabled":     false,
		"description": "paused",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("PUT mcp-servers status = %d: %s", w.Code, w.Body.String())
	}
	var updated models.MCPServer
	decode(t, w, &updated)
	if updated.Enabled {
		t.Error("update did not disable the server")
	}
	if updated.Description != "paused" {
		t.Errorf("description = %q, want %q", updated.Description, "paused")
	}
	if updated.Command != "npx" {
		t.Errorf("command = %q, absent fields must keep their value", updated.Command)
	}

	w = doJSON(t, handler, http.MethodPut, "/api/v1/mcp-servers/"+created.ID, map[string]interface{}{
		"transport": "grpc",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("PUT with invalid transport status = %d, want 400", w.Code)
	}
}

// ─── Tool Catalog ────────────────────────────────────────────

func TestToolCatalogReflectsActivation(t *testing.T) {
	handler, _ := newTestServer(t)
	agent, v := createAgentAndVersion(t, handler, "summarizer")

	w := doJSON(t, handler, http.MethodGet, "/api/v1/tool-catalog", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET tool-catalog status = %d", w.Code)
	}
	var entries []models.ToolCatalogEntry
	decode(t, w, &entries)
	if len(entries) != 1 {
		t.Fatalf("catalog has %d entries, want 1 (the agent)", len(entries))
	}
	if entries[0].Kind != models.ToolKindAgent || entries[0].Enabled {
		t.Errorf("agent entry = %+v, want disabled agent row before activation", entries[0])
	}

	doJSON(t, handler, http.MethodPost, "/api/v1/versions/"+v.ID+"/activate", nil)

	w = doJSON(t, handler, http.MethodGet, "/api/v1/tool-catalog", nil)
	decode(t, w, &entries)
	if len(entries) != 1 || !entries[0].Enabled {
		t.Error("agent entry not enabled after activation")
	}
	if entries[0].ID != agent.ID {
		t.Errorf("catalog entry ID = %q, want agent ID %q", entries[0].ID, agent.ID)
	}
}

// ─── Configuration Resolution ────────────────────────────────

func TestGetAgentConfig(t *testing.T) {
	handler, _ := newTestServer(t)
	agent, v := createAgentAndVersion(t, handler, "summarizer")

	// No active version resolves to a conflict, not an empty config.
	w := doJSON(t, handler, http.MethodGet, "/api/v1/agents/summarizer/config", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("GET config without active version status = %d, want 409", w.Code)
	}

	doJSON(t, handler, http.MethodPost, "/api/v1/versions/"+v.ID+"/activate", nil)

	w = doJSON(t, handler, http.MethodGet, "/api/v1/agents/summarizer/config", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET config status = %d: %s", w.Code, w.Body.String())
	}
	var cfg models.RuntimeConfiguration
	decode(t, w, &cfg)
	if cfg.AgentID != agent.ID || cfg.ModelName != "gpt-4" || cfg.Version != 1 {
		t.Errorf("config = %+v, want resolved active version", cfg)
	}
	if cfg.Tools == nil {
		t.Error("config.Tools is null, want empty array")
	}

	w = doJSON(t, handler, http.MethodGet, "/api/v1/agents/ghost/config", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("GET config for unknown agent status = %d, want 404", w.Code)
	}
}

func TestGetAgentConfigCacheAndFresh(t *testing.T) {
	handler, s := newTestServer(t)
	_, v := createAgentAndVersion(t, handler, "summarizer")
	doJSON(t, handler, http.MethodPost, "/api/v1/versions/"+v.ID+"/activate", nil)

	w := doJSON(t, handler, http.MethodGet, "/api/v1/agents/summarizer/config", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET config status = %d", w.Code)
	}
	var cfg models.RuntimeConfiguration
	decode(t, w, &cfg)
	if len(cfg.Tools) != 0 {
		t.Fatalf("config has %d tools, want 0", len(cfg.Tools))
	}

	// Attach a tool behind the cache's back: the cached read misses it,
	// ?fresh=1 sees it.
	srv := &models.MCPServer{Name: "filesystem", Transport: models.TransportStdio, Command: "npx", Enabled: true}
	if err := s.CreateMCPServer(context.Background(), srv); err != nil {
		t.Fatalf("CreateMCPServer() error = %v", err)
	}
	err := s.AddVersionTool(context.Background(), &models.AgentVersionTool{
		AgentVersionID: v.ID,
		ToolKind:       models.ToolKindMCPServer,
		ToolID:         srv.ID,
		Enabled:        true,
	})
	if err != nil {
		t.Fatalf("AddVersionTool() error = %v", err)
	}

	w = doJSON(t, handler, http.MethodGet, "/api/v1/agents/summarizer/config", nil)
	decode(t, w, &cfg)
	if len(cfg.Tools) != 0 {
		t.Fatalf("cached config has %d tools, want 0 (stale by design)", len(cfg.Tools))
	}

	w = doJSON(t, handler, http.MethodGet, "/api/v1/agents/summarizer/config?fresh=1", nil)
	decode(t, w, &cfg)
	if len(cfg.Tools) != 1 {
		t.Fatalf("fresh config has %d tools, want 1", len(cfg.Tools))
	}
	if cfg.Tools[0].Command != "npx" {
		t.Errorf("resolved tool command = %q, want %q", cfg.Tools[0].Command, "npx")
	}
}

func TestActivationInvalidatesConfigCache(t *testing.T) {
	handler, _ := newTestServer(t)
	_, v1 := createAgentAndVersion(t, handler, "summarizer")
	doJSON(t, handler, http.MethodPost, "/api/v1/versions/"+v1.ID+"/activate", nil)

	w := doJSON(t, handler, http.MethodGet, "/api/v1/agents/summarizer/config", nil)
	var cfg models.RuntimeConfiguration
	decode(t, w, &cfg)
	if cfg.ModelName != "gpt-4" {
		t.Fatalf("model = %q, want gpt-4", cfg.ModelName)
	}

	w = doJSON(t, handler, http.MethodPost, "/api/v1/agents/summarizer/versions", map[string]interface{}{
		"model_name": "gpt-4o",
	})
	var v2 models.AgentVersion
	decode(t, w, &v2)
	doJSON(t, handler, http.MethodPost, "/api/v1/versions/"+v2.ID+"/activate", nil)

	// Activation must drop the cached configuration.
	w = doJSON(t, handler, http.MethodGet, "/api/v1/agents/summarizer/config", nil)
	decode(t, w, &cfg)
	if cfg.ModelName != "gpt-4o" {
		t.Errorf("model after activation = %q, want gpt-4o (cache must be invalidated)", cfg.ModelName)
	}
}

// ─── Instances ───────────────────────────────────────────────

func TestInstanceFlow(t *testing.T) {
	handler, _ := newTestServer(t)
	_, v := createAgentAndVersion(t, handler, "summarizer")
	doJSON(t, handler, http.MethodPost, "/api/v1/versions/"+v.ID+"/activate", nil)

	// Self-registration by agent name pins the active version and
	// derives the endpoint from configured hostname/port.
	w := doJSON(t, handler, http.MethodPost, "/api/v1/instances", map[string]string{
		"agent_name": "summarizer",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST instances status = %d: %s", w.Code, w.Body.String())
	}
	var inst models.AgentInstance
	decode(t, w, &inst)
	if inst.AgentVersionID != v.ID {
		t.Errorf("instance pinned to %q, want active version %q", inst.AgentVersionID, v.ID)
	}
	if inst.EndpointURL != "http://cp-test:9000" {
		t.Errorf("endpoint = %q, want derived http://cp-test:9000", inst.EndpointURL)
	}

	// Neither name nor explicit IDs is a validation error.
	w = doJSON(t, handler, http.MethodPost, "/api/v1/instances", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("POST instances with empty body status = %d, want 400", w.Code)
	}

	w = doJSON(t, handler, http.MethodPost, "/api/v1/instances/"+inst.ID+"/heartbeat", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("heartbeat status = %d", w.Code)
	}

	w = doJSON(t, handler, http.MethodGet, "/api/v1/agents/summarizer/instances?threshold=30s", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET instances status = %d", w.Code)
	}
	var live []models.AgentInstance
	decode(t, w, &live)
	if len(live) != 1 {
		t.Fatalf("live instances = %d, want 1", len(live))
	}

	w = doJSON(t, handler, http.MethodGet, "/api/v1/agents/summarizer/instances?threshold=bogus", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("GET instances with bad threshold status = %d, want 400", w.Code)
	}

	w = doJSON(t, handler, http.MethodPost, "/api/v1/instances/"+inst.ID+"/stop", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stop status = %d", w.Code)
	}

	w = doJSON(t, handler, http.MethodGet, "/api/v1/agents/summarizer/instances?threshold=30s", nil)
	decode(t, w, &live)
	if len(live) != 0 {
		t.Errorf("live instances after stop = %d, want 0", len(live))
	}

	// The stopped row is still retrievable.
	w = doJSON(t, handler, http.MethodGet, "/api/v1/instances/"+inst.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET stopped instance status = %d, want 200", w.Code)
	}
	var stopped models.AgentInstance
	decode(t, w, &stopped)
	if stopped.StoppedAt == nil {
		t.Error("stopped instance has no stop timestamp")
	}

	w = doJSON(t, handler, http.MethodPost, "/api/v1/instances/no-such-instance/heartbeat", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("heartbeat for unknown instance status = %d, want 404", w.Code)
	}
}

func TestListInstancesDefaultsToConfiguredWindow(t *testing.T) {
	handler, s := newTestServerWindow(t, time.Hour)
	ctx := context.Background()

	agent := &models.Agent{Name: "windowed"}
	if err := s.CreateAgent(ctx, agent); err != nil {
		t.Fatalf("CreateAgent() error = %v", err)
	}
	v := &models.AgentVersion{AgentID: agent.ID, ModelName: "gpt-4"}
	if err := s.CreateVersion(ctx, v); err != nil {
		t.Fatalf("CreateVersion() error = %v", err)
	}
	// A 30m-old heartbeat: dead under the stock 20m window, live under
	// the configured 1h one.
	inst := &models.AgentInstance{
		AgentID:        agent.ID,
		AgentVersionID: v.ID,
		EndpointURL:    "http://localhost:9001",
		Transport:      models.TransportHTTP,
		LastHeartbeat:  time.Now().UTC().Add(-30 * time.Minute),
	}
	if err := s.CreateInstance(ctx, inst); err != nil {
		t.Fatalf("CreateInstance() error = %v", err)
	}

	w := doJSON(t, handler, http.MethodGet, "/api/v1/agents/windowed/instances", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET instances status = %d: %s", w.Code, w.Body.String())
	}
	var live []models.AgentInstance
	decode(t, w, &live)
	if len(live) != 1 {
		t.Fatalf("live instances = %d, want 1 under the configured 1h window", len(live))
	}

	// An explicit threshold still overrides the configured default.
	w = doJSON(t, handler, http.MethodGet, "/api/v1/agents/windowed/instances?threshold=20m", nil)
	decode(t, w, &live)
	if len(live) != 0 {
		t.Errorf("live instances = %d with ?threshold=20m, want 0", len(live))
	}
}

// ─── Agent Deletion Guard ────────────────────────────────────

func TestDeleteAgentWithLiveInstanceRefused(t *testing.T) {
	handler, _ := newTestServer(t)
	_, v := createAgentAndVersion(t, handler, "summarizer")
	doJSON(t, handler, http.MethodPost, "/api/v1/versions/"+v.ID+"/activate", nil)

	w := doJSON(t, handler, http.MethodPost, "/api/v1/instances", map[string]string{"agent_name": "summarizer"})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST instances status = %d", w.Code)
	}
	var inst models.AgentInstance
	decode(t, w, &inst)

	w = doJSON(t, handler, http.MethodDelete, "/api/v1/agents/summarizer", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("DELETE with unstopped instance status = %d, want 500", w.Code)
	}

	doJSON(t, handler, http.MethodPost, "/api/v1/instances/"+inst.ID+"/stop", nil)

	w = doJSON(t, handler, http.MethodDelete, "/api/v1/agents/summarizer", nil)
	if w.Code != http.StatusOK {
		t.Errorf("DELETE after stop status = %d, want 200: %s", w.Code, w.Body.String())
	}
}
