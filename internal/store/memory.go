// Package store — in-memory Store implementation.
// Used when PostgreSQL is not configured (local dev, tests). Supports
// file-based snapshot persistence so data survives restarts, and enforces
// the same relational constraints as the PostgreSQL schema so both
// implementations are interchangeable under test.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/agentrig/agentrig/control-plane/pkg/models"
)

// snapshot is the JSON-serializable shape written to disk.
type snapshot struct {
	Agents              map[string]*models.Agent                    `json:"agents"`
	Versions            map[string]*models.AgentVersion             `json:"versions"`
	MCPServers          map[string]*models.MCPServer                `json:"mcp_servers"`
	VersionTools        map[string][]*models.AgentVersionTool       `json:"version_tools"`
	MiddlewareTypes     map[string]*models.MiddlewareType           `json:"middleware_types"`
	VersionMiddlewares  map[string][]*models.AgentVersionMiddleware `json:"version_middlewares"`
	Instances           map[string]*models.AgentInstance            `json:"instances"`
}

// MemoryStore implements Store with in-memory maps.
type MemoryStore struct {
	mu                 sync.RWMutex
	agents             map[string]*models.Agent                    // key: id
	versions           map[string]*models.AgentVersion             // key: id
	mcpServers         map[string]*models.MCPServer                // key: id
	versionTools       map[string][]*models.AgentVersionTool       // key: version id, insertion order
	middlewareTypes    map[string]*models.MiddlewareType           // key: type
	versionMiddlewares map[string][]*models.AgentVersionMiddleware // key: version id, insertion order
	instances          map[string]*models.AgentInstance            // key: id

	// Persistence
	snapshotPath string        // empty = no persistence
	saveMu       sync.Mutex    // guards file writes
	saveCh       chan struct{} // debounce channel
	doneCh       chan struct{} // signals the save goroutine to stop
}

// NewMemoryStore creates a new in-memory store. If snapshotPath is
// non-empty, data is persisted there as JSON and reloaded on startup.
func NewMemoryStore(snapshotPath string) *MemoryStore {
	m := &MemoryStore{
		agents:             make(map[string]*models.Agent),
		versions:           make(map[string]*models.AgentVersion),
		mcpServers:         make(map[string]*models.MCPServer),
		versionTools:       make(map[string][]*models.AgentVersionTool),
		middlewareTypes:    make(map[string]*models.MiddlewareType),
		versionMiddlewares: make(map[string][]*models.AgentVersionMiddleware),
		instances:          make(map[string]*models.AgentInstance),
		saveCh:             make(chan struct{}, 1),
		doneCh:             make(chan struct{}),
	}

	if snapshotPath != "" {
		if err := os.MkdirAll(filepath.Dir(snapshotPath), 0755); err != nil {
			log.Warn().Err(err).Str("path", snapshotPath).Msg("Cannot create data dir, persistence disabled")
		} else {
			m.snapshotPath = snapshotPath
		}
	}

	if m.snapshotPath != "" {
		m.loadSnapshot()
		go m.saveLoop()
	}

	log.Info().Str("snapshot", m.snapshotPath).Msg("Memory store configured")
	return m
}

// requestSave signals the background goroutine to persist data.
// Non-blocking: coalesces multiple rapid writes into one disk flush.
func (m *MemoryStore) requestSave() {
	if m.snapshotPath == "" {
		return
	}
	select {
	case m.saveCh <- struct{}{}:
	default:
		// Already pending
	}
}

// saveLoop runs in a goroutine, debouncing save requests (max 1 write per 500ms).
func (m *MemoryStore) saveLoop() {
	for {
		select {
		case <-m.doneCh:
			return
		case <-m.saveCh:
			time.Sleep(500 * time.Millisecond) // debounce
			m.saveSnapshot()
		}
	}
}

// saveSnapshot persists all data to disk as JSON.
func (m *MemoryStore) saveSnapshot() {
	m.mu.RLock()
	snap := snapshot{
		Agents:             m.agents,
		Versions:           m.versions,
		MCPServers:         m.mcpServers,
		VersionTools:       m.versionTools,
		MiddlewareTypes:    m.middlewareTypes,
		VersionMiddlewares: m.versionMiddlewares,
		Instances:          m.instances,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	m.mu.RUnlock()

	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal snapshot")
		return
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	// Write to temp file then rename for atomicity
	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.Error().Err(err).Str("path", tmp).Msg("Failed to write snapshot tmp")
		return
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to rename snapshot")
		return
	}

	log.Debug().Str("path", m.snapshotPath).Msg("Snapshot saved")
}

// loadSnapshot reads data from disk on startup.
func (m *MemoryStore) loadSnapshot() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", m.snapshotPath).Msg("No snapshot file found, starting fresh")
			return
		}
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Failed to read snapshot")
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to parse snapshot, starting fresh")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if snap.Agents != nil {
		m.agents = snap.Agents
	}
	if snap.Versions != nil {
		m.versions = snap.Versions
	}
	if snap.MCPServers != nil {
		m.mcpServers = snap.MCPServers
	}
	if snap.VersionTools != nil {
		m.versionTools = snap.VersionTools
	}
	if snap.MiddlewareTypes != nil {
		m.middlewareTypes = snap.MiddlewareTypes
	}
	if snap.VersionMiddlewares != nil {
		m.versionMiddlewares = snap.VersionMiddlewares
	}
	if snap.Instances != nil {
		m.instances = snap.Instances
	}

	log.Info().
		Int("agents", len(m.agents)).
		Int("versions", len(m.versions)).
		Int("mcp_servers", len(m.mcpServers)).
		Int("instances", len(m.instances)).
		Str("path", m.snapshotPath).
		Msg("Snapshot loaded")
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close stops the save goroutine and forces a final snapshot write.
// Safe to call multiple times (second call is a no-op).
func (m *MemoryStore) Close() error {
	select {
	case <-m.doneCh:
		// Already closed
		return nil
	default:
		close(m.doneCh)
	}

	if m.snapshotPath != "" {
		m.saveSnapshot()
	}

	log.Info().Msg("Memory store closed")
	return nil
}

// ── Agent Store ─────────────────────────────────────────────

func (m *MemoryStore) ListAgents(_ context.Context) ([]models.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]models.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MemoryStore) GetAgent(_ context.Context, id string) (*models.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "agent", Key: id}
	}
	copy := *a
	return &copy, nil
}

func (m *MemoryStore) GetAgentByName(_ context.Context, name string) (*models.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a := m.agentByNameLocked(name)
	if a == nil {
		return nil, &ErrNotFound{Entity: "agent", Key: name}
	}
	copy := *a
	return &copy, nil
}

// agentByNameLocked requires at least a read lock.
func (m *MemoryStore) agentByNameLocked(name string) *models.Agent {
	for _, a := range m.agents {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func (m *MemoryStore) CreateAgent(_ context.Context, agent *models.Agent) error {
	m.mu.Lock()
	if m.agentByNameLocked(agent.Name) != nil {
		m.mu.Unlock()
		return &ErrConflict{Op: "create agent", Key: agent.Name}
	}
	copy := *agent
	if copy.ID == "" {
		copy.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = now
	}
	copy.UpdatedAt = now
	m.agents[copy.ID] = &copy
	*agent = copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) DeleteAgent(_ context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.agents[id]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "agent", Key: id}
	}
	for _, inst := range m.instances {
		if inst.AgentID == id && inst.StoppedAt == nil {
			m.mu.Unlock()
			return &ErrIntegrity{Detail: "agent has unstopped instances: " + id}
		}
	}
	delete(m.agents, id)
	for vid, v := range m.versions {
		if v.AgentID == id {
			delete(m.versions, vid)
			delete(m.versionTools, vid)
			delete(m.versionMiddlewares, vid)
		}
	}
	for iid, inst := range m.instances {
		if inst.AgentID == id {
			delete(m.instances, iid)
		}
	}
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// ── Version Store ───────────────────────────────────────────

func (m *MemoryStore) ListVersions(_ context.Context, agentID string) ([]models.AgentVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []models.AgentVersion
	for _, v := range m.versions {
		if v.AgentID == agentID {
			result = append(result, *v)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Version < result[j].Version })
	return result, nil
}

func (m *MemoryStore) GetVersion(_ context.Context, id string) (*models.AgentVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.versions[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "agent version", Key: id}
	}
	copy := *v
	return &copy, nil
}

func (m *MemoryStore) GetActiveVersion(_ context.Context, agentID string) (*models.AgentVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var active []*models.AgentVersion
	for _, v := range m.versions {
		if v.AgentID == agentID && v.IsActive {
			active = append(active, v)
		}
	}
	switch len(active) {
	case 0:
		return nil, &ErrNotFound{Entity: "active version", Key: agentID}
	case 1:
		copy := *active[0]
		return &copy, nil
	default:
		return nil, &ErrIntegrity{Detail: "multiple active versions for agent " + agentID}
	}
}

func (m *MemoryStore) CreateVersion(_ context.Context, version *models.AgentVersion) error {
	m.mu.Lock()
	if _, ok := m.agents[version.AgentID]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "agent", Key: version.AgentID}
	}
	maxVersion := 0
	for _, v := range m.versions {
		if v.AgentID != version.AgentID {
			continue
		}
		if version.Version != 0 && v.Version == version.Version {
			m.mu.Unlock()
			return &ErrConflict{Op: "create version", Key: version.AgentID}
		}
		if v.Version > maxVersion {
			maxVersion = v.Version
		}
	}
	copy := *version
	if copy.ID == "" {
		copy.ID = uuid.NewString()
	}
	if copy.Version == 0 {
		copy.Version = maxVersion + 1
	}
	if copy.SchemaVersion == 0 {
		copy.SchemaVersion = 1
	}
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = time.Now().UTC()
	}
	// Activation is a separate operation; versions are born inactive.
	copy.IsActive = false
	m.versions[copy.ID] = &copy
	*version = copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) ActivateVersion(_ context.Context, versionID string) error {
	m.mu.Lock()
	target, ok := m.versions[versionID]
	if !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "agent version", Key: versionID}
	}
	// Single critical section: no reader can observe zero or two active
	// versions of the agent.
	for _, v := range m.versions {
		if v.AgentID == target.AgentID {
			v.IsActive = v.ID == versionID
		}
	}
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// ── Tool Store ──────────────────────────────────────────────

func (m *MemoryStore) ListMCPServers(_ context.Context) ([]models.MCPServer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]models.MCPServer, 0, len(m.mcpServers))
	for _, s := range m.mcpServers {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MemoryStore) GetMCPServer(_ context.Context, id string) (*models.MCPServer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.mcpServers[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "mcp server", Key: id}
	}
	copy := *s
	return &copy, nil
}

func (m *MemoryStore) CreateMCPServer(_ context.Context, server *models.MCPServer) error {
	m.mu.Lock()
	for _, s := range m.mcpServers {
		if s.Name == server.Name {
			m.mu.Unlock()
			return &ErrConflict{Op: "create mcp server", Key: server.Name}
		}
	}
	copy := *server
	if copy.ID == "" {
		copy.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = now
	}
	copy.UpdatedAt = now
	m.mcpServers[copy.ID] = &copy
	*server = copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) UpdateMCPServer(_ context.Context, server *models.MCPServer) error {
	m.mu.Lock()
	if _, ok := m.mcpServers[server.ID]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "mcp server", Key: server.ID}
	}
	copy := *server
	copy.UpdatedAt = time.Now().UTC()
	m.mcpServers[copy.ID] = &copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) AddVersionTool(_ context.Context, tool *models.AgentVersionTool) error {
	m.mu.Lock()
	version, ok := m.versions[tool.AgentVersionID]
	if !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "agent version", Key: tool.AgentVersionID}
	}
	if !tool.ToolKind.Valid() {
		m.mu.Unlock()
		return &ErrIntegrity{Detail: "unknown tool kind: " + string(tool.ToolKind)}
	}
	if tool.ToolKind == models.ToolKindAgent && tool.ToolID == version.AgentID {
		m.mu.Unlock()
		return &ErrIntegrity{Detail: "version tool references its own agent: " + version.AgentID}
	}
	for _, t := range m.versionTools[tool.AgentVersionID] {
		if t.ToolKind == tool.ToolKind && t.ToolID == tool.ToolID {
			m.mu.Unlock()
			return &ErrIntegrity{Detail: "duplicate tool reference: " + string(tool.ToolKind) + "/" + tool.ToolID}
		}
	}
	copy := *tool
	if copy.ID == "" {
		copy.ID = uuid.NewString()
	}
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = time.Now().UTC()
	}
	m.versionTools[tool.AgentVersionID] = append(m.versionTools[tool.AgentVersionID], &copy)
	*tool = copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) GetVersionTools(_ context.Context, versionID string) ([]models.AgentVersionTool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tools := m.versionTools[versionID]
	result := make([]models.AgentVersionTool, len(tools))
	for i, t := range tools {
		result[i] = *t
	}
	return result, nil
}

func (m *MemoryStore) GetToolCatalogEntry(_ context.Context, kind models.ToolKind, id string) (*models.ToolCatalogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch kind {
	case models.ToolKindMCPServer:
		s, ok := m.mcpServers[id]
		if !ok {
			return nil, &ErrNotFound{Entity: "tool catalog entry", Key: id}
		}
		entry := catalogEntryFromServer(s)
		return &entry, nil
	case models.ToolKindAgent:
		a, ok := m.agents[id]
		if !ok {
			return nil, &ErrNotFound{Entity: "tool catalog entry", Key: id}
		}
		entry := m.catalogEntryFromAgentLocked(a)
		return &entry, nil
	default:
		return nil, &ErrNotFound{Entity: "tool catalog entry", Key: string(kind) + "/" + id}
	}
}

func (m *MemoryStore) ListToolCatalog(_ context.Context) ([]models.ToolCatalogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]models.ToolCatalogEntry, 0, len(m.mcpServers)+len(m.agents))
	for _, s := range m.mcpServers {
		result = append(result, catalogEntryFromServer(s))
	}
	for _, a := range m.agents {
		result = append(result, m.catalogEntryFromAgentLocked(a))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Kind != result[j].Kind {
			return result[i].Kind < result[j].Kind
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func catalogEntryFromServer(s *models.MCPServer) models.ToolCatalogEntry {
	transport := s.Transport
	command := s.Command
	return models.ToolCatalogEntry{
		Kind:        models.ToolKindMCPServer,
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Transport:   &transport,
		Command:     &command,
		Args:        append([]string(nil), s.Args...),
		Env:         copyEnv(s.Env),
		Enabled:     s.Enabled,
	}
}

// catalogEntryFromAgentLocked derives an agent-kind catalog row. Enabled
// reflects activation state at read time; nothing is stored.
func (m *MemoryStore) catalogEntryFromAgentLocked(a *models.Agent) models.ToolCatalogEntry {
	active := false
	for _, v := range m.versions {
		if v.AgentID == a.ID && v.IsActive {
			active = true
			break
		}
	}
	return models.ToolCatalogEntry{
		Kind:        models.ToolKindAgent,
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Enabled:     active,
	}
}

func copyEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

// ── Middleware Store ────────────────────────────────────────

func (m *MemoryStore) ListMiddlewareTypes(_ context.Context) ([]models.MiddlewareType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]models.MiddlewareType, 0, len(m.middlewareTypes))
	for _, mt := range m.middlewareTypes {
		result = append(result, *mt)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result, nil
}

func (m *MemoryStore) GetMiddlewareType(_ context.Context, typ string) (*models.MiddlewareType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mt, ok := m.middlewareTypes[typ]
	if !ok {
		return nil, &ErrNotFound{Entity: "middleware type", Key: typ}
	}
	copy := *mt
	return &copy, nil
}

func (m *MemoryStore) CreateMiddlewareType(_ context.Context, mt *models.MiddlewareType) error {
	m.mu.Lock()
	if _, ok := m.middlewareTypes[mt.Type]; ok {
		m.mu.Unlock()
		return &ErrConflict{Op: "create middleware type", Key: mt.Type}
	}
	copy := *mt
	now := time.Now().UTC()
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = now
	}
	copy.UpdatedAt = now
	if copy.SchemaVersion == 0 {
		copy.SchemaVersion = 1
	}
	m.middlewareTypes[copy.Type] = &copy
	*mt = copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) AddVersionMiddleware(_ context.Context, mw *models.AgentVersionMiddleware) error {
	m.mu.Lock()
	if _, ok := m.versions[mw.AgentVersionID]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "agent version", Key: mw.AgentVersionID}
	}
	if _, ok := m.middlewareTypes[mw.MiddlewareType]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "middleware type", Key: mw.MiddlewareType}
	}
	for _, existing := range m.versionMiddlewares[mw.AgentVersionID] {
		if existing.ExecutionOrder == mw.ExecutionOrder {
			m.mu.Unlock()
			return &ErrIntegrity{Detail: "duplicate execution order within version: " + mw.AgentVersionID}
		}
	}
	copy := *mw
	if copy.ID == "" {
		copy.ID = uuid.NewString()
	}
	m.versionMiddlewares[mw.AgentVersionID] = append(m.versionMiddlewares[mw.AgentVersionID], &copy)
	*mw = copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) GetVersionMiddlewares(_ context.Context, versionID string) ([]models.AgentVersionMiddleware, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mws := m.versionMiddlewares[versionID]
	result := make([]models.AgentVersionMiddleware, len(mws))
	for i, mw := range mws {
		result[i] = *mw
	}
	return result, nil
}

// ── Instance Store ──────────────────────────────────────────

func (m *MemoryStore) CreateInstance(_ context.Context, inst *models.AgentInstance) error {
	m.mu.Lock()
	if _, ok := m.agents[inst.AgentID]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "agent", Key: inst.AgentID}
	}
	if _, ok := m.versions[inst.AgentVersionID]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "agent version", Key: inst.AgentVersionID}
	}
	copy := *inst
	if copy.ID == "" {
		copy.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if copy.StartedAt.IsZero() {
		copy.StartedAt = now
	}
	if copy.LastHeartbeat.IsZero() {
		copy.LastHeartbeat = now
	}
	m.instances[copy.ID] = &copy
	*inst = copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) GetInstance(_ context.Context, id string) (*models.AgentInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "agent instance", Key: id}
	}
	copy := *inst
	return &copy, nil
}

func (m *MemoryStore) UpsertHeartbeat(_ context.Context, instanceID string, at time.Time) error {
	m.mu.Lock()
	inst, ok := m.instances[instanceID]
	if !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "agent instance", Key: instanceID}
	}
	inst.LastHeartbeat = at
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) StopInstance(_ context.Context, instanceID string, at time.Time) error {
	m.mu.Lock()
	inst, ok := m.instances[instanceID]
	if !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "agent instance", Key: instanceID}
	}
	// Terminal: the first stop timestamp wins.
	if inst.StoppedAt == nil {
		stopped := at
		inst.StoppedAt = &stopped
	}
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) ListLiveInstances(_ context.Context, agentID string, threshold time.Duration) ([]models.AgentInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now().UTC()
	var result []models.AgentInstance
	for _, inst := range m.instances {
		if inst.AgentID == agentID && inst.LiveAt(now, threshold) {
			result = append(result, *inst)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastHeartbeat.After(result[j].LastHeartbeat)
	})
	return result, nil
}

func (m *MemoryStore) ListStaleInstances(_ context.Context, olderThan time.Time) ([]models.AgentInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []models.AgentInstance
	for _, inst := range m.instances {
		if inst.StoppedAt == nil && inst.LastHeartbeat.Before(olderThan) {
			result = append(result, *inst)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastHeartbeat.Before(result[j].LastHeartbeat)
	})
	return result, nil
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
