package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/agentrig/agentrig/control-plane/pkg/models"
)

// Postgres error codes we classify into the store taxonomy.
const (
	pgUniqueViolation = "23505"
	pgForeignKey      = "23503"
	pgCheckViolation  = "23514"
	pgSerialization   = "40001"
	pgInvalidText     = "22P02"
)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL, applies pending migrations and
// returns a ready store.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if err := ApplyMigrations(ctx, dsn); err != nil {
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	log.Info().Msg("Postgres store initialized")
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &ErrUnavailable{Op: "ping", Err: err}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	log.Info().Msg("Postgres store closed")
	return nil
}

// wrapGet classifies single-row read failures. A malformed UUID key behaves
// like an absent row so lookups by arbitrary strings stay safe.
func wrapGet(op, entity, key string, err error) error {
	if pgxscan.NotFound(err) {
		return &ErrNotFound{Entity: entity, Key: key}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgInvalidText {
		return &ErrNotFound{Entity: entity, Key: key}
	}
	return &ErrUnavailable{Op: op, Err: err}
}

func pgCode(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// ── Agent Store ─────────────────────────────────────────────

const agentCols = "id, name, description, created_at, updated_at"

func (s *PostgresStore) ListAgents(ctx context.Context) ([]models.Agent, error) {
	var agents []models.Agent
	err := pgxscan.Select(ctx, s.pool, &agents,
		"SELECT "+agentCols+" FROM agents ORDER BY name")
	if err != nil {
		return nil, &ErrUnavailable{Op: "list agents", Err: err}
	}
	return agents, nil
}

func (s *PostgresStore) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	var agent models.Agent
	err := pgxscan.Get(ctx, s.pool, &agent,
		"SELECT "+agentCols+" FROM agents WHERE id = $1", id)
	if err != nil {
		return nil, wrapGet("get agent", "agent", id, err)
	}
	return &agent, nil
}

func (s *PostgresStore) GetAgentByName(ctx context.Context, name string) (*models.Agent, error) {
	var agent models.Agent
	err := pgxscan.Get(ctx, s.pool, &agent,
		"SELECT "+agentCols+" FROM agents WHERE name = $1", name)
	if err != nil {
		return nil, wrapGet("get agent by name", "agent", name, err)
	}
	return &agent, nil
}

func (s *PostgresStore) CreateAgent(ctx context.Context, agent *models.Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	err := pgxscan.Get(ctx, s.pool, agent,
		`INSERT INTO agents (id, name, description)
		 VALUES ($1, $2, $3)
		 RETURNING `+agentCols,
		agent.ID, agent.Name, agent.Description)
	if err != nil {
		if pgErr, ok := pgCode(err); ok && pgErr.Code == pgUniqueViolation {
			return &ErrConflict{Op: "create agent", Key: agent.Name}
		}
		return &ErrUnavailable{Op: "create agent", Err: err}
	}
	return nil
}

func (s *PostgresStore) DeleteAgent(ctx context.Context, id string) error {
	// Deletion is refused while any instance of the agent is still running.
	// Stopped instance rows go with the agent via FK cascade.
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM agents a
		 WHERE a.id = $1
		   AND NOT EXISTS (
		       SELECT 1 FROM agent_instances i
		       WHERE i.agent_id = a.id AND i.stopped_at IS NULL
		   )`, id)
	if err != nil {
		if pgErr, ok := pgCode(err); ok && pgErr.Code == pgInvalidText {
			return &ErrNotFound{Entity: "agent", Key: id}
		}
		return &ErrUnavailable{Op: "delete agent", Err: err}
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	// Zero rows: either the agent is absent or it still has running instances.
	var exists bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM agents WHERE id = $1)", id).Scan(&exists); err != nil {
		return &ErrUnavailable{Op: "delete agent", Err: err}
	}
	if !exists {
		return &ErrNotFound{Entity: "agent", Key: id}
	}
	return &ErrIntegrity{Detail: "agent has unstopped instances: " + id}
}

// ── Version Store ───────────────────────────────────────────

const versionCols = "id, agent_id, version, model_name, model_temperature, prompt, schema_version, is_active, created_at"

func (s *PostgresStore) ListVersions(ctx context.Context, agentID string) ([]models.AgentVersion, error) {
	var versions []models.AgentVersion
	err := pgxscan.Select(ctx, s.pool, &versions,
		"SELECT "+versionCols+" FROM agent_versions WHERE agent_id = $1 ORDER BY version", agentID)
	if err != nil {
		return nil, &ErrUnavailable{Op: "list versions", Err: err}
	}
	return versions, nil
}

func (s *PostgresStore) GetVersion(ctx context.Context, id string) (*models.AgentVersion, error) {
	var version models.AgentVersion
	err := pgxscan.Get(ctx, s.pool, &version,
		"SELECT "+versionCols+" FROM agent_versions WHERE id = $1", id)
	if err != nil {
		return nil, wrapGet("get version", "agent version", id, err)
	}
	return &version, nil
}

func (s *PostgresStore) GetActiveVersion(ctx context.Context, agentID string) (*models.AgentVersion, error) {
	var active []models.AgentVersion
	err := pgxscan.Select(ctx, s.pool, &active,
		"SELECT "+versionCols+" FROM agent_versions WHERE agent_id = $1 AND is_active", agentID)
	if err != nil {
		return nil, &ErrUnavailable{Op: "get active version", Err: err}
	}
	switch len(active) {
	case 0:
		return nil, &ErrNotFound{Entity: "active version", Key: agentID}
	case 1:
		return &active[0], nil
	default:
		return nil, &ErrIntegrity{Detail: "multiple active versions for agent " + agentID}
	}
}

func (s *PostgresStore) CreateVersion(ctx context.Context, version *models.AgentVersion) error {
	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	if version.SchemaVersion == 0 {
		version.SchemaVersion = 1
	}
	// Version number is assigned in the insert itself so two concurrent
	// creates collide on UNIQUE(agent_id, version) instead of both taking
	// the same number.
	err := pgxscan.Get(ctx, s.pool, version,
		`INSERT INTO agent_versions
		     (id, agent_id, version, model_name, model_temperature, prompt, schema_version, is_active)
		 VALUES ($1, $2,
		         COALESCE(NULLIF($3::int, 0),
		                  (SELECT COALESCE(MAX(version), 0) + 1 FROM agent_versions WHERE agent_id = $2)),
		         $4, $5, $6, $7, FALSE)
		 RETURNING `+versionCols,
		version.ID, version.AgentID, version.Version,
		version.ModelName, version.ModelTemperature, version.Prompt, version.SchemaVersion)
	if err != nil {
		if pgErr, ok := pgCode(err); ok {
			switch pgErr.Code {
			case pgForeignKey:
				return &ErrNotFound{Entity: "agent", Key: version.AgentID}
			case pgUniqueViolation:
				return &ErrConflict{Op: "create version", Key: version.AgentID}
			case pgInvalidText:
				return &ErrNotFound{Entity: "agent", Key: version.AgentID}
			}
		}
		return &ErrUnavailable{Op: "create version", Err: err}
	}
	return nil
}

func (s *PostgresStore) ActivateVersion(ctx context.Context, versionID string) error {
	// One statement flips the whole agent: the target becomes active,
	// every other version of the same agent becomes inactive. The partial
	// unique index turns any racing interleaving into a unique violation,
	// surfaced as a retryable conflict.
	tag, err := s.pool.Exec(ctx,
		`UPDATE agent_versions v
		 SET is_active = (v.id = t.id)
		 FROM (SELECT id, agent_id FROM agent_versions WHERE id = $1) t
		 WHERE v.agent_id = t.agent_id
		   AND (v.is_active OR v.id = t.id)`, versionID)
	if err != nil {
		if pgErr, ok := pgCode(err); ok {
			switch pgErr.Code {
			case pgUniqueViolation, pgSerialization:
				return &ErrConflict{Op: "activate version", Key: versionID}
			case pgInvalidText:
				return &ErrNotFound{Entity: "agent version", Key: versionID}
			}
		}
		return &ErrUnavailable{Op: "activate version", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "agent version", Key: versionID}
	}
	return nil
}

// ── Tool Store ──────────────────────────────────────────────

const mcpServerCols = "id, name, description, transport, command, args, env, enabled, created_at, updated_at"

func (s *PostgresStore) ListMCPServers(ctx context.Context) ([]models.MCPServer, error) {
	var servers []models.MCPServer
	err := pgxscan.Select(ctx, s.pool, &servers,
		"SELECT "+mcpServerCols+" FROM mcp_servers ORDER BY name")
	if err != nil {
		return nil, &ErrUnavailable{Op: "list mcp servers", Err: err}
	}
	return servers, nil
}

func (s *PostgresStore) GetMCPServer(ctx context.Context, id string) (*models.MCPServer, error) {
	var server models.MCPServer
	err := pgxscan.Get(ctx, s.pool, &server,
		"SELECT "+mcpServerCols+" FROM mcp_servers WHERE id = $1", id)
	if err != nil {
		return nil, wrapGet("get mcp server", "mcp server", id, err)
	}
	return &server, nil
}

func (s *PostgresStore) CreateMCPServer(ctx context.Context, server *models.MCPServer) error {
	if server.ID == "" {
		server.ID = uuid.NewString()
	}
	args := server.Args
	if args == nil {
		args = []string{}
	}
	env := server.Env
	if env == nil {
		env = map[string]string{}
	}
	err := pgxscan.Get(ctx, s.pool, server,
		`INSERT INTO mcp_servers (id, name, description, transport, command, args, env, enabled)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+mcpServerCols,
		server.ID, server.Name, server.Description, server.Transport,
		server.Command, args, env, server.Enabled)
	if err != nil {
		if pgErr, ok := pgCode(err); ok {
			switch pgErr.Code {
			case pgUniqueViolation:
				return &ErrConflict{Op: "create mcp server", Key: server.Name}
			case pgCheckViolation:
				return &ErrIntegrity{Detail: "invalid transport: " + string(server.Transport)}
			}
		}
		return &ErrUnavailable{Op: "create mcp server", Err: err}
	}
	return nil
}

func (s *PostgresStore) UpdateMCPServer(ctx context.Context, server *models.MCPServer) error {
	args := server.Args
	if args == nil {
		args = []string{}
	}
	env := server.Env
	if env == nil {
		env = map[string]string{}
	}
	err := pgxscan.Get(ctx, s.pool, server,
		`UPDATE mcp_servers
		 SET name = $2, description = $3, transport = $4, command = $5,
		     args = $6, env = $7, enabled = $8, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+mcpServerCols,
		server.ID, server.Name, server.Description, server.Transport,
		server.Command, args, env, server.Enabled)
	if err != nil {
		if pgErr, ok := pgCode(err); ok && pgErr.Code == pgCheckViolation {
			return &ErrIntegrity{Detail: "invalid transport: " + string(server.Transport)}
		}
		return wrapGet("update mcp server", "mcp server", server.ID, err)
	}
	return nil
}

const versionToolCols = "id, agent_version_id, tool_kind, tool_id, enabled, priority, override, created_at"

func (s *PostgresStore) AddVersionTool(ctx context.Context, tool *models.AgentVersionTool) error {
	if !tool.ToolKind.Valid() {
		return &ErrIntegrity{Detail: "unknown tool kind: " + string(tool.ToolKind)}
	}
	version, err := s.GetVersion(ctx, tool.AgentVersionID)
	if err != nil {
		return err
	}
	// An agent may not list itself as a tool. Version ownership is
	// immutable, so checking outside the insert is race-free.
	if tool.ToolKind == models.ToolKindAgent && tool.ToolID == version.AgentID {
		return &ErrIntegrity{Detail: "version tool references its own agent: " + version.AgentID}
	}
	if tool.ID == "" {
		tool.ID = uuid.NewString()
	}
	err = pgxscan.Get(ctx, s.pool, tool,
		`INSERT INTO agent_version_tools
		     (id, agent_version_id, tool_kind, tool_id, enabled, priority, override)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+versionToolCols,
		tool.ID, tool.AgentVersionID, tool.ToolKind, tool.ToolID,
		tool.Enabled, tool.Priority, tool.Override)
	if err != nil {
		if pgErr, ok := pgCode(err); ok {
			switch pgErr.Code {
			case pgUniqueViolation:
				return &ErrIntegrity{Detail: "duplicate tool reference: " + string(tool.ToolKind) + "/" + tool.ToolID}
			case pgCheckViolation:
				return &ErrIntegrity{Detail: "unknown tool kind: " + string(tool.ToolKind)}
			case pgInvalidText:
				return &ErrNotFound{Entity: "tool", Key: tool.ToolID}
			}
		}
		return &ErrUnavailable{Op: "add version tool", Err: err}
	}
	return nil
}

func (s *PostgresStore) GetVersionTools(ctx context.Context, versionID string) ([]models.AgentVersionTool, error) {
	var tools []models.AgentVersionTool
	err := pgxscan.Select(ctx, s.pool, &tools,
		"SELECT "+versionToolCols+" FROM agent_version_tools WHERE agent_version_id = $1 ORDER BY created_at, id",
		versionID)
	if err != nil {
		return nil, &ErrUnavailable{Op: "get version tools", Err: err}
	}
	return tools, nil
}

const catalogCols = "tool_kind, tool_id, tool_name, description, transport, command, args, env, enabled"

func (s *PostgresStore) GetToolCatalogEntry(ctx context.Context, kind models.ToolKind, id string) (*models.ToolCatalogEntry, error) {
	var entry models.ToolCatalogEntry
	err := pgxscan.Get(ctx, s.pool, &entry,
		"SELECT "+catalogCols+" FROM tool_catalog WHERE tool_kind = $1 AND tool_id = $2",
		kind, id)
	if err != nil {
		return nil, wrapGet("get tool catalog entry", "tool catalog entry", id, err)
	}
	return &entry, nil
}

func (s *PostgresStore) ListToolCatalog(ctx context.Context) ([]models.ToolCatalogEntry, error) {
	var entries []models.ToolCatalogEntry
	err := pgxscan.Select(ctx, s.pool, &entries,
		"SELECT "+catalogCols+" FROM tool_catalog ORDER BY tool_kind, tool_name")
	if err != nil {
		return nil, &ErrUnavailable{Op: "list tool catalog", Err: err}
	}
	return entries, nil
}

// ── Middleware Store ────────────────────────────────────────

const middlewareTypeCols = "type, description, config_schema, schema_version, enabled, created_at, updated_at"

func (s *PostgresStore) ListMiddlewareTypes(ctx context.Context) ([]models.MiddlewareType, error) {
	var types []models.MiddlewareType
	err := pgxscan.Select(ctx, s.pool, &types,
		"SELECT "+middlewareTypeCols+" FROM middleware_types ORDER BY type")
	if err != nil {
		return nil, &ErrUnavailable{Op: "list middleware types", Err: err}
	}
	return types, nil
}

func (s *PostgresStore) GetMiddlewareType(ctx context.Context, typ string) (*models.MiddlewareType, error) {
	var mt models.MiddlewareType
	err := pgxscan.Get(ctx, s.pool, &mt,
		"SELECT "+middlewareTypeCols+" FROM middleware_types WHERE type = $1", typ)
	if err != nil {
		return nil, wrapGet("get middleware type", "middleware type", typ, err)
	}
	return &mt, nil
}

func (s *PostgresStore) CreateMiddlewareType(ctx context.Context, mt *models.MiddlewareType) error {
	if mt.SchemaVersion == 0 {
		mt.SchemaVersion = 1
	}
	schema := mt.ConfigSchema
	if schema == nil {
		schema = []byte("{}")
	}
	err := pgxscan.Get(ctx, s.pool, mt,
		`INSERT INTO middleware_types (type, description, config_schema, schema_version, enabled)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+middlewareTypeCols,
		mt.Type, mt.Description, schema, mt.SchemaVersion, mt.Enabled)
	if err != nil {
		if pgErr, ok := pgCode(err); ok && pgErr.Code == pgUniqueViolation {
			return &ErrConflict{Op: "create middleware type", Key: mt.Type}
		}
		return &ErrUnavailable{Op: "create middleware type", Err: err}
	}
	return nil
}

const versionMiddlewareCols = "id, agent_version_id, middleware_type, config, enabled, execution_order"

func (s *PostgresStore) AddVersionMiddleware(ctx context.Context, mw *models.AgentVersionMiddleware) error {
	if mw.ID == "" {
		mw.ID = uuid.NewString()
	}
	config := mw.Config
	if config == nil {
		config = []byte("{}")
	}
	err := pgxscan.Get(ctx, s.pool, mw,
		`INSERT INTO agent_version_middlewares
		     (id, agent_version_id, middleware_type, config, enabled, execution_order)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+versionMiddlewareCols,
		mw.ID, mw.AgentVersionID, mw.MiddlewareType, config, mw.Enabled, mw.ExecutionOrder)
	if err != nil {
		if pgErr, ok := pgCode(err); ok {
			switch pgErr.Code {
			case pgUniqueViolation:
				return &ErrIntegrity{Detail: "duplicate execution order within version: " + mw.AgentVersionID}
			case pgForeignKey:
				if strings.Contains(pgErr.ConstraintName, "middleware_type") {
					return &ErrNotFound{Entity: "middleware type", Key: mw.MiddlewareType}
				}
				return &ErrNotFound{Entity: "agent version", Key: mw.AgentVersionID}
			case pgInvalidText:
				return &ErrNotFound{Entity: "agent version", Key: mw.AgentVersionID}
			}
		}
		return &ErrUnavailable{Op: "add version middleware", Err: err}
	}
	return nil
}

func (s *PostgresStore) GetVersionMiddlewares(ctx context.Context, versionID string) ([]models.AgentVersionMiddleware, error) {
	var mws []models.AgentVersionMiddleware
	err := pgxscan.Select(ctx, s.pool, &mws,
		"SELECT "+versionMiddlewareCols+" FROM agent_version_middlewares WHERE agent_version_id = $1 ORDER BY execution_order",
		versionID)
	if err != nil {
		return nil, &ErrUnavailable{Op: "get version middlewares", Err: err}
	}
	return mws, nil
}

// ── Instance Store ──────────────────────────────────────────

const instanceCols = "id, agent_id, agent_version_id, endpoint_url, transport, last_heartbeat, started_at, stopped_at"

func (s *PostgresStore) CreateInstance(ctx context.Context, inst *models.AgentInstance) error {
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if inst.StartedAt.IsZero() {
		inst.StartedAt = now
	}
	if inst.LastHeartbeat.IsZero() {
		inst.LastHeartbeat = now
	}
	err := pgxscan.Get(ctx, s.pool, inst,
		`INSERT INTO agent_instances
		     (id, agent_id, agent_version_id, endpoint_url, transport, last_heartbeat, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+instanceCols,
		inst.ID, inst.AgentID, inst.AgentVersionID, inst.EndpointURL,
		inst.Transport, inst.LastHeartbeat, inst.StartedAt)
	if err != nil {
		if pgErr, ok := pgCode(err); ok {
			switch pgErr.Code {
			case pgForeignKey:
				if strings.Contains(pgErr.ConstraintName, "version") {
					return &ErrNotFound{Entity: "agent version", Key: inst.AgentVersionID}
				}
				return &ErrNotFound{Entity: "agent", Key: inst.AgentID}
			case pgInvalidText:
				return &ErrNotFound{Entity: "agent", Key: inst.AgentID}
			case pgCheckViolation:
				return &ErrIntegrity{Detail: "invalid transport: " + string(inst.Transport)}
			}
		}
		return &ErrUnavailable{Op: "create instance", Err: err}
	}
	return nil
}

func (s *PostgresStore) GetInstance(ctx context.Context, id string) (*models.AgentInstance, error) {
	var inst models.AgentInstance
	err := pgxscan.Get(ctx, s.pool, &inst,
		"SELECT "+instanceCols+" FROM agent_instances WHERE id = $1", id)
	if err != nil {
		return nil, wrapGet("get instance", "agent instance", id, err)
	}
	return &inst, nil
}

func (s *PostgresStore) UpsertHeartbeat(ctx context.Context, instanceID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE agent_instances SET last_heartbeat = $2 WHERE id = $1", instanceID, at)
	if err != nil {
		if pgErr, ok := pgCode(err); ok && pgErr.Code == pgInvalidText {
			return &ErrNotFound{Entity: "agent instance", Key: instanceID}
		}
		return &ErrUnavailable{Op: "upsert heartbeat", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "agent instance", Key: instanceID}
	}
	return nil
}

func (s *PostgresStore) StopInstance(ctx context.Context, instanceID string, at time.Time) error {
	// COALESCE keeps the first stop timestamp on repeated calls.
	tag, err := s.pool.Exec(ctx,
		"UPDATE agent_instances SET stopped_at = COALESCE(stopped_at, $2) WHERE id = $1",
		instanceID, at)
	if err != nil {
		if pgErr, ok := pgCode(err); ok && pgErr.Code == pgInvalidText {
			return &ErrNotFound{Entity: "agent instance", Key: instanceID}
		}
		return &ErrUnavailable{Op: "stop instance", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "agent instance", Key: instanceID}
	}
	return nil
}

func (s *PostgresStore) ListLiveInstances(ctx context.Context, agentID string, threshold time.Duration) ([]models.AgentInstance, error) {
	// Cutoff computed on the application clock so both store
	// implementations agree on what "now" means.
	cutoff := time.Now().UTC().Add(-threshold)
	var instances []models.AgentInstance
	err := pgxscan.Select(ctx, s.pool, &instances,
		`SELECT `+instanceCols+` FROM agent_instances
		 WHERE agent_id = $1 AND stopped_at IS NULL AND last_heartbeat >= $2
		 ORDER BY last_heartbeat DESC`, agentID, cutoff)
	if err != nil {
		return nil, &ErrUnavailable{Op: "list live instances", Err: err}
	}
	return instances, nil
}

func (s *PostgresStore) ListStaleInstances(ctx context.Context, olderThan time.Time) ([]models.AgentInstance, error) {
	var instances []models.AgentInstance
	err := pgxscan.Select(ctx, s.pool, &instances,
		`SELECT `+instanceCols+` FROM agent_instances
		 WHERE stopped_at IS NULL AND last_heartbeat < $1
		 ORDER BY last_heartbeat`, olderThan)
	if err != nil {
		return nil, &ErrUnavailable{Op: "list stale instances", Err: err}
	}
	return instances, nil
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
