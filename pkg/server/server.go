// Package server provides the public entry point for initializing the
// AgentRig control plane server.
//
// This package exists in pkg/ (not internal/) so alternative frontends
// and embedding tools can import it and compose the full server.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/agentrig/agentrig/control-plane/internal/api"
	"github.com/agentrig/agentrig/control-plane/internal/api/handlers"
	"github.com/agentrig/agentrig/control-plane/internal/catalog"
	"github.com/agentrig/agentrig/control-plane/internal/config"
	"github.com/agentrig/agentrig/control-plane/internal/registry"
	"github.com/agentrig/agentrig/control-plane/internal/resolver"
	"github.com/agentrig/agentrig/control-plane/internal/store"
	"github.com/agentrig/agentrig/control-plane/internal/telemetry"
	"github.com/agentrig/agentrig/control-plane/pkg/models"

	"github.com/rs/zerolog/log"
)

// Server holds the initialized AgentRig control plane.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the backing data store (memory or PostgreSQL).
	Store store.Store

	// Resolver assembles runtime configurations.
	Resolver *resolver.Resolver

	// Registry tracks running agent instances.
	Registry *registry.Registry

	// Catalog caches resolved configurations.
	Catalog *catalog.Cache

	// Reaper sweeps stale instances; run it with `go srv.Reaper.Start(ctx)`.
	Reaper *registry.Reaper

	// Config is the loaded configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes the control plane from environment configuration.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the control plane with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	dataStore, err := newStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	reg := registry.New(dataStore, registry.Options{
		Hostname: cfg.Registry.Hostname,
		Port:     cfg.Registry.Port,
	})

	res := resolver.NewResolver(dataStore, reg, resolver.Options{
		RunnerCommand:      cfg.Resolver.RunnerCommand,
		SourceType:         cfg.Resolver.SourceType,
		StoreDSN:           cfg.Store.PostgresDSN,
		LiveWindow:         cfg.Resolver.LiveWindow,
		ActivationAttempts: cfg.Resolver.ActivationAttempts,
		ActivationBackoff:  cfg.Resolver.ActivationBackoff,
	})

	cache := catalog.NewCache(res, cfg.Catalog.TTL)

	seedDemo(ctx, dataStore, res)

	h := handlers.New(dataStore, res, cache, reg, cfg.Resolver.LiveWindow)
	router := api.NewRouter(cfg, h)

	reaper := registry.NewReaper(dataStore, cfg.Registry.ReapInterval, cfg.Registry.StaleAfter)

	return &Server{
		Handler:      router,
		Store:        dataStore,
		Resolver:     res,
		Registry:     reg,
		Catalog:      cache,
		Reaper:       reaper,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

// newStore picks the backing store from configuration.
func newStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return s, nil
	case "", "memory":
		s := store.NewMemoryStore(cfg.SnapshotPath)
		log.Info().Str("snapshot_path", cfg.SnapshotPath).Msg("In-memory store initialized")
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// seedDemo populates an empty store with a resolvable example: one agent
// with an active version, a sample stdio MCP server, and the built-in
// middleware type. A fresh binary then serves a working configuration
// immediately.
func seedDemo(ctx context.Context, s store.Store, res *resolver.Resolver) {
	agents, err := s.ListAgents(ctx)
	if err != nil || len(agents) > 0 {
		return
	}

	mt := &models.MiddlewareType{
		Type:        "summarization",
		Description: "Summarizes long conversation history to fit the context window",
		Enabled:     true,
	}
	if err := s.CreateMiddlewareType(ctx, mt); err != nil {
		log.Warn().Err(err).Msg("Failed to seed middleware type")
	}

	srv := &models.MCPServer{
		Name:        "filesystem",
		Description: "Read and write files under an allowed root",
		Transport:   models.TransportStdio,
		Command:     "npx",
		Args:        []string{"-y", "@modelcontextprotocol/server-filesystem"},
		Enabled:     true,
	}
	if err := s.CreateMCPServer(ctx, srv); err != nil {
		log.Warn().Err(err).Msg("Failed to seed MCP server")
	}

	agent := &models.Agent{
		Name:        "demo-agent",
		Description: "Seeded example agent",
	}
	if err := s.CreateAgent(ctx, agent); err != nil {
		log.Warn().Err(err).Msg("Failed to seed demo agent")
		return
	}
	version := &models.AgentVersion{
		AgentID:          agent.ID,
		ModelName:        "gpt-4",
		ModelTemperature: 0.7,
		Prompt:           "Summarize the provided content in three bullet points.",
	}
	if err := s.CreateVersion(ctx, version); err != nil {
		log.Warn().Err(err).Msg("Failed to seed demo version")
		return
	}
	if err := res.Activate(ctx, version.ID); err != nil {
		log.Warn().Err(err).Msg("Failed to activate demo version")
		return
	}

	log.Info().Str("agent", agent.Name).Msg("Demo agent seeded")
}
