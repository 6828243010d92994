// Package resolver assembles the runtime configuration of an agent.
//
// Resolve answers "what exactly should run when this agent is invoked":
// the active version's model and prompt, the middleware pipeline in
// execution order, and the tool set with catalog data, overrides and
// agent-as-tool synthesis applied. Activation of a version is the one
// write this package performs, delegated to the store's atomic flip.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentrig/agentrig/control-plane/internal/store"
	"github.com/agentrig/agentrig/control-plane/pkg/models"
)

var tracer = otel.Tracer("agentrig-resolver")

// ErrNoActiveVersion reports an agent that exists but has no active
// version to resolve against.
type ErrNoActiveVersion struct {
	Agent string
}

func (e *ErrNoActiveVersion) Error() string {
	return fmt.Sprintf("agent %q has no active version", e.Agent)
}

// ErrActivationConflict reports an activation that kept losing the
// optimistic race against concurrent activations.
type ErrActivationConflict struct {
	VersionID string
	Attempts  int
}

func (e *ErrActivationConflict) Error() string {
	return fmt.Sprintf("activate version %s: still conflicting after %d attempts", e.VersionID, e.Attempts)
}

// ErrUnknownMiddlewareType reports a middleware association whose type is
// missing from the registry or disabled there.
type ErrUnknownMiddlewareType struct {
	Type string
}

func (e *ErrUnknownMiddlewareType) Error() string {
	return fmt.Sprintf("unknown or disabled middleware type %q", e.Type)
}

// LiveFinder discovers running instances of an agent. Nil is valid: agent
// tools then always resolve to a process launch instead of an endpoint.
type LiveFinder interface {
	FindLive(ctx context.Context, agentID string, threshold time.Duration) ([]models.AgentInstance, error)
}

// Options tune resolution behavior. Zero values fall back to defaults.
type Options struct {
	// RunnerCommand is the binary synthesized agent-tool launches invoke.
	RunnerCommand string
	// SourceType and StoreDSN are handed to the launched runner so the
	// nested agent resolves its own configuration from the same store.
	SourceType string
	StoreDSN   string
	// LiveWindow is the heartbeat freshness required to prefer a running
	// instance over launching a process.
	LiveWindow time.Duration
	// ActivationAttempts bounds the optimistic retry loop on activation
	// conflicts. ActivationBackoff is the initial backoff between tries.
	ActivationAttempts int
	ActivationBackoff  time.Duration
}

// Resolver resolves agent configuration against the store.
type Resolver struct {
	store store.Store
	live  LiveFinder
	opts  Options
}

// NewResolver creates a resolver. live may be nil.
func NewResolver(s store.Store, live LiveFinder, opts Options) *Resolver {
	if opts.RunnerCommand == "" {
		opts.RunnerCommand = "agentrig-agent"
	}
	if opts.SourceType == "" {
		opts.SourceType = "postgres"
	}
	if opts.LiveWindow <= 0 {
		opts.LiveWindow = 20 * time.Minute
	}
	if opts.ActivationAttempts <= 0 {
		opts.ActivationAttempts = 3
	}
	if opts.ActivationBackoff <= 0 {
		opts.ActivationBackoff = 50 * time.Millisecond
	}
	return &Resolver{store: s, live: live, opts: opts}
}

// Resolve returns the complete runtime configuration for the named agent:
// active version, resolved tools, ordered middleware pipeline and any
// non-fatal warnings collected on the way. Read-only and safe to call
// concurrently.
func (r *Resolver) Resolve(ctx context.Context, agentName string) (*models.RuntimeConfiguration, error) {
	ctx, span := tracer.Start(ctx, "resolver.Resolve",
		trace.WithAttributes(attribute.String("agent.name", agentName)))
	defer span.End()

	agent, err := r.store.GetAgentByName(ctx, agentName)
	if err != nil {
		return nil, err
	}

	version, err := r.store.GetActiveVersion(ctx, agent.ID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, &ErrNoActiveVersion{Agent: agentName}
		}
		// Multiple active rows or an unreachable store propagate as-is.
		return nil, err
	}

	tools, warnings, err := r.resolveTools(ctx, agent, version)
	if err != nil {
		return nil, err
	}

	middlewares, err := r.resolveMiddlewares(ctx, version.ID)
	if err != nil {
		return nil, err
	}

	cfg := &models.RuntimeConfiguration{
		AgentID:          agent.ID,
		AgentName:        agent.Name,
		AgentVersionID:   version.ID,
		Version:          version.Version,
		ModelName:        version.ModelName,
		ModelTemperature: version.ModelTemperature,
		Prompt:           version.Prompt,
		SchemaVersion:    version.SchemaVersion,
		Tools:            tools,
		Middlewares:      middlewares,
		Warnings:         warnings,
		ResolvedAt:       time.Now().UTC(),
	}

	span.SetAttributes(
		attribute.Int("agent.version", version.Version),
		attribute.Int("agent.tools", len(tools)),
		attribute.Int("agent.middlewares", len(middlewares)),
		attribute.Int("agent.warnings", len(warnings)),
	)
	log.Debug().
		Str("agent", agent.Name).
		Int("version", version.Version).
		Int("tools", len(tools)).
		Int("middlewares", len(middlewares)).
		Int("warnings", len(warnings)).
		Msg("Agent configuration resolved")

	return cfg, nil
}

// Activate makes the given version the single active one for its agent.
// Conflicts with concurrent activations are retried a bounded number of
// times with exponential backoff before surfacing ErrActivationConflict.
func (r *Resolver) Activate(ctx context.Context, versionID string) error {
	ctx, span := tracer.Start(ctx, "resolver.Activate",
		trace.WithAttributes(attribute.String("agent.version_id", versionID)))
	defer span.End()

	backoff := retry.WithMaxRetries(uint64(r.opts.ActivationAttempts), retry.NewExponential(r.opts.ActivationBackoff))
	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := r.store.ActivateVersion(ctx, versionID)
		var conflict *store.ErrConflict
		if errors.As(err, &conflict) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		var conflict *store.ErrConflict
		if errors.As(err, &conflict) {
			return &ErrActivationConflict{VersionID: versionID, Attempts: attempts}
		}
		return err
	}

	log.Info().Str("version_id", versionID).Int("attempts", attempts).Msg("Agent version activated")
	return nil
}
