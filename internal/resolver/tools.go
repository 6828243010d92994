package resolver

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/agentrig/agentrig/control-plane/internal/store"
	"github.com/agentrig/agentrig/control-plane/pkg/models"
)

// resolveTools resolves the enabled tool associations of one version into
// launchable tool descriptions. Tools referencing missing or globally
// disabled catalog entries are dropped with a warning, never an error.
func (r *Resolver) resolveTools(ctx context.Context, agent *models.Agent, version *models.AgentVersion) ([]models.ResolvedTool, []models.ResolutionWarning, error) {
	assocs, err := r.store.GetVersionTools(ctx, version.ID)
	if err != nil {
		return nil, nil, err
	}

	resolved := make([]models.ResolvedTool, 0, len(assocs))
	var warnings []models.ResolutionWarning

	for _, assoc := range assocs {
		if !assoc.Enabled {
			continue
		}

		entry, err := r.store.GetToolCatalogEntry(ctx, assoc.ToolKind, assoc.ToolID)
		if err != nil {
			if store.IsNotFound(err) {
				warnings = append(warnings, models.ResolutionWarning{
					Code:     models.WarnToolMissing,
					ToolKind: assoc.ToolKind,
					ToolID:   assoc.ToolID,
					Message:  "referenced tool no longer exists in the catalog",
				})
				log.Warn().
					Str("agent", agent.Name).
					Str("tool_kind", string(assoc.ToolKind)).
					Str("tool_id", assoc.ToolID).
					Msg("Tool dropped: missing from catalog")
				continue
			}
			return nil, nil, err
		}
		if !entry.Enabled {
			warnings = append(warnings, models.ResolutionWarning{
				Code:     models.WarnToolDisabled,
				ToolKind: assoc.ToolKind,
				ToolID:   assoc.ToolID,
				Message:  "tool " + entry.Name + " is disabled in the catalog",
			})
			log.Warn().
				Str("agent", agent.Name).
				Str("tool", entry.Name).
				Msg("Tool dropped: disabled in catalog")
			continue
		}

		tool := models.ResolvedTool{
			Kind:        assoc.ToolKind,
			ToolID:      entry.ID,
			Name:        entry.Name,
			Description: entry.Description,
			Priority:    assoc.Priority,
		}

		switch assoc.ToolKind {
		case models.ToolKindMCPServer:
			applyServerBase(&tool, entry)
		case models.ToolKindAgent:
			if err := r.checkToolCycle(ctx, []string{agent.Name}, entry.ID, entry.Name); err != nil {
				return nil, nil, err
			}
			r.resolveAgentTool(ctx, &tool, entry)
		}

		applyOverride(&tool, assoc.Override)
		resolved = append(resolved, tool)
	}

	sortByPriority(resolved)
	return resolved, warnings, nil
}

// applyServerBase copies the catalog record of a protocol server onto the
// resolved tool.
func applyServerBase(tool *models.ResolvedTool, entry *models.ToolCatalogEntry) {
	if entry.Transport != nil {
		tool.Transport = *entry.Transport
	}
	if entry.Command != nil {
		tool.Command = *entry.Command
	}
	tool.Args = append([]string(nil), entry.Args...)
	tool.Env = cloneEnv(entry.Env)
}

// resolveAgentTool fills in how to reach a nested agent: a live instance's
// endpoint when one is fresh enough, otherwise a synthesized process
// launch through the runner binary.
func (r *Resolver) resolveAgentTool(ctx context.Context, tool *models.ResolvedTool, entry *models.ToolCatalogEntry) {
	if endpoint := r.liveEndpoint(ctx, entry.ID); endpoint != "" {
		tool.Transport = models.TransportHTTP
		tool.Endpoint = endpoint
		return
	}
	tool.Transport = models.TransportStdio
	tool.Command = r.opts.RunnerCommand
	tool.Args = []string{
		"--source-type", r.opts.SourceType,
		"--store-dsn", r.opts.StoreDSN,
		"--agent-name", entry.Name,
	}
}

// liveEndpoint returns the freshest live instance endpoint of an agent,
// or "" when there is none or no finder is wired. Registry failures fall
// back to process synthesis rather than failing the resolution.
func (r *Resolver) liveEndpoint(ctx context.Context, agentID string) string {
	if r.live == nil {
		return ""
	}
	instances, err := r.live.FindLive(ctx, agentID, r.opts.LiveWindow)
	if err != nil {
		log.Warn().Err(err).Str("agent_id", agentID).Msg("Live instance lookup failed, falling back to process launch")
		return ""
	}
	if len(instances) == 0 {
		return ""
	}
	return instances[0].EndpointURL
}

// applyOverride merges a sparse override onto a resolved tool. Transport
// and command replace only when set; args and env replace wholesale,
// never element-wise.
func applyOverride(tool *models.ResolvedTool, o *models.ToolOverride) {
	if o == nil {
		return
	}
	if o.Transport != nil {
		tool.Transport = *o.Transport
	}
	if o.Command != nil {
		tool.Command = *o.Command
	}
	if o.Args != nil {
		tool.Args = append([]string(nil), o.Args...)
	}
	if o.Env != nil {
		tool.Env = cloneEnv(o.Env)
	}
}

// checkToolCycle walks agent-kind tool references depth-first and fails
// when a path returns to an agent already on it. Branches without an
// active version cannot recurse and are not cycles.
func (r *Resolver) checkToolCycle(ctx context.Context, path []string, agentID, agentName string) error {
	for _, seen := range path {
		if seen == agentName {
			return &store.ErrIntegrity{Detail: "agent tool cycle: " + strings.Join(append(path, agentName), " -> ")}
		}
	}

	version, err := r.store.GetActiveVersion(ctx, agentID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return err
	}
	assocs, err := r.store.GetVersionTools(ctx, version.ID)
	if err != nil {
		return err
	}

	path = append(path, agentName)
	for _, assoc := range assocs {
		if !assoc.Enabled || assoc.ToolKind != models.ToolKindAgent {
			continue
		}
		child, err := r.store.GetAgent(ctx, assoc.ToolID)
		if err != nil {
			if store.IsNotFound(err) {
				continue
			}
			return err
		}
		if err := r.checkToolCycle(ctx, path, child.ID, child.Name); err != nil {
			return err
		}
	}
	return nil
}

// sortByPriority orders tools ascending by priority with nulls last.
// The sort is stable so equal priorities keep insertion order.
func sortByPriority(tools []models.ResolvedTool) {
	sort.SliceStable(tools, func(i, j int) bool {
		pi, pj := tools[i].Priority, tools[j].Priority
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return *pi < *pj
		}
	})
}

func cloneEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}
