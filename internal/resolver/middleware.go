package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/agentrig/agentrig/control-plane/internal/store"
	"github.com/agentrig/agentrig/control-plane/pkg/models"
)

// resolveMiddlewares returns a version's enabled middlewares sorted
// ascending by execution order. A type missing from the registry or
// disabled there fails the resolution; so does a duplicate order value,
// which the store constraint should have made impossible.
func (r *Resolver) resolveMiddlewares(ctx context.Context, versionID string) ([]models.ResolvedMiddleware, error) {
	assocs, err := r.store.GetVersionMiddlewares(ctx, versionID)
	if err != nil {
		return nil, err
	}

	resolved := make([]models.ResolvedMiddleware, 0, len(assocs))
	seen := make(map[int]bool, len(assocs))

	for _, assoc := range assocs {
		if seen[assoc.ExecutionOrder] {
			return nil, &store.ErrIntegrity{
				Detail: fmt.Sprintf("duplicate middleware execution order %d in version %s", assoc.ExecutionOrder, versionID),
			}
		}
		seen[assoc.ExecutionOrder] = true

		if !assoc.Enabled {
			continue
		}

		mt, err := r.store.GetMiddlewareType(ctx, assoc.MiddlewareType)
		if err != nil {
			if store.IsNotFound(err) {
				return nil, &ErrUnknownMiddlewareType{Type: assoc.MiddlewareType}
			}
			return nil, err
		}
		if !mt.Enabled {
			return nil, &ErrUnknownMiddlewareType{Type: assoc.MiddlewareType}
		}

		resolved = append(resolved, models.ResolvedMiddleware{
			Type:           assoc.MiddlewareType,
			Config:         assoc.Config,
			ExecutionOrder: assoc.ExecutionOrder,
		})
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].ExecutionOrder < resolved[j].ExecutionOrder
	})
	return resolved, nil
}
