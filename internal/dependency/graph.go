package dependency

import (
	"context"

	"roster/internal/api"
	"roster/internal/entity"
	"roster/internal/store"
)

// CheckAcyclic verifies that creating the proposed edge keeps the blocking
// graph acyclic. RELATES_TO edges never block and always pass.
//
// The walk starts at the task the proposed edge would block and follows
// existing blocking edges in their "this blocks that" direction. Reaching the
// proposed blocker means the new edge would close a cycle; the returned
// CycleError carries the full cycle path, blocker first.
func CheckAcyclic(ctx context.Context, st store.Store, proposed *entity.Dependency) error {
	if !proposed.Type.Blocking() {
		return nil
	}

	blocker, blocked := blockingEndpoints(proposed)
	if blocker == blocked {
		return api.NewCycleError([]string{blocker, blocked})
	}

	visited := map[string]bool{}
	path, err := walkBlocks(ctx, st, blocked, blocker, visited)
	if err != nil {
		return err
	}
	if path != nil {
		return api.NewCycleError(append([]string{blocker}, path...))
	}
	return nil
}

// blockingEndpoints reduces an edge to its canonical (blocker, blocked) pair.
func blockingEndpoints(edge *entity.Dependency) (blocker, blocked string) {
	if edge.Type == entity.DependencyIsBlockedBy {
		return edge.ToItemID, edge.FromItemID
	}
	return edge.FromItemID, edge.ToItemID
}

// walkBlocks depth-first searches the tasks that current transitively blocks.
// When target is reachable it returns the path from current to target
// inclusive; otherwise nil.
func walkBlocks(ctx context.Context, st store.Store, current, target string, visited map[string]bool) ([]string, error) {
	if current == target {
		return []string{current}, nil
	}
	if visited[current] {
		return nil, nil
	}
	visited[current] = true

	edges, err := st.FindBlockingEdges(ctx, current, store.DirectionBoth)
	if err != nil {
		return nil, err
	}
	for _, edge := range edges {
		next, ok := edge.BlockedByTask(current)
		if !ok {
			continue
		}
		path, err := walkBlocks(ctx, st, next, target, visited)
		if err != nil {
			return nil, err
		}
		if path != nil {
			return append([]string{current}, path...), nil
		}
	}
	return nil, nil
}
