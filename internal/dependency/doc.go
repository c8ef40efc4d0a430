// Package dependency implements the task dependency graph: cycle prevention
// for new edges and the queries built on top of the graph.
//
// # Edge Semantics
//
// Only BLOCKS and IS_BLOCKED_BY edges carry blocking semantics; RELATES_TO is
// an inert annotation. Each blocking edge has an unblock threshold (queue,
// work, review, or terminal, defaulting to terminal): the edge is satisfied
// once the blocker's workflow role has reached the threshold. A task with at
// least one unsatisfied edge is blocked.
//
// # Cycle Prevention
//
// CheckAcyclic rejects a proposed blocking edge when the task it would block
// already blocks, directly or transitively, the task that would block it.
// The returned error carries the full cycle path for the caller to surface.
// Run it in the same transaction as the insert so concurrent writers cannot
// race a cycle past the check.
//
// # Queries
//
// Service answers the read-side questions: Blocked lists the non-terminal
// tasks with unsatisfied blockers, NewlyUnblocked finds the downstream tasks
// a completion just freed, and Next recommends unblocked queue-role tasks
// ordered by priority, then complexity, then age.
package dependency
