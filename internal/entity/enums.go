package entity

import (
	"fmt"
	"strings"
)

// ContainerType identifies which kind of container an operation addresses.
type ContainerType string

const (
	ContainerProject ContainerType = "project"
	ContainerFeature ContainerType = "feature"
	ContainerTask    ContainerType = "task"
)

// ParseContainerType normalizes a user-supplied container type.
func ParseContainerType(s string) (ContainerType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "project", "projects":
		return ContainerProject, nil
	case "feature", "features":
		return ContainerFeature, nil
	case "task", "tasks":
		return ContainerTask, nil
	default:
		return "", fmt.Errorf("unknown container type %q (expected project, feature, or task)", s)
	}
}

// Priority orders work within the recommendation queue.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Rank returns the sort rank of the priority: HIGH=0, MEDIUM=1, LOW=2.
// Unknown values rank as MEDIUM.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// ParsePriority normalizes a user-supplied priority. Empty input defaults to
// MEDIUM.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return PriorityMedium, nil
	case "HIGH":
		return PriorityHigh, nil
	case "MEDIUM":
		return PriorityMedium, nil
	case "LOW":
		return PriorityLow, nil
	default:
		return "", fmt.Errorf("unknown priority %q (expected HIGH, MEDIUM, or LOW)", s)
	}
}

// DependencyType classifies a dependency edge.
type DependencyType string

const (
	// DependencyBlocks means the edge's from-task blocks its to-task.
	DependencyBlocks DependencyType = "BLOCKS"
	// DependencyIsBlockedBy is the inverse: the from-task is blocked by the
	// to-task.
	DependencyIsBlockedBy DependencyType = "IS_BLOCKED_BY"
	// DependencyRelatesTo is informational and never blocks.
	DependencyRelatesTo DependencyType = "RELATES_TO"
)

// Blocking reports whether edges of this type participate in blocking,
// cascade, and readiness calculations.
func (t DependencyType) Blocking() bool {
	return t == DependencyBlocks || t == DependencyIsBlockedBy
}

// ParseDependencyType normalizes a user-supplied dependency type.
func ParseDependencyType(s string) (DependencyType, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	switch normalized {
	case "BLOCKS":
		return DependencyBlocks, nil
	case "IS_BLOCKED_BY", "BLOCKED_BY":
		return DependencyIsBlockedBy, nil
	case "RELATES_TO", "RELATED_TO":
		return DependencyRelatesTo, nil
	default:
		return "", fmt.Errorf("unknown dependency type %q (expected BLOCKS, IS_BLOCKED_BY, or RELATES_TO)", s)
	}
}

// Role is the coarse-grained bucket a status maps into. Cascade conditions
// and unblock thresholds compare roles, not raw status strings.
type Role string

const (
	RoleQueue    Role = "queue"
	RoleWork     Role = "work"
	RoleReview   Role = "review"
	RoleBlocked  Role = "blocked"
	RoleTerminal Role = "terminal"
)

// Rank returns the progression rank: queue(0) < work(1) < review(2) <
// terminal(3). Blocked is orthogonal to progression and ranks 0 when a
// comparison is forced.
func (r Role) Rank() int {
	switch r {
	case RoleWork:
		return 1
	case RoleReview:
		return 2
	case RoleTerminal:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether r has reached the given threshold role.
func (r Role) AtLeast(threshold Role) bool {
	return r.Rank() >= threshold.Rank()
}

// ParseRole normalizes a user-supplied role name.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "queue":
		return RoleQueue, nil
	case "work":
		return RoleWork, nil
	case "review":
		return RoleReview, nil
	case "blocked":
		return RoleBlocked, nil
	case "terminal":
		return RoleTerminal, nil
	default:
		return "", fmt.Errorf("unknown role %q (expected queue, work, review, blocked, or terminal)", s)
	}
}

// ParseUnblockThreshold parses an unblockAt value. Thresholds are the
// progression roles only; blocked is not a valid threshold.
func ParseUnblockThreshold(s string) (Role, error) {
	role, err := ParseRole(s)
	if err != nil {
		return "", fmt.Errorf("unknown unblockAt threshold %q (expected queue, work, review, or terminal)", s)
	}
	if role == RoleBlocked {
		return "", fmt.Errorf("unblockAt threshold cannot be %q", s)
	}
	return role, nil
}
