package tools

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"roster/internal/api"
	"roster/internal/entity"
	"roster/internal/store"
)

// Argument extraction helpers. JSON-RPC hands arguments over as
// map[string]interface{} with float64 numbers and []interface{} arrays;
// in-process callers (tests, the CLI) pass native Go values. The helpers
// accept both and turn every malformed input into an api.ValidationError so
// handlers can map it straight to the envelope.

// requireString extracts a required, non-blank string argument.
func requireString(args map[string]interface{}, name string) (string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return "", api.NewValidationError(name, "%s is required", name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", api.NewValidationError(name, "%s must be a string", name)
	}
	if strings.TrimSpace(s) == "" {
		return "", api.NewValidationError(name, "%s is required", name)
	}
	return s, nil
}

// optionalString extracts an optional string argument. The pointer reports
// presence: nil means absent, a pointer to "" means explicitly empty.
func optionalString(args map[string]interface{}, name string) (*string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, api.NewValidationError(name, "%s must be a string", name)
	}
	return &s, nil
}

// requireID extracts a required UUID argument.
func requireID(args map[string]interface{}, name string) (string, error) {
	s, err := requireString(args, name)
	if err != nil {
		return "", err
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", api.NewValidationError(name, "%s must be a UUID, got %q", name, s)
	}
	return s, nil
}

// optionalID extracts an optional UUID argument; absent and empty both come
// back nil.
func optionalID(args map[string]interface{}, name string) (*string, error) {
	ptr, err := optionalString(args, name)
	if err != nil || ptr == nil {
		return nil, err
	}
	if *ptr == "" {
		return nil, nil
	}
	if _, err := uuid.Parse(*ptr); err != nil {
		return nil, api.NewValidationError(name, "%s must be a UUID, got %q", name, *ptr)
	}
	return ptr, nil
}

// parentArg reads a parent-reference argument with detach semantics:
// absent is (false, nil), an empty string is (true, nil) meaning detach,
// and a UUID is (true, &id).
func parentArg(args map[string]interface{}, name string) (bool, *string, error) {
	ptr, err := optionalString(args, name)
	if err != nil || ptr == nil {
		return false, nil, err
	}
	if strings.TrimSpace(*ptr) == "" {
		return true, nil, nil
	}
	if _, err := uuid.Parse(*ptr); err != nil {
		return false, nil, api.NewValidationError(name, "%s must be a UUID, got %q", name, *ptr)
	}
	id := *ptr
	return true, &id, nil
}

// optionalBool extracts an optional boolean argument; nil means absent.
func optionalBool(args map[string]interface{}, name string) (*bool, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return nil, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return nil, api.NewValidationError(name, "%s must be a boolean", name)
	}
	return &b, nil
}

// boolArg extracts an optional boolean argument with a fallback.
func boolArg(args map[string]interface{}, name string, fallback bool) (bool, error) {
	ptr, err := optionalBool(args, name)
	if err != nil {
		return false, err
	}
	if ptr == nil {
		return fallback, nil
	}
	return *ptr, nil
}

// intArg extracts an optional integer argument. The second return reports
// presence.
func intArg(args map[string]interface{}, name string) (int, bool, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false, api.NewValidationError(name, "%s must be an integer, got %v", name, v)
		}
		return int(v), true, nil
	case int:
		return v, true, nil
	default:
		return 0, false, api.NewValidationError(name, "%s must be a number", name)
	}
}

// stringSlice extracts an optional array-of-strings argument. A present
// array always comes back non-nil, so callers can tell replace-with-empty
// from absent.
func stringSlice(args map[string]interface{}, name string) ([]string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		out := make([]string, 0, len(v))
		return append(out, v...), nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, api.NewValidationError(name, "%s must be an array of strings", name)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, api.NewValidationError(name, "%s must be an array of strings", name)
	}
}

// objectArg extracts an optional object argument; nil means absent.
func objectArg(args map[string]interface{}, name string) (map[string]interface{}, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, api.NewValidationError(name, "%s must be an object", name)
	}
	return obj, nil
}

// objectSlice extracts an optional array-of-objects argument.
func objectSlice(args map[string]interface{}, name string) ([]map[string]interface{}, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []map[string]interface{}:
		return v, nil
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return nil, api.NewValidationError(name, "%s must be an array of objects", name)
			}
			out = append(out, obj)
		}
		return out, nil
	default:
		return nil, api.NewValidationError(name, "%s must be an array of objects", name)
	}
}

// priorityArg parses the priority argument. The bool reports explicit
// presence; absence falls back to MEDIUM.
func priorityArg(args map[string]interface{}) (entity.Priority, bool, error) {
	ptr, err := optionalString(args, "priority")
	if err != nil {
		return "", false, err
	}
	if ptr == nil {
		return entity.PriorityMedium, false, nil
	}
	priority, perr := entity.ParsePriority(*ptr)
	if perr != nil {
		return "", false, api.NewValidationError("priority", "%v", perr)
	}
	return priority, true, nil
}

// complexityArg parses the complexity argument; nil means absent.
func complexityArg(args map[string]interface{}) (*int, error) {
	n, ok, err := intArg(args, "complexity")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if n < 1 || n > 10 {
		return nil, api.NewValidationError("complexity", "complexity must be between 1 and 10, got %d", n)
	}
	return &n, nil
}

// limitArg parses the limit argument: default 1, ceiling 20, zero and
// negative rejected.
func limitArg(args map[string]interface{}) (int, error) {
	n, ok, err := intArg(args, "limit")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}
	if n < 1 || n > 20 {
		return 0, api.NewValidationError("limit", "limit must be between 1 and 20, got %d", n)
	}
	return n, nil
}

// dependencyTypeArg parses the type argument; absent falls back to the
// given default.
func dependencyTypeArg(args map[string]interface{}, fallback entity.DependencyType) (entity.DependencyType, error) {
	ptr, err := optionalString(args, "type")
	if err != nil {
		return "", err
	}
	if ptr == nil || strings.TrimSpace(*ptr) == "" {
		return fallback, nil
	}
	depType, perr := entity.ParseDependencyType(*ptr)
	if perr != nil {
		return "", api.NewValidationError("type", "%v", perr)
	}
	return depType, nil
}

// unblockAtArg parses the unblock_at threshold; nil means the default,
// terminal.
func unblockAtArg(args map[string]interface{}) (*entity.Role, error) {
	ptr, err := optionalString(args, "unblock_at")
	if err != nil {
		return nil, err
	}
	if ptr == nil || strings.TrimSpace(*ptr) == "" {
		return nil, nil
	}
	role, perr := entity.ParseUnblockThreshold(*ptr)
	if perr != nil {
		return nil, api.NewValidationError("unblock_at", "%v", perr)
	}
	return &role, nil
}

// directionArg parses the direction argument; absent defaults to both.
func directionArg(args map[string]interface{}) (store.Direction, error) {
	ptr, err := optionalString(args, "direction")
	if err != nil {
		return "", err
	}
	if ptr == nil || strings.TrimSpace(*ptr) == "" {
		return store.DirectionBoth, nil
	}
	switch strings.ToLower(strings.TrimSpace(*ptr)) {
	case "incoming":
		return store.DirectionIncoming, nil
	case "outgoing":
		return store.DirectionOutgoing, nil
	case "both":
		return store.DirectionBoth, nil
	default:
		return "", api.NewValidationError("direction", "unknown direction %q (expected incoming, outgoing, or both)", *ptr)
	}
}

// containerTypeArg parses the required container_type argument.
func containerTypeArg(args map[string]interface{}) (entity.ContainerType, error) {
	s, err := requireString(args, "container_type")
	if err != nil {
		return "", err
	}
	ct, perr := entity.ParseContainerType(s)
	if perr != nil {
		return "", api.NewValidationError("container_type", "%v", perr)
	}
	return ct, nil
}
