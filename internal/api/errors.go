package api

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError represents a resource not found error with contextual information.
// This standardized error type provides consistent error handling across all
// operations for cases where requested entities don't exist in the store.
//
// The error includes resource type and name for precise error reporting and
// supports custom error messages for specific use cases.
type NotFoundError struct {
	// ResourceType categorizes the type of resource that was not found
	// (e.g., "project", "feature", "task", "dependency")
	ResourceType string

	// ResourceName is the specific identifier of the resource that was not found
	ResourceName string

	// Message provides a custom error message if the default format is insufficient
	Message string
}

// Error implements the error interface for NotFoundError.
// Returns either the custom message if provided, or a formatted default message
// using the resource type and name.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// IsNotFound checks if an error is a NotFoundError using error unwrapping.
// This function provides a type-safe way to check for not found conditions
// in error handling code, supporting wrapped errors.
//
// Example:
//
//	task, err := store.GetTask(ctx, id)
//	if api.IsNotFound(err) {
//	    // Handle not found case
//	}
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// NewNotFoundError creates a new NotFoundError with the specified resource type and name.
// This is the standard way to create not found errors throughout the core.
func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
	}
}

// Specific NotFoundError constructors for each entity kind.
// These provide convenient, type-specific error creation with consistent naming.
var (
	// NewProjectNotFoundError creates a project not found error.
	NewProjectNotFoundError = func(id string) *NotFoundError {
		return NewNotFoundError("project", id)
	}

	// NewFeatureNotFoundError creates a feature not found error.
	NewFeatureNotFoundError = func(id string) *NotFoundError {
		return NewNotFoundError("feature", id)
	}

	// NewTaskNotFoundError creates a task not found error.
	NewTaskNotFoundError = func(id string) *NotFoundError {
		return NewNotFoundError("task", id)
	}

	// NewDependencyNotFoundError creates a dependency not found error.
	NewDependencyNotFoundError = func(id string) *NotFoundError {
		return NewNotFoundError("dependency", id)
	}
)

// ValidationError represents malformed input detected at the tool boundary:
// bad UUIDs, out-of-range limits, unknown enum values, missing required
// fields. It never originates from components deeper than the tool layer.
type ValidationError struct {
	// Field names the offending argument, when known.
	Field string

	// Message describes what is wrong with the input.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

// IsValidation checks if an error is a ValidationError using error unwrapping.
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// NewValidationError creates a new ValidationError for the given field.
func NewValidationError(field, messageFmt string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(messageFmt, args...),
	}
}

// PrerequisiteError represents a status transition rejected by the
// prerequisite validator: bad target status, missing summary, unsatisfied
// children or dependencies, terminal gate. Suggestions carry operator-facing
// guidance when available.
type PrerequisiteError struct {
	// Reason is the human-readable rejection reason.
	Reason string

	// Suggestions lists possible remedies, in no particular order.
	Suggestions []string
}

// Error implements the error interface for PrerequisiteError.
func (e *PrerequisiteError) Error() string {
	return e.Reason
}

// IsPrerequisite checks if an error is a PrerequisiteError using error unwrapping.
func IsPrerequisite(err error) bool {
	var prereqErr *PrerequisiteError
	return errors.As(err, &prereqErr)
}

// NewPrerequisiteError creates a new PrerequisiteError.
func NewPrerequisiteError(reason string, suggestions ...string) *PrerequisiteError {
	return &PrerequisiteError{
		Reason:      reason,
		Suggestions: suggestions,
	}
}

// CycleError represents a dependency creation that would introduce a cycle in
// the blocking graph. Path holds the task ids along the detected cycle, in
// traversal order.
type CycleError struct {
	Path []string
}

// Error implements the error interface for CycleError.
func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return "dependency would create a cycle"
	}
	return fmt.Sprintf("dependency would create a cycle: %s", strings.Join(e.Path, " -> "))
}

// IsCycle checks if an error is a CycleError using error unwrapping.
func IsCycle(err error) bool {
	var cycleErr *CycleError
	return errors.As(err, &cycleErr)
}

// NewCycleError creates a new CycleError with the given cycle path.
func NewCycleError(path []string) *CycleError {
	return &CycleError{Path: path}
}

// HandleError creates an appropriate CallToolResult based on the error type.
// This function provides standardized error response formatting for tool
// operations that fail outside the envelope path.
func HandleError(err error) *CallToolResult {
	return &CallToolResult{
		Content: []interface{}{fmt.Sprintf("Operation failed: %v", err)},
		IsError: true,
	}
}

// HandleErrorWithPrefix creates an appropriate CallToolResult with a custom prefix.
// This function is similar to HandleError but allows customizing the error
// message prefix for more specific error context.
//
// Example:
//
//	if err != nil {
//	    return api.HandleErrorWithPrefix(err, "Failed to create task")
//	}
func HandleErrorWithPrefix(err error, prefix string) *CallToolResult {
	return &CallToolResult{
		Content: []interface{}{fmt.Sprintf("%s: %v", prefix, err)},
		IsError: true,
	}
}
