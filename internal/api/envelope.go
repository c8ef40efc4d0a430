package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Stable error codes surfaced in the response envelope. Clients match on
// these strings, so they never change.
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeResourceNotFound   = "RESOURCE_NOT_FOUND"
	CodePrerequisiteNotMet = "PREREQUISITE_NOT_MET"
	CodeCycleDetected      = "CYCLE_DETECTED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// Envelope is the uniform response shape every tool returns, serialized as
// the tool result's text content.
type Envelope struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Data     interface{}    `json:"data"`
	Error    *EnvelopeError `json:"error"`
	Metadata EnvelopeMeta   `json:"metadata"`
}

// EnvelopeError carries a stable code plus the human-readable details.
type EnvelopeError struct {
	Code    string      `json:"code"`
	Details interface{} `json:"details"`
}

// EnvelopeMeta stamps every response with the server time and version.
type EnvelopeMeta struct {
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// envelopeVersion is injected once at startup from the build version.
var envelopeVersion = "dev"

// SetEnvelopeVersion sets the version reported in response metadata.
// Called from the application bootstrap at startup.
func SetEnvelopeVersion(v string) {
	if v != "" {
		envelopeVersion = v
	}
}

func newMeta() EnvelopeMeta {
	return EnvelopeMeta{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   envelopeVersion,
	}
}

// NewSuccessEnvelope builds a success envelope around the given payload.
func NewSuccessEnvelope(message string, data interface{}) *Envelope {
	return &Envelope{
		Success:  true,
		Message:  message,
		Data:     data,
		Metadata: newMeta(),
	}
}

// NewErrorEnvelope builds a failure envelope with a stable code and details.
func NewErrorEnvelope(code, message string, details interface{}) *Envelope {
	if details == nil {
		details = message
	}
	return &Envelope{
		Success:  false,
		Message:  message,
		Error:    &EnvelopeError{Code: code, Details: details},
		Metadata: newMeta(),
	}
}

// EnvelopeFromError maps a typed error to a failure envelope. The mapping is
// the single place error kinds become wire codes:
//
//	ValidationError   -> VALIDATION_ERROR
//	NotFoundError     -> RESOURCE_NOT_FOUND
//	PrerequisiteError -> PREREQUISITE_NOT_MET
//	CycleError        -> CYCLE_DETECTED
//	anything else     -> INTERNAL_ERROR
func EnvelopeFromError(err error) *Envelope {
	switch {
	case IsValidation(err):
		return NewErrorEnvelope(CodeValidationError, err.Error(), nil)
	case IsNotFound(err):
		return NewErrorEnvelope(CodeResourceNotFound, err.Error(), nil)
	case IsPrerequisite(err):
		var prereq *PrerequisiteError
		errors.As(err, &prereq)
		details := map[string]interface{}{"reason": prereq.Reason}
		if len(prereq.Suggestions) > 0 {
			details["suggestions"] = prereq.Suggestions
		}
		return NewErrorEnvelope(CodePrerequisiteNotMet, prereq.Reason, details)
	case IsCycle(err):
		var cycle *CycleError
		errors.As(err, &cycle)
		details := map[string]interface{}{"cycle": cycle.Path}
		return NewErrorEnvelope(CodeCycleDetected, cycle.Error(), details)
	default:
		return NewErrorEnvelope(CodeInternalError, err.Error(), nil)
	}
}

// ToCallToolResult serializes the envelope as JSON text content. IsError is
// set for failure envelopes so MCP clients surface them as tool errors.
func (e *Envelope) ToCallToolResult() *CallToolResult {
	payload, err := json.Marshal(e)
	if err != nil {
		return &CallToolResult{
			Content: []interface{}{fmt.Sprintf("failed to serialize response: %v", err)},
			IsError: true,
		}
	}
	return &CallToolResult{
		Content: []interface{}{string(payload)},
		IsError: !e.Success,
	}
}
