// Package woterrors provides the structured error taxonomy for the
// kinds of failure that must surface to a caller:
// input-validation and relay-transport/publish failures. Protocol-parse,
// policy-gate and signature failures never become Go errors — they are
// represented in ScoreResult.Breakdown instead (see internal/scoring).
package woterrors

import "fmt"

// Code identifies a class of engine error.
type Code string

const (
	// Input-validation (kind 1): invalid key, unknown type, empty negative
	// content, missing receipt inputs.
	CodeInvalidKey        Code = "VAL_KEY"
	CodeUnknownType       Code = "VAL_TYPE"
	CodeEmptyNegativeBody Code = "VAL_EMPTY_NEGATIVE"
	CodeMissingField      Code = "VAL_MISSING_FIELD"

	// Relay-transport (kind 2): never fatal to aggregation, only to publish
	// when every relay rejects or times out.
	CodeAllRelaysFailed Code = "REL_ALL_FAILED"
	CodeRelayTimeout    Code = "REL_TIMEOUT"
	CodeRelayRejected   Code = "REL_REJECTED"

	// Candidate store (strict transitions).
	CodeInvalidTransition Code = "CAND_INVALID_TRANSITION"
	CodeNotFound          Code = "CAND_NOT_FOUND"
)

// EngineError is a structured error carrying a machine-readable Code.
type EngineError struct {
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause, if any.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a diagnostic key/value and returns the receiver.
func (e *EngineError) WithDetail(key string, value any) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an EngineError with no wrapped cause.
func New(code Code, message string) *EngineError {
	return &EngineError{Code: code, Message: message}
}

// Wrap creates an EngineError that wraps an underlying cause.
func Wrap(code Code, message string, err error) *EngineError {
	return &EngineError{Code: code, Message: message, Err: err}
}

// InvalidKey reports a key that is not 64 hex characters.
func InvalidKey(field, value string) *EngineError {
	return New(CodeInvalidKey, "invalid key").WithDetail("field", field).WithDetail("value", value)
}

// UnknownType reports an attestation type outside the closed set.
func UnknownType(tag string) *EngineError {
	return New(CodeUnknownType, "unrecognised attestation type").WithDetail("type", tag)
}

// EmptyNegativeBody reports a negative attestation with empty/whitespace content.
func EmptyNegativeBody(id string) *EngineError {
	return New(CodeEmptyNegativeBody, "negative attestation requires non-empty content").WithDetail("id", id)
}

// MissingField reports a required field absent from a publish/receipt input.
func MissingField(field string) *EngineError {
	return New(CodeMissingField, "missing required field").WithDetail("field", field)
}

// AllRelaysFailed reports that a publish was rejected or timed out at every relay.
func AllRelaysFailed(eventID string) *EngineError {
	return New(CodeAllRelaysFailed, "publish failed at every relay").WithDetail("event_id", eventID)
}

// InvalidTransition reports an illegal candidate state-machine transition.
func InvalidTransition(id, from, to string) *EngineError {
	return New(CodeInvalidTransition, "not applicable").
		WithDetail("id", id).WithDetail("from", from).WithDetail("to", to)
}

// NotFound reports a candidate id with no matching record.
func NotFound(id string) *EngineError {
	return New(CodeNotFound, "candidate not found").WithDetail("id", id)
}
