package contract

import "errors"

var (
	ErrSessionClosed   = errors.New("session is closed")
	ErrInvalidHandoff  = errors.New("invalid handoff target")
	ErrToolCall        = errors.New("tool call failed")
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")
)

// Reason codes surfaced in verdicts, tool results, and audit records.
const (
	ReasonTimeout              = "timeout"
	ReasonGuardrailUnavailable = "guardrail_unavailable"
	ReasonSessionClosed        = "session_closed"
)
