package contract

import (
	"strings"
	"time"
)

type AgentKind string

const (
	AgentTriage      AgentKind = "triage"
	AgentProductInfo AgentKind = "product_info"
	AgentOrder       AgentKind = "order"
	AgentTrouble     AgentKind = "trouble"
)

// KnownAgentKind reports whether k is one of the agent kinds the router can
// dispatch to. Anything else in a handoff target is a programming error.
func KnownAgentKind(k AgentKind) bool {
	switch k {
	case AgentTriage, AgentProductInfo, AgentOrder, AgentTrouble:
		return true
	}
	return false
}

type ChannelKind string

const (
	ChannelVoice ChannelKind = "voice"
	ChannelText  ChannelKind = "text"
)

type ToolKind string

const (
	ToolKnowledge  ToolKind = "knowledge"
	ToolEscalation ToolKind = "escalation"

	// ToolGuardrail is not a connector; it tags the audit entry recorded
	// for a guardrail rejection.
	ToolGuardrail ToolKind = "guardrail"
)

type EscalationKind string

const (
	EscalationOrder EscalationKind = "order"
	EscalationClaim EscalationKind = "claim"
)

// Turn is one customer utterance. Seq is assigned by the router on first
// append; a caller-supplied Seq that is already in the transcript marks a
// replay of that turn.
type Turn struct {
	Seq       int         `json:"seq"`
	Text      string      `json:"text"`
	Channel   ChannelKind `json:"channel"`
	Timestamp time.Time   `json:"timestamp"`
}

// CustomerContext holds the customer-identifying facts collected so far.
// All fields are optional and filled incrementally; see Merge.
type CustomerContext struct {
	CustomerName string `json:"customer_name,omitempty"`
	ProductRef   string `json:"product_ref,omitempty"`
	OrderRef     string `json:"order_ref,omitempty"`
	QuestionType string `json:"question_type,omitempty"`
}

// Merge folds patch into c. Updates are merges, not replacements: an unset
// field in patch never erases a previously set field.
func (c *CustomerContext) Merge(patch CustomerContext) {
	if v := strings.TrimSpace(patch.CustomerName); v != "" {
		c.CustomerName = v
	}
	if v := strings.TrimSpace(patch.ProductRef); v != "" {
		c.ProductRef = v
	}
	if v := strings.TrimSpace(patch.OrderRef); v != "" {
		c.OrderRef = v
	}
	if v := strings.TrimSpace(patch.QuestionType); v != "" {
		c.QuestionType = v
	}
}

func (c CustomerContext) IsZero() bool {
	return c.CustomerName == "" && c.ProductRef == "" && c.OrderRef == "" && c.QuestionType == ""
}

// HandoffRequest transfers conversation ownership to another agent kind.
// Context carries the full current customer context snapshot plus whatever
// the handing-off agent learned this turn.
type HandoffRequest struct {
	Target  AgentKind       `json:"target"`
	Reason  string          `json:"reason"`
	Context CustomerContext `json:"context"`
}

type GuardrailVerdict struct {
	Admissible bool   `json:"admissible"`
	Reason     string `json:"reason,omitempty"`
}

func Admissible() GuardrailVerdict {
	return GuardrailVerdict{Admissible: true}
}

func Rejected(reason string) GuardrailVerdict {
	return GuardrailVerdict{Admissible: false, Reason: reason}
}

// ToolRequest is an agent's ask for a single connector invocation.
type ToolRequest struct {
	Kind       ToolKind       `json:"kind"`
	Escalation EscalationKind `json:"escalation,omitempty"`
	ProductRef string         `json:"product_ref,omitempty"`
	Query      string         `json:"query,omitempty"`
	Payload    string         `json:"payload,omitempty"`
}

// ToolResult is what the router feeds back into the same agent invocation.
type ToolResult struct {
	Kind        ToolKind       `json:"kind"`
	Escalation  EscalationKind `json:"escalation,omitempty"`
	Found       bool           `json:"found,omitempty"`
	Text        string         `json:"text,omitempty"`
	ReferenceID string         `json:"reference_id,omitempty"`
	Error       string         `json:"error,omitempty"`
}

func (r ToolResult) Failed() bool { return r.Error != "" }

func (r ToolResult) TimedOut() bool { return r.Error == ReasonTimeout }

// ToolCallRecord is the transcript audit entry for one connector invocation
// (or guardrail rejection). Immutable once appended.
type ToolCallRecord struct {
	TurnSeq   int         `json:"turn_seq"`
	Kind      ToolKind    `json:"kind"`
	Request   ToolRequest `json:"request"`
	Result    ToolResult  `json:"result"`
	Timestamp time.Time   `json:"timestamp"`
	Audit     string      `json:"audit,omitempty"`
}

// AgentAction is the tagged result of one policy invocation: exactly one of
// respond / tool call / handoff. ContextPatch may accompany any of them.
type AgentAction struct {
	Message      string          `json:"message,omitempty"`
	Tool         *ToolRequest    `json:"tool,omitempty"`
	Handoff      *HandoffRequest `json:"handoff,omitempty"`
	ContextPatch CustomerContext `json:"context_patch,omitempty"`
}

func Respond(message string) AgentAction {
	return AgentAction{Message: message}
}

func CallTool(req ToolRequest) AgentAction {
	return AgentAction{Tool: &req}
}

func RequestHandoff(target AgentKind, reason string, snapshot CustomerContext) AgentAction {
	return AgentAction{Handoff: &HandoffRequest{Target: target, Reason: reason, Context: snapshot}}
}

// AgentRequest is the input to one policy invocation. ToolResults is empty on
// the first pass and carries the single connector outcome on re-entry.
type AgentRequest struct {
	Turn        Turn            `json:"turn"`
	Context     CustomerContext `json:"context"`
	ToolResults []ToolResult    `json:"tool_results,omitempty"`
}

// OutboundMessage is what the channel adapter renders back to the customer.
type OutboundMessage struct {
	SessionID   string    `json:"session_id"`
	DisplayText string    `json:"display_text"`
	Owner       AgentKind `json:"session_owner"`
	Closed      bool      `json:"closed"`
}
