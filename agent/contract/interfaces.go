package contract

import "context"

// Policy is the single capability every specialized agent implements. A
// policy is pure over (turn, context, tool results so far); side effects run
// only through the router-mediated connectors.
type Policy interface {
	Act(ctx context.Context, req AgentRequest) (AgentAction, error)
}

// Registry maps agent kinds to policy instances. The router depends only on
// this lookup, never on concrete agent types.
type Registry interface {
	Policy(kind AgentKind) (Policy, bool)
}

// Guardrail classifies an utterance before any agent sees it. Evaluate must
// not mutate session state; evaluator failure is reported as a rejected
// verdict, never as an admissible one.
type Guardrail interface {
	Evaluate(ctx context.Context, text string, recentTranscript []string) GuardrailVerdict
}

// Knowledge is the read-only product/FAQ lookup connector.
type Knowledge interface {
	Lookup(ctx context.Context, productRef, query string) (text string, found bool, err error)
}

// EscalationEvent is one outbound order/claim notification.
type EscalationEvent struct {
	SessionID string         `json:"session_id"`
	TurnSeq   int            `json:"turn_seq"`
	Kind      EscalationKind `json:"kind"`
	Payload   string         `json:"payload"`
}

// Escalation sends order/claim events to the external notification sink.
type Escalation interface {
	Send(ctx context.Context, event EscalationEvent) (referenceID string, err error)
}
