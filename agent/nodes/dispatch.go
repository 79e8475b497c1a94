package turnnode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanakach/callcenter/agent/contract"
)

// Budget per turn: one connector call re-entry and one handoff re-dispatch.
// Anything beyond degrades to a plain response so every turn terminates.
const (
	maxToolCallsPerTurn = 1
	maxHandoffsPerTurn  = 1
)

// Dispatcher runs the owning agent's policy and mediates its effects: tool
// calls go through the connectors with dedup and a bounded timeout, handoffs
// move ownership and re-dispatch the same turn.
type Dispatcher struct {
	Registry    contractx.Registry
	Knowledge   contractx.Knowledge
	Escalation  contractx.Escalation
	ToolTimeout time.Duration
}

func (d *Dispatcher) Run(ctx context.Context, st *TurnState) (*TurnState, error) {
	if st == nil || st.Session == nil {
		return nil, fmt.Errorf("%w: turn state is incomplete", contractx.ErrValidation)
	}
	if st.Done {
		return st, nil
	}

	session := st.Session
	req := contractx.AgentRequest{
		Turn:    st.Turn,
		Context: session.Context,
	}

	toolCalls := 0
	handoffs := 0
	forced := false

	for {
		policy, ok := d.Registry.Policy(session.Owner)
		if !ok {
			return nil, fmt.Errorf("%w: owner=%s", ErrUnknownPolicy, session.Owner)
		}

		action, err := policy.Act(ctx, req)
		if err != nil {
			log.Error().Err(err).
				Str("session_id", st.SessionID).
				Str("owner", string(session.Owner)).
				Msg("agent policy failed, degrading to fixed response")
			st.Reply = DegradedReply
			return st, nil
		}

		session.Context.Merge(action.ContextPatch)
		req.Context = session.Context

		switch {
		case action.Handoff != nil:
			h := *action.Handoff
			if forced || handoffs >= maxHandoffsPerTurn || h.Target == session.Owner ||
				!contractx.KnownAgentKind(h.Target) || !d.hasPolicy(h.Target) {
				// Invalid handoff is absorbed: respond with the current
				// agent instead of propagating or looping.
				log.Error().
					Str("session_id", st.SessionID).
					Str("owner", string(session.Owner)).
					Str("target", string(h.Target)).
					Int("handoffs", handoffs).
					Msg("invalid handoff, responding with current agent")
				session.Context.Merge(h.Context)
				req.Context = session.Context
				if forced {
					st.Reply = DegradedReply
					return st, nil
				}
				forced = true
				continue
			}

			handoffs++
			session.Context.Merge(h.Context)
			if err := session.SetOwner(h.Target, st.Now); err != nil {
				return nil, err
			}
			req.Context = session.Context
			log.Info().
				Str("session_id", st.SessionID).
				Str("target", string(h.Target)).
				Str("reason", h.Reason).
				Msg("conversation handed off")
			continue

		case action.Tool != nil:
			if toolCalls >= maxToolCallsPerTurn {
				log.Error().
					Str("session_id", st.SessionID).
					Str("owner", string(session.Owner)).
					Msg("tool call budget exceeded, degrading to fixed response")
				st.Reply = DegradedReply
				return st, nil
			}
			toolCalls++

			result := d.invokeTool(ctx, st, *action.Tool)
			req.ToolResults = append(req.ToolResults, result)
			continue

		default:
			reply := strings.TrimSpace(action.Message)
			if reply == "" {
				log.Error().
					Str("session_id", st.SessionID).
					Str("owner", string(session.Owner)).
					Msg("agent returned empty message, degrading to fixed response")
				reply = DegradedReply
			}
			st.Reply = reply
			return st, nil
		}
	}
}

func (d *Dispatcher) hasPolicy(kind contractx.AgentKind) bool {
	_, ok := d.Registry.Policy(kind)
	return ok
}

// invokeTool mediates one connector call. The (session, turnSeq, toolKind)
// dedup check runs before the connector so a replayed turn never produces a
// second external side effect. Connector failures and timeouts come back as
// results for the agent to interpret, never as pipeline errors.
func (d *Dispatcher) invokeTool(ctx context.Context, st *TurnState, tool contractx.ToolRequest) contractx.ToolResult {
	session := st.Session

	if rec, ok := session.FindToolCall(st.Turn.Seq, tool.Kind); ok {
		log.Info().
			Str("session_id", st.SessionID).
			Int("turn_seq", st.Turn.Seq).
			Str("tool", string(tool.Kind)).
			Msg("tool call deduplicated, reusing recorded outcome")
		return rec.Result
	}

	timeout := d.ToolTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var result contractx.ToolResult
	switch tool.Kind {
	case contractx.ToolKnowledge:
		result = d.invokeKnowledge(tctx, tool)
	case contractx.ToolEscalation:
		result = d.invokeEscalation(tctx, st, tool)
	default:
		result = contractx.ToolResult{Kind: tool.Kind, Error: fmt.Sprintf("unknown tool kind %q", tool.Kind)}
	}

	session.RecordToolCall(contractx.ToolCallRecord{
		TurnSeq: st.Turn.Seq,
		Kind:    tool.Kind,
		Request: tool,
		Result:  result,
	}, st.Now)

	if result.Failed() {
		log.Warn().
			Str("session_id", st.SessionID).
			Int("turn_seq", st.Turn.Seq).
			Str("tool", string(tool.Kind)).
			Str("error", result.Error).
			Msg("tool call failed")
	}
	return result
}

func (d *Dispatcher) invokeKnowledge(ctx context.Context, tool contractx.ToolRequest) contractx.ToolResult {
	result := contractx.ToolResult{Kind: contractx.ToolKnowledge}
	if d.Knowledge == nil {
		result.Error = "knowledge connector not configured"
		return result
	}

	text, found, err := d.Knowledge.Lookup(ctx, tool.ProductRef, tool.Query)
	if err != nil {
		result.Error = toolError(err)
		return result
	}
	result.Found = found
	result.Text = text
	return result
}

func (d *Dispatcher) invokeEscalation(ctx context.Context, st *TurnState, tool contractx.ToolRequest) contractx.ToolResult {
	result := contractx.ToolResult{Kind: contractx.ToolEscalation, Escalation: tool.Escalation}
	if d.Escalation == nil {
		result.Error = "escalation connector not configured"
		return result
	}

	referenceID, err := d.Escalation.Send(ctx, contractx.EscalationEvent{
		SessionID: st.SessionID,
		TurnSeq:   st.Turn.Seq,
		Kind:      tool.Escalation,
		Payload:   tool.Payload,
	})
	if err != nil {
		result.Error = toolError(err)
		return result
	}
	result.ReferenceID = referenceID
	return result
}

// toolError collapses deadline and cancellation into the timeout reason code
// the agents key on.
func toolError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return contractx.ReasonTimeout
	}
	return err.Error()
}
