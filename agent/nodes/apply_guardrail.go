package turnnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanakach/callcenter/agent/contract"
)

// guardrailWindow is how many recent turns the evaluator sees.
const guardrailWindow = 10

// ApplyGuardrail gates the turn before any agent is invoked. A rejection
// short-circuits with the fixed response, leaves the owner unchanged, and
// preserves the reason in an audit record.
func ApplyGuardrail(ctx context.Context, st *TurnState, guard contractx.Guardrail) (*TurnState, error) {
	if st == nil || st.Session == nil {
		return nil, fmt.Errorf("%w: turn state is incomplete", contractx.ErrValidation)
	}
	if st.Done {
		return st, nil
	}

	// The window excludes the turn under evaluation.
	window := st.Session.RecentTranscript(guardrailWindow + 1)
	if n := len(window); n > 0 && !st.Replay {
		window = window[:n-1]
	}

	st.Verdict = guard.Evaluate(ctx, st.Turn.Text, window)
	if st.Verdict.Admissible {
		return st, nil
	}

	log.Warn().
		Str("session_id", st.SessionID).
		Int("turn_seq", st.Turn.Seq).
		Str("reason", st.Verdict.Reason).
		Msg("guardrail rejected turn")

	if _, exists := st.Session.FindToolCall(st.Turn.Seq, contractx.ToolGuardrail); !exists {
		st.Session.RecordToolCall(contractx.ToolCallRecord{
			TurnSeq: st.Turn.Seq,
			Kind:    contractx.ToolGuardrail,
			Result:  contractx.ToolResult{Kind: contractx.ToolGuardrail, Error: st.Verdict.Reason},
			Audit:   st.Verdict.Reason,
		}, st.Now)
	}

	st.Reply = RejectedReply
	st.Done = true
	return st, nil
}
