package turnnode

import (
	"context"
	"fmt"

	contractx "github.com/tanakach/callcenter/agent/contract"
	statex "github.com/tanakach/callcenter/agent/state"
)

// SaveSession validates and commits the mutated session. Closed-session
// short-circuits skip the commit entirely so a closed session never mutates.
func SaveSession(ctx context.Context, st *TurnState, store statex.Store) (*TurnState, error) {
	if st == nil || st.Session == nil {
		return nil, fmt.Errorf("%w: turn state is incomplete", contractx.ErrValidation)
	}
	if st.Session.Closed {
		return st, nil
	}

	st.Session.Touch(st.Now)
	if err := st.Session.Validate(); err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if err := store.Commit(ctx, st.Session); err != nil {
		return nil, err
	}
	return st, nil
}

// FinalizeReply shapes the outbound message. Every processed turn produces a
// user-visible response; silence is not an outcome.
func FinalizeReply(st *TurnState) (TurnOutput, error) {
	if st == nil || st.Session == nil {
		return TurnOutput{}, fmt.Errorf("%w: turn state is incomplete", contractx.ErrValidation)
	}

	reply := st.Reply
	if reply == "" {
		reply = DegradedReply
	}

	return TurnOutput{
		Message: contractx.OutboundMessage{
			SessionID:   st.SessionID,
			DisplayText: reply,
			Owner:       st.Session.Owner,
			Closed:      st.Session.Closed,
		},
	}, nil
}
