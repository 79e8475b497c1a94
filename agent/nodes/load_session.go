package turnnode

import (
	"context"
	"fmt"

	contractx "github.com/tanakach/callcenter/agent/contract"
	statex "github.com/tanakach/callcenter/agent/state"
)

// LoadSession looks up or creates the session. The first turn of an unseen
// id creates a fresh session owned by triage. A closed session short-
// circuits the rest of the pipeline with the fixed closed reply.
func LoadSession(ctx context.Context, st *TurnState, store statex.Store) (*TurnState, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}

	session, err := store.CreateOrGet(ctx, st.SessionID, st.Incoming.Channel, st.Now)
	if err != nil {
		return nil, err
	}
	st.Session = session

	if session.Closed {
		st.Reply = ClosedReply
		st.Done = true
	}
	return st, nil
}

// AppendTurn records the utterance before any other processing. A replayed
// sequence number resolves to the already-recorded turn so connector dedup
// can take effect instead of re-appending.
func AppendTurn(st *TurnState) (*TurnState, error) {
	if st == nil || st.Session == nil {
		return nil, fmt.Errorf("%w: turn state is incomplete", contractx.ErrValidation)
	}
	if st.Done {
		return st, nil
	}

	if st.Incoming.Seq > 0 && st.Session.HasTurn(st.Incoming.Seq) {
		recorded, _ := st.Session.Turn(st.Incoming.Seq)
		st.Turn = recorded
		st.Replay = true
		return st, nil
	}

	recorded, err := st.Session.AppendTurn(st.Incoming, st.Now)
	if err != nil {
		return nil, err
	}
	st.Turn = recorded
	return st, nil
}
