package turnnode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanakach/callcenter/agent/contract"
	statex "github.com/tanakach/callcenter/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
	ErrUnknownPolicy  = errors.New("no policy registered for owner")
)

// Fixed user-facing responses. Failures degrade to these; nothing in the
// turn pipeline surfaces an error text to the customer.
const (
	ClosedReply   = "This session has ended. Please start a new conversation if you need further help."
	RejectedReply = "I'm sorry, I cannot process that request."
	DegradedReply = "I'm sorry, I'm unable to help with that right now. Please try again in a moment."
)

type TurnInput struct {
	SessionID string
	Turn      contractx.Turn
}

type TurnOutput struct {
	Message contractx.OutboundMessage
}

// TurnState flows through the turn pipeline. Done short-circuits the
// remaining steps once a fixed reply has been decided (closed session,
// guardrail rejection).
type TurnState struct {
	SessionID string
	Now       time.Time

	Incoming contractx.Turn
	Session  *statex.Session
	Turn     contractx.Turn
	Replay   bool

	Verdict contractx.GuardrailVerdict
	Reply   string
	Done    bool
}

// ValidateTurn checks the raw submission before anything is loaded.
func ValidateTurn(in TurnInput, nowFn func() time.Time) (*TurnState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	if strings.TrimSpace(in.Turn.Text) == "" {
		return nil, ErrInvalidMessage
	}
	if in.Turn.Channel == "" {
		in.Turn.Channel = contractx.ChannelText
	}

	return &TurnState{
		SessionID: sessionID,
		Incoming:  in.Turn,
		Now:       nowFn().UTC(),
	}, nil
}
