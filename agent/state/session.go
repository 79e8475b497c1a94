package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanakach/callcenter/agent/contract"
)

var (
	ErrInvalidSession = errors.New("session id is empty")
	ErrSessionClosed  = contractx.ErrSessionClosed
	ErrTurnOutOfOrder = errors.New("turn sequence out of order")
	ErrUnknownOwner   = errors.New("unknown owner agent kind")
)

// Session is the per-conversation source of truth: owner state machine,
// customer context, and the ordered transcript with its tool-call audit
// trail. Exclusively owned by the state store; the router mutates it only
// under the per-session lock.
type Session struct {
	SessionID string                `json:"session_id"`
	Channel   contractx.ChannelKind `json:"channel"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`

	Owner   contractx.AgentKind       `json:"owner"`
	Closed  bool                      `json:"closed"`
	Context contractx.CustomerContext `json:"context"`

	Transcript []contractx.Turn           `json:"transcript,omitempty"`
	ToolCalls  []contractx.ToolCallRecord `json:"tool_calls,omitempty"`
}

func NewSession(sessionID string, channel contractx.ChannelKind, now time.Time) *Session {
	return &Session{
		SessionID: sessionID,
		Channel:   channel,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
		Owner:     contractx.AgentTriage,
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// NextSeq is the sequence number the next appended turn will get.
func (s *Session) NextSeq() int {
	return len(s.Transcript) + 1
}

// HasTurn reports whether seq is already recorded.
func (s *Session) HasTurn(seq int) bool {
	return seq >= 1 && seq <= len(s.Transcript)
}

// Turn returns the recorded turn with the given sequence number.
func (s *Session) Turn(seq int) (contractx.Turn, bool) {
	if !s.HasTurn(seq) {
		return contractx.Turn{}, false
	}
	return s.Transcript[seq-1], true
}

// AppendTurn records a turn before any other processing. A zero Seq takes
// the next number; an explicit Seq must be exactly the next number, anything
// earlier is a replay the caller resolves via HasTurn, anything later is
// out of order.
func (s *Session) AppendTurn(turn contractx.Turn, now time.Time) (contractx.Turn, error) {
	if s.Closed {
		return contractx.Turn{}, ErrSessionClosed
	}
	next := s.NextSeq()
	if turn.Seq == 0 {
		turn.Seq = next
	}
	if turn.Seq != next {
		return contractx.Turn{}, fmt.Errorf("%w: seq=%d next=%d", ErrTurnOutOfOrder, turn.Seq, next)
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = now.UTC()
	}
	s.Transcript = append(s.Transcript, turn)
	s.Touch(now)
	return turn, nil
}

// RecentTranscript returns up to n most recent turn texts, oldest first.
// The guardrail reads this window; it never writes it.
func (s *Session) RecentTranscript(n int) []string {
	if n <= 0 || len(s.Transcript) == 0 {
		return nil
	}
	start := len(s.Transcript) - n
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, len(s.Transcript)-start)
	for _, t := range s.Transcript[start:] {
		out = append(out, t.Text)
	}
	return out
}

// FindToolCall returns the recorded connector outcome for (turnSeq, kind),
// if any. This is the dedup index that keeps escalation sends at-most-once
// per (session, turn, kind).
func (s *Session) FindToolCall(turnSeq int, kind contractx.ToolKind) (contractx.ToolCallRecord, bool) {
	for _, rec := range s.ToolCalls {
		if rec.TurnSeq == turnSeq && rec.Kind == kind {
			return rec, true
		}
	}
	return contractx.ToolCallRecord{}, false
}

// RecordToolCall appends an audit record. Records are never mutated after
// creation.
func (s *Session) RecordToolCall(rec contractx.ToolCallRecord, now time.Time) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now.UTC()
	}
	s.ToolCalls = append(s.ToolCalls, rec)
	s.Touch(now)
}

// SetOwner transitions the owner state machine. Only handoffs (and session
// creation) move this field.
func (s *Session) SetOwner(kind contractx.AgentKind, now time.Time) error {
	if s.Closed {
		return ErrSessionClosed
	}
	if !contractx.KnownAgentKind(kind) {
		return fmt.Errorf("%w: %q", ErrUnknownOwner, kind)
	}
	s.Owner = kind
	s.Touch(now)
	return nil
}

// Close transitions the session to its absorbing terminal state.
func (s *Session) Close(now time.Time) {
	s.Closed = true
	s.Touch(now)
}

func (s *Session) Validate() error {
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	if !contractx.KnownAgentKind(s.Owner) {
		return fmt.Errorf("%w: %q", ErrUnknownOwner, s.Owner)
	}
	for i, t := range s.Transcript {
		if t.Seq != i+1 {
			return fmt.Errorf("transcript gap: position %d has seq %d", i+1, t.Seq)
		}
	}
	return nil
}

// Clone deep-copies the session so callers can mutate without aliasing the
// store's record.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Transcript = append([]contractx.Turn(nil), s.Transcript...)
	out.ToolCalls = append([]contractx.ToolCallRecord(nil), s.ToolCalls...)
	return &out
}
