package router

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanakach/callcenter/agent/contract"
	turnnode "github.com/tanakach/callcenter/agent/nodes"
	statex "github.com/tanakach/callcenter/agent/state"
)

// Config tunes the router. ToolTimeout bounds each connector call; the
// generation capability inside a policy carries its own timeout.
type Config struct {
	ToolTimeout time.Duration
}

// Router owns the handoff protocol: it serializes turns per session,
// applies the guardrail before any agent runs, dispatches to the owning
// policy, mediates connector calls, and reconciles the result back into the
// session record.
type Router struct {
	store      statex.Store
	guardrail  contractx.Guardrail
	dispatcher *turnnode.Dispatcher

	graphRunner compose.Runnable[turnnode.TurnInput, turnnode.TurnOutput]

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	active map[string]context.CancelFunc

	now func() time.Time
}

func New(
	store statex.Store,
	guard contractx.Guardrail,
	registry contractx.Registry,
	knowledge contractx.Knowledge,
	escalation contractx.Escalation,
	cfg Config,
) (*Router, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if guard == nil {
		return nil, errors.New("guardrail is required")
	}
	if registry == nil {
		return nil, errors.New("policy registry is required")
	}

	toolTimeout := cfg.ToolTimeout
	if toolTimeout <= 0 {
		toolTimeout = 10 * time.Second
	}

	r := &Router{
		store:     store,
		guardrail: guard,
		dispatcher: &turnnode.Dispatcher{
			Registry:    registry,
			Knowledge:   knowledge,
			Escalation:  escalation,
			ToolTimeout: toolTimeout,
		},
		locks:  make(map[string]*sync.Mutex),
		active: make(map[string]context.CancelFunc),
		now:    time.Now,
	}

	graphRunner, err := r.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	r.graphRunner = graphRunner

	return r, nil
}

// Handle processes one turn. Turns of the same session are strictly
// serialized; concurrent sessions proceed in parallel. The per-session lock
// is released on every exit path.
func (r *Router) Handle(ctx context.Context, sessionID string, turn contractx.Turn) (contractx.OutboundMessage, error) {
	lock := r.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	// Closing the session cancels this context best-effort, which unsticks
	// any in-flight connector call.
	tctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.setActive(sessionID, cancel)
	defer r.clearActive(sessionID)

	out, err := r.graphRunner.Invoke(tctx, turnnode.TurnInput{
		SessionID: sessionID,
		Turn:      turn,
	})
	if err != nil {
		return contractx.OutboundMessage{}, err
	}
	return out.Message, nil
}

// Close transitions the session to its absorbing closed state. Any in-flight
// turn is cancelled best-effort; the transition happens regardless of that
// turn's outcome.
func (r *Router) Close(ctx context.Context, sessionID string) error {
	r.cancelActive(sessionID)

	lock := r.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Closed {
		return nil
	}

	session.Close(r.now())
	if err := r.store.Commit(ctx, session); err != nil {
		return err
	}

	log.Info().Str("session_id", sessionID).Msg("session closed")
	return nil
}

// Transcript returns a read-only snapshot of the session for audit display.
func (r *Router) Transcript(ctx context.Context, sessionID string) (*statex.Session, error) {
	return r.store.Get(ctx, sessionID)
}

func (r *Router) lockFor(sessionID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[sessionID] = lock
	}
	return lock
}

func (r *Router) setActive(sessionID string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[sessionID] = cancel
}

func (r *Router) clearActive(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, sessionID)
}

func (r *Router) cancelActive(sessionID string) {
	r.mu.Lock()
	cancel, ok := r.active[sessionID]
	r.mu.Unlock()
	if ok && cancel != nil {
		cancel()
	}
}
