package router

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	turnnode "github.com/tanakach/callcenter/agent/nodes"
)

func (r *Router) compileTurnGraph(
	ctx context.Context,
) (compose.Runnable[turnnode.TurnInput, turnnode.TurnOutput], error) {
	graph := compose.NewGraph[turnnode.TurnInput, turnnode.TurnOutput]()

	if err := graph.AddLambdaNode("validate_turn",
		compose.InvokableLambda(func(ctx context.Context, in turnnode.TurnInput) (*turnnode.TurnState, error) {
			return turnnode.ValidateTurn(in, r.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_turn: %w", err)
	}

	if err := graph.AddLambdaNode("load_session",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.TurnState) (*turnnode.TurnState, error) {
			return turnnode.LoadSession(ctx, in, r.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_session: %w", err)
	}

	if err := graph.AddLambdaNode("append_turn",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.TurnState) (*turnnode.TurnState, error) {
			return turnnode.AppendTurn(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node append_turn: %w", err)
	}

	if err := graph.AddLambdaNode("apply_guardrail",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.TurnState) (*turnnode.TurnState, error) {
			return turnnode.ApplyGuardrail(ctx, in, r.guardrail)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node apply_guardrail: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.TurnState) (*turnnode.TurnState, error) {
			return r.dispatcher.Run(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch: %w", err)
	}

	if err := graph.AddLambdaNode("save_session",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.TurnState) (*turnnode.TurnState, error) {
			return turnnode.SaveSession(ctx, in, r.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_session: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.TurnState) (turnnode.TurnOutput, error) {
			return turnnode.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_turn"},
		{"validate_turn", "load_session"},
		{"load_session", "append_turn"},
		{"append_turn", "apply_guardrail"},
		{"apply_guardrail", "dispatch"},
		{"dispatch", "save_session"},
		{"save_session", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("router.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}
