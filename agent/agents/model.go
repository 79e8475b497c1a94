package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanakach/callcenter/agent/contract"
	toolx "github.com/tanakach/callcenter/agent/tool"
)

// ModelPolicy adapts a tool-calling chat model to the agent policy contract.
// One invocation is one generate: the model either answers, calls one of its
// connector tools, or calls a transfer function. When tool results are
// already present the respond-only path runs, so the model cannot chain
// tool calls within a turn.
type ModelPolicy struct {
	kind          contractx.AgentKind
	toolRunner    compose.Runnable[map[string]any, *schema.Message]
	respondRunner compose.Runnable[map[string]any, *schema.Message]
	allowedTools  map[string]struct{}
}

var _ contractx.Policy = (*ModelPolicy)(nil)

func NewModelPolicy(
	ctx context.Context,
	kind contractx.AgentKind,
	chatModel einomodel.ToolCallingChatModel,
	systemPrompt string,
) (*ModelPolicy, error) {
	if !contractx.KnownAgentKind(kind) {
		return nil, fmt.Errorf("%w: unknown agent kind %q", contractx.ErrValidation, kind)
	}

	tools := toolx.InfosForAgent(kind)
	toolModel, err := chatModel.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools for agent=%s: %v", contractx.ErrModelInvoke, kind, err)
	}

	toolRunner, err := compileMessageGraph(ctx, toolModel, systemPrompt, string(kind)+".tool_graph")
	if err != nil {
		return nil, err
	}
	respondRunner, err := compileMessageGraph(ctx, chatModel, systemPrompt, string(kind)+".respond_graph")
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		if t == nil || strings.TrimSpace(t.Name) == "" {
			continue
		}
		allowed[t.Name] = struct{}{}
	}

	return &ModelPolicy{
		kind:          kind,
		toolRunner:    toolRunner,
		respondRunner: respondRunner,
		allowedTools:  allowed,
	}, nil
}

func (p *ModelPolicy) Act(ctx context.Context, req contractx.AgentRequest) (contractx.AgentAction, error) {
	payload := map[string]any{
		"turn":         req.Turn.Text,
		"channel":      req.Turn.Channel,
		"context":      req.Context,
		"tool_results": req.ToolResults,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.AgentAction{}, fmt.Errorf("%w: marshal agent payload: %v", contractx.ErrValidation, err)
	}

	runner := p.toolRunner
	if len(req.ToolResults) > 0 {
		runner = p.respondRunner
	}

	msg, err := runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return contractx.AgentAction{}, fmt.Errorf("%w: agent=%s invoke: %v", contractx.ErrModelInvoke, p.kind, err)
	}
	if msg == nil {
		return contractx.AgentAction{}, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
	}

	if len(msg.ToolCalls) == 0 {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			return contractx.AgentAction{}, fmt.Errorf("%w: agent message is empty", contractx.ErrSchemaViolation)
		}
		return contractx.Respond(content), nil
	}

	return p.mapToolCall(req, msg.ToolCalls[0])
}

func (p *ModelPolicy) mapToolCall(req contractx.AgentRequest, call schema.ToolCall) (contractx.AgentAction, error) {
	name := strings.TrimSpace(call.Function.Name)
	if name == "" {
		return contractx.AgentAction{}, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
	}
	if _, ok := p.allowedTools[name]; !ok {
		return contractx.AgentAction{}, fmt.Errorf("%w: tool=%s is not allowed for agent=%s", contractx.ErrSchemaViolation, name, p.kind)
	}

	args := map[string]string{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return contractx.AgentAction{}, fmt.Errorf("%w: invalid args for tool=%s: %v", contractx.ErrSchemaViolation, name, err)
		}
	}

	if target, ok := toolx.ParseTransferTarget(name); ok {
		snapshot := req.Context
		snapshot.Merge(contractx.CustomerContext{
			CustomerName: args["customer_name"],
			ProductRef:   args["product_ref"],
		})
		reason := strings.TrimSpace(args["reason"])
		if reason == "" {
			reason = "model_transfer"
		}
		return contractx.RequestHandoff(target, reason, snapshot), nil
	}

	productRef := strings.TrimSpace(args["product_ref"])
	switch name {
	case toolx.KnowledgeLookup:
		return contractx.CallTool(contractx.ToolRequest{
			Kind:       contractx.ToolKnowledge,
			ProductRef: productRef,
			Query:      args["query"],
		}), nil
	case toolx.OrderPlace:
		return contractx.CallTool(contractx.ToolRequest{
			Kind:       contractx.ToolEscalation,
			Escalation: contractx.EscalationOrder,
			ProductRef: productRef,
			Payload:    fmt.Sprintf("Ordered the %s.", productRef),
		}), nil
	case toolx.ClaimRaise:
		return contractx.CallTool(contractx.ToolRequest{
			Kind:       contractx.ToolEscalation,
			Escalation: contractx.EscalationClaim,
			ProductRef: productRef,
			Payload:    fmt.Sprintf("Claim for the %s: %s", productRef, args["description"]),
		}), nil
	}

	return contractx.AgentAction{}, fmt.Errorf("%w: unmapped tool=%s", contractx.ErrSchemaViolation, name)
}

func compileMessageGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", graphName, err)
	}
	return runner, nil
}
