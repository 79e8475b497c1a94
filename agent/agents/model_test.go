package agents

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanakach/callcenter/agent/contract"
)

type fakeChatModel struct {
	msg   *schema.Message
	err   error
	calls int
}

var _ einomodel.ToolCallingChatModel = (*fakeChatModel)(nil)

func (f *fakeChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.msg, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

func newTestModelPolicy(t *testing.T, kind contractx.AgentKind, fake *fakeChatModel) *ModelPolicy {
	t.Helper()
	p, err := NewModelPolicy(context.Background(), kind, fake, "You are a support agent.")
	if err != nil {
		t.Fatalf("NewModelPolicy() error = %v", err)
	}
	return p
}

func TestModelPolicyRespond(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{msg: schema.AssistantMessage("The battery lasts 12 hours.", nil)}
	p := newTestModelPolicy(t, contractx.AgentProductInfo, fake)

	action, err := p.Act(context.Background(), contractx.AgentRequest{
		Turn: contractx.Turn{Seq: 1, Text: "battery?"},
	})
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	if action.Message != "The battery lasts 12 hours." {
		t.Fatalf("message = %q", action.Message)
	}
}

func TestModelPolicyMapsTransferCall(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{msg: schema.AssistantMessage("", []schema.ToolCall{{
		Function: schema.FunctionCall{
			Name:      "transfer_to_trouble",
			Arguments: `{"reason":"defect reported","product_ref":"B27 Max"}`,
		},
	}})}
	p := newTestModelPolicy(t, contractx.AgentTriage, fake)

	action, err := p.Act(context.Background(), contractx.AgentRequest{
		Turn:    contractx.Turn{Seq: 1, Text: "my watch is broken"},
		Context: contractx.CustomerContext{CustomerName: "Sato"},
	})
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	if action.Handoff == nil || action.Handoff.Target != contractx.AgentTrouble {
		t.Fatalf("expected handoff to trouble, got %+v", action)
	}
	if action.Handoff.Reason != "defect reported" {
		t.Fatalf("reason = %q", action.Handoff.Reason)
	}
	// The handoff snapshot merges the model's arguments into the existing
	// context instead of replacing it.
	if action.Handoff.Context.CustomerName != "Sato" {
		t.Fatalf("customer name lost in handoff: %+v", action.Handoff.Context)
	}
	if action.Handoff.Context.ProductRef != "B27 Max" {
		t.Fatalf("product ref = %q, want B27 Max", action.Handoff.Context.ProductRef)
	}
}

func TestModelPolicyMapsKnowledgeCall(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{msg: schema.AssistantMessage("", []schema.ToolCall{{
		Function: schema.FunctionCall{
			Name:      "knowledge_lookup",
			Arguments: `{"product_ref":"A68 Air","query":"battery life"}`,
		},
	}})}
	p := newTestModelPolicy(t, contractx.AgentProductInfo, fake)

	action, err := p.Act(context.Background(), contractx.AgentRequest{
		Turn: contractx.Turn{Seq: 1, Text: "how long does the battery last?"},
	})
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	if action.Tool == nil || action.Tool.Kind != contractx.ToolKnowledge {
		t.Fatalf("expected knowledge tool call, got %+v", action)
	}
	if action.Tool.ProductRef != "A68 Air" || action.Tool.Query != "battery life" {
		t.Fatalf("unexpected tool request: %+v", action.Tool)
	}
}

func TestModelPolicyRejectsDisallowedTool(t *testing.T) {
	t.Parallel()

	// Triage has no connector tools, so a knowledge call is a schema
	// violation even though the tool exists elsewhere.
	fake := &fakeChatModel{msg: schema.AssistantMessage("", []schema.ToolCall{{
		Function: schema.FunctionCall{Name: "knowledge_lookup", Arguments: `{}`},
	}})}
	p := newTestModelPolicy(t, contractx.AgentTriage, fake)

	_, err := p.Act(context.Background(), contractx.AgentRequest{
		Turn: contractx.Turn{Seq: 1, Text: "hello"},
	})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("error = %v, want ErrSchemaViolation", err)
	}
}

func TestModelPolicyEmptyContentIsSchemaViolation(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{msg: schema.AssistantMessage("   ", nil)}
	p := newTestModelPolicy(t, contractx.AgentOrder, fake)

	_, err := p.Act(context.Background(), contractx.AgentRequest{
		Turn: contractx.Turn{Seq: 1, Text: "hello"},
	})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("error = %v, want ErrSchemaViolation", err)
	}
}

func TestModelPolicyModelErrorIsModelInvoke(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{err: errors.New("upstream 503")}
	p := newTestModelPolicy(t, contractx.AgentTrouble, fake)

	_, err := p.Act(context.Background(), contractx.AgentRequest{
		Turn: contractx.Turn{Seq: 1, Text: "hello"},
	})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("error = %v, want ErrModelInvoke", err)
	}
}

func TestModelPolicyRespondPathSkipsTools(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{msg: schema.AssistantMessage("done", nil)}
	p := newTestModelPolicy(t, contractx.AgentOrder, fake)

	action, err := p.Act(context.Background(), contractx.AgentRequest{
		Turn:        contractx.Turn{Seq: 1, Text: "yes"},
		ToolResults: []contractx.ToolResult{{Kind: contractx.ToolEscalation, ReferenceID: "REF-1"}},
	})
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	if action.Message != "done" {
		t.Fatalf("message = %q, want done", action.Message)
	}
}
