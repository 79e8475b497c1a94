package guardrail

import (
	"context"
	"encoding/json"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanakach/callcenter/agent/contract"
)

// classifierOutput mirrors the abnormal-question check: the model returns a
// boolean verdict plus its reasoning.
type classifierOutput struct {
	IsAbnormal bool   `json:"is_abnormal"`
	Reasoning  string `json:"reasoning,omitempty"`
}

// ModelEvaluator asks a chat model whether the utterance is something a
// customer would plausibly say to a support line. Like RuleEvaluator it
// fails closed: model errors reject with guardrail_unavailable.
type ModelEvaluator struct {
	runner compose.Runnable[map[string]any, classifierOutput]
}

var _ contractx.Guardrail = (*ModelEvaluator)(nil)

func NewModelEvaluator(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*ModelEvaluator, error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	parser := schema.NewMessageJSONParser[classifierOutput](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, classifierOutput]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add guardrail prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add guardrail model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add guardrail parser node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add guardrail edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add guardrail edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", "parse_json"); err != nil {
		return nil, fmt.Errorf("add guardrail edge model->parse: %w", err)
	}
	if err := graph.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add guardrail edge parse->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("guardrail.classifier_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile guardrail classifier graph: %w", err)
	}

	return &ModelEvaluator{runner: runner}, nil
}

func (e *ModelEvaluator) Evaluate(ctx context.Context, text string, recentTranscript []string) contractx.GuardrailVerdict {
	if len(recentTranscript) > transcriptWindow {
		recentTranscript = recentTranscript[len(recentTranscript)-transcriptWindow:]
	}

	payload, err := json.Marshal(map[string]any{
		"text":              text,
		"recent_transcript": recentTranscript,
	})
	if err != nil {
		return contractx.Rejected(contractx.ReasonGuardrailUnavailable)
	}

	out, err := e.runner.Invoke(ctx, map[string]any{
		"input": string(payload),
	})
	if err != nil {
		log.Error().Err(err).Msg("guardrail classifier unreachable, rejecting")
		return contractx.Rejected(contractx.ReasonGuardrailUnavailable)
	}

	if out.IsAbnormal {
		return contractx.Rejected("abnormal_input")
	}
	return contractx.Admissible()
}

// Chain runs evaluators in order and rejects on the first non-admissible
// verdict. Rules typically run before the model classifier.
type Chain []contractx.Guardrail

var _ contractx.Guardrail = Chain(nil)

func (c Chain) Evaluate(ctx context.Context, text string, recentTranscript []string) contractx.GuardrailVerdict {
	for _, g := range c {
		if g == nil {
			continue
		}
		if verdict := g.Evaluate(ctx, text, recentTranscript); !verdict.Admissible {
			return verdict
		}
	}
	return contractx.Admissible()
}
