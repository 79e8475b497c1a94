package agents

import (
	"context"
	"fmt"

	contractx "github.com/tanakach/callcenter/agent/contract"
	llmx "github.com/tanakach/callcenter/agent/llm"
	promptx "github.com/tanakach/callcenter/agent/prompt"
)

// NewModelRegistry builds one model-backed policy per agent kind.
func NewModelRegistry(ctx context.Context, cfg llmx.Config) (MapRegistry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()
	registry := make(MapRegistry, 4)

	for _, kind := range []contractx.AgentKind{
		contractx.AgentTriage,
		contractx.AgentProductInfo,
		contractx.AgentOrder,
		contractx.AgentTrouble,
	} {
		modelCfg := cfg.OpenRouterFor(kind)
		chatModel, err := modelCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create model for agent=%s: %v", contractx.ErrModelInvoke, kind, err)
		}

		policy, err := NewModelPolicy(ctx, kind, chatModel, prompts.ForAgent(kind))
		if err != nil {
			return nil, err
		}
		registry[kind] = policy
	}

	return registry, nil
}
