package guardrail

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanakach/callcenter/agent/contract"
)

// transcriptWindow bounds how much recent history a rule can see.
const transcriptWindow = 10

type compiledRule struct {
	name    string
	source  string
	program *vm.Program
}

// RuleEvaluator classifies an utterance against a fixed set of compiled
// expressions. It reads the transcript window but never writes session
// state, and it fails closed: any evaluation error rejects the turn with
// reason guardrail_unavailable.
type RuleEvaluator struct {
	rules []compiledRule
}

var _ contractx.Guardrail = (*RuleEvaluator)(nil)

func NewRuleEvaluator(rules []Rule) (*RuleEvaluator, error) {
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	env := map[string]any{
		"text":       "",
		"transcript": []string{},
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.Name == "" || r.Expression == "" {
			return nil, fmt.Errorf("guardrail rule needs name and expression: %+v", r)
		}
		program, err := expr.Compile(r.Expression, expr.Env(env), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile guardrail rule %q: %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{name: r.Name, source: r.Expression, program: program})
	}

	return &RuleEvaluator{rules: compiled}, nil
}

func (e *RuleEvaluator) Evaluate(ctx context.Context, text string, recentTranscript []string) contractx.GuardrailVerdict {
	if len(recentTranscript) > transcriptWindow {
		recentTranscript = recentTranscript[len(recentTranscript)-transcriptWindow:]
	}
	env := map[string]any{
		"text":       text,
		"transcript": recentTranscript,
	}

	for _, rule := range e.rules {
		if ctx.Err() != nil {
			return contractx.Rejected(contractx.ReasonGuardrailUnavailable)
		}
		result, err := expr.Run(rule.program, env)
		if err != nil {
			log.Error().Err(err).Str("rule", rule.name).Msg("guardrail rule evaluation failed, rejecting")
			return contractx.Rejected(contractx.ReasonGuardrailUnavailable)
		}
		hit, ok := result.(bool)
		if !ok {
			log.Error().Str("rule", rule.name).Msgf("guardrail rule returned %T, rejecting", result)
			return contractx.Rejected(contractx.ReasonGuardrailUnavailable)
		}
		if hit {
			return contractx.Rejected(rule.name)
		}
	}

	return contractx.Admissible()
}
