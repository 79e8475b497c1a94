package guardrail

// Rule is one operator-configurable admission check. Expression is an
// expr-lang program over {text, transcript}; a true result rejects the turn
// with the rule name as the reason code.
type Rule struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

// DefaultRules covers the checks every deployment wants before an agent sees
// the utterance: injection attempts, content safety, and degenerate input.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:       "prompt_injection",
			Expression: `lower(text) contains "ignore previous" or lower(text) contains "ignore all previous" or lower(text) contains "reveal your system prompt" or lower(text) contains "disregard your instructions"`,
		},
		{
			Name:       "unsafe_content",
			Expression: `any(["bomb", "weapon", "explosive", "how to hurt"], { lower(text) contains # })`,
		},
		{
			Name:       "oversized_input",
			Expression: `len(text) > 2000`,
		},
		{
			Name:       "empty_input",
			Expression: `len(trim(text)) == 0`,
		},
	}
}
