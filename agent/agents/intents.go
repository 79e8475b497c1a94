package agents

import "strings"

var (
	troubleWords = []string{
		"broken", "not working", "doesn't work", "does not work", "won't turn on",
		"error", "trouble", "defect", "complaint", "complain", "claim", "refund",
		"stopped working",
	}
	orderWords = []string{
		"buy", "order", "purchase", "i'll take", "i want the",
	}
	productWords = []string{
		"how do i", "how to", "battery", "spec", "manual", "pairing", "setup",
		"warranty", "shipping", "return", "tell me about",
	}
	confirmWords = []string{
		"yes", "please", "confirm", "sure", "ok",
	}
	confirmPhrases = []string{
		"go ahead", "place the order", "place it",
	}
	resolvedWords = []string{
		"thank", "that fixed", "resolved", "solved", "goodbye", "that's all",
	}
)

func containsAny(text string, words []string) bool {
	lowered := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}

// confirms matches short acknowledgement words on word boundaries; substring
// matching would catch "ok" inside "broken".
func confirms(text string) bool {
	lowered := strings.ToLower(text)
	for _, p := range confirmPhrases {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	for _, field := range strings.Fields(lowered) {
		field = strings.Trim(field, ".,!?")
		for _, w := range confirmWords {
			if field == w {
				return true
			}
		}
	}
	return false
}
