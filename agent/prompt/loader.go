package prompt

import (
	_ "embed"
	"strings"

	contractx "github.com/tanakach/callcenter/agent/contract"
)

var (
	//go:embed template/triage.txt
	triageRaw string

	//go:embed template/product_info.txt
	productInfoRaw string

	//go:embed template/order.txt
	orderRaw string

	//go:embed template/trouble.txt
	troubleRaw string

	//go:embed template/guardrail.txt
	guardrailRaw string
)

// PromptSet holds the loaded system prompts.
type PromptSet struct {
	Triage      string
	ProductInfo string
	Order       string
	Trouble     string
	Guardrail   string
}

// LoadPromptSet returns trimmed prompt strings. Safe to call concurrently;
// the embed is compile-time.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Triage:      strings.TrimSpace(triageRaw),
		ProductInfo: strings.TrimSpace(productInfoRaw),
		Order:       strings.TrimSpace(orderRaw),
		Trouble:     strings.TrimSpace(troubleRaw),
		Guardrail:   strings.TrimSpace(guardrailRaw),
	}
}

// ForAgent returns the system prompt for an agent kind.
func (p PromptSet) ForAgent(kind contractx.AgentKind) string {
	switch kind {
	case contractx.AgentTriage:
		return p.Triage
	case contractx.AgentProductInfo:
		return p.ProductInfo
	case contractx.AgentOrder:
		return p.Order
	case contractx.AgentTrouble:
		return p.Trouble
	default:
		return ""
	}
}
