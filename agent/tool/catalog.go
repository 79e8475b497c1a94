package tool

import (
	"strings"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanakach/callcenter/agent/contract"
)

const (
	KnowledgeLookup = "knowledge_lookup"
	OrderPlace      = "order_place"
	ClaimRaise      = "claim_raise"

	transferPrefix = "transfer_to_"
)

// TransferToolName is the handoff function exposed to the model for a target
// agent kind.
func TransferToolName(target contractx.AgentKind) string {
	return transferPrefix + string(target)
}

// ParseTransferTarget maps a transfer tool name back to the agent kind.
func ParseTransferTarget(name string) (contractx.AgentKind, bool) {
	if !strings.HasPrefix(name, transferPrefix) {
		return "", false
	}
	kind := contractx.AgentKind(strings.TrimPrefix(name, transferPrefix))
	if !contractx.KnownAgentKind(kind) {
		return "", false
	}
	return kind, true
}

// InfosForAgent is the tool surface a model-backed policy may use: the
// agent's connector tools plus transfer functions to every other kind it is
// allowed to hand off to.
func InfosForAgent(kind contractx.AgentKind) []*schema.ToolInfo {
	var infos []*schema.ToolInfo

	switch kind {
	case contractx.AgentProductInfo:
		infos = append(infos, &schema.ToolInfo{
			Name: KnowledgeLookup,
			Desc: "Look up product manual and FAQ information.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"product_ref": {Type: schema.String, Desc: "Product name, if known", Required: false},
				"query":       {Type: schema.String, Desc: "What the customer wants to know", Required: true},
			}),
		})
	case contractx.AgentOrder:
		infos = append(infos, &schema.ToolInfo{
			Name: OrderPlace,
			Desc: "Place an order for a confirmed product.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"product_ref": {Type: schema.String, Desc: "Product to order", Required: true},
			}),
		})
	case contractx.AgentTrouble:
		infos = append(infos, &schema.ToolInfo{
			Name: ClaimRaise,
			Desc: "Raise a claim for a defective product.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"product_ref": {Type: schema.String, Desc: "Product the claim is about", Required: true},
				"description": {Type: schema.String, Desc: "What is wrong", Required: true},
			}),
		})
	}

	for _, target := range transferTargets(kind) {
		infos = append(infos, &schema.ToolInfo{
			Name: TransferToolName(target),
			Desc: "Transfer the conversation to the " + string(target) + " agent.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"reason":        {Type: schema.String, Desc: "Why the conversation is transferred", Required: true},
				"customer_name": {Type: schema.String, Desc: "Customer name, if learned", Required: false},
				"product_ref":   {Type: schema.String, Desc: "Product discussed, if known", Required: false},
			}),
		})
	}

	return infos
}

// transferTargets encodes the handoff topology: triage reaches every
// specialist, specialists shift intent between each other, and trouble only
// returns to triage on resolution.
func transferTargets(kind contractx.AgentKind) []contractx.AgentKind {
	switch kind {
	case contractx.AgentTriage:
		return []contractx.AgentKind{contractx.AgentProductInfo, contractx.AgentOrder, contractx.AgentTrouble}
	case contractx.AgentProductInfo:
		return []contractx.AgentKind{contractx.AgentOrder, contractx.AgentTrouble}
	case contractx.AgentOrder:
		return []contractx.AgentKind{contractx.AgentTrouble}
	case contractx.AgentTrouble:
		return []contractx.AgentKind{contractx.AgentTriage}
	default:
		return nil
	}
}
