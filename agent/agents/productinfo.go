package agents

import (
	"context"
	"strings"

	connectorx "github.com/tanakach/callcenter/agent/connector"
	contractx "github.com/tanakach/callcenter/agent/contract"
)

// ProductInfo answers product handling questions through the knowledge
// connector. It never touches the escalation connector; when intent shifts
// it hands off to Order or Trouble.
type ProductInfo struct {
	catalog *connectorx.Catalog
}

var _ contractx.Policy = (*ProductInfo)(nil)

func NewProductInfo(catalog *connectorx.Catalog) *ProductInfo {
	if catalog == nil {
		catalog = connectorx.DefaultCatalog()
	}
	return &ProductInfo{catalog: catalog}
}

func (p *ProductInfo) Act(ctx context.Context, req contractx.AgentRequest) (contractx.AgentAction, error) {
	patch := contractx.CustomerContext{}
	if ref, ok := p.catalog.Detect(req.Turn.Text); ok {
		patch.ProductRef = ref
	}
	snapshot := req.Context
	snapshot.Merge(patch)

	if len(req.ToolResults) > 0 {
		result := req.ToolResults[len(req.ToolResults)-1]
		var action contractx.AgentAction
		switch {
		case result.Failed():
			action = contractx.Respond("I'm sorry, the product lookup is unavailable right now. Could you try again in a moment?")
		case result.Found:
			action = contractx.Respond(result.Text)
		default:
			action = contractx.Respond("I'm sorry, I don't have that information about this product.")
		}
		action.ContextPatch = patch
		return action, nil
	}

	switch {
	case containsAny(req.Turn.Text, troubleWords):
		snapshot.QuestionType = "trouble"
		return contractx.RequestHandoff(contractx.AgentTrouble, "trouble_intent", snapshot), nil
	case containsAny(req.Turn.Text, orderWords):
		snapshot.QuestionType = "order"
		return contractx.RequestHandoff(contractx.AgentOrder, "order_intent", snapshot), nil
	}

	productRef := snapshot.ProductRef
	if productRef == "" && !containsAny(req.Turn.Text, productWords) {
		action := contractx.Respond("Which product is your question about?")
		action.ContextPatch = patch
		return action, nil
	}

	action := contractx.CallTool(contractx.ToolRequest{
		Kind:       contractx.ToolKnowledge,
		ProductRef: productRef,
		Query:      strings.TrimSpace(req.Turn.Text),
	})
	action.ContextPatch = patch
	return action, nil
}
