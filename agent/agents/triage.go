package agents

import (
	"context"

	connectorx "github.com/tanakach/callcenter/agent/connector"
	contractx "github.com/tanakach/callcenter/agent/contract"
)

// Triage owns every session until intent is clear, then hands off. It never
// calls connectors.
type Triage struct {
	catalog *connectorx.Catalog
}

var _ contractx.Policy = (*Triage)(nil)

func NewTriage(catalog *connectorx.Catalog) *Triage {
	if catalog == nil {
		catalog = connectorx.DefaultCatalog()
	}
	return &Triage{catalog: catalog}
}

func (t *Triage) Act(ctx context.Context, req contractx.AgentRequest) (contractx.AgentAction, error) {
	patch := contractx.CustomerContext{}
	if ref, ok := t.catalog.Detect(req.Turn.Text); ok {
		patch.ProductRef = ref
	}

	// A handoff carries the full current context, never a partial snapshot.
	snapshot := req.Context
	snapshot.Merge(patch)

	switch {
	case containsAny(req.Turn.Text, troubleWords):
		patch.QuestionType = "trouble"
		snapshot.QuestionType = "trouble"
		return contractx.RequestHandoff(contractx.AgentTrouble, "trouble_intent", snapshot), nil
	case containsAny(req.Turn.Text, orderWords):
		patch.QuestionType = "order"
		snapshot.QuestionType = "order"
		return contractx.RequestHandoff(contractx.AgentOrder, "order_intent", snapshot), nil
	case patch.ProductRef != "" || containsAny(req.Turn.Text, productWords):
		patch.QuestionType = "product_info"
		snapshot.QuestionType = "product_info"
		return contractx.RequestHandoff(contractx.AgentProductInfo, "product_question", snapshot), nil
	}

	action := contractx.Respond("Thank you for contacting support. Are you calling about a product question, an order, or a problem with a product?")
	action.ContextPatch = patch
	return action, nil
}
