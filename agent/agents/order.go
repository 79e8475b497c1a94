package agents

import (
	"context"
	"fmt"

	connectorx "github.com/tanakach/callcenter/agent/connector"
	contractx "github.com/tanakach/callcenter/agent/contract"
)

// Order confirms the product with the customer before placing anything, then
// places the order through the escalation connector. Hard failures escalate
// to Trouble; a timeout stays here with retry guidance.
type Order struct {
	catalog *connectorx.Catalog
}

var _ contractx.Policy = (*Order)(nil)

func NewOrder(catalog *connectorx.Catalog) *Order {
	if catalog == nil {
		catalog = connectorx.DefaultCatalog()
	}
	return &Order{catalog: catalog}
}

func (o *Order) Act(ctx context.Context, req contractx.AgentRequest) (contractx.AgentAction, error) {
	patch := contractx.CustomerContext{}
	if ref, ok := o.catalog.Detect(req.Turn.Text); ok {
		patch.ProductRef = ref
	}
	snapshot := req.Context
	snapshot.Merge(patch)

	if len(req.ToolResults) > 0 {
		result := req.ToolResults[len(req.ToolResults)-1]
		switch {
		case result.TimedOut():
			action := contractx.Respond("Placing your order is taking longer than expected. Your request is saved; please stay on the line or try again in a few minutes.")
			action.ContextPatch = patch
			return action, nil
		case result.Failed():
			snapshot.QuestionType = "trouble"
			return contractx.RequestHandoff(contractx.AgentTrouble, "order_failure", snapshot), nil
		default:
			patch.OrderRef = result.ReferenceID
			action := contractx.Respond(fmt.Sprintf("Your order for the %s has been placed. Your order reference is %s.", snapshot.ProductRef, result.ReferenceID))
			action.ContextPatch = patch
			return action, nil
		}
	}

	if containsAny(req.Turn.Text, troubleWords) {
		snapshot.QuestionType = "trouble"
		return contractx.RequestHandoff(contractx.AgentTrouble, "trouble_intent", snapshot), nil
	}

	if snapshot.ProductRef == "" {
		action := contractx.Respond("Which product would you like to order?")
		action.ContextPatch = patch
		return action, nil
	}

	// Confirm first, send on the customer's next turn. Ordering on the same
	// turn as the intent would place orders nobody agreed to.
	if req.Context.ProductRef != "" && confirms(req.Turn.Text) && !containsAny(req.Turn.Text, orderWords) {
		action := contractx.CallTool(contractx.ToolRequest{
			Kind:       contractx.ToolEscalation,
			Escalation: contractx.EscalationOrder,
			ProductRef: snapshot.ProductRef,
			Payload:    fmt.Sprintf("Ordered the %s.", snapshot.ProductRef),
		})
		action.ContextPatch = patch
		return action, nil
	}

	action := contractx.Respond(fmt.Sprintf("The %s, certainly. Shall I place the order?", snapshot.ProductRef))
	action.ContextPatch = patch
	return action, nil
}
