package agents

import (
	"context"
	"fmt"
	"strings"

	connectorx "github.com/tanakach/callcenter/agent/connector"
	contractx "github.com/tanakach/callcenter/agent/contract"
)

// Trouble handles errors, defects, and claims. It is the terminal sink for
// handoffs: it only hands off back to Triage once the customer signals the
// issue is resolved.
type Trouble struct {
	catalog *connectorx.Catalog
}

var _ contractx.Policy = (*Trouble)(nil)

func NewTrouble(catalog *connectorx.Catalog) *Trouble {
	if catalog == nil {
		catalog = connectorx.DefaultCatalog()
	}
	return &Trouble{catalog: catalog}
}

func (t *Trouble) Act(ctx context.Context, req contractx.AgentRequest) (contractx.AgentAction, error) {
	patch := contractx.CustomerContext{}
	if ref, ok := t.catalog.Detect(req.Turn.Text); ok {
		patch.ProductRef = ref
	}
	snapshot := req.Context
	snapshot.Merge(patch)

	if len(req.ToolResults) > 0 {
		result := req.ToolResults[len(req.ToolResults)-1]
		var action contractx.AgentAction
		switch {
		case result.TimedOut():
			action = contractx.Respond("Filing your claim is taking longer than expected. Please stay on the line; I will retry in a moment.")
		case result.Failed():
			action = contractx.Respond("I couldn't file your claim just now. A support agent will follow up with you directly.")
		default:
			action = contractx.Respond(fmt.Sprintf("Your claim has been filed. Your claim reference is %s. A support agent will contact you.", result.ReferenceID))
		}
		action.ContextPatch = patch
		return action, nil
	}

	if containsAny(req.Turn.Text, resolvedWords) {
		return contractx.RequestHandoff(contractx.AgentTriage, "resolved", snapshot), nil
	}

	if containsAny(req.Turn.Text, []string{"claim", "refund", "complain", "complaint"}) {
		if snapshot.ProductRef == "" {
			action := contractx.Respond("I'm sorry for the inconvenience. Which product is this about?")
			action.ContextPatch = patch
			return action, nil
		}
		action := contractx.CallTool(contractx.ToolRequest{
			Kind:       contractx.ToolEscalation,
			Escalation: contractx.EscalationClaim,
			ProductRef: snapshot.ProductRef,
			Payload:    fmt.Sprintf("Claim for the %s: %s", snapshot.ProductRef, strings.TrimSpace(req.Turn.Text)),
		})
		action.ContextPatch = patch
		return action, nil
	}

	if snapshot.ProductRef == "" {
		action := contractx.Respond("I'm sorry to hear you're having trouble. Which product is giving you problems?")
		action.ContextPatch = patch
		return action, nil
	}

	action := contractx.Respond(fmt.Sprintf("I'm sorry for the trouble with your %s. Could you describe what happens when the problem occurs? If you'd like, I can also file a claim for you.", snapshot.ProductRef))
	action.ContextPatch = patch
	return action, nil
}
