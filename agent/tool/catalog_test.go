package tool

import (
	"testing"

	contractx "github.com/tanakach/callcenter/agent/contract"
)

func TestParseTransferTarget(t *testing.T) {
	t.Parallel()

	kind, ok := ParseTransferTarget("transfer_to_trouble")
	if !ok || kind != contractx.AgentTrouble {
		t.Fatalf("ParseTransferTarget() = (%q, %v), want trouble", kind, ok)
	}

	if _, ok := ParseTransferTarget("transfer_to_billing"); ok {
		t.Fatal("unknown target must not parse")
	}
	if _, ok := ParseTransferTarget("knowledge_lookup"); ok {
		t.Fatal("non-transfer tool must not parse")
	}
}

func TestTransferToolNameRoundTrip(t *testing.T) {
	t.Parallel()

	for _, kind := range []contractx.AgentKind{
		contractx.AgentTriage,
		contractx.AgentProductInfo,
		contractx.AgentOrder,
		contractx.AgentTrouble,
	} {
		got, ok := ParseTransferTarget(TransferToolName(kind))
		if !ok || got != kind {
			t.Fatalf("round trip for %q = (%q, %v)", kind, got, ok)
		}
	}
}

func TestInfosForAgentTopology(t *testing.T) {
	t.Parallel()

	names := func(kind contractx.AgentKind) map[string]bool {
		out := map[string]bool{}
		for _, info := range InfosForAgent(kind) {
			out[info.Name] = true
		}
		return out
	}

	triage := names(contractx.AgentTriage)
	if !triage["transfer_to_product_info"] || !triage["transfer_to_order"] || !triage["transfer_to_trouble"] {
		t.Fatalf("triage must reach every specialist, got %v", triage)
	}
	if triage[KnowledgeLookup] || triage[OrderPlace] || triage[ClaimRaise] {
		t.Fatalf("triage must have no connector tools, got %v", triage)
	}

	productInfo := names(contractx.AgentProductInfo)
	if !productInfo[KnowledgeLookup] {
		t.Fatalf("product_info must expose knowledge lookup, got %v", productInfo)
	}
	if productInfo[OrderPlace] || productInfo[ClaimRaise] {
		t.Fatalf("product_info must not place orders or claims, got %v", productInfo)
	}

	order := names(contractx.AgentOrder)
	if !order[OrderPlace] || !order["transfer_to_trouble"] {
		t.Fatalf("order surface incomplete: %v", order)
	}
	if order["transfer_to_triage"] {
		t.Fatalf("order must not transfer back to triage, got %v", order)
	}

	trouble := names(contractx.AgentTrouble)
	if !trouble[ClaimRaise] || !trouble["transfer_to_triage"] {
		t.Fatalf("trouble surface incomplete: %v", trouble)
	}
}
