package agents

import (
	connectorx "github.com/tanakach/callcenter/agent/connector"
	contractx "github.com/tanakach/callcenter/agent/contract"
)

// MapRegistry is an enum-keyed policy table. New agent kinds are added by
// registering a policy, not by touching router logic.
type MapRegistry map[contractx.AgentKind]contractx.Policy

var _ contractx.Registry = MapRegistry(nil)

func (r MapRegistry) Policy(kind contractx.AgentKind) (contractx.Policy, bool) {
	p, ok := r[kind]
	return p, ok
}

// NewRuleRegistry wires the built-in rule-based policies over one shared
// catalog.
func NewRuleRegistry(catalog *connectorx.Catalog) MapRegistry {
	if catalog == nil {
		catalog = connectorx.DefaultCatalog()
	}
	return MapRegistry{
		contractx.AgentTriage:      NewTriage(catalog),
		contractx.AgentProductInfo: NewProductInfo(catalog),
		contractx.AgentOrder:       NewOrder(catalog),
		contractx.AgentTrouble:     NewTrouble(catalog),
	}
}
