// Package combo implements the combo executor and run-single-test
// subroutine (spec.md §4.11, §4.12): one combo drives a single server
// subprocess through all of its scenarios, serializing EVM calls through
// the facilitator lock when one is in play.
package combo

import (
	"sync/atomic"

	"muster/internal/config"
	"muster/internal/coverage"
	"muster/internal/discovery"
	"muster/internal/portalloc"
	"muster/internal/scenario"
)

// MaterializedScenario is a generated scenario bound to a facilitator (or
// no facilitator at all, when FacilitatorName is empty).
type MaterializedScenario struct {
	scenario.Scenario
	FacilitatorName string
	FacilitatorURL  string
}

// ComboKey implements minimize.Item: scenarios sharing a (server,
// facilitator) pair run in the same combo.
func (m MaterializedScenario) ComboKey() (serverName, facilitatorName string) {
	return m.Server.Name, m.FacilitatorName
}

// CoverageKeys implements minimize.Item per spec.md §3's CoverageKey rules.
func (m MaterializedScenario) CoverageKeys() coverage.Keys {
	family := string(m.ProtocolFamily)

	transfer := ""
	if m.ProtocolFamily == config.ProtocolEVM {
		transfer = string(m.Endpoint.Transfer())
	}

	keys := coverage.Keys{
		Client:   coverage.ComponentKey(m.Client.Name, family, m.Version),
		Server:   coverage.ComponentKey(m.Server.Name, family, m.Version),
		Endpoint: coverage.EndpointKey(m.Server.Name, m.Endpoint.Path, family, transfer, m.Version),
	}
	if m.FacilitatorName != "" {
		keys.Facilitator = coverage.ComponentKey(m.FacilitatorName, family, m.Version)
	}
	return keys
}

// Combo groups the scenarios sharing one server process and facilitator
// URL, per spec.md §3.
type Combo struct {
	ServerName      string
	FacilitatorName string // empty when the combo has no facilitator
	FacilitatorURL  string
	Scenarios       []MaterializedScenario
	ComboIndex      int
	Port            int
}

// Build groups scenarios by (ServerName, FacilitatorName), preserving the
// order scenarios first appear in, and assigns each combo a port from
// ports.
func Build(scenarios []MaterializedScenario, ports *portalloc.Allocator) []Combo {
	type key struct{ server, facilitator string }

	var order []key
	groups := make(map[key][]MaterializedScenario)
	servers := make(map[string]discovery.Server)

	for _, s := range scenarios {
		k := key{server: s.Server.Name, facilitator: s.FacilitatorName}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], s)
		servers[s.Server.Name] = s.Server
	}

	combos := make([]Combo, 0, len(order))
	for i, k := range order {
		grouped := groups[k]
		combos = append(combos, Combo{
			ServerName:      k.server,
			FacilitatorName: k.facilitator,
			FacilitatorURL:  grouped[0].FacilitatorURL,
			Scenarios:       grouped,
			ComboIndex:      i,
			Port:            ports.Next(),
		})
	}
	return combos
}

// TestNumberGenerator hands out globally monotonic test numbers, safe to
// call concurrently from multiple combo workers.
type TestNumberGenerator struct {
	n int64
}

// Next returns the next test number, starting at 1.
func (g *TestNumberGenerator) Next() int {
	return int(atomic.AddInt64(&g.n, 1))
}
