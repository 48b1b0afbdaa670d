package orchestrator

import (
	"muster/internal/combo"
	"muster/internal/discovery"
	"muster/internal/scenario"
)

// materialize binds each generated scenario to every discovered facilitator
// (producing one MaterializedScenario per pairing), or to no facilitator at
// all when none are discovered, per spec.md §4.3's "facilitator association
// is performed later by the orchestrator".
func materialize(scenarios []scenario.Scenario, facilitators []discovery.Facilitator) []combo.MaterializedScenario {
	if len(facilitators) == 0 {
		out := make([]combo.MaterializedScenario, 0, len(scenarios))
		for _, s := range scenarios {
			out = append(out, combo.MaterializedScenario{Scenario: s})
		}
		return out
	}

	out := make([]combo.MaterializedScenario, 0, len(scenarios)*len(facilitators))
	for _, s := range scenarios {
		for _, f := range facilitators {
			out = append(out, combo.MaterializedScenario{
				Scenario:        s,
				FacilitatorName: f.Name,
			})
		}
	}
	return out
}
