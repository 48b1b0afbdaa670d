// Package coverage tracks which component and endpoint combinations a set
// of scenarios has already exercised, per spec.md §3/§4.4. The tracker is
// monotonic: once a key is marked covered it is never un-marked.
package coverage

import "fmt"

// ComponentKey builds the coverage key for a client, server, or facilitator:
// "${name}-${protocolFamily}-v${version}".
func ComponentKey(name string, family string, version int) string {
	return fmt.Sprintf("%s-%s-v%d", name, family, version)
}

// EndpointKey builds the coverage key for a server endpoint:
// "${serverName}-${endpointPath}-${protocolFamily}[-${transferMethod}]-v${version}".
// The transfer-method suffix is present only when family is "evm".
func EndpointKey(serverName, path, family, transferMethod string, version int) string {
	if family == "evm" {
		return fmt.Sprintf("%s-%s-%s-%s-v%d", serverName, path, family, transferMethod, version)
	}
	return fmt.Sprintf("%s-%s-%s-v%d", serverName, path, family, version)
}

// Keys is the four coverage keys a single scenario contributes.
type Keys struct {
	Client      string
	Server      string
	Facilitator string // empty when the scenario has no facilitator
	Endpoint    string
}

// Tracker holds the four covered-sets (client, server, facilitator,
// endpoint) and decides whether a scenario's keys add new coverage.
// Not safe for concurrent use; spec.md §5 restricts it to the single-
// threaded minimization pass.
type Tracker struct {
	client      map[string]bool
	server      map[string]bool
	facilitator map[string]bool
	endpoint    map[string]bool
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		client:      make(map[string]bool),
		server:      make(map[string]bool),
		facilitator: make(map[string]bool),
		endpoint:    make(map[string]bool),
	}
}

// IsNewCoverage reports whether any of k's keys is not yet covered. A scenario
// with an empty Facilitator key never contributes new facilitator coverage.
func (t *Tracker) IsNewCoverage(k Keys) bool {
	if !t.client[k.Client] {
		return true
	}
	if !t.server[k.Server] {
		return true
	}
	if k.Facilitator != "" && !t.facilitator[k.Facilitator] {
		return true
	}
	if !t.endpoint[k.Endpoint] {
		return true
	}
	return false
}

// MarkCovered atomically updates all four covered-sets with k's keys.
// Idempotent: marking an already-covered key is a no-op.
func (t *Tracker) MarkCovered(k Keys) {
	t.client[k.Client] = true
	t.server[k.Server] = true
	if k.Facilitator != "" {
		t.facilitator[k.Facilitator] = true
	}
	t.endpoint[k.Endpoint] = true
}
