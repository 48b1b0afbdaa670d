// Package scenario generates the cross-product of compatible (client,
// server, endpoint, protocolFamily) tuples from discovered components,
// per spec.md §4.3. Facilitator association happens later, in the
// orchestrator.
package scenario

import (
	"muster/internal/config"
	"muster/internal/discovery"
)

// Scenario is one generated client/server/endpoint/protocol tuple, not yet
// bound to a facilitator.
type Scenario struct {
	Client         discovery.Client
	Server         discovery.Server
	Endpoint       config.Endpoint
	ProtocolFamily config.ProtocolFamily
	Version        int
}

// Generate produces every valid scenario from the discovered clients and
// servers, applying the filters in spec.md §4.3:
//   - server must declare x402Version, client must declare x402Versions
//   - server's version must be in the client's supported versions
//   - the endpoint's protocol family must be one the client supports
//   - only payment-required endpoints participate
func Generate(clients []discovery.Client, servers []discovery.Server) []Scenario {
	var out []Scenario

	for _, server := range servers {
		if server.Config.X402Version == nil {
			continue
		}
		version := *server.Config.X402Version

		for _, client := range clients {
			if len(client.Config.X402Versions) == 0 {
				continue
			}
			if !client.Config.SupportsVersion(version) {
				continue
			}

			for _, endpoint := range server.Config.PaymentEndpoints() {
				family := endpoint.Family()
				if !client.Config.SupportsFamily(family) {
					continue
				}
				out = append(out, Scenario{
					Client:         client,
					Server:         server,
					Endpoint:       endpoint,
					ProtocolFamily: family,
					Version:        version,
				})
			}
		}
	}

	return out
}
