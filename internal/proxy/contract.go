// Package proxy implements the uniform start/stop/health/call contract
// (spec.md §4.6) that wraps the opaque subprocesses the orchestrator drives:
// servers, clients, and facilitators written in any language. The core makes
// no assumption about how a proxy runs its subprocess; it only requires
// obedience to the interfaces below.
package proxy

import (
	"context"

	"muster/internal/config"
)

// HealthResult is the outcome of a single health probe.
type HealthResult struct {
	Success bool
	Error   string
}

// ServerConfig carries what a server subprocess needs to start.
type ServerConfig struct {
	Port int
	// Payee addresses keyed by protocol family (evm, svm, aptos).
	Payee map[config.ProtocolFamily]string
	// Network identifiers this server should accept (e.g. "eip155:84532").
	Network []string
	// FacilitatorURL is empty when the scenario has no facilitator.
	FacilitatorURL string
}

// Server is the proxy contract for a server-kind component.
type Server interface {
	// Start launches the subprocess and resolves once the process has been
	// spawned (not once it is healthy — health is a separate gate).
	Start(ctx context.Context, cfg ServerConfig) error
	Health(ctx context.Context) (HealthResult, error)
	URL() string
	ProtectedPath() string
	// Stop is idempotent: calling it after an already-stopped proxy is a
	// no-op, not an error.
	Stop(ctx context.Context) error
}

// FacilitatorConfig carries what a facilitator subprocess needs to start.
type FacilitatorConfig struct {
	Port          int
	Network       []string
	EVMPrivateKey string
	SVMPrivateKey string
	Env           map[string]string
}

// Facilitator is the proxy contract for a facilitator-kind component.
type Facilitator interface {
	Start(ctx context.Context, cfg FacilitatorConfig) error
	Health(ctx context.Context) (HealthResult, error)
	URL() string
	Stop(ctx context.Context) error
}

// ClientConfig carries what a client subprocess needs to run one call.
type ClientConfig struct {
	// Private keys keyed by protocol family.
	PrivateKeys map[config.ProtocolFamily]string
	ServerURL   string
	Endpoint    string
}

// PaymentResponse is the decoded x402 payment envelope returned by a client.
type PaymentResponse struct {
	Success     bool   `json:"success"`
	Transaction string `json:"transaction,omitempty"`
	Network     string `json:"network,omitempty"`
	ErrorReason string `json:"errorReason,omitempty"`
}

// ClientResult is the outcome of one client.Call invocation.
type ClientResult struct {
	Success         bool
	Data            map[string]interface{}
	StatusCode      int
	PaymentResponse *PaymentResponse
	Error           string
}

// Client is the proxy contract for a client-kind component.
type Client interface {
	Call(ctx context.Context, cfg ClientConfig) (ClientResult, error)
	// RevokePermit2 exercises the client's EIP-2612 revoke path for a
	// transferMethod=permit2 endpoint. Used by the eip2612-gas-sponsoring
	// extension immediately before a scenario runs, so the facilitator's
	// sponsorship of the approval is actually exercised rather than reusing
	// a stale allowance.
	RevokePermit2(ctx context.Context, cfg ClientConfig) error
	// ForceStop is idempotent and guaranteed-safe to call even if Call never
	// started a subprocess (e.g. it failed before spawning).
	ForceStop(ctx context.Context) error
}
