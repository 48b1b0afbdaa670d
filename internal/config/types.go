// Package config reads the per-component declarative test configuration
// (test.config.json) that drives discovery and scenario generation.
package config

// Kind identifies which role a component plays in a scenario.
type Kind string

const (
	KindServer      Kind = "server"
	KindClient      Kind = "client"
	KindFacilitator Kind = "facilitator"
)

// ProtocolFamily is one of the blockchain protocol families a component or
// endpoint can support.
type ProtocolFamily string

const (
	ProtocolEVM   ProtocolFamily = "evm"
	ProtocolSVM   ProtocolFamily = "svm"
	ProtocolAptos ProtocolFamily = "aptos"

	defaultFamily ProtocolFamily = ProtocolEVM
)

// TransferMethod is, for EVM endpoints, the on-chain transfer mechanism used
// to move funds. It is an additional coverage axis alongside protocol family.
type TransferMethod string

const (
	TransferEIP3009 TransferMethod = "eip3009"
	TransferPermit2 TransferMethod = "permit2"
)

// Endpoint describes one HTTP route exposed by a server component. Only
// endpoints with RequiresPayment participate in scenario generation.
type Endpoint struct {
	Path            string         `json:"path"`
	Method          string         `json:"method"`
	Description     string         `json:"description,omitempty"`
	RequiresPayment bool           `json:"requiresPayment"`
	ProtocolFamily  ProtocolFamily `json:"protocolFamily,omitempty"`
	TransferMethod  TransferMethod `json:"transferMethod,omitempty"`
}

// Family returns the endpoint's protocol family, defaulting to evm when unset.
func (e Endpoint) Family() ProtocolFamily {
	if e.ProtocolFamily == "" {
		return defaultFamily
	}
	return e.ProtocolFamily
}

// Transfer returns the endpoint's transfer method, defaulting to eip3009 when
// unset. Only meaningful for evm endpoints.
func (e Endpoint) Transfer() TransferMethod {
	if e.TransferMethod == "" {
		return TransferEIP3009
	}
	return e.TransferMethod
}

// TestConfig is the structured form of a component's test.config.json. It is
// read once at startup and is immutable thereafter.
type TestConfig struct {
	Name             string           `json:"name"`
	Type             Kind             `json:"type"`
	Language         string           `json:"language,omitempty"`
	ProtocolFamilies []ProtocolFamily `json:"protocolFamilies,omitempty"`

	// Server-only.
	X402Version *int       `json:"x402Version,omitempty"`
	Endpoints   []Endpoint `json:"endpoints,omitempty"`

	// Client-only.
	X402Versions []int `json:"x402Versions,omitempty"`

	Required []string `json:"required,omitempty"`
	Optional []string `json:"optional,omitempty"`

	// Command launches the component's subprocess, e.g. ["node", "index.js"]
	// or ["go", "run", "."]. Run with cwd set to the component's directory.
	Command []string `json:"command,omitempty"`
}

// Families returns the component's supported protocol families, defaulting
// to [evm] when the config declares none.
func (c TestConfig) Families() []ProtocolFamily {
	if len(c.ProtocolFamilies) == 0 {
		return []ProtocolFamily{defaultFamily}
	}
	return c.ProtocolFamilies
}

// SupportsFamily reports whether family is among the component's declared
// (or defaulted) protocol families.
func (c TestConfig) SupportsFamily(family ProtocolFamily) bool {
	for _, f := range c.Families() {
		if f == family {
			return true
		}
	}
	return false
}

// SupportsVersion reports whether v is among the client's declared versions.
// Only meaningful for KindClient configs.
func (c TestConfig) SupportsVersion(v int) bool {
	for _, cv := range c.X402Versions {
		if cv == v {
			return true
		}
	}
	return false
}

// ProtectedPath returns the path of the component's first payment-required
// endpoint, or "" if it declares none. Server components expose exactly one
// protected path per combo; multiple payment endpoints are not currently
// distinguished by the proxy contract.
func (c TestConfig) ProtectedPath() string {
	if eps := c.PaymentEndpoints(); len(eps) > 0 {
		return eps[0].Path
	}
	return ""
}

// PaymentEndpoints returns the subset of Endpoints with RequiresPayment set.
func (c TestConfig) PaymentEndpoints() []Endpoint {
	var out []Endpoint
	for _, e := range c.Endpoints {
		if e.RequiresPayment {
			out = append(out, e)
		}
	}
	return out
}

// RequiredEnv returns the required env var names, minus the framework-managed
// keys in frameworkManagedEnv (port, private-key, network and RPC-URL names),
// which are left out of per-facilitator env validation.
func (c TestConfig) RequiredEnv() []string {
	var out []string
	for _, name := range c.Required {
		if !frameworkManagedEnv[name] {
			out = append(out, name)
		}
	}
	return out
}

var frameworkManagedEnv = map[string]bool{
	"PORT":            true,
	"EVM_PRIVATE_KEY": true,
	"SVM_PRIVATE_KEY": true,
	"EVM_NETWORK":     true,
	"SVM_NETWORK":     true,
	"EVM_RPC_URL":     true,
	"SVM_RPC_URL":     true,
}
