package combo

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"muster/internal/concurrency"
	"muster/internal/config"
	"muster/internal/health"
	"muster/internal/proxy"
	"muster/pkg/logging"
)

// Result is the enriched, reportable outcome of one scenario, per spec.md
// §3's DetailedTestResult.
type Result struct {
	TestNumber     int    `json:"testNumber"`
	Client         string `json:"client"`
	Server         string `json:"server"`
	Endpoint       string `json:"endpoint"`
	Facilitator    string `json:"facilitator,omitempty"`
	ProtocolFamily string `json:"protocolFamily"`
	Passed         bool   `json:"passed"`
	Error          string `json:"error,omitempty"`
	Transaction    string `json:"transaction,omitempty"`
	Network        string `json:"network,omitempty"`
}

// Options carries everything the executor needs beyond the Combo itself.
type Options struct {
	// Lock serializes EVM scenarios per facilitator; nil disables locking
	// (sequential / concurrency-disabled runs don't need it).
	Lock *concurrency.FacilitatorLock
	// TestNumbers is shared across all combos in a run.
	TestNumbers *TestNumberGenerator
	// Keys are the client's private keys, per protocol family.
	Keys map[config.ProtocolFamily]string
	// Payee are the server's receive addresses, per protocol family.
	Payee map[config.ProtocolFamily]string
	// Network is the network identifier set the server should accept.
	Network []string
	// EVMSettleDelay is how long to hold the facilitator lock after an EVM
	// scenario completes, to let its on-chain nonce advance.
	EVMSettleDelay time.Duration
	// GasSponsoringEnabled activates the permit2 -> eip2612-gas-sponsoring
	// extension: permit2 scenarios revoke their allowance before each run so
	// the facilitator's sponsored approval is what actually gets exercised.
	GasSponsoringEnabled bool
}

const (
	serverHealthInitialDelay = 100 * time.Millisecond
	serverHealthInterval     = 500 * time.Millisecond
	serverHealthMaxAttempts  = 20
)

// newServerProxy is overridden in tests to avoid spawning real subprocesses.
var newServerProxy = proxy.NewServer

// Execute runs the server-start, health-gate, and sequential-scenario steps
// for one combo built by Build, per spec.md §4.11. It always stops the server
// proxy before returning, on every exit path.
func Execute(ctx context.Context, c Combo, opts Options) []Result {
	if len(c.Scenarios) == 0 {
		return nil
	}

	server := c.Scenarios[0].Server
	serverProxy := newServerProxy(server.Name, server.Directory, server.Config.Command, server.Config.ProtectedPath())

	defer func() {
		if err := serverProxy.Stop(ctx); err != nil {
			logging.Warn("ComboExecutor", "combo %d: error stopping server %s: %v", c.ComboIndex, server.Name, err)
		}
	}()

	if err := serverProxy.Start(ctx, proxy.ServerConfig{
		Port:           c.Port,
		Payee:          opts.Payee,
		Network:        opts.Network,
		FacilitatorURL: c.FacilitatorURL,
	}); err != nil {
		logging.Warn("ComboExecutor", "combo %d: server %s failed to start: %v", c.ComboIndex, server.Name, err)
		return failAll(c, opts, "Server failed to start")
	}

	healthy := health.Wait(ctx, func(ctx context.Context) (bool, error) {
		res, err := serverProxy.Health(ctx)
		if err != nil {
			return false, err
		}
		return res.Success, nil
	}, health.Options{
		Label:        fmt.Sprintf("combo %d server %s", c.ComboIndex, server.Name),
		InitialDelay: serverHealthInitialDelay,
		Interval:     serverHealthInterval,
		MaxAttempts:  serverHealthMaxAttempts,
	})

	if !healthy {
		return failAll(c, opts, "Server failed to start")
	}

	results := make([]Result, 0, len(c.Scenarios))
	for _, ms := range c.Scenarios {
		results = append(results, runScenario(ctx, ms, serverProxy.URL(), opts))
	}
	return results
}

func runScenario(ctx context.Context, ms MaterializedScenario, serverURL string, opts Options) Result {
	testNumber := opts.TestNumbers.Next()

	if opts.GasSponsoringEnabled && ms.Endpoint.Transfer() == config.TransferPermit2 {
		if err := ms.Client.Proxy.RevokePermit2(ctx, proxy.ClientConfig{
			PrivateKeys: opts.Keys,
			ServerURL:   serverURL,
			Endpoint:    ms.Endpoint.Path,
		}); err != nil {
			logging.Warn("ComboExecutor", "test #%d: permit2 revoke failed for %s: %v", testNumber, ms.Client.Name, err)
		}
	}

	if ms.ProtocolFamily == config.ProtocolEVM && ms.FacilitatorName != "" && opts.Lock != nil {
		release, err := opts.Lock.Acquire(ctx, concurrency.Key(ms.FacilitatorName))
		if err != nil {
			return Result{
				TestNumber:     testNumber,
				Client:         ms.Client.Name,
				Server:         ms.Server.Name,
				Endpoint:       ms.Endpoint.Path,
				Facilitator:    ms.FacilitatorName,
				ProtocolFamily: string(ms.ProtocolFamily),
				Error:          fmt.Sprintf("acquiring facilitator lock: %v", err),
			}
		}
		result := RunSingleTest(ctx, ms, testNumber, serverURL, opts.Keys)
		if opts.EVMSettleDelay > 0 {
			time.Sleep(opts.EVMSettleDelay)
		}
		release()
		return result
	}

	return RunSingleTest(ctx, ms, testNumber, serverURL, opts.Keys)
}

func failAll(c Combo, opts Options, reason string) []Result {
	results := make([]Result, 0, len(c.Scenarios))
	for _, ms := range c.Scenarios {
		results = append(results, Result{
			TestNumber:     opts.TestNumbers.Next(),
			Client:         ms.Client.Name,
			Server:         ms.Server.Name,
			Endpoint:       ms.Endpoint.Path,
			Facilitator:    ms.FacilitatorName,
			ProtocolFamily: string(ms.ProtocolFamily),
			Error:          reason,
		})
	}
	return results
}

// RunSingleTest builds a ClientConfig, invokes the client, and classifies
// the outcome per spec.md §4.12. client.ForceStop is always called on the
// way out.
func RunSingleTest(ctx context.Context, ms MaterializedScenario, testNumber int, serverURL string, keys map[config.ProtocolFamily]string) Result {
	logging.Info("ComboExecutor", "test #%d: %s -> %s%s (%s)", testNumber, ms.Client.Name, ms.Server.Name, ms.Endpoint.Path, ms.ProtocolFamily)

	defer func() {
		if err := ms.Client.Proxy.ForceStop(ctx); err != nil {
			logging.Warn("ComboExecutor", "test #%d: error force-stopping client %s: %v", testNumber, ms.Client.Name, err)
		}
	}()

	base := Result{
		TestNumber:     testNumber,
		Client:         ms.Client.Name,
		Server:         ms.Server.Name,
		Endpoint:       ms.Endpoint.Path,
		Facilitator:    ms.FacilitatorName,
		ProtocolFamily: string(ms.ProtocolFamily),
	}

	clientResult, err := ms.Client.Proxy.Call(ctx, proxy.ClientConfig{
		PrivateKeys: keys,
		ServerURL:   serverURL,
		Endpoint:    ms.Endpoint.Path,
	})
	if err != nil {
		base.Error = err.Error()
		return base
	}

	passed, errMsg := classify(clientResult)
	base.Passed = passed
	base.Error = errMsg
	if clientResult.PaymentResponse != nil {
		base.Transaction = clientResult.PaymentResponse.Transaction
		base.Network = clientResult.PaymentResponse.Network
	}
	return base
}

// classify applies spec.md §4.12's ordered outcome rules.
func classify(res proxy.ClientResult) (passed bool, errMsg string) {
	if !res.Success && res.StatusCode == 0 {
		return false, res.Error
	}
	if res.StatusCode == http.StatusPaymentRequired {
		return false, fmt.Sprintf("Payment failed (402): %s", res.Error)
	}
	if pr := res.PaymentResponse; pr != nil {
		if !pr.Success {
			return false, pr.ErrorReason
		}
		if pr.Transaction == "" {
			return false, "no transaction hash"
		}
		if pr.ErrorReason != "" {
			return false, pr.ErrorReason
		}
	}
	if !res.Success {
		return false, res.Error
	}
	return true, ""
}
