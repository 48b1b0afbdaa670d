// Package orchestrator binds every other package together into the
// top-level run sequence described in spec.md §4.13.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"muster/internal/combo"
	"muster/internal/concurrency"
	"muster/internal/config"
	"muster/internal/discovery"
	"muster/internal/facilitator"
	"muster/internal/metrics"
	"muster/internal/minimize"
	"muster/internal/portalloc"
	"muster/internal/proxy"
	"muster/internal/scenario"
	"muster/pkg/logging"
)

// networkIdentifiers maps --network-mode to the chain identifiers a server
// proxy should accept, per family. Mainnet vs testnet is purely a network-ID
// substitution; no key-pattern safety gate is implemented (see DESIGN.md).
var networkIdentifiers = map[string]map[config.ProtocolFamily]string{
	"testnet": {
		config.ProtocolEVM:   "eip155:84532",
		config.ProtocolSVM:   "solana:devnet",
		config.ProtocolAptos: "aptos:testnet",
	},
	"mainnet": {
		config.ProtocolEVM:   "eip155:8453",
		config.ProtocolSVM:   "solana:mainnet",
		config.ProtocolAptos: "aptos:mainnet",
	},
}

// familyOrder fixes the iteration order networksFor and the EVM_NETWORK/
// NETWORK env vars rely on positionally (Network[0]); ranging over the
// families map directly would make that choice non-deterministic across
// runs of the same config.
var familyOrder = []config.ProtocolFamily{config.ProtocolEVM, config.ProtocolSVM, config.ProtocolAptos}

func networksFor(mode string, families map[config.ProtocolFamily]bool) []string {
	set := networkIdentifiers[mode]
	if set == nil {
		set = networkIdentifiers["testnet"]
	}
	var out []string
	for _, family := range familyOrder {
		if !families[family] {
			continue
		}
		if id, ok := set[family]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Config controls one orchestrator run.
type Config struct {
	BaseDir       string
	IncludeLegacy bool
	Overlay       *config.Overlay

	Concurrency int
	Parallel    bool
	NetworkMode string

	Minimize bool

	EVMSettleDelay time.Duration

	// Permit2SetupCommand, when non-empty, is run once (cwd = BaseDir) if
	// any selected scenario uses transferMethod=permit2 and
	// GasSponsoringEnabled is false. See spec.md §4.13 step 9.
	Permit2SetupCommand  []string
	GasSponsoringEnabled bool

	// Metrics, when non-nil, is fed combo and facilitator timing data. Nil
	// disables all metrics recording.
	Metrics *metrics.Collector

	// Env resolves environment variables; defaults to os.LookupEnv.
	Env EnvLookup
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if !c.Parallel {
		c.Concurrency = 1
	}
	if c.Env == nil {
		c.Env = os.LookupEnv
	}
	return c
}

// Report is the outcome of one Run call.
type Report struct {
	RunID       string
	NoScenarios bool
	NetworkMode string
	Results     []combo.Result
}

// AnyFailed reports whether at least one scenario result failed, per
// spec.md §6's exit-code rule.
func (r Report) AnyFailed() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return true
		}
	}
	return false
}

// Run executes the full orchestration sequence, spec.md §4.13. A non-nil
// error always indicates a fatal, pre-execution startup failure (env
// validation, facilitator start, permit2 setup); scenario-level failures
// are reported in Report.Results instead.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	cfg = cfg.withDefaults()
	runID := uuid.NewString()

	discovered := discovery.Run(discovery.Options{
		BaseDir:       cfg.BaseDir,
		IncludeLegacy: cfg.IncludeLegacy,
		Overlay:       cfg.Overlay,
	})

	families := activeFamilies(discovered.Servers, discovered.Clients)
	if err := validateEnv("global", requiredGlobalEnv(families), cfg.Env); err != nil {
		return nil, err
	}

	generated := scenario.Generate(discovered.Clients, discovered.Servers)
	if len(generated) == 0 {
		logging.Info("Orchestrator", "No test scenarios found")
		return &Report{RunID: runID, NoScenarios: true, NetworkMode: cfg.NetworkMode}, nil
	}

	materialized := materialize(generated, discovered.Facilitators)
	if cfg.Minimize {
		kept, stats := minimize.Minimize(materialized)
		logging.Info("Orchestrator", "minimized %d scenarios to %d (%.1f%% reduction)", stats.Total, stats.Kept, stats.Reduction)
		materialized = kept
	}

	if err := validateFacilitatorEnv(discovered.Facilitators, cfg.Env); err != nil {
		return nil, err
	}

	cleanupStalePorts()

	ports := portalloc.New()
	facilitatorPorts := make(map[string]int, len(discovered.Facilitators))
	for _, f := range discovered.Facilitators {
		facilitatorPorts[f.Name] = ports.Next()
	}

	network := networksFor(cfg.NetworkMode, families)
	managers, err := startFacilitators(ctx, discovered.Facilitators, facilitatorPorts, network, cfg.Env)
	if err != nil {
		return nil, err
	}
	defer stopFacilitators(ctx, managers)

	facilitatorURLs, err := awaitFacilitators(managers, cfg.Metrics)
	if err != nil {
		return nil, err
	}
	for i, ms := range materialized {
		if ms.FacilitatorName != "" {
			materialized[i].FacilitatorURL = facilitatorURLs[ms.FacilitatorName]
		}
	}

	if needsPermit2Setup(materialized) && !cfg.GasSponsoringEnabled {
		if err := runPermit2Setup(ctx, cfg); err != nil {
			return nil, fmt.Errorf("permit2 setup: %w", err)
		}
	}

	combos := combo.Build(materialized, ports)

	var lock *concurrency.FacilitatorLock
	if cfg.Parallel {
		lock = concurrency.NewFacilitatorLock()
	}

	keys := map[config.ProtocolFamily]string{}
	if v, ok := cfg.Env("CLIENT_EVM_PRIVATE_KEY"); ok {
		keys[config.ProtocolEVM] = v
	}
	if v, ok := cfg.Env("CLIENT_SVM_PRIVATE_KEY"); ok {
		keys[config.ProtocolSVM] = v
	}
	payee := map[config.ProtocolFamily]string{}
	if v, ok := cfg.Env("SERVER_EVM_ADDRESS"); ok {
		payee[config.ProtocolEVM] = v
	}
	if v, ok := cfg.Env("SERVER_SVM_ADDRESS"); ok {
		payee[config.ProtocolSVM] = v
	}

	results := executeCombos(ctx, combos, cfg, lock, keys, payee, network)

	return &Report{RunID: runID, NetworkMode: cfg.NetworkMode, Results: results}, nil
}

func executeCombos(ctx context.Context, combos []combo.Combo, cfg Config, lock *concurrency.FacilitatorLock, keys, payee map[config.ProtocolFamily]string, network []string) []combo.Result {
	sem := concurrency.NewSemaphore(cfg.Concurrency)
	numbers := &combo.TestNumberGenerator{}

	allResults := make([][]combo.Result, len(combos))
	var wg sync.WaitGroup
	for i, c := range combos {
		release, err := sem.Acquire(ctx)
		if err != nil {
			logging.Warn("Orchestrator", "combo %d: semaphore acquire failed: %v", c.ComboIndex, err)
			continue
		}
		wg.Add(1)
		go func(i int, c combo.Combo) {
			defer wg.Done()
			defer release()
			cfg.Metrics.ComboStarted()
			defer cfg.Metrics.ComboFinished()
			allResults[i] = combo.Execute(ctx, c, combo.Options{
				Lock:                 lock,
				TestNumbers:          numbers,
				Keys:                 keys,
				Payee:                payee,
				Network:              network,
				EVMSettleDelay:       cfg.EVMSettleDelay,
				GasSponsoringEnabled: cfg.GasSponsoringEnabled,
			})
		}(i, c)
	}
	wg.Wait()

	var flattened []combo.Result
	for _, r := range allResults {
		flattened = append(flattened, r...)
	}
	return flattened
}

// awaitFacilitators waits for every facilitator manager to become ready,
// using errgroup so the first failure is reported promptly rather than
// waiting out every manager's full health-poll budget.
func awaitFacilitators(managers map[string]*facilitator.Manager, collector *metrics.Collector) (map[string]string, error) {
	var g errgroup.Group
	var mu sync.Mutex
	failed := make(chan error, 1)
	urls := make(map[string]string, len(managers))
	for name, m := range managers {
		name, m := name, m
		start := time.Now()
		g.Go(func() error {
			url, ok := m.Ready()
			if !ok {
				err := fmt.Errorf("facilitator %s failed to become ready", name)
				select {
				case failed <- err:
				default:
				}
				return err
			}
			collector.ObserveFacilitatorReady(name, time.Since(start).Seconds())
			mu.Lock()
			urls[name] = url
			mu.Unlock()
			return nil
		})
	}
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-failed:
		return nil, err
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return urls, nil
	}
}

func validateFacilitatorEnv(facilitators []discovery.Facilitator, lookup EnvLookup) error {
	seen := make(map[string]bool)
	var required []string
	for _, f := range facilitators {
		for _, name := range f.Config.RequiredEnv() {
			if !seen[name] {
				seen[name] = true
				required = append(required, name)
			}
		}
	}
	return validateEnv("facilitator", required, lookup)
}

func startFacilitators(ctx context.Context, facilitators []discovery.Facilitator, ports map[string]int, network []string, lookup EnvLookup) (map[string]*facilitator.Manager, error) {
	managers := make(map[string]*facilitator.Manager, len(facilitators))
	for _, f := range facilitators {
		cfg := proxy.FacilitatorConfig{
			Port:    ports[f.Name],
			Network: network,
		}
		if v, ok := lookup("FACILITATOR_EVM_PRIVATE_KEY"); ok {
			cfg.EVMPrivateKey = v
		}
		if v, ok := lookup("FACILITATOR_SVM_PRIVATE_KEY"); ok {
			cfg.SVMPrivateKey = v
		}
		managers[f.Name] = facilitator.New(ctx, f.Name, f.Proxy, cfg)
	}
	return managers, nil
}

func stopFacilitators(ctx context.Context, managers map[string]*facilitator.Manager) {
	var g errgroup.Group
	for name, m := range managers {
		name, m := name, m
		g.Go(func() error {
			if err := m.Stop(ctx); err != nil {
				logging.Warn("Orchestrator", "facilitator %s: error stopping: %v", name, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func needsPermit2Setup(scenarios []combo.MaterializedScenario) bool {
	for _, s := range scenarios {
		if s.Endpoint.Transfer() == config.TransferPermit2 {
			return true
		}
	}
	return false
}

func runPermit2Setup(ctx context.Context, cfg Config) error {
	if len(cfg.Permit2SetupCommand) == 0 {
		logging.Warn("Orchestrator", "permit2 scenarios present but no setup command configured, skipping base approval")
		return nil
	}
	cmd := exec.CommandContext(ctx, cfg.Permit2SetupCommand[0], cfg.Permit2SetupCommand[1:]...)
	cmd.Dir = cfg.BaseDir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, string(out))
	}
	return nil
}

// cleanupStalePorts is a best-effort hook for reclaiming ports left bound
// by a previous crashed run. No portable, dependency-free way exists to
// discover "this process's stale listeners" across platforms, so this
// implementation only pauses briefly to let any exiting processes from a
// prior run release their sockets, matching spec.md §4.13 step 6.
func cleanupStalePorts() {
	time.Sleep(200 * time.Millisecond)
}
