package x402orch

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"muster/internal/config"
	"muster/internal/discovery"
	"muster/internal/metrics"
	"muster/internal/orchestrator"
	"muster/internal/report"
	"muster/pkg/logging"
)

type runFlags struct {
	baseDir       string
	legacy        bool
	min           bool
	parallel      bool
	concurrency   int
	networkMode   string
	outputJSON    string
	evmSettleMS   int
	logFile       string
	verbose       bool
	metricsAddr   string
	overlayPath   string
	permit2Setup  []string
	gasSponsoring bool
	watch         bool
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Discover components and run the x402 scenario matrix",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.baseDir, "base-dir", ".", "root directory containing servers/, clients/, facilitators/")
	f.BoolVar(&flags.legacy, "legacy", false, "include legacy/legacy-*/ directories in discovery")
	f.BoolVar(&flags.min, "min", false, "minimize the scenario set via coverage-based set cover before running")
	f.BoolVar(&flags.parallel, "parallel", false, "run combos concurrently instead of sequentially")
	f.IntVar(&flags.concurrency, "concurrency", 1, "max combos running at once when --parallel is set")
	f.StringVar(&flags.networkMode, "network-mode", "testnet", "network identifiers to use: testnet or mainnet")
	f.StringVar(&flags.outputJSON, "output-json", "", "write the full JSON report to this path")
	f.IntVar(&flags.evmSettleMS, "evm-settle-ms", 0, "delay after an EVM scenario before releasing the facilitator lock")
	f.StringVar(&flags.logFile, "log-file", "", "write logs to this file instead of stderr")
	f.BoolVar(&flags.verbose, "verbose", false, "enable debug-level logging")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")
	f.StringVar(&flags.overlayPath, "overlay", "", "path to an optional x402orch.yaml overlay file")
	f.StringSliceVar(&flags.permit2Setup, "permit2-setup-command", nil, "command to run once before any permit2 scenario, unless --gas-sponsoring is set")
	f.BoolVar(&flags.gasSponsoring, "gas-sponsoring", false, "skip permit2 base-approval setup because the facilitator sponsors gas")
	f.BoolVar(&flags.watch, "watch", false, "re-run discovery and the scenario matrix whenever a test.config.json changes")

	return cmd
}

func runRun(cmd *cobra.Command, flags *runFlags) error {
	level := logging.LevelInfo
	if flags.verbose {
		level = logging.LevelDebug
	}
	sink := os.Stderr
	if flags.logFile != "" {
		f, err := os.OpenFile(flags.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logging.Init(level, f)
	} else {
		logging.Init(level, sink)
	}

	var overlay *config.Overlay
	if flags.overlayPath != "" {
		o, err := config.LoadOverlay(flags.overlayPath)
		if err != nil {
			return fmt.Errorf("loading overlay: %w", err)
		}
		overlay = o
	}

	var collector *metrics.Collector
	if flags.metricsAddr != "" {
		collector = metrics.NewCollector()
		server := &http.Server{Addr: flags.metricsAddr, Handler: collector.Handler()}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Warn("Orchestrator", "metrics server exited: %v", err)
			}
		}()
		logging.Info("Orchestrator", "serving metrics on %s", flags.metricsAddr)
	}

	orchCfg := orchestrator.Config{
		BaseDir:              flags.baseDir,
		IncludeLegacy:        flags.legacy,
		Overlay:              overlay,
		Concurrency:          flags.concurrency,
		Parallel:             flags.parallel,
		NetworkMode:          flags.networkMode,
		Minimize:             flags.min,
		EVMSettleDelay:       time.Duration(flags.evmSettleMS) * time.Millisecond,
		Permit2SetupCommand:  flags.permit2Setup,
		GasSponsoringEnabled: flags.gasSponsoring,
		Metrics:              collector,
	}

	if !flags.watch {
		return runOnce(cmd, orchCfg, flags, collector)
	}
	return runWatch(cmd, orchCfg, flags, collector, overlay)
}

// runOnce executes the scenario matrix once and prints/writes its report.
func runOnce(cmd *cobra.Command, orchCfg orchestrator.Config, flags *runFlags, collector *metrics.Collector) error {
	rep, err := orchestrator.Run(cmd.Context(), orchCfg)
	if err != nil {
		return err
	}

	for _, r := range rep.Results {
		collector.RecordScenario(r.Passed)
	}

	doc := report.Build(rep.Results, rep.NetworkMode)
	report.PrintSummary(cmd.OutOrStdout(), doc)

	if flags.outputJSON != "" {
		if err := report.WriteJSON(flags.outputJSON, doc); err != nil {
			return err
		}
	}

	if rep.NoScenarios {
		return nil
	}
	if doc.Summary.Failed > 0 {
		return errScenariosFailed
	}
	return nil
}

// runWatch runs the matrix once, then re-runs it every time discovery.Watch
// reports a test.config.json change, until the command's context is done.
// Per-iteration errors are logged, not returned, so one broken combo doesn't
// kill the watch loop; the command's own exit code reflects only the
// fsnotify watcher's ability to start.
func runWatch(cmd *cobra.Command, orchCfg orchestrator.Config, flags *runFlags, collector *metrics.Collector, overlay *config.Overlay) error {
	if err := runOnce(cmd, orchCfg, flags, collector); err != nil && !errors.Is(err, errScenariosFailed) {
		logging.Warn("Orchestrator", "run failed: %v", err)
	}

	stop := make(chan struct{})
	changes, err := discovery.Watch(discovery.Options{
		BaseDir:       flags.baseDir,
		IncludeLegacy: flags.legacy,
		Overlay:       overlay,
	}, stop)
	if err != nil {
		return fmt.Errorf("starting watch: %w", err)
	}

	for {
		select {
		case <-cmd.Context().Done():
			close(stop)
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			if err := runOnce(cmd, orchCfg, flags, collector); err != nil && !errors.Is(err, errScenariosFailed) {
				logging.Warn("Orchestrator", "run failed: %v", err)
			}
		}
	}
}

// errScenariosFailed is returned, never wrapped, when at least one scenario
// failed; runWatch checks for it by identity so a failing scenario is not
// logged as a failed run. Execute exits with ExitCodeFailure for it, as for
// any other error.
var errScenariosFailed = errors.New("one or more scenarios failed")
