// Package logging provides a small structured logging facade for the
// orchestrator CLI, built on log/slog.
//
// Log entries are tagged with a subsystem string so a run can be filtered by
// component (Discovery, ConfigLoader, HealthPoller, ComboExecutor,
// Orchestrator, FacilitatorManager, ...). Init configures the sink once at
// startup (stderr by default, or the file given to --log-file); --verbose
// raises the minimum level to Debug.
package logging
