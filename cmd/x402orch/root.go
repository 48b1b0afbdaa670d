package x402orch

import (
	"os"

	"github.com/spf13/cobra"
)

// Process exit codes: 0 when the command succeeds, 1 on any error
// (including one or more failed scenarios).
const (
	ExitCodeSuccess = 0
	ExitCodeFailure = 1
)

// rootCmd is the entry point when the binary is invoked without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "x402orch",
	Short: "Cross-implementation test orchestrator for the x402 payment protocol",
	Long: `x402orch discovers server, client, and facilitator implementations under
a base directory, generates the cross-product of scenarios they support,
optionally minimizes that set to a representative subset, and executes each
scenario against a freshly started server/facilitator pair.`,
	SilenceUsage: true,
}

// version is set at build time via -ldflags.
var version = "dev"

// SetVersion injects the build-time version into the root command.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the CLI, exiting the process with a non-zero code on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeFailure)
	}
}

func init() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the orchestrator version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("x402orch version " + version)
		},
	}
}
