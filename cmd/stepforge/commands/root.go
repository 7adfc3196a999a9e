package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stepforge",
		Short: "StepForge - step infrastructure validator",
		Long: `StepForge validates the infrastructure descriptors attached to serverless
step definitions before deployment.

It checks:
  - Step structure per kind (noop, event, api, cron) via CUE schemas
  - Handler compute shape: RAM and timeout ranges, RAM-proportional CPU
  - Queue behavior: ordering mode, redelivery timing, retry policy
  - Cross-field consistency between handler and queue
  - Message grouping keys against the step's declared input contract
  - Advisory policies (OPA/rego), built-in and project-supplied`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newResolveCommand())
	rootCmd.AddCommand(newPoliciesCommand())

	return rootCmd
}
