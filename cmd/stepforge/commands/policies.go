package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stepforge/stepforge/pkg/policy"
)

func newPoliciesCommand() *cobra.Command {
	var policyPaths []string

	cmd := &cobra.Command{
		Use:   "policies",
		Short: "List advisory policies",
		Long: `List the advisory policies that would run during validation: the
built-in set plus any project-supplied rego or JSON policy files.`,
		Example: `  stepforge policies
  stepforge policies --policy ./policies --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := policy.NewEngine(log.Logger)
			if err != nil {
				return fmt.Errorf("failed to create policy engine: %w", err)
			}
			if len(policyPaths) > 0 {
				if err := engine.LoadPolicies(cmd.Context(), policyPaths); err != nil {
					return err
				}
			}

			policies := engine.ListPolicies()

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(policies)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSEVERITY\tENABLED\tDESCRIPTION")
			for _, p := range policies {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", p.Name, p.Severity, p.Enabled, p.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "additional policy file or directory (repeatable)")

	return cmd
}
