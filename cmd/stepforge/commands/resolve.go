package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stepforge/stepforge/pkg/infra"
)

func newResolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <ram-mb>",
		Short: "Resolve the expected CPU allocation for a RAM size",
		Long: `Resolve the compute units a handler is expected to declare for a given
RAM allocation, using the provider's calibration table. Values between
table entries are linearly interpolated; values outside the table are
clamped to its endpoints.`,
		Example: `  stepforge resolve 2048
  stepforge resolve 3072 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ramMB, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid RAM size %q: %w", args[0], err)
			}
			if ramMB <= 0 {
				return fmt.Errorf("RAM size must be positive, got %d", ramMB)
			}

			cpu := infra.NewCPUResolver().Resolve(ramMB)

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"ramMb": ramMB,
					"cpu":   cpu,
				})
			}
			fmt.Printf("%d MB -> %g CPU\n", ramMB, cpu)
			return nil
		},
	}

	return cmd
}
