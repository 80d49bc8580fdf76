package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newProbeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check whether the analysis backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := opts.client()
			health, err := client.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("analysis backend at %s unavailable: %w", client.BaseURL(), err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend: %s (%s)\n", health.Status, client.BaseURL())

			names := make([]string, 0, len(health.Models))
			for name := range health.Models {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "  %-20s %v\n", name, health.Models[name])
			}
			return nil
		},
	}
}
