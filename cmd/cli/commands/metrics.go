package commands

import (
	"github.com/spf13/cobra"
)

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print accumulated chat usage counters in Prometheus text format",
		RunE: func(cmd *cobra.Command, args []string) error {
			return gw.recorder.WriteText(cmd.OutOrStdout())
		},
	}
}
