package commands

import (
	"errors"

	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Show the retained tail of the gateway's output",
		RunE: func(cmd *cobra.Command, args []string) error {
			if gw.supervisor == nil {
				return errors.New("no supervised gateway process (set GATEWAY_COMMAND)")
			}
			out := gw.supervisor.Logs()
			if len(out) == 0 {
				cmd.Println("No gateway output retained")
				return nil
			}
			cmd.Print(string(out))
			return nil
		},
	}
}
