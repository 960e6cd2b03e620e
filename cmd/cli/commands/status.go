package commands

import (
	"errors"
	"time"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/toolbench/gateway-client/pkg/gateway/transport"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether the AI gateway is running and healthy",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			running, err := gw.controller.Status(ctx)
			switch {
			case errors.Is(err, transport.ErrBridgeUnavailable):
				cmd.Println("No command bridge configured (set GATEWAY_COMMAND); probing directly")
			case err != nil:
				return err
			case running:
				cmd.Println(color.GreenString("Gateway process is running"))
			default:
				cmd.Println(color.RedString("Gateway process is not running"))
			}

			if gw.monitor.CheckHealth(ctx, 0) {
				cmd.Println(color.GreenString("Gateway is healthy"))
			} else {
				cmd.Printf("%s (%s)\n", color.RedString("Gateway is not healthy"), gw.monitor.LastResult())
			}

			if gw.supervisor != nil {
				if info, err := gw.supervisor.ProcessInfo(); err == nil {
					cmd.Printf("PID %d, up %s", info.PID, units.HumanDuration(time.Since(info.StartedAt)))
					if info.ResidentBytes > 0 {
						cmd.Printf(", resident memory %s", units.BytesSize(float64(info.ResidentBytes)))
					}
					cmd.Println()
				}
			}
			return nil
		},
	}
}
