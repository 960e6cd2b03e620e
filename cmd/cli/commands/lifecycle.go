package commands

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/toolbench/gateway-client/pkg/gateway/lifecycle"
)

func newStartCmd() *cobra.Command {
	var wait time.Duration
	c := &cobra.Command{
		Use:   "start",
		Short: "Start the AI gateway process",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := gw.controller.Start(ctx); err != nil {
				return err
			}
			if wait > 0 && !gw.controller.WaitForReady(ctx, wait, 500*time.Millisecond) {
				// Not necessarily fatal: the gateway may still come up.
				cmd.PrintErrln("Warning: gateway did not become ready in time")
				return nil
			}
			cmd.Println("Gateway started")
			return nil
		},
	}
	c.Flags().DurationVar(&wait, "wait", 10*time.Second, "How long to wait for readiness (0 to skip)")
	return c
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the AI gateway process",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := gw.controller.Stop(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("Gateway stopped")
			return nil
		},
	}
}

func newRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the AI gateway process and wait for readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := gw.controller.Restart(cmd.Context()); err != nil {
				if errors.Is(err, lifecycle.ErrNotReadyInTime) {
					cmd.PrintErrln("Warning: gateway restarted but did not become ready in time")
					return nil
				}
				return err
			}
			cmd.Println("Gateway restarted")
			return nil
		},
	}
}

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask the running gateway to reload its configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := gw.controller.Reload(cmd.Context()); err != nil {
				if errors.Is(err, lifecycle.ErrReloadUnsupported) {
					cmd.Println("The running gateway version does not support reload; restart it instead")
					return nil
				}
				return err
			}
			cmd.Println("Gateway configuration reloaded")
			return nil
		},
	}
}
