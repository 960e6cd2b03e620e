package commands

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/toolbench/gateway-client/pkg/gateway/chat"
	"github.com/toolbench/gateway-client/pkg/gateway/health"
	"github.com/toolbench/gateway-client/pkg/gateway/lifecycle"
	"github.com/toolbench/gateway-client/pkg/gateway/supervisor"
	"github.com/toolbench/gateway-client/pkg/gateway/transport"
	"github.com/toolbench/gateway-client/pkg/metrics"
)

// app wires the gateway client components for the CLI commands.
type app struct {
	log        *logrus.Logger
	supervisor *supervisor.Supervisor
	monitor    *health.Monitor
	controller *lifecycle.Controller
	chat       *chat.Client
	streaming  *chat.StreamingClient
	recorder   *metrics.UsageRecorder
}

// gw is the shared wiring, constructed before any subcommand runs.
var gw *app

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "gateway-cli",
		Short:        "Client for the local AI inference gateway",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			gw, err = newApp()
			return err
		},
	}
	rootCmd.AddCommand(
		newStatusCmd(),
		newStartCmd(),
		newStopCmd(),
		newRestartCmd(),
		newModelsCmd(),
		newChatCmd(),
		newReloadCmd(),
		newLogsCmd(),
		newMetricsCmd(),
	)
	return rootCmd
}

// newApp builds the component graph from the environment. Without a
// GATEWAY_COMMAND there is no command bridge: lifecycle commands fail with
// a precondition error while chat and health fall through to the direct
// transport.
func newApp() (*app, error) {
	log := logrus.New()
	if os.Getenv("DEBUG") == "1" {
		log.SetLevel(logrus.DebugLevel)
	}

	endpoint := os.Getenv("GATEWAY_ENDPOINT")
	direct, err := transport.NewDirectTransport(endpoint)
	if err != nil {
		return nil, err
	}

	var bridge transport.CommandBridge
	var super *supervisor.Supervisor
	if command := os.Getenv("GATEWAY_COMMAND"); command != "" {
		super, err = supervisor.New(log.WithField("component", "supervisor"), supervisor.Config{
			Command:  command,
			Socket:   os.Getenv("GATEWAY_SOCKET"),
			Endpoint: endpoint,
		})
		if err != nil {
			return nil, err
		}
		bridge = super
	}

	pooled := transport.NewPooledTransport(bridge)
	forwarder := transport.NewBridge(log.WithField("component", "transport"), pooled, direct)
	monitor := health.NewMonitor(log.WithField("component", "health"), forwarder)
	controller := lifecycle.NewController(log.WithField("component", "lifecycle"), bridge, monitor, forwarder)
	recorder := metrics.NewUsageRecorder(log.WithField("component", "metrics"))

	return &app{
		log:        log,
		supervisor: super,
		monitor:    monitor,
		controller: controller,
		chat:       chat.NewClient(log.WithField("component", "chat"), forwarder, recorder),
		streaming:  chat.NewStreamingClient(log.WithField("component", "chat"), direct, recorder),
		recorder:   recorder,
	}, nil
}
