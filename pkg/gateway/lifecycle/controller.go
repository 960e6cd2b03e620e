package lifecycle

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/toolbench/gateway-client/pkg/gateway"
	"github.com/toolbench/gateway-client/pkg/gateway/health"
	"github.com/toolbench/gateway-client/pkg/gateway/transport"
	"github.com/toolbench/gateway-client/pkg/logging"
)

const (
	// settleDelay is the pause between stop and start during a restart,
	// giving the old process time to release its listener.
	settleDelay = 500 * time.Millisecond
	// defaultReadinessWait is the ceiling of the readiness poll performed
	// after a restart.
	defaultReadinessWait = 10 * time.Second
	// readinessRetryInterval is the cadence at which the controller retries
	// readiness probes.
	readinessRetryInterval = 500 * time.Millisecond
)

// ErrReloadUnsupported indicates that the running gateway version does not
// serve the reload endpoint. It is distinguishable from a genuine failure.
var ErrReloadUnsupported = errors.New("reload not supported by running gateway version")

// ErrNotReadyInTime indicates that the gateway did not answer a health probe
// within the readiness window. The service may still become ready later.
var ErrNotReadyInTime = errors.New("gateway took too long to become ready")

// Controller drives the gateway process through its start/stop/restart
// lifecycle. It never owns the process; commands go through the bridge and
// readiness is confirmed by polling the health monitor.
type Controller struct {
	log       logging.Logger
	bridge    transport.CommandBridge
	health    *health.Monitor
	transport transport.Transport
	// settle and readiness bounds are fixed in production; tests shorten
	// them through the With* options.
	settle        time.Duration
	readinessWait time.Duration
	readinessTick time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithSettleDelay overrides the stop-to-start settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Controller) { c.settle = d }
}

// WithReadinessBounds overrides the readiness poll ceiling and cadence used
// by Restart.
func WithReadinessBounds(maxWait, interval time.Duration) Option {
	return func(c *Controller) {
		c.readinessWait = maxWait
		c.readinessTick = interval
	}
}

// NewController creates a lifecycle controller. The transport is used for
// gateway-facing control endpoints such as reload; lifecycle commands go
// through the bridge.
func NewController(log logging.Logger, bridge transport.CommandBridge, monitor *health.Monitor, t transport.Transport, opts ...Option) *Controller {
	c := &Controller{
		log:           log,
		bridge:        bridge,
		health:        monitor,
		transport:     t,
		settle:        settleDelay,
		readinessWait: defaultReadinessWait,
		readinessTick: readinessRetryInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start issues a start command through the bridge. It does not confirm
// readiness; callers poll WaitForReady. An already-running gateway is
// treated as success.
func (c *Controller) Start(ctx context.Context) error {
	if c.bridge == nil {
		return transport.ErrBridgeUnavailable
	}
	if err := c.bridge.StartService(ctx); err != nil {
		if errors.Is(err, transport.ErrAlreadyRunning) {
			c.log.Debugln("Gateway already running")
			return nil
		}
		return errors.Wrap(err, "failed to launch gateway process")
	}
	return nil
}

// Stop issues a stop command through the bridge. A gateway that is not
// running is treated as success.
func (c *Controller) Stop(ctx context.Context) error {
	if c.bridge == nil {
		return transport.ErrBridgeUnavailable
	}
	if err := c.bridge.StopService(ctx); err != nil {
		if errors.Is(err, transport.ErrNotRunning) {
			c.log.Debugln("Gateway already stopped")
			return nil
		}
		return err
	}
	return nil
}

// Restart sequences a best-effort stop, a settle delay, a start and a
// bounded readiness poll. Stop failures are logged, not fatal: the process
// may have been stopped by another actor. Restart fails only when the start
// command fails or the readiness window exhausts.
func (c *Controller) Restart(ctx context.Context) error {
	if err := c.Stop(ctx); err != nil {
		c.log.Warnf("Best-effort stop before restart failed: %v", err)
	}
	select {
	case <-time.After(c.settle):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	if !c.WaitForReady(ctx, c.readinessWait, c.readinessTick) {
		return ErrNotReadyInTime
	}
	return nil
}

// Status reports whether the bridge considers the gateway running.
func (c *Controller) Status(ctx context.Context) (bool, error) {
	if c.bridge == nil {
		return false, transport.ErrBridgeUnavailable
	}
	return c.bridge.ServiceStatus(ctx)
}

// WaitForReady polls the health monitor at the given cadence until a probe
// succeeds, the attempt budget (maxWait/interval) exhausts, or the context
// is cancelled. There is no push notification from the gateway process, so
// polling is the only readiness signal available.
func (c *Controller) WaitForReady(ctx context.Context, maxWait, interval time.Duration) bool {
	attempts := int(maxWait / interval)
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if c.health.CheckHealth(ctx, 0) {
			return true
		}
		if attempt < attempts-1 {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return false
			}
		}
	}
	return false
}

// Reload asks the running gateway to re-read its configuration. Gateway
// versions that predate the endpoint answer 404, which is reported as
// ErrReloadUnsupported rather than a generic failure.
func (c *Controller) Reload(ctx context.Context) error {
	status, body, err := c.transport.Forward(ctx, http.MethodGet, gateway.ReloadPath, nil, nil)
	if err != nil {
		return errors.Wrap(err, "failed to reach gateway for reload")
	}
	switch {
	case status == http.StatusNotFound:
		return ErrReloadUnsupported
	case status < http.StatusOK || status >= http.StatusMultipleChoices:
		return gateway.ParseErrorBody(status, body)
	}
	return nil
}
