package lifecycle

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolbench/gateway-client/pkg/gateway"
	"github.com/toolbench/gateway-client/pkg/gateway/health"
	"github.com/toolbench/gateway-client/pkg/gateway/transport"
	"github.com/toolbench/gateway-client/pkg/logging"
)

func testLogger() logging.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeBridge scripts the lifecycle command outcomes.
type fakeBridge struct {
	startErr   error
	stopErr    error
	running    bool
	startCalls atomic.Int64
	stopCalls  atomic.Int64
}

func (f *fakeBridge) ForwardAIRequest(context.Context, string, string, []byte, map[string]string) (int, []byte, error) {
	return 0, nil, errors.New("not implemented")
}

func (f *fakeBridge) InitPool(context.Context) error { return nil }

func (f *fakeBridge) StartService(context.Context) error {
	f.startCalls.Add(1)
	return f.startErr
}

func (f *fakeBridge) StopService(context.Context) error {
	f.stopCalls.Add(1)
	return f.stopErr
}

func (f *fakeBridge) ServiceStatus(context.Context) (bool, error) {
	return f.running, nil
}

// probeTransport scripts health probe responses and counts probes.
type probeTransport struct {
	status int
	err    error
	calls  atomic.Int64
}

func (p *probeTransport) Forward(context.Context, string, string, []byte, map[string]string) (int, []byte, error) {
	p.calls.Add(1)
	if p.err != nil {
		return 0, nil, p.err
	}
	return p.status, nil, nil
}

func newTestController(bridge transport.CommandBridge, probes *probeTransport, opts ...Option) *Controller {
	monitor := health.NewMonitor(testLogger(), probes)
	return NewController(testLogger(), bridge, monitor, probes, opts...)
}

func TestWaitForReadyBoundedAttempts(t *testing.T) {
	probes := &probeTransport{status: http.StatusServiceUnavailable}
	controller := newTestController(&fakeBridge{}, probes)

	start := time.Now()
	ready := controller.WaitForReady(context.Background(), 2*time.Second, 500*time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, ready)
	assert.LessOrEqual(t, probes.calls.Load(), int64(4))
	assert.Less(t, elapsed, 3*time.Second)
}

func TestWaitForReadyReturnsOnFirstSuccess(t *testing.T) {
	probes := &probeTransport{status: http.StatusOK}
	controller := newTestController(&fakeBridge{}, probes)

	assert.True(t, controller.WaitForReady(context.Background(), time.Second, 100*time.Millisecond))
	assert.Equal(t, int64(1), probes.calls.Load())
}

func TestWaitForReadyCancellation(t *testing.T) {
	probes := &probeTransport{status: http.StatusServiceUnavailable}
	controller := newTestController(&fakeBridge{}, probes)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.False(t, controller.WaitForReady(ctx, 10*time.Second, time.Second))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRestartToleratesNotRunningStop(t *testing.T) {
	bridge := &fakeBridge{stopErr: transport.ErrNotRunning}
	probes := &probeTransport{status: http.StatusOK}
	controller := newTestController(bridge, probes,
		WithSettleDelay(10*time.Millisecond),
		WithReadinessBounds(200*time.Millisecond, 50*time.Millisecond),
	)

	require.NoError(t, controller.Restart(context.Background()))
	assert.Equal(t, int64(1), bridge.startCalls.Load())
	assert.Equal(t, int64(1), bridge.stopCalls.Load())
}

func TestRestartToleratesStopFailure(t *testing.T) {
	bridge := &fakeBridge{stopErr: errors.New("supervisor hiccup")}
	probes := &probeTransport{status: http.StatusOK}
	controller := newTestController(bridge, probes,
		WithSettleDelay(10*time.Millisecond),
		WithReadinessBounds(200*time.Millisecond, 50*time.Millisecond),
	)

	require.NoError(t, controller.Restart(context.Background()))
	assert.Equal(t, int64(1), bridge.startCalls.Load())
}

func TestRestartReportsReadinessTimeout(t *testing.T) {
	bridge := &fakeBridge{}
	probes := &probeTransport{err: errors.New("connection refused")}
	controller := newTestController(bridge, probes,
		WithSettleDelay(10*time.Millisecond),
		WithReadinessBounds(150*time.Millisecond, 50*time.Millisecond),
	)

	err := controller.Restart(context.Background())
	assert.ErrorIs(t, err, ErrNotReadyInTime)
}

func TestStartAbsorbsAlreadyRunning(t *testing.T) {
	bridge := &fakeBridge{startErr: transport.ErrAlreadyRunning}
	controller := newTestController(bridge, &probeTransport{status: http.StatusOK})

	assert.NoError(t, controller.Start(context.Background()))
}

func TestStopAbsorbsNotRunning(t *testing.T) {
	bridge := &fakeBridge{stopErr: transport.ErrNotRunning}
	controller := newTestController(bridge, &probeTransport{status: http.StatusOK})

	assert.NoError(t, controller.Stop(context.Background()))
}

func TestLifecycleRequiresBridge(t *testing.T) {
	controller := newTestController(nil, &probeTransport{status: http.StatusOK})

	assert.ErrorIs(t, controller.Start(context.Background()), transport.ErrBridgeUnavailable)
	assert.ErrorIs(t, controller.Stop(context.Background()), transport.ErrBridgeUnavailable)
	_, err := controller.Status(context.Background())
	assert.ErrorIs(t, err, transport.ErrBridgeUnavailable)
}

func TestReloadUnsupported(t *testing.T) {
	probes := &probeTransport{status: http.StatusNotFound}
	controller := newTestController(&fakeBridge{}, probes)

	assert.ErrorIs(t, controller.Reload(context.Background()), ErrReloadUnsupported)
}

func TestReloadSuccess(t *testing.T) {
	probes := &probeTransport{status: http.StatusOK}
	controller := newTestController(&fakeBridge{}, probes)

	assert.NoError(t, controller.Reload(context.Background()))
}

func TestReloadGatewayError(t *testing.T) {
	probes := &probeTransport{status: http.StatusInternalServerError}
	controller := newTestController(&fakeBridge{}, probes)

	err := controller.Reload(context.Background())
	require.Error(t, err)
	var gwErr *gateway.Error
	assert.ErrorAs(t, err, &gwErr)
}
