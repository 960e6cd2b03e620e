package health

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/toolbench/gateway-client/pkg/logging"
)

func testLogger() logging.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// stubTransport answers probes with a fixed outcome.
type stubTransport struct {
	status int
	err    error
	delay  time.Duration
	calls  atomic.Int64
}

func (s *stubTransport) Forward(ctx context.Context, _, _ string, _ []byte, _ map[string]string) (int, []byte, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return 0, nil, ctx.Err()
		}
	}
	if s.err != nil {
		return 0, nil, s.err
	}
	return s.status, nil, nil
}

func TestCheckHealthClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		err     error
		healthy bool
		result  ProbeResult
	}{
		{"ok", http.StatusOK, nil, true, ProbeHealthy},
		{"created", http.StatusCreated, nil, true, ProbeHealthy},
		{"redirect is unhealthy", http.StatusMultipleChoices, nil, false, ProbeBadStatus},
		{"server error", http.StatusInternalServerError, nil, false, ProbeBadStatus},
		{"service unavailable", http.StatusServiceUnavailable, nil, false, ProbeBadStatus},
		{"deadline", 0, context.DeadlineExceeded, false, ProbeTimeout},
		{"refused", 0, errors.Wrap(syscall.ECONNREFUSED, "dial tcp"), false, ProbeConnectionRefused},
		{"generic", 0, errors.New("no route to host"), false, ProbeNetworkError},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			monitor := NewMonitor(testLogger(), &stubTransport{status: test.status, err: test.err})
			assert.Equal(t, test.healthy, monitor.CheckHealth(context.Background(), 0))
			assert.Equal(t, test.result, monitor.LastResult())
		})
	}
}

func TestCheckHealthNeverPanicsOnNilBody(t *testing.T) {
	monitor := NewMonitor(testLogger(), &stubTransport{status: http.StatusOK})
	assert.True(t, monitor.CheckHealth(context.Background(), 0))
}

func TestCheckHealthDelayIsCancellable(t *testing.T) {
	fake := &stubTransport{status: http.StatusOK}
	monitor := NewMonitor(testLogger(), fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.False(t, monitor.CheckHealth(ctx, 10*time.Second))
	assert.Less(t, time.Since(start), time.Second)
	assert.Zero(t, fake.calls.Load())
}

func TestCheckHealthProbeTimesOut(t *testing.T) {
	fake := &stubTransport{status: http.StatusOK, delay: 30 * time.Second}
	monitor := NewMonitor(testLogger(), fake)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.False(t, monitor.CheckHealth(ctx, 0))
	assert.Equal(t, ProbeTimeout, monitor.LastResult())
}

func TestConcurrentProbesAreIndependentByDefault(t *testing.T) {
	fake := &stubTransport{status: http.StatusOK, delay: 50 * time.Millisecond}
	monitor := NewMonitor(testLogger(), fake)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, monitor.CheckHealth(context.Background(), 0))
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(4), fake.calls.Load())
}

func TestSingleFlightCoalescesOverlappingProbes(t *testing.T) {
	fake := &stubTransport{status: http.StatusOK, delay: 100 * time.Millisecond}
	monitor := NewMonitor(testLogger(), fake, WithSingleFlight())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, monitor.CheckHealth(context.Background(), 0))
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), fake.calls.Load())
}
