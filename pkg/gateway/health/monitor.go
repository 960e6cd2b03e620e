package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/toolbench/gateway-client/pkg/gateway"
	"github.com/toolbench/gateway-client/pkg/gateway/transport"
	"github.com/toolbench/gateway-client/pkg/logging"
)

// probeTimeout bounds a single health probe.
const probeTimeout = 5 * time.Second

// ProbeResult classifies the outcome of a single health probe. The boolean
// health contract only distinguishes healthy from not; the classification
// exists for diagnostics.
type ProbeResult uint8

const (
	// ProbeHealthy indicates a 2xx response.
	ProbeHealthy ProbeResult = iota
	// ProbeBadStatus indicates a response outside [200,300).
	ProbeBadStatus
	// ProbeTimeout indicates the probe was aborted by its deadline.
	ProbeTimeout
	// ProbeConnectionRefused indicates the gateway endpoint refused the
	// connection, typically because no process is listening.
	ProbeConnectionRefused
	// ProbeNetworkError covers all other transport failures.
	ProbeNetworkError
)

// String implements Stringer.String for ProbeResult.
func (r ProbeResult) String() string {
	switch r {
	case ProbeHealthy:
		return "healthy"
	case ProbeBadStatus:
		return "bad status"
	case ProbeTimeout:
		return "timeout"
	case ProbeConnectionRefused:
		return "connection refused"
	case ProbeNetworkError:
		return "network error"
	default:
		return "unknown"
	}
}

// Monitor issues liveness probes against the gateway's health endpoint. All
// probe state is owned by the Monitor instance, so independent monitors can
// coexist within one process.
type Monitor struct {
	log       logging.Logger
	transport transport.Transport
	// coalesce, when enabled, collapses overlapping probes into a single
	// in-flight request shared by all callers.
	coalesce bool
	group    singleflight.Group
	sequence atomic.Uint64
	last     atomic.Uint32
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithSingleFlight coalesces overlapping CheckHealth calls into one probe.
// Disabled by default: independent probes carry independent cancellation
// scopes, which some callers rely on.
func WithSingleFlight() Option {
	return func(m *Monitor) {
		m.coalesce = true
	}
}

// NewMonitor creates a health monitor probing through the given transport,
// which may be a fallback bridge or a direct transport.
func NewMonitor(log logging.Logger, t transport.Transport, opts ...Option) *Monitor {
	m := &Monitor{
		log:       log,
		transport: t,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CheckHealth probes the gateway and reports whether it answered with a 2xx
// status. The optional delay is a grace period applied before probing, to
// avoid false negatives immediately after a request completes. CheckHealth
// never returns an error: every failure mode classifies as unhealthy.
func (m *Monitor) CheckHealth(ctx context.Context, delay time.Duration) bool {
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			m.record(ProbeTimeout)
			return false
		}
	}
	if !m.coalesce {
		return m.probe(ctx)
	}
	healthy, _, _ := m.group.Do("probe", func() (interface{}, error) {
		return m.probe(ctx), nil
	})
	return healthy.(bool)
}

// LastResult returns the classification of the most recent probe.
func (m *Monitor) LastResult() ProbeResult {
	return ProbeResult(m.last.Load())
}

func (m *Monitor) probe(ctx context.Context) bool {
	seq := m.sequence.Add(1)
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	status, _, err := m.transport.Forward(probeCtx, http.MethodGet, gateway.HealthPath, nil, nil)
	result := classify(status, err)
	m.record(result)
	if result != ProbeHealthy {
		m.log.Debugf("Health probe %d failed: %s", seq, result)
	}
	return result == ProbeHealthy
}

func (m *Monitor) record(result ProbeResult) {
	m.last.Store(uint32(result))
}

func classify(status int, err error) ProbeResult {
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
			return ProbeTimeout
		case errors.Is(err, syscall.ECONNREFUSED):
			return ProbeConnectionRefused
		default:
			return ProbeNetworkError
		}
	}
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		return ProbeHealthy
	}
	return ProbeBadStatus
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
