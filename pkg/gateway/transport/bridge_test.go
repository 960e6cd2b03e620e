package transport

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolbench/gateway-client/pkg/logging"
)

func testLogger() logging.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// stubTransport answers every Forward with a fixed result.
type stubTransport struct {
	status int
	body   []byte
	err    error
	calls  int
}

func (s *stubTransport) Forward(context.Context, string, string, []byte, map[string]string) (int, []byte, error) {
	s.calls++
	if s.err != nil {
		return 0, nil, s.err
	}
	return s.status, s.body, nil
}

func TestBridgePrefersPooled(t *testing.T) {
	pooled := &stubTransport{status: http.StatusOK, body: []byte("pooled")}
	direct := &stubTransport{status: http.StatusOK, body: []byte("direct")}
	bridge := NewBridge(testLogger(), pooled, direct)

	status, body, err := bridge.Forward(context.Background(), http.MethodGet, "/health", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []byte("pooled"), body)
	assert.Zero(t, direct.calls)
}

func TestBridgeFallbackIsTransparent(t *testing.T) {
	pooled := &stubTransport{err: errors.New("pool broken")}
	direct := &stubTransport{status: http.StatusOK, body: []byte("direct")}
	bridge := NewBridge(testLogger(), pooled, direct)

	status, body, err := bridge.Forward(context.Background(), http.MethodGet, "/health", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []byte("direct"), body)
	assert.Equal(t, 1, pooled.calls)
	assert.Equal(t, 1, direct.calls)
}

func TestBridgeErrorsWhenBothPathsFail(t *testing.T) {
	pooled := &stubTransport{err: errors.New("pool broken")}
	direct := &stubTransport{err: errors.New("connection refused")}
	bridge := NewBridge(testLogger(), pooled, direct)

	_, _, err := bridge.Forward(context.Background(), http.MethodGet, "/health", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestBridgeValidatesMethodAndPath(t *testing.T) {
	bridge := NewBridge(testLogger(), &stubTransport{}, &stubTransport{})

	_, _, err := bridge.Forward(context.Background(), "", "/health", nil, nil)
	assert.Error(t, err)
	_, _, err = bridge.Forward(context.Background(), http.MethodGet, "", nil, nil)
	assert.Error(t, err)
}

func TestPooledTransportWithoutBridge(t *testing.T) {
	pooled := NewPooledTransport(nil)
	_, _, err := pooled.Forward(context.Background(), http.MethodGet, "/health", nil, nil)
	assert.ErrorIs(t, err, ErrBridgeUnavailable)
}
