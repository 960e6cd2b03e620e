package transport

import (
	"context"
)

// PooledTransport forwards requests through the host's command bridge, which
// maintains its own connection pool to the gateway.
type PooledTransport struct {
	bridge CommandBridge
}

// NewPooledTransport creates a pooled transport backed by the given bridge.
// The bridge may be nil, in which case every Forward fails with
// ErrBridgeUnavailable.
func NewPooledTransport(bridge CommandBridge) *PooledTransport {
	return &PooledTransport{bridge: bridge}
}

// Forward implements Transport.
func (p *PooledTransport) Forward(ctx context.Context, method, path string, body []byte, headers map[string]string) (int, []byte, error) {
	if err := validate(method, path); err != nil {
		return 0, nil, err
	}
	if p.bridge == nil {
		return 0, nil, ErrBridgeUnavailable
	}
	return p.bridge.ForwardAIRequest(ctx, method, path, body, headers)
}
