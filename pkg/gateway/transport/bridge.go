package transport

import (
	"context"

	"github.com/toolbench/gateway-client/pkg/logging"
)

// Bridge composes a pooled transport with a direct fallback. It attempts the
// pooled path first and, on any pooled failure, silently replays the request
// over the direct path. Callers see an error only when both paths fail.
type Bridge struct {
	log    logging.Logger
	pooled Transport
	direct Transport
}

// NewBridge creates a transport bridge. Either transport may be shared with
// other components; Forward never mutates them.
func NewBridge(log logging.Logger, pooled, direct Transport) *Bridge {
	return &Bridge{
		log:    log,
		pooled: pooled,
		direct: direct,
	}
}

// Forward implements Transport. The fallback is logged, not surfaced: the
// contract guarantees delivery via some path as long as either succeeds.
// Retry policy beyond the single fallback belongs to callers.
func (b *Bridge) Forward(ctx context.Context, method, path string, body []byte, headers map[string]string) (int, []byte, error) {
	if err := validate(method, path); err != nil {
		return 0, nil, err
	}
	status, respBody, err := b.pooled.Forward(ctx, method, path, body, headers)
	if err == nil {
		return status, respBody, nil
	}
	b.log.Debugf("Pooled forward of %s %s failed, falling back to direct: %v", method, path, err)
	status, respBody, directErr := b.direct.Forward(ctx, method, path, body, headers)
	if directErr != nil {
		return 0, nil, directErr
	}
	return status, respBody, nil
}
