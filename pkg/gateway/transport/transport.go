package transport

import (
	"context"

	"github.com/pkg/errors"
)

// ErrBridgeUnavailable indicates that no command bridge is present. Pooled
// forwarding and lifecycle commands cannot proceed without one.
var ErrBridgeUnavailable = errors.New("command bridge unavailable")

// Soft lifecycle conditions reported by CommandBridge implementations. The
// gateway process is a shared resource which other actors may start or stop,
// so callers treat these as success, not failure.
var (
	ErrAlreadyRunning = errors.New("service already running")
	ErrNotRunning     = errors.New("service not running")
)

// CommandBridge is the host-environment collaborator through which the
// client forwards pooled requests and drives the gateway process. The client
// never owns the gateway process; it only observes and commands it through
// this interface.
type CommandBridge interface {
	// ForwardAIRequest forwards an HTTP-shaped request through the host's
	// pooled channel and returns the response status and body.
	ForwardAIRequest(ctx context.Context, method, path string, body []byte, headers map[string]string) (int, []byte, error)
	// InitPool prepares the pooled channel. It must be idempotent.
	InitPool(ctx context.Context) error
	// StartService asks the host to launch the gateway process.
	StartService(ctx context.Context) error
	// StopService asks the host to terminate the gateway process.
	StopService(ctx context.Context) error
	// ServiceStatus reports whether the host considers the gateway running.
	ServiceStatus(ctx context.Context) (bool, error)
}

// Transport sends a single HTTP-shaped request to the gateway. Method and
// path must be non-empty; the body is raw bytes already serialized by the
// caller. Implementations perform no retries.
type Transport interface {
	Forward(ctx context.Context, method, path string, body []byte, headers map[string]string) (int, []byte, error)
}

func validate(method, path string) error {
	if method == "" {
		return errors.New("forward: empty method")
	}
	if path == "" {
		return errors.New("forward: empty path")
	}
	return nil
}
