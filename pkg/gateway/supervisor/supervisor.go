// Package supervisor provides an in-process command bridge for hosts that
// do not supply one. It owns a gateway child process and a pooled transport
// targeting the gateway's listening endpoint.
package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/elastic/go-sysinfo"
	shellwords "github.com/mattn/go-shellwords"

	"github.com/toolbench/gateway-client/pkg/gateway"
	"github.com/toolbench/gateway-client/pkg/gateway/transport"
	"github.com/toolbench/gateway-client/pkg/logging"
	"github.com/toolbench/gateway-client/pkg/tailbuffer"
)

const (
	// stopGracePeriod is how long StopService waits for the gateway to exit
	// after an interrupt before killing it.
	stopGracePeriod = 10 * time.Second
	// outputTailSize is the amount of gateway process output retained for
	// diagnostics.
	outputTailSize = 4096
)

// Config describes the gateway process and its listening endpoint.
type Config struct {
	// Command is the gateway command line. It is parsed with shell-style
	// word splitting, so quoted arguments survive.
	Command string
	// Socket is the Unix domain socket the gateway listens on. When set,
	// pooled forwarding dials the socket.
	Socket string
	// Endpoint is the gateway's TCP base URL, used when Socket is empty.
	// Defaults to gateway.DefaultEndpoint.
	Endpoint string
}

// ProcessInfo is a point-in-time view of the supervised process.
type ProcessInfo struct {
	PID           int
	StartedAt     time.Time
	ResidentBytes uint64
}

// Supervisor implements transport.CommandBridge by running the gateway as a
// child process. The process remains a shared resource: other actors may
// have stopped it, so state transitions tolerate already-in-that-state
// conditions.
type Supervisor struct {
	log  logging.Logger
	cfg  Config
	args []string

	mu        sync.Mutex
	cmd       *exec.Cmd
	done      chan struct{}
	runErr    error
	startedAt time.Time
	tail      *tailbuffer.Buffer
	client    *http.Client
	baseURL   *url.URL
}

// New creates a supervisor for the given configuration.
func New(log logging.Logger, cfg Config) (*Supervisor, error) {
	args, err := shellwords.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway command line: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("no gateway command configured")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = gateway.DefaultEndpoint
	}
	return &Supervisor{
		log:  log,
		cfg:  cfg,
		args: args,
	}, nil
}

// StartService launches the gateway process. It returns
// transport.ErrAlreadyRunning if a supervised process is still alive; it
// does not wait for the gateway to become ready.
func (s *Supervisor) StartService(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runningLocked() {
		return transport.ErrAlreadyRunning
	}

	if s.cfg.Socket != "" {
		if err := os.Remove(s.cfg.Socket); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.Warnf("Failed to remove stale socket %s: %v", s.cfg.Socket, err)
		}
	}

	tail := tailbuffer.New(outputTailSize)
	logStream := s.log.Writer()
	cmd := exec.Command(s.args[0], s.args[1:]...)
	cmd.Stdout = logStream
	cmd.Stderr = io.MultiWriter(logStream, tail)
	if err := cmd.Start(); err != nil {
		logStream.Close()
		return fmt.Errorf("failed to launch gateway process (check the configured command): %w", err)
	}

	done := make(chan struct{})
	s.cmd = cmd
	s.done = done
	s.tail = tail
	s.runErr = nil
	s.startedAt = time.Now()

	go func() {
		err := cmd.Wait()
		logStream.Close()
		if err != nil {
			if out := bytes.TrimSpace(tail.Snapshot()); len(out) > 0 {
				err = fmt.Errorf("gateway exit status: %w\nwith output: %s", err, out)
			} else {
				err = fmt.Errorf("gateway exit status: %w", err)
			}
			s.log.Warnf("Gateway process exited: %v", err)
		}
		s.mu.Lock()
		s.runErr = err
		s.mu.Unlock()
		close(done)
	}()
	return nil
}

// StopService interrupts the gateway process and waits for it to exit,
// killing it after a grace period. It returns transport.ErrNotRunning when
// there is nothing to stop.
func (s *Supervisor) StopService(ctx context.Context) error {
	s.mu.Lock()
	if !s.runningLocked() {
		s.mu.Unlock()
		return transport.ErrNotRunning
	}
	cmd, done := s.cmd, s.done
	s.mu.Unlock()

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		return fmt.Errorf("failed to interrupt gateway process: %w", err)
	}
	select {
	case <-done:
	case <-time.After(stopGracePeriod):
		s.log.Warnln("Gateway did not exit in time, killing it")
		if err := cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill gateway process: %w", err)
		}
		<-done
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	s.cmd = nil
	s.mu.Unlock()
	return nil
}

// ServiceStatus reports whether the supervised process is alive.
func (s *Supervisor) ServiceStatus(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked(), nil
}

// InitPool constructs the pooled transport targeting the gateway endpoint.
// It is idempotent.
func (s *Supervisor) InitPool(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initPoolLocked()
}

// ForwardAIRequest implements transport.CommandBridge by sending the
// request over the pooled transport.
func (s *Supervisor) ForwardAIRequest(ctx context.Context, method, path string, body []byte, headers map[string]string) (int, []byte, error) {
	s.mu.Lock()
	if err := s.initPoolLocked(); err != nil {
		s.mu.Unlock()
		return 0, nil, err
	}
	client, baseURL := s.client, s.baseURL
	s.mu.Unlock()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// ProcessInfo reports runtime statistics for the supervised process.
func (s *Supervisor) ProcessInfo() (*ProcessInfo, error) {
	s.mu.Lock()
	if !s.runningLocked() {
		s.mu.Unlock()
		return nil, transport.ErrNotRunning
	}
	pid := s.cmd.Process.Pid
	startedAt := s.startedAt
	s.mu.Unlock()

	info := &ProcessInfo{
		PID:       pid,
		StartedAt: startedAt,
	}
	process, err := sysinfo.Process(pid)
	if err != nil {
		// The process table lookup is best effort; the supervised state is
		// still authoritative.
		return info, nil
	}
	if mem, err := process.Memory(); err == nil {
		info.ResidentBytes = mem.Resident
	}
	return info, nil
}

// Err returns the exit error of the most recent gateway process run, or nil
// if it is still running or exited cleanly.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

// Logs returns the retained tail of the gateway's output.
func (s *Supervisor) Logs() []byte {
	s.mu.Lock()
	tail := s.tail
	s.mu.Unlock()
	if tail == nil {
		return nil
	}
	return tail.Snapshot()
}

func (s *Supervisor) runningLocked() bool {
	if s.cmd == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Supervisor) initPoolLocked() error {
	if s.client != nil {
		return nil
	}
	httpTransport := &http.Transport{
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	rawBaseURL := s.cfg.Endpoint
	if s.cfg.Socket != "" {
		dialer := &net.Dialer{}
		socket := s.cfg.Socket
		httpTransport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", socket)
		}
		// Placeholder host: the dialer above always targets the socket.
		rawBaseURL = "http://localhost"
	}
	baseURL, err := url.Parse(rawBaseURL)
	if err != nil {
		return fmt.Errorf("invalid gateway endpoint (%s): %w", rawBaseURL, err)
	}
	s.client = &http.Client{Transport: httpTransport}
	s.baseURL = baseURL
	return nil
}
