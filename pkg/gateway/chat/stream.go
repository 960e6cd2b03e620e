package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"syscall"
	"time"

	"github.com/toolbench/gateway-client/pkg/gateway"
	"github.com/toolbench/gateway-client/pkg/gateway/transport"
	"github.com/toolbench/gateway-client/pkg/logging"
	"github.com/toolbench/gateway-client/pkg/metrics"
)

// doneToken is the literal SSE payload that terminates a stream.
const doneToken = "[DONE]"

// streamReadBufferSize is the read granularity of the stream decode loop.
// Records are assembled by the decoder, so the size only affects syscall
// frequency.
const streamReadBufferSize = 4096

// StreamEvent is one event on a streaming chat completion. Exactly one of
// the three shapes is populated: a delta chunk, a completion (Done with the
// last known usage, possibly nil), or a failure.
type StreamEvent struct {
	Chunk *gateway.StreamChunk
	Usage *gateway.Usage
	Err   error
	Done  bool
}

// StreamHandlers is the callback surface of StreamWithHandlers. OnChunk is
// required; OnComplete and OnError are optional. When OnError is nil the
// terminal error is propagated as the return value instead of being
// swallowed.
type StreamHandlers struct {
	OnChunk    func(*gateway.StreamChunk)
	OnComplete func(*gateway.Usage)
	OnError    func(error)
}

// StreamingClient drives streaming chat completions. Streaming never routes
// through the pooled transport: SSE framing needs a response body held open
// across reads, which the pool's request/response shape cannot express.
type StreamingClient struct {
	log      logging.Logger
	direct   *transport.DirectTransport
	recorder *metrics.UsageRecorder
}

// NewStreamingClient creates a streaming chat client over the given direct
// transport. The recorder may be nil.
func NewStreamingClient(log logging.Logger, direct *transport.DirectTransport, recorder *metrics.UsageRecorder) *StreamingClient {
	return &StreamingClient{
		log:      log,
		direct:   direct,
		recorder: recorder,
	}
}

// Stream opens a streaming chat completion and returns a channel of events.
// Chunks are delivered strictly in wire order. The channel carries exactly
// one terminal event (Done or Err) and is then closed; cancelling the
// context stops the underlying read loop promptly, surfacing the
// cancellation as the terminal event. Consumers must drain the channel
// until it closes. Failures that occur before any stream byte is received
// are returned synchronously.
func (c *StreamingClient) Stream(ctx context.Context, model string, messages []gateway.ChatMessage, opts *gateway.ChatOptions) (<-chan StreamEvent, error) {
	request := gateway.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	}
	if opts != nil {
		request.ChatOptions = *opts
	}
	body, err := json.Marshal(&request)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.direct.URL(gateway.ChatCompletionsPath), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.direct.Client().Do(req)
	if err != nil {
		c.observeFailure(model)
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, fmt.Errorf("cannot connect to the AI gateway at %s (is the service running?): %w", c.direct.URL(""), err)
		}
		return nil, fmt.Errorf("error querying %s: %w", gateway.ChatCompletionsPath, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.observeFailure(model)
		return nil, gateway.ParseErrorBody(resp.StatusCode, respBody)
	}

	events := make(chan StreamEvent)
	go c.decode(ctx, model, resp.Body, events)
	return events, nil
}

// decode runs the stream read loop. It owns the response body and the
// events channel and guarantees exactly one terminal event.
func (c *StreamingClient) decode(ctx context.Context, model string, body io.ReadCloser, events chan<- StreamEvent) {
	defer body.Close()
	defer close(events)
	started := time.Now()

	var lastUsage *gateway.Usage
	decoder := &sseDecoder{}

	// Chunk delivery is cut short by cancellation; the terminal event is
	// always delivered. Consumers must drain the channel until it closes,
	// which StreamWithHandlers does.
	emitChunk := func(event StreamEvent) bool {
		select {
		case events <- event:
			return true
		case <-ctx.Done():
			return false
		}
	}
	complete := func() {
		if c.recorder != nil {
			prompt, completion := 0, 0
			if lastUsage != nil {
				prompt = lastUsage.PromptTokens
				completion = lastUsage.CompletionTokens
			}
			c.recorder.Observe(model, prompt, completion, time.Since(started))
		}
		events <- StreamEvent{Done: true, Usage: lastUsage}
	}
	fail := func(err error) {
		c.observeFailure(model)
		events <- StreamEvent{Err: err}
	}

	// handle decodes one record payload. The first result is true when the
	// payload terminated the stream; the second is false when delivery was
	// cut short by cancellation.
	handle := func(payload string) (bool, bool) {
		if payload == doneToken {
			return true, true
		}
		var chunk gateway.StreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			// A single corrupt frame must not lose the rest of the response.
			c.log.Debugf("Skipping malformed stream record: %v", err)
			return false, true
		}
		if chunk.Usage != nil {
			lastUsage = chunk.Usage
		}
		if !emitChunk(StreamEvent{Chunk: &chunk}) {
			return false, false
		}
		// A finish reason on the first choice ends the response; gateways
		// are not required to follow it with an explicit [DONE].
		if chunk.FinishReason() != nil {
			return true, true
		}
		return false, true
	}

	buf := make([]byte, streamReadBufferSize)
	for {
		select {
		case <-ctx.Done():
			fail(ctx.Err())
			return
		default:
		}
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, payload := range decoder.feed(buf[:n]) {
				finished, alive := handle(payload)
				if finished {
					complete()
					return
				}
				if !alive {
					fail(ctx.Err())
					return
				}
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				// Tolerate gateways that close the stream without [DONE].
				if payload, ok := decoder.flush(); ok {
					if finished, _ := handle(payload); finished {
						complete()
						return
					}
				}
				complete()
				return
			}
			if ctx.Err() != nil {
				fail(ctx.Err())
				return
			}
			fail(fmt.Errorf("error reading response stream: %w", readErr))
			return
		}
	}
}

// StreamWithHandlers runs a streaming completion and dispatches events to
// the given callbacks, returning once the stream ends or fails. Errors are
// routed to OnError when present and returned otherwise; exactly one of
// OnComplete or OnError fires per call.
func (c *StreamingClient) StreamWithHandlers(ctx context.Context, model string, messages []gateway.ChatMessage, opts *gateway.ChatOptions, handlers StreamHandlers) error {
	events, err := c.Stream(ctx, model, messages, opts)
	if err != nil {
		return dispatchError(handlers, err)
	}
	for event := range events {
		switch {
		case event.Chunk != nil:
			if handlers.OnChunk != nil {
				handlers.OnChunk(event.Chunk)
			}
		case event.Done:
			if handlers.OnComplete != nil {
				handlers.OnComplete(event.Usage)
			}
			return nil
		case event.Err != nil:
			return dispatchError(handlers, event.Err)
		}
	}
	return nil
}

func dispatchError(handlers StreamHandlers, err error) error {
	if handlers.OnError != nil {
		handlers.OnError(err)
		return nil
	}
	return err
}

func (c *StreamingClient) observeFailure(model string) {
	if c.recorder != nil {
		c.recorder.ObserveFailure(model)
	}
}
