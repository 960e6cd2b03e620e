package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/toolbench/gateway-client/pkg/gateway"
	"github.com/toolbench/gateway-client/pkg/gateway/transport"
	"github.com/toolbench/gateway-client/pkg/logging"
	"github.com/toolbench/gateway-client/pkg/metrics"
)

// Client issues non-streaming chat completion calls through the transport
// bridge. It performs no retries: retry policy belongs to callers.
type Client struct {
	log       logging.Logger
	transport transport.Transport
	recorder  *metrics.UsageRecorder
}

// NewClient creates a chat client. The recorder may be nil if usage
// accounting is not wanted.
func NewClient(log logging.Logger, t transport.Transport, recorder *metrics.UsageRecorder) *Client {
	return &Client{
		log:       log,
		transport: t,
		recorder:  recorder,
	}
}

// Complete performs a single request/response chat completion. Stream is
// forced off regardless of caller-supplied options so that SSE bodies can
// never reach the non-streaming path. Non-2xx statuses are returned as
// *gateway.Error.
func (c *Client) Complete(ctx context.Context, model string, messages []gateway.ChatMessage, opts *gateway.ChatOptions) (*gateway.ChatResponse, error) {
	request := gateway.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	}
	if opts != nil {
		request.ChatOptions = *opts
	}
	body, err := json.Marshal(&request)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	started := time.Now()
	status, respBody, err := c.transport.Forward(ctx, http.MethodPost, gateway.ChatCompletionsPath, body, nil)
	if err != nil {
		c.observeFailure(model)
		return nil, fmt.Errorf("error querying %s: %w", gateway.ChatCompletionsPath, err)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		c.observeFailure(model)
		return nil, gateway.ParseErrorBody(status, respBody)
	}
	if len(respBody) == 0 {
		c.observeFailure(model)
		return nil, fmt.Errorf("empty response from gateway (status %d)", status)
	}

	var response gateway.ChatResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		c.observeFailure(model)
		return nil, fmt.Errorf("error parsing completion response: %w", err)
	}
	if c.recorder != nil {
		prompt, completion := 0, 0
		if response.Usage != nil {
			prompt = response.Usage.PromptTokens
			completion = response.Usage.CompletionTokens
		}
		c.recorder.Observe(model, prompt, completion, time.Since(started))
	}
	return &response, nil
}

// Models lists the model identifiers known to the gateway.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	status, body, err := c.transport.Forward(ctx, http.MethodGet, gateway.ModelsPath, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("error querying %s: %w", gateway.ModelsPath, err)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, gateway.ParseErrorBody(status, body)
	}
	var list gateway.ModelList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model list: %w", err)
	}
	return list.IDs(), nil
}

func (c *Client) observeFailure(model string) {
	if c.recorder != nil {
		c.recorder.ObserveFailure(model)
	}
}
