package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/toolbench/gateway-client/pkg/gateway"
)

// DirectTransport issues one-off HTTP requests straight to the gateway's
// local endpoint, bypassing the host's pooled channel.
type DirectTransport struct {
	baseURL *url.URL
	client  *http.Client
}

// NewDirectTransport creates a direct transport targeting the given base
// URL, or gateway.DefaultEndpoint when rawBaseURL is empty.
func NewDirectTransport(rawBaseURL string) (*DirectTransport, error) {
	if rawBaseURL == "" {
		rawBaseURL = gateway.DefaultEndpoint
	}
	baseURL, err := url.Parse(rawBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway URL (%s): %w", rawBaseURL, err)
	}
	return &DirectTransport{
		baseURL: baseURL,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}, nil
}

// URL constructs a URL string for the given gateway path.
func (d *DirectTransport) URL(path string) string {
	return d.baseURL.JoinPath(path).String()
}

// Client returns the transport's underlying HTTP client. The streaming chat
// client uses it to keep response bodies open across reads.
func (d *DirectTransport) Client() *http.Client {
	return d.client
}

// Forward implements Transport.
func (d *DirectTransport) Forward(ctx context.Context, method, path string, body []byte, headers map[string]string) (int, []byte, error) {
	if err := validate(method, path); err != nil {
		return 0, nil, err
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, d.URL(path), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := d.client.Do(req)
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
