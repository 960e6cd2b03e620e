package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolbench/gateway-client/pkg/gateway"
)

func TestDirectTransportForward(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, gateway.ChatCompletionsPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "yes", r.Header.Get("X-Custom"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"model":"m"}`, string(body))
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "brewing")
	}))
	defer server.Close()

	direct, err := NewDirectTransport(server.URL)
	require.NoError(t, err)

	status, respBody, err := direct.Forward(
		context.Background(),
		http.MethodPost,
		gateway.ChatCompletionsPath,
		[]byte(`{"model":"m"}`),
		map[string]string{"X-Custom": "yes"},
	)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, status)
	assert.Equal(t, []byte("brewing"), respBody)
}

func TestDirectTransportDefaultsEndpoint(t *testing.T) {
	direct, err := NewDirectTransport("")
	require.NoError(t, err)
	assert.Equal(t, gateway.DefaultEndpoint+gateway.HealthPath, direct.URL(gateway.HealthPath))
}

func TestDirectTransportRejectsBadURL(t *testing.T) {
	_, err := NewDirectTransport("http://local host:99999")
	assert.Error(t, err)
}
