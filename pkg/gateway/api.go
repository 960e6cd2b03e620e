package gateway

const (
	// HealthPath is the liveness probe endpoint exposed by the gateway.
	HealthPath = "/health"
	// ReloadPath asks a running gateway to re-read its configuration. Older
	// gateway versions do not serve it and answer 404.
	ReloadPath = "/reload"
	// InferencePrefix is the root of the OpenAI-compatible API surface.
	InferencePrefix = "/v1"
	// ModelsPath lists the models the gateway can serve.
	ModelsPath = InferencePrefix + "/models"
	// ChatCompletionsPath serves both streaming and non-streaming chat
	// completion requests.
	ChatCompletionsPath = InferencePrefix + "/chat/completions"
)

// DefaultEndpoint is the fixed local endpoint used by the direct transport
// when no explicit gateway address is configured.
const DefaultEndpoint = "http://localhost:12434"
