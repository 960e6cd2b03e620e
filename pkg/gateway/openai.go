package gateway

// Message roles understood by OpenAI-compatible gateways.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single message in a chat conversation. Messages are
// treated as immutable once constructed.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// ChatOptions carries the optional sampling parameters of a chat completion
// request. The zero value requests gateway defaults for everything.
type ChatOptions struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	User             string   `json:"user,omitempty"`
}

// ChatRequest is the wire form of a chat completion request. Callers are
// responsible for supplying at least one message; the client forwards the
// request as given.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	ChatOptions
	Stream bool `json:"stream"`
}

// Usage is the token accounting attached to a completed response. Streaming
// gateways attach it, at most, to the terminal chunk.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatChoice is one alternative completion within a non-streaming response.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatResponse is a complete, non-streaming chat completion.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
}

// ChatDelta is the incremental message fragment carried by a stream chunk.
// Pointers distinguish "absent" from "empty".
type ChatDelta struct {
	Role             *string `json:"role,omitempty"`
	Content          *string `json:"content,omitempty"`
	ReasoningContent *string `json:"reasoning_content,omitempty"`
}

// StreamChoice is one alternative within a stream chunk. FinishReason is
// non-nil only on the chunk that terminates the choice.
type StreamChoice struct {
	Index        int       `json:"index"`
	Delta        ChatDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason,omitempty"`
}

// StreamChunk is one incremental unit of a streamed chat completion. Chunks
// belonging to the same logical response share an ID; consumers reconstruct
// full content by concatenating deltas per choice index in arrival order.
type StreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
	Usage   *Usage         `json:"usage,omitempty"`
}

// ContentDelta returns the content fragment of the chunk's first choice, or
// the empty string if the chunk carries none.
func (c *StreamChunk) ContentDelta() string {
	if len(c.Choices) == 0 || c.Choices[0].Delta.Content == nil {
		return ""
	}
	return *c.Choices[0].Delta.Content
}

// FinishReason returns the finish reason of the chunk's first choice, or nil
// if the choice is still in progress.
func (c *StreamChunk) FinishReason() *string {
	if len(c.Choices) == 0 {
		return nil
	}
	return c.Choices[0].FinishReason
}

// Model is a single entry in the gateway's model list.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	Created int64  `json:"created,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// ModelList is the wire form of GET /v1/models.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// IDs extracts the model identifiers from the list.
func (l *ModelList) IDs() []string {
	ids := make([]string, 0, len(l.Data))
	for _, m := range l.Data {
		ids = append(ids, m.ID)
	}
	return ids
}
