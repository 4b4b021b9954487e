package ai

import "strings"

// AuthType selects the header used to send the provider credential.
type AuthType string

const (
	AuthBearer  AuthType = "bearer"    // Authorization: Bearer <key>
	AuthXAPIKey AuthType = "x-api-key" // x-api-key: <key>
	AuthAPIKey  AuthType = "api-key"   // api-key: <key>
)

// Default provider used when no model configuration row is active.
const (
	DefaultModelName   = "claude-sonnet-4-5"
	DefaultEndpointURL = "https://api.anthropic.com/v1/messages"
	DefaultAPIKeyEnv   = "ANTHROPIC_API_KEY"
)

// messageStyleMarker identifies endpoints speaking the Messages API shape.
const messageStyleMarker = "anthropic.com"

// Protocol is the wire shape a provider endpoint speaks.
type Protocol int

const (
	// ChatCompletionStyle puts system and user prompts in an ordered
	// messages list and returns choices[0].message.content.
	ChatCompletionStyle Protocol = iota
	// MessageStyle carries the system prompt as a top-level field and
	// returns a list of typed content blocks.
	MessageStyle
)

func (p Protocol) String() string {
	switch p {
	case MessageStyle:
		return "message"
	default:
		return "chat-completion"
	}
}

// ProtocolFor resolves the wire shape from the endpoint URL.
func ProtocolFor(endpointURL string) Protocol {
	if strings.Contains(strings.ToLower(endpointURL), messageStyleMarker) {
		return MessageStyle
	}
	return ChatCompletionStyle
}

// ProviderConfig describes one LLM endpoint. It is read-only for the
// duration of a generation.
type ProviderConfig struct {
	ModelName   string
	EndpointURL string
	AuthType    AuthType
	// APIKeyEnv names the environment variable holding the credential.
	APIKeyEnv        string
	Temperature      *float64
	MaxTokens        *int
	AdditionalParams map[string]any
}

// Protocol returns the wire shape of the configured endpoint.
func (c ProviderConfig) Protocol() Protocol {
	return ProtocolFor(c.EndpointURL)
}

// DefaultProviderConfig returns the built-in provider used when no
// configuration is active.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		ModelName:   DefaultModelName,
		EndpointURL: DefaultEndpointURL,
		AuthType:    AuthXAPIKey,
		APIKeyEnv:   DefaultAPIKeyEnv,
	}
}

// Request is a single logical "generate text" call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	// MaxTokens overrides the configured output budget when > 0.
	MaxTokens int
}

// message is a single entry in a request's messages list.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// mergeParams copies provider-specific parameters into the request body.
// Later keys win, so a pass-through parameter can replace a built-in one.
func mergeParams(body map[string]any, params map[string]any) {
	for k, v := range params {
		body[k] = v
	}
}
