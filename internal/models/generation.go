package models

import "time"

// BankTitle is a pre-approved title waiting in the title bank.
type BankTitle struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Source    string     `json:"source"`
	IsUsed    bool       `json:"is_used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Title bank sources.
const (
	BankSourceManual = "manual"
	BankSourceAI     = "ai"
)

// HistoryEntry records one successful generation. The log is append-only.
type HistoryEntry struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Prompt          string    `json:"prompt"`
	Keywords        []string  `json:"keywords"`
	ToneUsed        string    `json:"tone_used"`
	PerspectiveUsed string    `json:"perspective_used"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// ModelConfig is a stored LLM provider configuration. At most one row is
// active at a time.
type ModelConfig struct {
	ID               int64          `json:"id"`
	ModelName        string         `json:"model_name"`
	EndpointURL      string         `json:"endpoint_url"`
	AuthType         string         `json:"auth_type"`
	APIKeyEnv        string         `json:"api_key_env"`
	Temperature      *float64       `json:"temperature,omitempty"`
	MaxTokens        *int           `json:"max_tokens,omitempty"`
	AdditionalParams map[string]any `json:"additional_params,omitempty"`
	IsActive         bool           `json:"is_active"`
	CreatedAt        time.Time      `json:"created_at"`
}
