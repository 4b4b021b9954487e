package ai

import (
	"encoding/json"
	"fmt"
)

const (
	anthropicVersion = "2023-06-01"

	// defaultMessageMaxTokens applies when a message-style config leaves
	// max_tokens unset, since that API rejects requests without it.
	defaultMessageMaxTokens = 16000
)

// messageResponse is the response body of the Messages API.
type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// buildMessageRequest builds a Messages API request body. The system prompt
// is a top-level field and the user prompt is the only message.
func buildMessageRequest(cfg ProviderConfig, req Request) map[string]any {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 && cfg.MaxTokens != nil {
		maxTokens = *cfg.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = defaultMessageMaxTokens
	}

	body := map[string]any{
		"model":      cfg.ModelName,
		"max_tokens": maxTokens,
		"system":     req.SystemPrompt,
		"messages": []message{
			{Role: "user", Content: req.UserPrompt},
		},
	}
	if cfg.Temperature != nil {
		body["temperature"] = *cfg.Temperature
	}

	mergeParams(body, cfg.AdditionalParams)
	return body
}

// parseMessageResponse returns the text of the first "text" content block.
func parseMessageResponse(data []byte) (string, error) {
	var resp messageResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("parsing message response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}

	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", nil
}
