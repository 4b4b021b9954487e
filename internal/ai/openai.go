package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// completionTokenModels are model families that reject max_tokens and
// temperature and expect max_completion_tokens instead.
var completionTokenModels = []string{"gpt-5", "o3", "o4"}

// chatResponse is the response body of a Chat Completions API.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// usesCompletionTokens reports whether the model belongs to a family that
// takes max_completion_tokens and no temperature.
func usesCompletionTokens(model string) bool {
	model = strings.ToLower(model)
	for _, prefix := range completionTokenModels {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// buildChatRequest builds a Chat Completions request body. Temperature and
// the output budget are only sent when configured.
func buildChatRequest(cfg ProviderConfig, req Request) map[string]any {
	body := map[string]any{
		"model": cfg.ModelName,
		"messages": []message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 && cfg.MaxTokens != nil {
		maxTokens = *cfg.MaxTokens
	}

	if usesCompletionTokens(cfg.ModelName) {
		if maxTokens > 0 {
			body["max_completion_tokens"] = maxTokens
		}
	} else {
		if maxTokens > 0 {
			body["max_tokens"] = maxTokens
		}
		if cfg.Temperature != nil {
			body["temperature"] = *cfg.Temperature
		}
	}

	mergeParams(body, cfg.AdditionalParams)
	return body
}

// parseChatResponse returns choices[0].message.content.
func parseChatResponse(data []byte) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("parsing chat response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
