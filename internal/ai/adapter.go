package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	// maxResponseBytes bounds how much of a provider response is read.
	maxResponseBytes = 8 << 20

	// maxErrorBody bounds the provider body kept on a ProviderHTTPError.
	maxErrorBody = 2000
)

// Adapter sends a single generate-text request to any configured provider,
// normalizing the message-style and chat-completion-style wire formats.
type Adapter struct {
	client    *http.Client
	lookupKey func(string) string
}

// NewAdapter creates an Adapter whose HTTP calls give up after timeout.
// lookupKey resolves credential env var names; nil means os.Getenv.
func NewAdapter(timeout time.Duration, lookupKey func(string) string) *Adapter {
	if lookupKey == nil {
		lookupKey = os.Getenv
	}
	return &Adapter{
		client: &http.Client{
			Timeout: timeout,
		},
		lookupKey: lookupKey,
	}
}

// Invoke calls the provider described by cfg and returns the raw text it
// generated.
func (a *Adapter) Invoke(ctx context.Context, cfg ProviderConfig, req Request) (string, error) {
	apiKey := strings.TrimSpace(a.lookupKey(cfg.APIKeyEnv))
	if apiKey == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrProviderAuth, cfg.APIKeyEnv)
	}

	protocol := cfg.Protocol()

	var body map[string]any
	switch protocol {
	case MessageStyle:
		body = buildMessageRequest(cfg, req)
	default:
		body = buildChatRequest(cfg, req)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.EndpointURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	setAuthHeader(httpReq.Header, cfg.AuthType, apiKey)
	if protocol == MessageStyle {
		httpReq.Header.Set("anthropic-version", anthropicVersion)
	}

	slog.Debug("calling LLM provider",
		"model", cfg.ModelName,
		"protocol", protocol.String(),
		"max_tokens", req.MaxTokens,
	)

	start := time.Now()
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", &ProviderHTTPError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &ProviderHTTPError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ProviderHTTPError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(respBody), maxErrorBody),
		}
	}

	var text string
	switch protocol {
	case MessageStyle:
		text, err = parseMessageResponse(respBody)
	default:
		text, err = parseChatResponse(respBody)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyGeneration
	}

	slog.Debug("LLM provider responded",
		"model", cfg.ModelName,
		"chars", len(text),
		"duration", time.Since(start).String(),
	)
	return text, nil
}

// setAuthHeader writes the credential using the header the provider expects.
// Unknown auth types fall back to a bearer token.
func setAuthHeader(h http.Header, authType AuthType, apiKey string) {
	switch authType {
	case AuthXAPIKey:
		h.Set("x-api-key", apiKey)
	case AuthAPIKey:
		h.Set("api-key", apiKey)
	default:
		h.Set("Authorization", "Bearer "+apiKey)
	}
}

// truncate returns at most n bytes of s.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
