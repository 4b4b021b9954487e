package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// WebhookPayload is the body POSTed to a caller's webhook.
type WebhookPayload struct {
	BlogID        string    `json:"blogId"`
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	Slug          string    `json:"slug"`
	Excerpt       string    `json:"excerpt"`
	ShortFormText string    `json:"shortFormText"`
	LongFormText  string    `json:"longFormText"`
	Hashtags      []string  `json:"hashtags"`
	Timestamp     time.Time `json:"timestamp"`
}

// WebhookClient delivers webhook payloads.
type WebhookClient struct {
	client *http.Client
}

// NewWebhookClient creates a WebhookClient whose calls give up after timeout.
func NewWebhookClient(timeout time.Duration) *WebhookClient {
	return &WebhookClient{client: &http.Client{Timeout: timeout}}
}

// Send POSTs payload to url. Any non-2xx status is an error.
func (w *WebhookClient) Send(ctx context.Context, url string, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // drain for connection reuse

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// ExtractHashtags returns the #tags found in texts, without the leading #,
// in order of first appearance. Duplicates are dropped ignoring case.
func ExtractHashtags(texts ...string) []string {
	seen := make(map[string]bool)
	tags := []string{}
	for _, text := range texts {
		for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
			key := strings.ToLower(m[1])
			if seen[key] {
				continue
			}
			seen[key] = true
			tags = append(tags, m[1])
		}
	}
	return tags
}
