// Package notify announces published posts: it asks a social-content
// generator for share text and forwards everything to a caller's webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hoanghai1803/sprout/internal/ai"
)

// SocialRequest describes the post social content is written for.
type SocialRequest struct {
	Topic          string `json:"topic"`
	Excerpt        string `json:"excerpt"`
	URL            string `json:"url"`
	ContentGoal    string `json:"contentGoal"`
	TargetAudience string `json:"targetAudience"`
	// AutoPublish is always false: the generator must not post on its own.
	AutoPublish bool `json:"autoPublish"`
}

// SocialPosts is generated share text. Any field may be empty.
type SocialPosts struct {
	Twitter  string `json:"twitter"`
	Facebook string `json:"facebook"`
	Title    string `json:"title"`
}

// SocialGenerator writes share text for a post.
type SocialGenerator interface {
	Generate(ctx context.Context, req SocialRequest) (*SocialPosts, error)
}

// HTTPSocialGenerator calls an external social-content service.
type HTTPSocialGenerator struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSocialGenerator creates a generator posting to endpoint.
func NewHTTPSocialGenerator(endpoint string, timeout time.Duration) *HTTPSocialGenerator {
	return &HTTPSocialGenerator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Generate posts req to the service and returns its content.
func (g *HTTPSocialGenerator) Generate(ctx context.Context, req SocialRequest) (*SocialPosts, error) {
	req.AutoPublish = false

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling social request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating social request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling social generator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return nil, fmt.Errorf("social generator returned status %d: %s", resp.StatusCode, snippet)
	}

	var out struct {
		Content SocialPosts `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding social response: %w", err)
	}
	return &out.Content, nil
}

const socialSystemPrompt = `You write social media posts for Sprout, a meal-planning app for families with picky eaters.
Return ONLY a JSON object with these keys:
- "twitter": a post under 280 characters including the link and 2-3 hashtags
- "facebook": a friendly post of 2-4 sentences including the link and hashtags
- "title": a short headline for the share card`

// OpenAISocialGenerator writes share text in-process with an OpenAI model.
type OpenAISocialGenerator struct {
	model string
	opts  []option.RequestOption
}

// NewOpenAISocialGenerator creates a generator using model. baseURL may be
// empty to use the default OpenAI endpoint.
func NewOpenAISocialGenerator(apiKey, baseURL, model string, timeout time.Duration) (*OpenAISocialGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if model == "" {
		return nil, errors.New("social model is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(1),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAISocialGenerator{model: model, opts: opts}, nil
}

// Generate asks the model for share text and decodes its JSON reply.
func (g *OpenAISocialGenerator) Generate(ctx context.Context, req SocialRequest) (*SocialPosts, error) {
	client := openai.NewClient(g.opts...)

	var user strings.Builder
	fmt.Fprintf(&user, "Article: %s\n", req.Topic)
	fmt.Fprintf(&user, "Summary: %s\n", req.Excerpt)
	fmt.Fprintf(&user, "Link: %s\n", req.URL)
	if req.TargetAudience != "" {
		fmt.Fprintf(&user, "Audience: %s\n", req.TargetAudience)
	}
	if req.ContentGoal != "" {
		fmt.Fprintf(&user, "Goal: %s\n", req.ContentGoal)
	}

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(socialSystemPrompt),
			openai.UserMessage(user.String()),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("calling openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty choices")
	}

	var posts SocialPosts
	if err := json.Unmarshal([]byte(ai.ExtractJSON(resp.Choices[0].Message.Content)), &posts); err != nil {
		return nil, fmt.Errorf("decoding social content: %w", err)
	}
	return &posts, nil
}
