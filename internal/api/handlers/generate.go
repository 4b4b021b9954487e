package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hoanghai1803/sprout/internal/ai"
	"github.com/hoanghai1803/sprout/internal/pipeline"
)

type generateRequest struct {
	Topic          string `json:"topic"`
	Keywords       string `json:"keywords"`
	TargetAudience string `json:"targetAudience"`
	AutoPublish    bool   `json:"autoPublish"`
	WebhookURL     string `json:"webhookUrl"`
	// UseTitleBank defaults to true when omitted.
	UseTitleBank *bool `json:"useTitleBank"`
}

type generateResponse struct {
	Success       bool              `json:"success"`
	Content       *ai.ParsedContent `json:"content"`
	AutoPublished bool              `json:"autoPublished"`
	PostID        string            `json:"postId"`
	Slug          string            `json:"slug"`
}

// Generate handles POST /api/generate. It runs the full pipeline and maps
// its failures to 409, 429 and 500 responses.
func Generate(gen Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body generateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		if body.WebhookURL != "" && !validWebhookURL(body.WebhookURL) {
			writeError(w, http.StatusBadRequest, "webhookUrl must be an http or https URL")
			return
		}

		req := pipeline.Request{
			Topic:          body.Topic,
			Keywords:       body.Keywords,
			TargetAudience: body.TargetAudience,
			AutoPublish:    body.AutoPublish,
			WebhookURL:     body.WebhookURL,
			UseTitleBank:   body.UseTitleBank == nil || *body.UseTitleBank,
		}

		res, err := gen.Generate(r.Context(), req)
		if err != nil {
			writeGenerateError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, generateResponse{
			Success:       true,
			Content:       res.Content,
			AutoPublished: res.AutoPublished,
			PostID:        res.Post.ID,
			Slug:          res.Post.Slug,
		})
	}
}

func writeGenerateError(w http.ResponseWriter, err error) {
	var (
		dupTitle   *pipeline.DuplicateTitleError
		dupContent *pipeline.DuplicateContentError
	)

	switch {
	case errors.As(err, &dupTitle):
		slog.Info("generation rejected: similar title", "title", dupTitle.Title)
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":         "A post with a very similar title already exists",
			"similar_posts": dupTitle.Similar,
		})
	case errors.As(err, &dupContent):
		slog.Info("generation rejected: similar content", "post_id", dupContent.Match.PostID)
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":        "Generated content is too similar to an existing post",
			"similar_post": dupContent.Match,
		})
	case ai.IsRateLimited(err):
		slog.Warn("provider rate limited", "error", err)
		writeError(w, http.StatusTooManyRequests, "AI provider rate limit reached, try again later")
	default:
		slog.Error("generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func validWebhookURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
