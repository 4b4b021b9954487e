// Package pipeline generates, deduplicates and stores blog articles.
//
// A generation runs strictly in order: resolve a title, pick a style, call
// the provider (retrying once with a smaller scope when the output cannot
// be parsed), reject near-duplicate bodies, allocate a slug and insert the
// post. Best-effort follow-ups run after the post is stored and never change
// the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hoanghai1803/sprout/internal/ai"
	"github.com/hoanghai1803/sprout/internal/content"
	"github.com/hoanghai1803/sprout/internal/models"
	"github.com/hoanghai1803/sprout/internal/similarity"
)

// maxSlugAttempts bounds inserts retried after a slug collision.
const maxSlugAttempts = 3

// Request is one generation request.
type Request struct {
	Topic          string
	Keywords       string
	TargetAudience string
	AutoPublish    bool
	UseTitleBank   bool
	WebhookURL     string
}

// Result is the outcome of a successful generation.
type Result struct {
	Post          *models.Post
	Content       *ai.ParsedContent
	Title         TitleCandidate
	Style         StyleChoice
	AutoPublished bool
	// Attempts is the number of content calls made, 1 or 2.
	Attempts int
}

// Generator runs the generation pipeline.
type Generator struct {
	store    Store
	invoker  Invoker
	notifier Notifier
	rand     Random
	now      func() time.Time
	cfg      Config

	titles *TitleResolver
	styles *StyleSelector
	guard  *DuplicateGuard
	slugs  *SlugAllocator
}

// Option configures a Generator.
type Option func(*Generator)

// WithNotifier sets the downstream notifier used for auto-published posts.
func WithNotifier(n Notifier) Option {
	return func(g *Generator) { g.notifier = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRandom replaces the random source of style selection.
func WithRandom(r Random) Option {
	return func(g *Generator) { g.rand = r }
}

// NewGenerator creates a Generator.
func NewGenerator(store Store, invoker Invoker, cfg Config, opts ...Option) *Generator {
	g := &Generator{
		store:   store,
		invoker: invoker,
		now:     time.Now,
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(g)
	}

	g.guard = NewDuplicateGuard(store)
	g.titles = NewTitleResolver(store, g.guard, invoker, g.now, cfg)
	g.styles = NewStyleSelector(g.rand)
	g.slugs = NewSlugAllocator(store)
	return g
}

// Generate runs one generation. Errors are *DuplicateTitleError,
// *DuplicateContentError, *PersistenceError, ErrParseAfterRetry or a
// provider error from the ai package.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	start := g.now()
	provider := g.providerConfig(ctx)

	title, err := g.titles.Resolve(ctx, req, provider)
	if err != nil {
		return nil, err
	}

	history, err := g.store.RecentHistory(ctx, g.cfg.HistoryWindow)
	if err != nil {
		slog.Warn("reading generation history failed", "error", err)
		history = nil
	}
	style := g.styles.Select(history)

	system, user := ai.BlogPrompt(ai.BlogBrief{
		Title:          title.Text,
		Keywords:       strings.TrimSpace(req.Keywords),
		TargetAudience: strings.TrimSpace(req.TargetAudience),
		Tone:           style.Tone,
		Perspective:    style.Perspective,
		AvoidTitles:    historyTitles(history),
		MinWords:       g.cfg.MinWords,
		MaxWords:       g.cfg.MaxWords,
	})

	parsed, prompt, attempts, err := g.generateContent(ctx, provider, system, user)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(parsed.Title) == "" {
		parsed.Title = title.Text
	}

	fp := similarity.Compute(parsed.Body)
	if match := g.guard.CheckBody(ctx, fp); match != nil {
		return nil, &DuplicateContentError{Match: *match}
	}

	post, err := g.buildPost(ctx, req, parsed, prompt, fp)
	if err != nil {
		return nil, err
	}

	stored, err := g.insertPost(ctx, post)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	slog.Info("generated post",
		"post_id", stored.ID,
		"slug", stored.Slug,
		"status", string(stored.Status),
		"title_origin", string(title.Origin),
		"attempts", attempts,
		"duration", g.now().Sub(start).String(),
	)

	g.runPostActions(ctx, g.postActions(req, stored, title, style, prompt))

	return &Result{
		Post:          stored,
		Content:       parsed,
		Title:         title,
		Style:         style,
		AutoPublished: req.AutoPublish,
		Attempts:      attempts,
	}, nil
}

// generateContent calls the provider and parses the article. A malformed
// first response is retried once with a condensed length target and a
// smaller output budget. It returns the user prompt that produced the
// article.
func (g *Generator) generateContent(ctx context.Context, provider ai.ProviderConfig, system, user string) (*ai.ParsedContent, string, int, error) {
	raw, err := g.invoker.Invoke(ctx, provider, ai.Request{SystemPrompt: system, UserPrompt: user})
	if err != nil {
		return nil, "", 1, fmt.Errorf("generating content: %w", err)
	}

	parsed, err := ai.Sanitize(raw)
	if err == nil {
		return parsed, user, 1, nil
	}

	var malformed *ai.MalformedContentError
	if !errors.As(err, &malformed) {
		return nil, "", 1, err
	}

	retryPrompt := ai.CondenseTargetLength(user, g.cfg.RetryLengthFactor)
	retryTokens := g.cfg.retryMaxTokens(provider)
	slog.Warn("malformed model output, retrying with reduced scope",
		"error", malformed.Err,
		"max_tokens", retryTokens,
	)

	raw, err = g.invoker.Invoke(ctx, provider, ai.Request{
		SystemPrompt: system,
		UserPrompt:   retryPrompt,
		MaxTokens:    retryTokens,
	})
	if err != nil {
		return nil, "", 2, fmt.Errorf("generating content on retry: %w", err)
	}

	parsed, err = ai.Sanitize(raw)
	if err != nil {
		return nil, "", 2, fmt.Errorf("%w: %w", ErrParseAfterRetry, err)
	}
	return parsed, retryPrompt, 2, nil
}

// insertPost stores post, moving it to the next free slug when the insert
// collides with a post stored after the slug was allocated.
func (g *Generator) insertPost(ctx context.Context, post *models.Post) (*models.Post, error) {
	var rejected []string
	for attempt := 1; ; attempt++ {
		stored, err := g.store.InsertPost(ctx, post)
		if err == nil || !errors.Is(err, models.ErrSlugTaken) || attempt == maxSlugAttempts {
			return stored, err
		}

		rejected = append(rejected, post.Slug)
		next := g.slugs.Reallocate(ctx, post.Title, rejected)
		slog.Warn("slug taken on insert, retrying", "slug", post.Slug, "next", next, "attempt", attempt)
		post.Slug = next
	}
}

// buildPost assembles the post row from the parsed article.
func (g *Generator) buildPost(ctx context.Context, req Request, parsed *ai.ParsedContent, prompt string, fp similarity.Fingerprint) (*models.Post, error) {
	markdown := content.Markdown(parsed.Body, parsed.FAQ)
	html, err := content.RenderHTML(markdown)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	excerpt := strings.TrimSpace(parsed.Excerpt)
	if excerpt == "" {
		excerpt = content.Excerpt(parsed.Body)
	}
	metaTitle := strings.TrimSpace(parsed.SEOTitle)
	if metaTitle == "" {
		metaTitle = parsed.Title
	}
	metaDescription := strings.TrimSpace(parsed.SEODescription)
	if metaDescription == "" {
		metaDescription = excerpt
	}

	post := &models.Post{
		Title:              parsed.Title,
		Slug:               g.slugs.Allocate(ctx, parsed.Title),
		Content:            markdown,
		ContentHTML:        html,
		Excerpt:            excerpt,
		MetaTitle:          metaTitle,
		MetaDescription:    metaDescription,
		Keywords:           SplitKeywords(req.Keywords),
		Status:             models.StatusDraft,
		AIGenerated:        true,
		AIPrompt:           prompt,
		ReadingTimeMinutes: content.ReadingTime(parsed.Body),
		ContentHash:        fp.Digest,
		ContentSimHash:     fp.SimHash,
	}
	if req.AutoPublish {
		now := g.now()
		post.Status = models.StatusPublished
		post.PublishedAt = &now
	}
	return post, nil
}

// providerConfig returns the active provider, or the default one when none
// is active or the lookup fails.
func (g *Generator) providerConfig(ctx context.Context) ai.ProviderConfig {
	mc, err := g.store.ActiveModelConfig(ctx)
	if err != nil {
		slog.Warn("loading active model config failed, using default", "error", err)
		return g.cfg.DefaultProvider
	}
	if mc == nil {
		return g.cfg.DefaultProvider
	}
	return ProviderFromModel(mc)
}

// ProviderFromModel converts a stored model configuration.
func ProviderFromModel(mc *models.ModelConfig) ai.ProviderConfig {
	return ai.ProviderConfig{
		ModelName:        mc.ModelName,
		EndpointURL:      mc.EndpointURL,
		AuthType:         ai.AuthType(mc.AuthType),
		APIKeyEnv:        mc.APIKeyEnv,
		Temperature:      mc.Temperature,
		MaxTokens:        mc.MaxTokens,
		AdditionalParams: mc.AdditionalParams,
	}
}

// PostURL returns the public URL of a post.
func (g *Generator) PostURL(slug string) string {
	return strings.TrimRight(g.cfg.SiteURL, "/") + "/blog/" + slug
}

// SplitKeywords splits a comma-separated keyword list.
func SplitKeywords(keywords string) []string {
	out := []string{}
	for _, k := range strings.Split(keywords, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func historyTitles(history []models.HistoryEntry) []string {
	titles := make([]string, 0, len(history))
	for _, h := range history {
		titles = append(titles, h.Title)
	}
	return titles
}
