package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hoanghai1803/sprout/internal/models"
	"github.com/hoanghai1803/sprout/internal/notify"
)

// contentGoal tells the social generator what the posts are for.
const contentGoal = "Drive parents to read the new blog article"

// postAction is a best-effort follow-up run after a post is stored.
type postAction struct {
	name string
	run  func(ctx context.Context) error
}

// postActions lists the follow-ups for a stored post.
func (g *Generator) postActions(req Request, post *models.Post, title TitleCandidate, style StyleChoice, prompt string) []postAction {
	actions := []postAction{{
		name: "append history",
		run: func(ctx context.Context) error {
			return g.store.AppendHistory(ctx, &models.HistoryEntry{
				Title:           post.Title,
				Prompt:          prompt,
				Keywords:        SplitKeywords(req.Keywords),
				ToneUsed:        style.Tone,
				PerspectiveUsed: style.Perspective,
				GeneratedAt:     g.now(),
			})
		},
	}}

	if title.Origin == OriginBank && title.BankID != 0 {
		actions = append(actions, postAction{
			name: "mark bank title used",
			run: func(ctx context.Context) error {
				return g.store.MarkBankTitleUsed(ctx, title.BankID)
			},
		})
	}

	if req.AutoPublish && g.notifier != nil {
		actions = append(actions, postAction{
			name: "notify",
			run: func(ctx context.Context) error {
				return g.notifier.Dispatch(ctx, notify.Event{
					PostID:         post.ID,
					Title:          post.Title,
					Slug:           post.Slug,
					URL:            g.PostURL(post.Slug),
					Excerpt:        post.Excerpt,
					TargetAudience: req.TargetAudience,
					ContentGoal:    contentGoal,
					WebhookURL:     req.WebhookURL,
				})
			},
		})
	}

	return actions
}

// runPostActions runs actions concurrently and waits for them. Failures are
// logged and never returned. Actions keep running if ctx is cancelled,
// since the post they follow up on is already stored.
func (g *Generator) runPostActions(ctx context.Context, actions []postAction) {
	ctx = context.WithoutCancel(ctx)

	var eg errgroup.Group
	if g.cfg.PostActionLimit > 0 {
		eg.SetLimit(g.cfg.PostActionLimit)
	}

	for _, a := range actions {
		eg.Go(func() error {
			if err := a.run(ctx); err != nil {
				slog.Warn("post action failed", "action", a.name, "error", err)
			}
			return nil
		})
	}
	eg.Wait() //nolint:errcheck // actions never return errors
}
