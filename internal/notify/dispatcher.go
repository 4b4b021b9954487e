package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Event describes a freshly published post.
type Event struct {
	PostID         string
	Title          string
	Slug           string
	URL            string
	Excerpt        string
	TargetAudience string
	ContentGoal    string
	// WebhookURL is the caller's webhook; empty means no webhook.
	WebhookURL string
}

// Dispatcher runs the announcement chain: social content first, then the
// webhook.
type Dispatcher struct {
	social  SocialGenerator
	webhook *WebhookClient
	now     func() time.Time
}

// NewDispatcher creates a Dispatcher. social may be nil, in which case the
// webhook is sent without share text.
func NewDispatcher(social SocialGenerator, webhook *WebhookClient) *Dispatcher {
	return &Dispatcher{social: social, webhook: webhook, now: time.Now}
}

// Dispatch announces ev. A social generation failure stops the chain before
// the webhook.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	var posts SocialPosts
	if d.social != nil {
		p, err := d.social.Generate(ctx, SocialRequest{
			Topic:          ev.Title,
			Excerpt:        ev.Excerpt,
			URL:            ev.URL,
			ContentGoal:    ev.ContentGoal,
			TargetAudience: ev.TargetAudience,
		})
		if err != nil {
			return fmt.Errorf("generating social content: %w", err)
		}
		posts = *p
		slog.Info("generated social content", "post_id", ev.PostID)
	}

	if ev.WebhookURL == "" || d.webhook == nil {
		return nil
	}

	payload := WebhookPayload{
		BlogID:        ev.PostID,
		Title:         ev.Title,
		URL:           ev.URL,
		Slug:          ev.Slug,
		Excerpt:       ev.Excerpt,
		ShortFormText: posts.Twitter,
		LongFormText:  posts.Facebook,
		Hashtags:      ExtractHashtags(posts.Twitter, posts.Facebook),
		Timestamp:     d.now().UTC(),
	}
	if err := d.webhook.Send(ctx, ev.WebhookURL, payload); err != nil {
		return err
	}

	slog.Info("webhook delivered", "post_id", ev.PostID, "url", ev.WebhookURL)
	return nil
}
