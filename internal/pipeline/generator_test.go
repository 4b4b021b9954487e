package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hoanghai1803/sprout/internal/ai"
	"github.com/hoanghai1803/sprout/internal/models"
)

const testBody = "## Start small\n\nOffer one new vegetable next to a favourite food. Keep portions tiny and stay relaxed at the table."

func newTestGenerator(store *fakeStore, inv *scriptedInvoker, opts ...Option) *Generator {
	opts = append([]Option{WithClock(fixedClock), WithRandom(fixedRandom(0))}, opts...)
	return NewGenerator(store, inv, testConfig(), opts...)
}

func TestGenerate_Draft(t *testing.T) {
	store := &fakeStore{}
	inv := newInvoker(reply(articleJSON("Veggie Tricks", testBody)))
	notifier := &recordingNotifier{}

	res, err := newTestGenerator(store, inv, WithNotifier(notifier)).Generate(context.Background(), Request{
		Topic:    "Veggie Tricks",
		Keywords: "vegetables",
	})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if res.Attempts != 1 || len(inv.calls) != 1 {
		t.Errorf("attempts = %d, calls = %d, want 1", res.Attempts, len(inv.calls))
	}
	if res.AutoPublished {
		t.Error("AutoPublished should be false")
	}

	p := res.Post
	if p.ID != "post-1" || p.Slug != "veggie-tricks" {
		t.Errorf("post id/slug = %q/%q", p.ID, p.Slug)
	}
	if p.Status != models.StatusDraft || p.PublishedAt != nil {
		t.Errorf("status = %q, published_at = %v", p.Status, p.PublishedAt)
	}
	if !p.AIGenerated || p.AIPrompt != inv.calls[0].UserPrompt {
		t.Error("post should record the prompt that produced it")
	}
	if !strings.Contains(p.Content, "## Frequently Asked Questions") || !strings.Contains(p.ContentHTML, "<h2>") {
		t.Errorf("content not rendered: %q", p.ContentHTML)
	}
	if p.MetaTitle != "SEO Veggie Tricks" || p.Excerpt != "Short summary." {
		t.Errorf("meta = %q / %q", p.MetaTitle, p.Excerpt)
	}
	if !reflect.DeepEqual(p.Keywords, []string{"vegetables"}) {
		t.Errorf("keywords = %v", p.Keywords)
	}
	if p.ContentHash == "" || p.ReadingTimeMinutes != 1 {
		t.Errorf("hash = %q, reading time = %d", p.ContentHash, p.ReadingTimeMinutes)
	}

	if len(store.history) != 1 {
		t.Fatalf("history entries = %d, want 1", len(store.history))
	}
	h := store.history[0]
	if h.Title != "Veggie Tricks" || !reflect.DeepEqual(h.Keywords, []string{"vegetables"}) {
		t.Errorf("history = %+v", h)
	}
	if h.ToneUsed != Tones[0] || h.PerspectiveUsed != Perspectives[0] {
		t.Errorf("history style = %q/%q", h.ToneUsed, h.PerspectiveUsed)
	}
	if len(notifier.events) != 0 {
		t.Error("drafts must not notify")
	}
}

func TestGenerate_AutoPublish(t *testing.T) {
	store := &fakeStore{}
	inv := newInvoker(reply(articleJSON("Veggie Tricks", testBody)))
	notifier := &recordingNotifier{}

	res, err := newTestGenerator(store, inv, WithNotifier(notifier)).Generate(context.Background(), Request{
		Topic:          "Veggie Tricks",
		Keywords:       "vegetables",
		TargetAudience: "parents of toddlers",
		AutoPublish:    true,
		WebhookURL:     "https://hooks.test/in",
	})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if res.Post.Status != models.StatusPublished {
		t.Errorf("status = %q, want published", res.Post.Status)
	}
	if res.Post.PublishedAt == nil || !res.Post.PublishedAt.Equal(testNow) {
		t.Errorf("published_at = %v, want %v", res.Post.PublishedAt, testNow)
	}
	if !res.AutoPublished {
		t.Error("AutoPublished should be true")
	}

	if len(notifier.events) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.events))
	}
	ev := notifier.events[0]
	if ev.URL != "https://sprout.test/blog/veggie-tricks" || ev.WebhookURL != "https://hooks.test/in" {
		t.Errorf("event = %+v", ev)
	}
	if ev.PostID != res.Post.ID || ev.TargetAudience != "parents of toddlers" {
		t.Errorf("event = %+v", ev)
	}
}

func TestGenerate_RetryBound(t *testing.T) {
	store := &fakeStore{}
	inv := newInvoker(reply("I'm sorry, here is"), reply(`{"title": "cut off`))

	_, err := newTestGenerator(store, inv).Generate(context.Background(), Request{Topic: "Veggie Tricks"})
	if !errors.Is(err, ErrParseAfterRetry) {
		t.Fatalf("error = %v, want ErrParseAfterRetry", err)
	}
	var malformed *ai.MalformedContentError
	if !errors.As(err, &malformed) {
		t.Error("error should wrap the malformed content error")
	}
	if len(inv.calls) != 2 {
		t.Errorf("provider calls = %d, want 2", len(inv.calls))
	}
	if len(store.posts) != 0 || len(store.history) != 0 {
		t.Error("nothing should be stored")
	}
}

func TestGenerate_RetrySucceeds(t *testing.T) {
	store := &fakeStore{}
	inv := newInvoker(reply("not json"), reply(articleJSON("Veggie Tricks", testBody)))

	res, err := newTestGenerator(store, inv).Generate(context.Background(), Request{Topic: "Veggie Tricks"})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Attempts)
	}

	first, retry := inv.calls[0], inv.calls[1]
	if !strings.Contains(first.UserPrompt, "Target length: 1200-1800 words") {
		t.Errorf("first prompt = %q", first.UserPrompt)
	}
	if !strings.Contains(retry.UserPrompt, "Target length: 700-1100 words") {
		t.Errorf("retry prompt = %q", retry.UserPrompt)
	}
	if first.MaxTokens != 0 || retry.MaxTokens != 4000 {
		t.Errorf("max tokens = %d then %d, want 0 then 4000", first.MaxTokens, retry.MaxTokens)
	}
	if res.Post.AIPrompt != retry.UserPrompt {
		t.Error("post should record the retry prompt")
	}
}

func TestGenerate_ProviderErrorIsTerminal(t *testing.T) {
	tests := []struct {
		name      string
		responses []invokeResult
		wantCalls int
	}{
		{"first attempt", []invokeResult{failure(&ai.ProviderHTTPError{StatusCode: 429, Body: "slow down"})}, 1},
		{"retry attempt", []invokeResult{reply("garbage"), failure(&ai.ProviderHTTPError{StatusCode: 429})}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newInvoker(tt.responses...)
			_, err := newTestGenerator(&fakeStore{}, inv).Generate(context.Background(), Request{Topic: "Veggie Tricks"})
			if !ai.IsRateLimited(err) {
				t.Fatalf("error = %v, want rate limited", err)
			}
			if errors.Is(err, ErrParseAfterRetry) {
				t.Error("provider errors are not parse failures")
			}
			if len(inv.calls) != tt.wantCalls {
				t.Errorf("provider calls = %d, want %d", len(inv.calls), tt.wantCalls)
			}
		})
	}
}

func TestGenerate_DuplicateContent(t *testing.T) {
	store := &fakeStore{contentMatch: &models.ContentMatch{PostID: "old", Title: "Old Post", Score: 1}}
	inv := newInvoker(reply(articleJSON("Veggie Tricks", testBody)))

	_, err := newTestGenerator(store, inv).Generate(context.Background(), Request{Topic: "Veggie Tricks"})
	var dup *DuplicateContentError
	if !errors.As(err, &dup) {
		t.Fatalf("error = %v, want DuplicateContentError", err)
	}
	if dup.Match.Title != "Old Post" {
		t.Errorf("match = %+v", dup.Match)
	}
	if len(store.posts) != 0 || len(store.history) != 0 {
		t.Error("duplicates must not be stored")
	}
}

func TestGenerate_ContentLookupErrorStillPersists(t *testing.T) {
	store := &fakeStore{contentErr: errors.New("db down")}
	inv := newInvoker(reply(articleJSON("Veggie Tricks", testBody)))

	if _, err := newTestGenerator(store, inv).Generate(context.Background(), Request{Topic: "Veggie Tricks"}); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(store.posts) != 1 {
		t.Errorf("posts = %d, want 1", len(store.posts))
	}
}

func TestGenerate_InsertError(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("disk full")}
	inv := newInvoker(reply(articleJSON("Veggie Tricks", testBody)))

	_, err := newTestGenerator(store, inv).Generate(context.Background(), Request{Topic: "Veggie Tricks"})
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want PersistenceError", err)
	}
	if len(store.history) != 0 {
		t.Error("history must not be written when the insert fails")
	}
}

func TestGenerate_PostActionFailuresIgnored(t *testing.T) {
	store := &fakeStore{appendErr: errors.New("history locked")}
	inv := newInvoker(reply(articleJSON("Veggie Tricks", testBody)))
	notifier := &recordingNotifier{err: errors.New("webhook down")}

	res, err := newTestGenerator(store, inv, WithNotifier(notifier)).Generate(context.Background(),
		Request{Topic: "Veggie Tricks", AutoPublish: true})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if res.Post == nil || len(store.posts) != 1 {
		t.Error("post should be stored despite follow-up failures")
	}
	if len(notifier.events) != 1 {
		t.Errorf("notifications = %d, want 1", len(notifier.events))
	}
}

func TestGenerate_MarksBankTitleUsed(t *testing.T) {
	store := &fakeStore{bank: []models.BankTitle{{ID: 7, Title: "Lunchbox Wins"}}}
	inv := newInvoker(reply(articleJSON("Lunchbox Wins", testBody)))

	res, err := newTestGenerator(store, inv).Generate(context.Background(), Request{UseTitleBank: true})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if res.Title.Origin != OriginBank {
		t.Errorf("origin = %q, want bank", res.Title.Origin)
	}
	if !reflect.DeepEqual(store.used, []int64{7}) {
		t.Errorf("used = %v, want [7]", store.used)
	}
}

func TestGenerate_DuplicateTitleStopsBeforeContent(t *testing.T) {
	store := &fakeStore{titleMatches: []models.TitleMatch{{Title: "Veggie Tricks", Score: 1}}}
	inv := newInvoker()

	_, err := newTestGenerator(store, inv).Generate(context.Background(), Request{Topic: "Veggie Tricks"})
	var dup *DuplicateTitleError
	if !errors.As(err, &dup) {
		t.Fatalf("error = %v, want DuplicateTitleError", err)
	}
	if len(inv.calls) != 0 {
		t.Errorf("provider calls = %d, want 0", len(inv.calls))
	}
}

func TestGenerate_EmptyParsedTitleUsesResolvedTitle(t *testing.T) {
	store := &fakeStore{}
	inv := newInvoker(reply(articleJSON("", testBody)))

	res, err := newTestGenerator(store, inv).Generate(context.Background(), Request{Topic: "Veggie Tricks"})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if res.Post.Title != "Veggie Tricks" || res.Post.Slug != "veggie-tricks" {
		t.Errorf("post title/slug = %q/%q", res.Post.Title, res.Post.Slug)
	}
}

func TestGenerate_SlugCollision(t *testing.T) {
	store := &fakeStore{slugs: []string{"veggie-tricks"}}
	inv := newInvoker(reply(articleJSON("Veggie Tricks", testBody)))

	res, err := newTestGenerator(store, inv).Generate(context.Background(), Request{Topic: "Veggie Tricks"})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if res.Post.Slug != "veggie-tricks-2" {
		t.Errorf("slug = %q, want veggie-tricks-2", res.Post.Slug)
	}
}

func TestGenerate_ActiveModelConfig(t *testing.T) {
	temp := 0.4
	store := &fakeStore{active: &models.ModelConfig{
		ModelName:   "gpt-4o",
		EndpointURL: "https://api.openai.com/v1/chat/completions",
		AuthType:    "bearer",
		APIKeyEnv:   "OPENAI_API_KEY",
		Temperature: &temp,
	}}
	inv := newInvoker(reply(articleJSON("Veggie Tricks", testBody)))

	if _, err := newTestGenerator(store, inv).Generate(context.Background(), Request{Topic: "Veggie Tricks"}); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	got := inv.providers[0]
	if got.ModelName != "gpt-4o" || got.AuthType != ai.AuthBearer || got.Temperature == nil || *got.Temperature != 0.4 {
		t.Errorf("provider = %+v", got)
	}
}

func TestGenerate_ModelConfigErrorUsesDefault(t *testing.T) {
	store := &fakeStore{activeErr: errors.New("db down")}
	inv := newInvoker(reply(articleJSON("Veggie Tricks", testBody)))

	if _, err := newTestGenerator(store, inv).Generate(context.Background(), Request{Topic: "Veggie Tricks"}); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if inv.providers[0].ModelName != "test-model" {
		t.Errorf("model = %q, want default", inv.providers[0].ModelName)
	}
}

func TestRetryMaxTokens(t *testing.T) {
	cfg := DefaultConfig()
	tok := func(n int) *int { return &n }
	const messageURL = "https://api.anthropic.com/v1/messages"
	const chatURL = "https://api.openai.com/v1/chat/completions"

	tests := []struct {
		name string
		p    ai.ProviderConfig
		want int
	}{
		{"message unset", ai.ProviderConfig{EndpointURL: messageURL}, 8000},
		{"message below cap", ai.ProviderConfig{EndpointURL: messageURL, MaxTokens: tok(9000)}, 9000},
		{"message above cap", ai.ProviderConfig{EndpointURL: messageURL, MaxTokens: tok(16000)}, 12000},
		{"chat unset", ai.ProviderConfig{EndpointURL: chatURL}, 4000},
		{"chat configured", ai.ProviderConfig{EndpointURL: chatURL, MaxTokens: tok(6000)}, 6000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.retryMaxTokens(tt.p); got != tt.want {
				t.Errorf("retryMaxTokens() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSplitKeywords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"vegetables", []string{"vegetables"}},
		{" toddlers , , snacks ", []string{"toddlers", "snacks"}},
	}
	for _, tt := range tests {
		if got := SplitKeywords(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitKeywords(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGenerate_SlugTakenOnInsert(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{"base taken", []string{"veggie-tricks"}, "veggie-tricks-2"},
		{"base and suffix taken", []string{"veggie-tricks", "veggie-tricks-2"}, "veggie-tricks-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{slugs: tt.existing, staleSlugs: true}
			inv := newInvoker(reply(articleJSON("Veggie Tricks", testBody)))

			res, err := newTestGenerator(store, inv).Generate(context.Background(), Request{Topic: "Veggie Tricks"})
			if err != nil {
				t.Fatalf("Generate() error: %v", err)
			}
			if res.Post.Slug != tt.want {
				t.Errorf("slug = %q, want %q", res.Post.Slug, tt.want)
			}
			if len(store.posts) != 1 {
				t.Errorf("posts = %d, want 1", len(store.posts))
			}
		})
	}
}

func TestGenerate_SlugRetriesBounded(t *testing.T) {
	store := &fakeStore{
		slugs:      []string{"veggie-tricks", "veggie-tricks-2", "veggie-tricks-3", "veggie-tricks-4"},
		staleSlugs: true,
	}
	inv := newInvoker(reply(articleJSON("Veggie Tricks", testBody)))

	_, err := newTestGenerator(store, inv).Generate(context.Background(), Request{Topic: "Veggie Tricks"})
	var perr *PersistenceError
	if !errors.As(err, &perr) || !errors.Is(err, models.ErrSlugTaken) {
		t.Fatalf("error = %v, want PersistenceError wrapping ErrSlugTaken", err)
	}
	if len(store.posts) != 0 {
		t.Errorf("posts = %d, want 0", len(store.posts))
	}
}

func TestGenerate_DuplicateBankTitleIsRetired(t *testing.T) {
	store := &fakeStore{
		bank: []models.BankTitle{
			{ID: 1, Title: "Veggie Tricks"},
			{ID: 2, Title: "Fresh Breakfast Ideas"},
		},
		titleMatches: []models.TitleMatch{{Title: "Veggie Tricks", Score: 1}},
	}
	inv := newInvoker()
	gen := newTestGenerator(store, inv)

	_, err := gen.Generate(context.Background(), Request{UseTitleBank: true})
	var dup *DuplicateTitleError
	if !errors.As(err, &dup) || dup.Title != "Veggie Tricks" {
		t.Fatalf("error = %v, want DuplicateTitleError for Veggie Tricks", err)
	}
	if !reflect.DeepEqual(store.used, []int64{1}) {
		t.Errorf("used = %v, want [1]", store.used)
	}

	_, err = gen.Generate(context.Background(), Request{UseTitleBank: true})
	if !errors.As(err, &dup) || dup.Title != "Fresh Breakfast Ideas" {
		t.Fatalf("second request error = %v, want the next bank title", err)
	}
	if len(inv.calls) != 0 {
		t.Errorf("provider calls = %d, want 0", len(inv.calls))
	}
}
