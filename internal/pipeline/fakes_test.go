package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hoanghai1803/sprout/internal/ai"
	"github.com/hoanghai1803/sprout/internal/models"
	"github.com/hoanghai1803/sprout/internal/notify"
	"github.com/hoanghai1803/sprout/internal/similarity"
)

var testNow = time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// fixedRandom always picks index n of the candidates, clamped.
type fixedRandom int

func (r fixedRandom) IntN(n int) int { return min(int(r), n-1) }

type bankAdd struct {
	title  string
	source string
}

// fakeStore is an in-memory Store with injectable failures.
type fakeStore struct {
	mu sync.Mutex

	active    *models.ModelConfig
	activeErr error

	bank    []models.BankTitle
	bankErr error
	added   []bankAdd
	used    []int64

	history    []models.HistoryEntry
	historyErr error
	appendErr  error

	titleMatches []models.TitleMatch
	titleErr     error
	contentMatch *models.ContentMatch
	contentErr   error

	slugs   []string
	slugErr error

	// staleSlugs makes SlugsWithPrefix miss every stored slug, as a read
	// racing a concurrent insert would.
	staleSlugs bool

	posts     []*models.Post
	insertErr error
}

func (s *fakeStore) ActiveModelConfig(_ context.Context) (*models.ModelConfig, error) {
	return s.active, s.activeErr
}

func (s *fakeStore) NextUnusedTitle(_ context.Context) (*models.BankTitle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bankErr != nil {
		return nil, s.bankErr
	}
	for i := range s.bank {
		if !s.bank[i].IsUsed {
			bt := s.bank[i]
			return &bt, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) SampleBankTitles(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, bt := range s.bank {
		if len(out) == limit {
			break
		}
		out = append(out, bt.Title)
	}
	return out, nil
}

func (s *fakeStore) AddBankTitle(_ context.Context, title, source string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.added = append(s.added, bankAdd{title: title, source: source})
	return int64(len(s.bank) + len(s.added)), nil
}

func (s *fakeStore) MarkBankTitleUsed(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used = append(s.used, id)
	for i := range s.bank {
		if s.bank[i].ID == id {
			s.bank[i].IsUsed = true
		}
	}
	return nil
}

func (s *fakeStore) RecentHistory(_ context.Context, limit int) ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	n := min(limit, len(s.history))
	return append([]models.HistoryEntry(nil), s.history[:n]...), nil
}

func (s *fakeStore) AppendHistory(_ context.Context, entry *models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	entry.ID = int64(len(s.history) + 1)
	s.history = append([]models.HistoryEntry{*entry}, s.history...)
	return nil
}

func (s *fakeStore) SimilarTitles(_ context.Context, _ string, _ float64) ([]models.TitleMatch, error) {
	return s.titleMatches, s.titleErr
}

func (s *fakeStore) SimilarContent(_ context.Context, _ similarity.Fingerprint) (*models.ContentMatch, error) {
	return s.contentMatch, s.contentErr
}

func (s *fakeStore) SlugsWithPrefix(_ context.Context, base string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slugErr != nil {
		return nil, s.slugErr
	}
	if s.staleSlugs {
		return nil, nil
	}
	var out []string
	for _, slug := range s.slugs {
		if slug == base || strings.HasPrefix(slug, base+"-") {
			out = append(out, slug)
		}
	}
	return out, nil
}

func (s *fakeStore) InsertPost(_ context.Context, post *models.Post) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	for _, slug := range s.slugs {
		if slug == post.Slug {
			return nil, fmt.Errorf("inserting post %q: %w", post.Slug, models.ErrSlugTaken)
		}
	}
	stored := *post
	stored.ID = fmt.Sprintf("post-%d", len(s.posts)+1)
	stored.CreatedAt = testNow
	s.posts = append(s.posts, &stored)
	s.slugs = append(s.slugs, stored.Slug)
	return &stored, nil
}

type invokeResult struct {
	text string
	err  error
}

// scriptedInvoker replays canned provider answers in order and records
// every request.
type scriptedInvoker struct {
	mu        sync.Mutex
	responses []invokeResult
	calls     []ai.Request
	providers []ai.ProviderConfig
}

func newInvoker(responses ...invokeResult) *scriptedInvoker {
	return &scriptedInvoker{responses: responses}
}

func (s *scriptedInvoker) Invoke(_ context.Context, cfg ai.ProviderConfig, req ai.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	s.providers = append(s.providers, cfg)
	if len(s.responses) == 0 {
		return "", errors.New("unexpected provider call")
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r.text, r.err
}

func reply(text string) invokeResult { return invokeResult{text: text} }

func failure(err error) invokeResult { return invokeResult{err: err} }

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Dispatch(_ context.Context, ev notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func articleJSON(title, body string) string {
	data, _ := json.Marshal(map[string]any{
		"title":          title,
		"seoTitle":       "SEO " + title,
		"seoDescription": "A practical guide for parents.",
		"excerpt":        "Short summary.",
		"body":           body,
		"faq": []map[string]string{
			{"question": "How often?", "answer": "Every day."},
		},
	})
	return string(data)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SiteURL = "https://sprout.test"
	cfg.DefaultProvider = ai.ProviderConfig{
		ModelName:   "test-model",
		EndpointURL: "http://llm.test/v1/chat/completions",
		AuthType:    ai.AuthBearer,
		APIKeyEnv:   "TEST_KEY",
	}
	return cfg
}
