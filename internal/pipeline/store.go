package pipeline

import (
	"context"

	"github.com/hoanghai1803/sprout/internal/ai"
	"github.com/hoanghai1803/sprout/internal/models"
	"github.com/hoanghai1803/sprout/internal/notify"
	"github.com/hoanghai1803/sprout/internal/similarity"
)

// ConfigStore reads the active provider configuration.
type ConfigStore interface {
	// ActiveModelConfig returns nil, nil when no configuration is active.
	ActiveModelConfig(ctx context.Context) (*models.ModelConfig, error)
}

// TitleStore is the title bank.
type TitleStore interface {
	// NextUnusedTitle returns nil, nil when the bank is empty.
	NextUnusedTitle(ctx context.Context) (*models.BankTitle, error)
	SampleBankTitles(ctx context.Context, limit int) ([]string, error)
	AddBankTitle(ctx context.Context, title, source string) (int64, error)
	MarkBankTitleUsed(ctx context.Context, id int64) error
}

// HistoryStore is the append-only generation log.
type HistoryStore interface {
	RecentHistory(ctx context.Context, limit int) ([]models.HistoryEntry, error)
	AppendHistory(ctx context.Context, entry *models.HistoryEntry) error
}

// SimilarityStore answers near-duplicate queries against existing posts.
type SimilarityStore interface {
	SimilarTitles(ctx context.Context, title string, threshold float64) ([]models.TitleMatch, error)
	// SimilarContent returns nil, nil when no post is close enough.
	SimilarContent(ctx context.Context, fp similarity.Fingerprint) (*models.ContentMatch, error)
}

// SlugStore lists slugs already taken.
type SlugStore interface {
	SlugsWithPrefix(ctx context.Context, base string) ([]string, error)
}

// PostStore persists generated posts.
type PostStore interface {
	InsertPost(ctx context.Context, post *models.Post) (*models.Post, error)
}

// Store bundles everything the pipeline reads and writes.
type Store interface {
	ConfigStore
	TitleStore
	HistoryStore
	SimilarityStore
	SlugStore
	PostStore
}

// Invoker sends one generate-text request to an LLM provider.
type Invoker interface {
	Invoke(ctx context.Context, cfg ai.ProviderConfig, req ai.Request) (string, error)
}

// Notifier announces a published post downstream.
type Notifier interface {
	Dispatch(ctx context.Context, ev notify.Event) error
}

// Random picks a uniform index in [0, n).
type Random interface {
	IntN(n int) int
}
