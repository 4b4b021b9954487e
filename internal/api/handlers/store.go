package handlers

import (
	"context"

	"github.com/hoanghai1803/sprout/internal/models"
	"github.com/hoanghai1803/sprout/internal/pipeline"
)

// Store is the read and admin surface the handlers use.
type Store interface {
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context, limit int) ([]models.Post, error)
	RecentHistory(ctx context.Context, limit int) ([]models.HistoryEntry, error)
	ListBankTitles(ctx context.Context) ([]models.BankTitle, error)
	AddBankTitle(ctx context.Context, title, source string) (int64, error)
}

// Generator runs one article generation.
type Generator interface {
	Generate(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}
