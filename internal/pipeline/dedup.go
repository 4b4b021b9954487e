package pipeline

import (
	"context"
	"log/slog"

	"github.com/hoanghai1803/sprout/internal/models"
	"github.com/hoanghai1803/sprout/internal/similarity"
)

// DuplicateGuard looks up existing posts similar to new content.
type DuplicateGuard struct {
	store SimilarityStore
}

// NewDuplicateGuard creates a DuplicateGuard backed by store.
func NewDuplicateGuard(store SimilarityStore) *DuplicateGuard {
	return &DuplicateGuard{store: store}
}

// CheckTitle returns existing titles scoring at least threshold against
// candidate, best first.
func (g *DuplicateGuard) CheckTitle(ctx context.Context, candidate string, threshold float64) ([]models.TitleMatch, error) {
	return g.store.SimilarTitles(ctx, candidate, threshold)
}

// CheckBody returns the existing post matching fp, or nil. Lookup failures
// are logged and reported as no match.
func (g *DuplicateGuard) CheckBody(ctx context.Context, fp similarity.Fingerprint) *models.ContentMatch {
	match, err := g.store.SimilarContent(ctx, fp)
	if err != nil {
		slog.Warn("content similarity lookup failed", "error", err)
		return nil
	}
	return match
}
