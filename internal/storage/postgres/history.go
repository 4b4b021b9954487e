package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hoanghai1803/sprout/internal/models"
)

// AppendHistory records a successful generation.
func (s *Store) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	keywords := entry.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	generatedAt := entry.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	if err := s.db.QueryRowContext(ctx,
		`INSERT INTO generation_history (title, prompt, keywords, tone_used, perspective_used, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		entry.Title, entry.Prompt, pq.Array(keywords), entry.ToneUsed, entry.PerspectiveUsed, generatedAt,
	).Scan(&entry.ID); err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	return nil
}

// RecentHistory returns the latest limit history entries, newest first.
func (s *Store) RecentHistory(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, prompt, keywords, tone_used, perspective_used, generated_at
		 FROM generation_history
		 ORDER BY generated_at DESC, id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.Title, &e.Prompt, pq.Array(&e.Keywords),
			&e.ToneUsed, &e.PerspectiveUsed, &e.GeneratedAt); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		if e.Keywords == nil {
			e.Keywords = []string{}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}
