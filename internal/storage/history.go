package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hoanghai1803/sprout/internal/models"
)

// AppendHistory records a successful generation. A zero GeneratedAt is set
// to the current time.
func (s *Store) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	keywords, err := json.Marshal(nonNilStrings(entry.Keywords))
	if err != nil {
		return fmt.Errorf("encoding keywords: %w", err)
	}

	generatedAt := entry.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_history (title, prompt, keywords, tone_used, perspective_used, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Title, entry.Prompt, string(keywords), entry.ToneUsed, entry.PerspectiveUsed,
		formatTime(generatedAt),
	)
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// RecentHistory returns the latest limit history entries, newest first.
func (s *Store) RecentHistory(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, prompt, keywords, tone_used, perspective_used, generated_at
		 FROM generation_history
		 ORDER BY generated_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		var (
			e           models.HistoryEntry
			keywords    string
			generatedAt string
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Prompt, &keywords, &e.ToneUsed, &e.PerspectiveUsed, &generatedAt); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		e.Keywords = decodeStrings(keywords)
		e.GeneratedAt = parseTime(generatedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}
