package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hoanghai1803/sprout/internal/models"
)

// NextUnusedTitle returns the oldest title bank entry not yet used, or nil
// when the bank has none left.
func (s *Store) NextUnusedTitle(ctx context.Context) (*models.BankTitle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, source, is_used, used_at, created_at
		 FROM title_bank
		 WHERE is_used = 0
		 ORDER BY id
		 LIMIT 1`)

	bt, err := scanBankTitle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting next unused title: %w", err)
	}
	return bt, nil
}

// SampleBankTitles returns up to limit bank titles, used or not, in random
// order.
func (s *Store) SampleBankTitles(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title FROM title_bank ORDER BY RANDOM() LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sampling bank titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning bank title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bank titles: %w", err)
	}
	return titles, nil
}

// AddBankTitle adds a title to the bank and returns its ID. Adding a title
// that already exists (ignoring case) returns the existing row's ID.
func (s *Store) AddBankTitle(ctx context.Context, title, source string) (int64, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, fmt.Errorf("adding bank title: empty title")
	}
	if source == "" {
		source = models.BankSourceManual
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO title_bank (title, source) VALUES (?, ?)
		 ON CONFLICT(title) DO NOTHING`,
		title, source,
	); err != nil {
		return 0, fmt.Errorf("adding bank title: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM title_bank WHERE title = ?`, title,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("getting bank title id: %w", err)
	}
	return id, nil
}

// MarkBankTitleUsed flags a bank title as consumed.
// Returns ErrNotFound if no matching row exists.
func (s *Store) MarkBankTitleUsed(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE title_bank SET is_used = 1, used_at = ? WHERE id = ?`,
		formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("marking bank title used: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBankTitles returns bank titles, unused first, oldest first.
func (s *Store) ListBankTitles(ctx context.Context) ([]models.BankTitle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, source, is_used, used_at, created_at
		 FROM title_bank
		 ORDER BY is_used, id`)
	if err != nil {
		return nil, fmt.Errorf("listing bank titles: %w", err)
	}
	defer rows.Close()

	titles := []models.BankTitle{}
	for rows.Next() {
		bt, err := scanBankTitle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning bank title: %w", err)
		}
		titles = append(titles, *bt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bank titles: %w", err)
	}
	return titles, nil
}

func scanBankTitle(row scanner) (*models.BankTitle, error) {
	var (
		bt        models.BankTitle
		usedAt    sql.NullString
		createdAt string
	)
	if err := row.Scan(&bt.ID, &bt.Title, &bt.Source, &bt.IsUsed, &usedAt, &createdAt); err != nil {
		return nil, err
	}
	bt.UsedAt = parseTimePtr(nullStringToPtr(usedAt))
	bt.CreatedAt = parseTime(createdAt)
	return &bt, nil
}
