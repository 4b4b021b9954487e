package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hoanghai1803/sprout/internal/models"
	"github.com/hoanghai1803/sprout/internal/storage"
)

const bankColumns = `id, title, source, is_used, used_at, created_at`

// NextUnusedTitle returns the oldest unused bank title, or nil when none
// are left.
func (s *Store) NextUnusedTitle(ctx context.Context) (*models.BankTitle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bankColumns+` FROM title_bank WHERE NOT is_used ORDER BY id LIMIT 1`)

	bt, err := scanBankTitle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting next unused title: %w", err)
	}
	return bt, nil
}

// SampleBankTitles returns up to limit bank titles in random order.
func (s *Store) SampleBankTitles(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title FROM title_bank ORDER BY random() LIMIT $1`, limit)
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

// AddBankTitle adds a title to the bank and returns its ID. A title already
// present (ignoring case) keeps its existing row.
func (s *Store) AddBankTitle(ctx context.Context, title, source string) (int64, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, fmt.Errorf("adding bank title: empty title")
	}
	if source == "" {
		source = models.BankSourceManual
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO title_bank (title, source) VALUES ($1, $2)
		 ON CONFLICT ((lower(title))) DO NOTHING`,
		title, source,
	); err != nil {
		return 0, fmt.Errorf("adding bank title: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM title_bank WHERE lower(title) = lower($1)`, title,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("getting bank title id: %w", err)
	}
	return id, nil
}

// MarkBankTitleUsed flags a bank title as consumed.
func (s *Store) MarkBankTitleUsed(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE title_bank SET is_used = TRUE, used_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("marking bank title used: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListBankTitles returns bank titles, unused first, oldest first.
func (s *Store) ListBankTitles(ctx context.Context) ([]models.BankTitle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bankColumns+` FROM title_bank ORDER BY is_used, id`)
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
		bt     models.BankTitle
		usedAt sql.NullTime
	)
	if err := row.Scan(&bt.ID, &bt.Title, &bt.Source, &bt.IsUsed, &usedAt, &bt.CreatedAt); err != nil {
		return nil, err
	}
	bt.UsedAt = timePtr(usedAt)
	return &bt, nil
}
