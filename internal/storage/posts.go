package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hoanghai1803/sprout/internal/models"
	"github.com/hoanghai1803/sprout/internal/similarity"
)

// maxTitleMatches bounds how many similar titles are reported.
const maxTitleMatches = 5

const postColumns = `id, title, slug, content, content_html, excerpt, meta_title,
	meta_description, keywords, status, published_at, ai_generated, ai_prompt,
	reading_time_minutes, content_hash, content_simhash, created_at`

// InsertPost stores a new post and returns the stored row. An empty ID is
// replaced with a fresh UUID. Returns ErrSlugTaken when the slug is in use.
func (s *Store) InsertPost(ctx context.Context, post *models.Post) (*models.Post, error) {
	id := post.ID
	if id == "" {
		id = uuid.NewString()
	}

	keywords, err := json.Marshal(nonNilStrings(post.Keywords))
	if err != nil {
		return nil, fmt.Errorf("encoding keywords: %w", err)
	}

	var publishedAt *string
	if post.PublishedAt != nil {
		v := formatTime(*post.PublishedAt)
		publishedAt = &v
	}

	status := post.Status
	if status == "" {
		status = models.StatusDraft
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, slug, content, content_html, excerpt, meta_title,
			meta_description, keywords, status, published_at, ai_generated, ai_prompt,
			reading_time_minutes, content_hash, content_simhash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, post.Title, post.Slug, post.Content, nullableString(post.ContentHTML),
		nullableString(post.Excerpt), nullableString(post.MetaTitle),
		nullableString(post.MetaDescription), string(keywords), string(status),
		publishedAt, post.AIGenerated, nullableString(post.AIPrompt),
		post.ReadingTimeMinutes, nullableString(post.ContentHash), post.ContentSimHash,
		formatTime(time.Now()),
	)
	if err != nil {
		if isUniqueViolation(err, "posts.slug") {
			return nil, fmt.Errorf("inserting post %q: %w", post.Slug, ErrSlugTaken)
		}
		return nil, fmt.Errorf("inserting post: %w", err)
	}

	return s.GetPost(ctx, id)
}

// GetPost returns the post with the given ID.
// Returns nil, ErrNotFound if no matching row exists.
func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)

	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting post: %w", err)
	}
	return post, nil
}

// ListPosts returns the most recently created posts.
func (s *Store) ListPosts(ctx context.Context, limit int) ([]models.Post, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating posts: %w", err)
	}
	return posts, nil
}

// SlugsWithPrefix returns every slug equal to base or of the form base-N.
func (s *Store) SlugsWithPrefix(ctx context.Context, base string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slug FROM posts WHERE slug = ? OR slug LIKE ? ESCAPE '\'`,
		base, escapeLike(base)+"-%")
	if err != nil {
		return nil, fmt.Errorf("querying slugs: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("scanning slug: %w", err)
		}
		slugs = append(slugs, slug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating slugs: %w", err)
	}
	return slugs, nil
}

// SimilarTitles returns existing post titles whose trigram similarity to
// title is at least threshold, best first.
func (s *Store) SimilarTitles(ctx context.Context, title string, threshold float64) ([]models.TitleMatch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("querying post titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning post title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating post titles: %w", err)
	}

	ranked := similarity.RankTitles(title, titles, threshold)
	if len(ranked) > maxTitleMatches {
		ranked = ranked[:maxTitleMatches]
	}

	matches := make([]models.TitleMatch, 0, len(ranked))
	for _, m := range ranked {
		matches = append(matches, models.TitleMatch{Title: m.Title, Score: m.Score})
	}
	return matches, nil
}

// SimilarContent returns the existing post whose body fingerprint is closest
// to fp, or nil when none is close enough.
func (s *Store) SimilarContent(ctx context.Context, fp similarity.Fingerprint) (*models.ContentMatch, error) {
	var match models.ContentMatch
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title FROM posts WHERE content_hash = ? LIMIT 1`, fp.Digest,
	).Scan(&match.PostID, &match.Title)
	switch {
	case err == nil:
		match.Score = 1
		return &match, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("querying content hash: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content_simhash FROM posts WHERE content_simhash IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("querying content simhashes: %w", err)
	}
	defer rows.Close()

	var best *models.ContentMatch
	for rows.Next() {
		var (
			id, title string
			simHash   int64
		)
		if err := rows.Scan(&id, &title, &simHash); err != nil {
			return nil, fmt.Errorf("scanning content simhash: %w", err)
		}

		score, ok := similarity.ContentScore(fp, similarity.Fingerprint{SimHash: simHash})
		if ok && (best == nil || score > best.Score) {
			best = &models.ContentMatch{PostID: id, Title: title, Score: score}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating content simhashes: %w", err)
	}
	return best, nil
}

// scanPost scans a single post row selected with postColumns.
func scanPost(row scanner) (*models.Post, error) {
	var (
		post            models.Post
		contentHTML     sql.NullString
		excerpt         sql.NullString
		metaTitle       sql.NullString
		metaDescription sql.NullString
		keywords        string
		status          string
		publishedAt     sql.NullString
		aiPrompt        sql.NullString
		contentHash     sql.NullString
		simHash         sql.NullInt64
		createdAt       string
	)

	if err := row.Scan(
		&post.ID, &post.Title, &post.Slug, &post.Content, &contentHTML, &excerpt,
		&metaTitle, &metaDescription, &keywords, &status, &publishedAt,
		&post.AIGenerated, &aiPrompt, &post.ReadingTimeMinutes, &contentHash,
		&simHash, &createdAt,
	); err != nil {
		return nil, err
	}

	post.ContentHTML = contentHTML.String
	post.Excerpt = excerpt.String
	post.MetaTitle = metaTitle.String
	post.MetaDescription = metaDescription.String
	post.Status = models.PostStatus(status)
	post.PublishedAt = parseTimePtr(nullStringToPtr(publishedAt))
	post.AIPrompt = aiPrompt.String
	post.ContentHash = contentHash.String
	post.ContentSimHash = simHash.Int64
	post.CreatedAt = parseTime(createdAt)
	post.Keywords = decodeStrings(keywords)

	return &post, nil
}
