package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hoanghai1803/sprout/internal/models"
	"github.com/hoanghai1803/sprout/internal/similarity"
	"github.com/hoanghai1803/sprout/internal/storage"
)

const maxTitleMatches = 5

const postColumns = `id, title, slug, content, content_html, excerpt, meta_title,
	meta_description, keywords, status, published_at, ai_generated, ai_prompt,
	reading_time_minutes, content_hash, content_simhash, created_at`

// InsertPost stores a new post and returns the stored row. An empty ID is
// replaced with a fresh UUID. Returns storage.ErrSlugTaken when the slug is
// in use.
func (s *Store) InsertPost(ctx context.Context, post *models.Post) (*models.Post, error) {
	id := post.ID
	if id == "" {
		id = uuid.NewString()
	}

	status := post.Status
	if status == "" {
		status = models.StatusDraft
	}

	keywords := post.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO posts (id, title, slug, content, content_html, excerpt, meta_title,
			meta_description, keywords, status, published_at, ai_generated, ai_prompt,
			reading_time_minutes, content_hash, content_simhash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING `+postColumns,
		id, post.Title, post.Slug, post.Content, nullableString(post.ContentHTML),
		nullableString(post.Excerpt), nullableString(post.MetaTitle),
		nullableString(post.MetaDescription), pq.Array(keywords), string(status),
		post.PublishedAt, post.AIGenerated, nullableString(post.AIPrompt),
		post.ReadingTimeMinutes, nullableString(post.ContentHash), post.ContentSimHash,
	)

	stored, err := scanPost(row)
	if err != nil {
		if isSlugViolation(err) {
			return nil, fmt.Errorf("inserting post %q: %w", post.Slug, storage.ErrSlugTaken)
		}
		return nil, fmt.Errorf("inserting post: %w", err)
	}
	return stored, nil
}

// GetPost returns the post with the given ID.
// Returns nil, storage.ErrNotFound if no matching row exists.
func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, storage.ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)

	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
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
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC LIMIT $1`, limit)
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

// SlugsWithPrefix returns every slug equal to base or starting with base-.
func (s *Store) SlugsWithPrefix(ctx context.Context, base string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slug FROM posts WHERE slug = $1 OR starts_with(slug, $1 || '-')`, base)
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

// SimilarTitles returns existing post titles whose pg_trgm similarity to
// title is at least threshold, best first.
func (s *Store) SimilarTitles(ctx context.Context, title string, threshold float64) ([]models.TitleMatch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, similarity(title, $1) AS score
		 FROM posts
		 WHERE similarity(title, $1) >= $2
		 ORDER BY score DESC
		 LIMIT $3`,
		title, threshold, maxTitleMatches)
	if err != nil {
		return nil, fmt.Errorf("querying similar titles: %w", err)
	}
	defer rows.Close()

	matches := []models.TitleMatch{}
	for rows.Next() {
		var m models.TitleMatch
		if err := rows.Scan(&m.Title, &m.Score); err != nil {
			return nil, fmt.Errorf("scanning title match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating title matches: %w", err)
	}
	return matches, nil
}

// SimilarContent returns the existing post whose body fingerprint is closest
// to fp, or nil when none is close enough.
func (s *Store) SimilarContent(ctx context.Context, fp similarity.Fingerprint) (*models.ContentMatch, error) {
	var match models.ContentMatch
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title FROM posts WHERE content_hash = $1 LIMIT 1`, fp.Digest,
	).Scan(&match.PostID, &match.Title)
	switch {
	case err == nil:
		match.Score = 1
		return &match, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("querying content hash: %w", err)
	}

	var distance int
	err = s.db.QueryRowContext(ctx,
		`SELECT id, title, bit_count((content_simhash # $1::bigint)::bit(64)) AS distance
		 FROM posts
		 WHERE content_simhash IS NOT NULL
		   AND bit_count((content_simhash # $1::bigint)::bit(64)) <= $2
		 ORDER BY distance
		 LIMIT 1`,
		fp.SimHash, similarity.MaxSimHashDistance,
	).Scan(&match.PostID, &match.Title, &distance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying content simhash: %w", err)
	}

	match.Score = 1 - float64(distance)/64
	return &match, nil
}

func scanPost(row scanner) (*models.Post, error) {
	var (
		post            models.Post
		contentHTML     sql.NullString
		excerpt         sql.NullString
		metaTitle       sql.NullString
		metaDescription sql.NullString
		status          string
		publishedAt     sql.NullTime
		aiPrompt        sql.NullString
		contentHash     sql.NullString
		simHash         sql.NullInt64
	)

	if err := row.Scan(
		&post.ID, &post.Title, &post.Slug, &post.Content, &contentHTML, &excerpt,
		&metaTitle, &metaDescription, pq.Array(&post.Keywords), &status, &publishedAt,
		&post.AIGenerated, &aiPrompt, &post.ReadingTimeMinutes, &contentHash,
		&simHash, &post.CreatedAt,
	); err != nil {
		return nil, err
	}

	post.ContentHTML = contentHTML.String
	post.Excerpt = excerpt.String
	post.MetaTitle = metaTitle.String
	post.MetaDescription = metaDescription.String
	post.Status = models.PostStatus(status)
	post.PublishedAt = timePtr(publishedAt)
	post.AIPrompt = aiPrompt.String
	post.ContentHash = contentHash.String
	post.ContentSimHash = simHash.Int64
	if post.Keywords == nil {
		post.Keywords = []string{}
	}

	return &post, nil
}
