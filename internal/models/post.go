package models

import (
	"errors"
	"time"
)

// ErrSlugTaken is returned when a post insert loses a race for its slug.
var ErrSlugTaken = errors.New("slug already taken")

// PostStatus is the publishing state of a post.
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
)

// Post is a generated blog article as stored in the posts table.
type Post struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Slug               string     `json:"slug"`
	Content            string     `json:"content"`
	ContentHTML        string     `json:"content_html,omitempty"`
	Excerpt            string     `json:"excerpt"`
	MetaTitle          string     `json:"meta_title"`
	MetaDescription    string     `json:"meta_description"`
	Keywords           []string   `json:"keywords"`
	Status             PostStatus `json:"status"`
	PublishedAt        *time.Time `json:"published_at,omitempty"`
	AIGenerated        bool       `json:"ai_generated"`
	AIPrompt           string     `json:"ai_prompt,omitempty"`
	ReadingTimeMinutes int        `json:"reading_time_minutes"`
	ContentHash        string     `json:"-"`
	ContentSimHash     int64      `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
}

// IsPublished reports whether the post is live.
func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// TitleMatch is one existing post title found similar to a candidate title.
type TitleMatch struct {
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// ContentMatch is an existing post whose body is a near-duplicate of new content.
type ContentMatch struct {
	PostID string  `json:"post_id"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
}
