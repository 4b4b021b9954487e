package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// defaultSlug is used when a title has no URL-safe characters.
const defaultSlug = "post"

var (
	slugInvalid    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugWhitespace = regexp.MustCompile(`\s+`)
	slugHyphens    = regexp.MustCompile(`-+`)
)

// Slugify derives the base slug of a title.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugWhitespace.ReplaceAllString(strings.TrimSpace(s), "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SlugAllocator picks a slug no existing post uses.
type SlugAllocator struct {
	store SlugStore
}

// NewSlugAllocator creates a SlugAllocator backed by store.
func NewSlugAllocator(store SlugStore) *SlugAllocator {
	return &SlugAllocator{store: store}
}

// Allocate returns the base slug of title if free, otherwise the first free
// of base-2, base-3 and so on. If existing slugs cannot be read, the base
// slug is returned as is.
func (a *SlugAllocator) Allocate(ctx context.Context, title string) string {
	return a.Reallocate(ctx, title, nil)
}

// Reallocate is Allocate with rejected counted as taken. It is used after
// an insert lost a race for a slug the lookup reported as free.
func (a *SlugAllocator) Reallocate(ctx context.Context, title string, rejected []string) string {
	base := Slugify(title)
	if base == "" {
		base = defaultSlug
	}

	existing, err := a.store.SlugsWithPrefix(ctx, base)
	if err != nil {
		slog.Warn("slug lookup failed", "slug", base, "error", err)
		existing = nil
	}

	taken := make(map[string]bool, len(existing)+len(rejected))
	for _, s := range existing {
		taken[s] = true
	}
	for _, s := range rejected {
		taken[s] = true
	}

	if !taken[base] {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !taken[candidate] {
			return candidate
		}
	}
}
