package storage

import (
	"errors"
	"strings"

	"github.com/hoanghai1803/sprout/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSlugTaken is returned when a post insert loses a race for its slug.
	ErrSlugTaken = models.ErrSlugTaken
)

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure on the given column.
func isUniqueViolation(err error, column string) bool {
	return err != nil &&
		strings.Contains(err.Error(), "UNIQUE constraint failed") &&
		strings.Contains(err.Error(), column)
}
