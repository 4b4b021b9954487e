package pipeline

import (
	"errors"
	"fmt"

	"github.com/hoanghai1803/sprout/internal/models"
)

// ErrParseAfterRetry is returned when the model output could not be parsed
// on either attempt.
var ErrParseAfterRetry = errors.New("failed to parse AI response after retry")

// DuplicateTitleError stops a generation whose title nearly matches an
// existing post.
type DuplicateTitleError struct {
	Title   string
	Similar []models.TitleMatch
}

func (e *DuplicateTitleError) Error() string {
	return fmt.Sprintf("title %q is too similar to existing content", e.Title)
}

// DuplicateContentError rejects a generated body that nearly matches an
// existing post.
type DuplicateContentError struct {
	Match models.ContentMatch
}

func (e *DuplicateContentError) Error() string {
	return fmt.Sprintf("generated content is too similar to %q", e.Match.Title)
}

// PersistenceError wraps a failure to store the generated post.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("saving post: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
