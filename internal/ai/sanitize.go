package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// snippetLength bounds the diagnostic text kept on a MalformedContentError.
const snippetLength = 1000

var (
	openingFence  = regexp.MustCompile("^```[A-Za-z0-9_-]*[ \t]*\r?\n?")
	closingFence  = regexp.MustCompile("\\s*```\\s*$")
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// FAQItem is one question/answer pair of a generated article.
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ParsedContent is the structured article a provider returns.
type ParsedContent struct {
	Title          string    `json:"title"`
	SEOTitle       string    `json:"seoTitle"`
	SEODescription string    `json:"seoDescription"`
	Excerpt        string    `json:"excerpt"`
	Body           string    `json:"body"`
	FAQ            []FAQItem `json:"faq"`
}

// MalformedContentError means the model output could not be parsed as an
// article, typically because it was truncated.
type MalformedContentError struct {
	RawSnippet string
	Err        error
}

func (e *MalformedContentError) Error() string {
	return fmt.Sprintf("malformed model output: %v", e.Err)
}

func (e *MalformedContentError) Unwrap() error {
	return e.Err
}

// Sanitize strips conversational and markdown wrapping from raw model
// output, repairs trailing commas and decodes the article JSON.
func Sanitize(raw string) (*ParsedContent, error) {
	cleaned := ExtractJSON(raw)
	cleaned = trailingComma.ReplaceAllString(cleaned, "$1")

	var content ParsedContent
	if err := json.Unmarshal([]byte(cleaned), &content); err != nil {
		return nil, &MalformedContentError{
			RawSnippet: snippet(cleaned, snippetLength),
			Err:        err,
		}
	}
	return &content, nil
}

// ExtractJSON returns the most likely JSON object inside s. Code fences are
// removed and, when present, the span from the first '{' to the last '}'
// is preferred over the whole text.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = openingFence.ReplaceAllString(s, "")
		s = closingFence.ReplaceAllString(s, "")
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// snippet returns the first n runes of s.
func snippet(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
