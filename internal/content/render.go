// Package content turns a generated article into the stored post body.
package content

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hoanghai1803/sprout/internal/ai"
)

// excerptLength is the rune budget of an excerpt derived from the body.
const excerptLength = 160

var (
	md = goldmark.New(goldmark.WithExtensions(extension.GFM))

	markdownSyntax = regexp.MustCompile("[#*_`>\\[\\]]|\\(https?://[^)]*\\)")
)

// Markdown appends the FAQ to body as a "Frequently Asked Questions"
// section. Items without a question are skipped.
func Markdown(body string, faq []ai.FAQItem) string {
	body = strings.TrimSpace(body)

	var sb strings.Builder
	sb.WriteString(body)

	wroteHeading := false
	for _, item := range faq {
		q := strings.TrimSpace(item.Question)
		if q == "" {
			continue
		}
		if !wroteHeading {
			sb.WriteString("\n\n## Frequently Asked Questions\n")
			wroteHeading = true
		}
		fmt.Fprintf(&sb, "\n### %s\n\n%s\n", q, strings.TrimSpace(item.Answer))
	}
	return sb.String()
}

// RenderHTML converts Markdown to HTML.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// Excerpt returns a plain-text teaser cut from the first paragraph of body
// that is not a heading.
func Excerpt(body string) string {
	var para string
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" || strings.HasPrefix(block, "#") {
			continue
		}
		para = block
		break
	}

	para = markdownSyntax.ReplaceAllString(para, "")
	para = strings.Join(strings.Fields(para), " ")

	if utf8.RuneCountInString(para) <= excerptLength {
		return para
	}
	runes := []rune(para)[:excerptLength]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, ",;:.") + "..."
}
