package ai

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const blogSystemPrompt = `You are the senior content writer for Sprout, a meal-planning app for families with babies, toddlers and picky eaters. You write practical, warm and accurate articles that parents can act on tonight. Never give medical diagnoses; suggest talking to a pediatrician when health concerns come up.

Return ONLY valid JSON with exactly these keys:
- "title": the article title
- "seoTitle": search title, at most 60 characters
- "seoDescription": meta description, at most 155 characters
- "excerpt": a two-sentence teaser
- "body": the full article in Markdown using ## and ### headings
- "faq": an array of 3 to 5 objects with "question" and "answer"

Do not wrap the JSON in code fences and do not add commentary before or after it.`

const titleSystemPrompt = `You write blog titles for Sprout, a meal-planning app for families with picky eaters. Reply with a single title only: no quotes, no numbering, no explanations.`

// MaxTitleLength is the longest AI-generated title accepted, in runes.
const MaxTitleLength = 200

// targetLengthPattern matches the length instruction written by BlogPrompt.
var targetLengthPattern = regexp.MustCompile(`Target length: (\d+)-(\d+) words`)

// BlogBrief holds everything the article prompt is built from.
type BlogBrief struct {
	Title          string
	Keywords       string
	TargetAudience string
	Tone           string
	Perspective    string
	// AvoidTitles lists recently generated titles the article must not repeat.
	AvoidTitles []string
	MinWords    int
	MaxWords    int
}

// BlogPrompt builds the system and user prompts for a full article.
func BlogPrompt(b BlogBrief) (systemPrompt string, userPrompt string) {
	systemPrompt = blogSystemPrompt

	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a blog article titled: %q\n", b.Title)
	if b.Keywords != "" {
		fmt.Fprintf(&sb, "Primary keywords: %s\n", b.Keywords)
	}
	if b.TargetAudience != "" {
		fmt.Fprintf(&sb, "Target audience: %s\n", b.TargetAudience)
	}
	fmt.Fprintf(&sb, "Tone: %s\n", b.Tone)
	fmt.Fprintf(&sb, "Perspective: %s\n", b.Perspective)
	fmt.Fprintf(&sb, "Target length: %d-%d words.\n", b.MinWords, b.MaxWords)

	if len(b.AvoidTitles) > 0 {
		sb.WriteString("\nThese topics were covered recently. Do not repeat them or reuse their angles:\n")
		for _, t := range b.AvoidTitles {
			fmt.Fprintf(&sb, "- %s\n", t)
		}
	}

	userPrompt = sb.String()
	return systemPrompt, userPrompt
}

// CondenseTargetLength rewrites the target-length instruction in a user
// prompt to factor of its original range, rounded to the nearest 50 words.
// Prompts without the instruction get a brevity note appended instead.
func CondenseTargetLength(userPrompt string, factor float64) string {
	if !targetLengthPattern.MatchString(userPrompt) {
		return strings.TrimRight(userPrompt, "\n") + "\nKeep the article concise.\n"
	}

	return targetLengthPattern.ReplaceAllStringFunc(userPrompt, func(m string) string {
		parts := targetLengthPattern.FindStringSubmatch(m)
		lo, _ := strconv.Atoi(parts[1])
		hi, _ := strconv.Atoi(parts[2])
		return fmt.Sprintf("Target length: %d-%d words", scaleWords(lo, factor), scaleWords(hi, factor))
	})
}

// scaleWords multiplies n by factor and rounds to the nearest 50, never
// going below 50.
func scaleWords(n int, factor float64) int {
	v := int(math.Round(float64(n)*factor/50) * 50)
	if v < 50 {
		v = 50
	}
	return v
}

// TitlePrompt builds the prompts for a single AI-suggested title. examples
// are existing bank titles used as a style reference.
func TitlePrompt(examples []string, keywords string) (systemPrompt string, userPrompt string) {
	systemPrompt = titleSystemPrompt

	var sb strings.Builder
	if len(examples) > 0 {
		sb.WriteString("Here are titles from our content plan:\n")
		for _, t := range examples {
			fmt.Fprintf(&sb, "- %s\n", t)
		}
		sb.WriteString("\nWrite one new title in the same style about a different topic.")
	} else {
		sb.WriteString("Write one engaging blog title about feeding picky eaters and planning family meals.")
	}
	if keywords != "" {
		fmt.Fprintf(&sb, " Focus on: %s.", keywords)
	}

	userPrompt = sb.String()
	return systemPrompt, userPrompt
}

// CleanTitle extracts a usable title from raw model output. It keeps the
// first non-empty line and strips wrapping quotes. ok is false when nothing
// usable remains or the result exceeds MaxTitleLength.
func CleanTitle(raw string) (title string, ok bool) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			title = line
			break
		}
	}

	title = strings.TrimPrefix(title, "Title:")
	title = strings.Trim(strings.TrimSpace(title), "\"'`“”‘’")
	title = strings.TrimSpace(title)

	if title == "" || utf8.RuneCountInString(title) > MaxTitleLength {
		return "", false
	}
	return title, true
}
