package content

import (
	"math"
	"strings"
	"unicode"
)

// wordsPerMinute is the average adult reading speed for general prose.
const wordsPerMinute = 200

// ReadingTime estimates reading time in minutes for the given text.
// Returns a minimum of 1 minute, or 0 for empty text.
func ReadingTime(text string) int {
	words := CountWords(text)
	if words == 0 {
		return 0
	}

	minutes := math.Ceil(float64(words) / wordsPerMinute)
	if minutes < 1 {
		minutes = 1
	}
	return int(minutes)
}

// CountWords counts words in text, treating whitespace, punctuation and
// Markdown markers as separators.
func CountWords(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) || strings.ContainsRune(".,;:!?\"'()[]{}#*_>`-", r) {
			if inWord {
				count++
				inWord = false
			}
		} else {
			inWord = true
		}
	}
	if inWord {
		count++
	}
	return count
}
