package pipeline

import (
	"math/rand/v2"

	"github.com/hoanghai1803/sprout/internal/models"
)

// Tones are the writing tones rotated across generations.
var Tones = []string{
	"conversational",
	"professional",
	"empathetic",
	"direct",
	"storytelling",
}

// Perspectives are the narrative angles rotated across generations.
var Perspectives = []string{
	"evidence-based research",
	"real parent stories",
	"expert pediatric advice",
	"practical step-by-step",
	"myth-busting",
	"problem-solving",
}

// StyleChoice is the tone and perspective of one article.
type StyleChoice struct {
	Tone        string `json:"tone"`
	Perspective string `json:"perspective"`
}

// StyleSelector prefers tones and perspectives absent from recent history.
type StyleSelector struct {
	rand Random
}

type defaultRandom struct{}

func (defaultRandom) IntN(n int) int { return rand.IntN(n) }

// NewStyleSelector creates a StyleSelector. A nil r uses math/rand/v2.
func NewStyleSelector(r Random) *StyleSelector {
	if r == nil {
		r = defaultRandom{}
	}
	return &StyleSelector{rand: r}
}

// Select picks a style not used in history. When every value of an
// enumeration was used recently, it picks from the full enumeration.
func (s *StyleSelector) Select(history []models.HistoryEntry) StyleChoice {
	usedTones := make(map[string]bool)
	usedPerspectives := make(map[string]bool)
	for _, h := range history {
		usedTones[h.ToneUsed] = true
		usedPerspectives[h.PerspectiveUsed] = true
	}

	return StyleChoice{
		Tone:        s.pick(Tones, usedTones),
		Perspective: s.pick(Perspectives, usedPerspectives),
	}
}

func (s *StyleSelector) pick(values []string, used map[string]bool) string {
	var fresh []string
	for _, v := range values {
		if !used[v] {
			fresh = append(fresh, v)
		}
	}
	if len(fresh) == 0 {
		fresh = values
	}
	return fresh[s.rand.IntN(len(fresh))]
}
