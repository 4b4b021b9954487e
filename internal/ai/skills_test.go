package ai

import (
	"strings"
	"testing"
)

func TestBlogPrompt(t *testing.T) {
	brief := BlogBrief{
		Title:          "Getting Toddlers to Try Broccoli",
		Keywords:       "toddler vegetables, picky eaters",
		TargetAudience: "parents of toddlers",
		Tone:           "playful",
		Perspective:    "a registered dietitian",
		AvoidTitles:    []string{"Five Fast Breakfasts", "Lunchbox Ideas for Fussy Kids"},
		MinWords:       1200,
		MaxWords:       1800,
	}

	systemPrompt, userPrompt := BlogPrompt(brief)

	t.Run("system prompt asks for JSON keys", func(t *testing.T) {
		for _, key := range []string{"title", "seoTitle", "seoDescription", "excerpt", "body", "faq"} {
			if !strings.Contains(systemPrompt, `"`+key+`"`) {
				t.Errorf("system prompt should mention key %q", key)
			}
		}
	})

	t.Run("user prompt carries the brief", func(t *testing.T) {
		for _, want := range []string{
			brief.Title,
			brief.Keywords,
			brief.TargetAudience,
			"Tone: playful",
			"Perspective: a registered dietitian",
			"Target length: 1200-1800 words",
		} {
			if !strings.Contains(userPrompt, want) {
				t.Errorf("user prompt should contain %q", want)
			}
		}
	})

	t.Run("user prompt lists titles to avoid", func(t *testing.T) {
		for _, title := range brief.AvoidTitles {
			if !strings.Contains(userPrompt, "- "+title) {
				t.Errorf("user prompt should list %q", title)
			}
		}
	})

	t.Run("no avoid section without history", func(t *testing.T) {
		b := brief
		b.AvoidTitles = nil
		_, up := BlogPrompt(b)
		if strings.Contains(up, "covered recently") {
			t.Error("user prompt should not include an avoid section")
		}
	})
}

func TestCondenseTargetLength(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		factor float64
		want   string
	}{
		{
			name:   "scales range",
			prompt: "Tone: warm\nTarget length: 800-1500 words.\n",
			factor: 0.6,
			want:   "Tone: warm\nTarget length: 500-900 words.\n",
		},
		{
			name:   "rounds to nearest fifty",
			prompt: "Target length: 1200-1800 words.",
			factor: 0.6,
			want:   "Target length: 700-1100 words.",
		},
		{
			name:   "never below fifty",
			prompt: "Target length: 20-40 words.",
			factor: 0.6,
			want:   "Target length: 50-50 words.",
		},
		{
			name:   "appends note when instruction missing",
			prompt: "Write about snacks.\n",
			factor: 0.6,
			want:   "Write about snacks.\nKeep the article concise.\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CondenseTargetLength(tt.prompt, tt.factor); got != tt.want {
				t.Errorf("CondenseTargetLength() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTitlePrompt(t *testing.T) {
	t.Run("with examples", func(t *testing.T) {
		sp, up := TitlePrompt([]string{"Snack Swaps Kids Love", "Dinner in 20 Minutes"}, "iron-rich foods")
		if sp == "" {
			t.Error("expected non-empty system prompt")
		}
		for _, want := range []string{"Snack Swaps Kids Love", "Dinner in 20 Minutes", "iron-rich foods"} {
			if !strings.Contains(up, want) {
				t.Errorf("user prompt should contain %q", want)
			}
		}
	})

	t.Run("without examples", func(t *testing.T) {
		_, up := TitlePrompt(nil, "")
		if strings.Contains(up, "content plan") {
			t.Error("user prompt should not reference examples")
		}
		if up == "" {
			t.Error("expected non-empty user prompt")
		}
	})
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"plain", "Sneaky Veggie Muffins", "Sneaky Veggie Muffins", true},
		{"quoted", `"Sneaky Veggie Muffins"`, "Sneaky Veggie Muffins", true},
		{"prefixed", "Title: Sneaky Veggie Muffins", "Sneaky Veggie Muffins", true},
		{"first line only", "\n\nSneaky Veggie Muffins\nHere is why it works.", "Sneaky Veggie Muffins", true},
		{"smart quotes", "“Sneaky Veggie Muffins”", "Sneaky Veggie Muffins", true},
		{"empty", "   \n  ", "", false},
		{"only quotes", `""`, "", false},
		{"too long", strings.Repeat("a", MaxTitleLength+1), "", false},
		{"at limit", strings.Repeat("a", MaxTitleLength), strings.Repeat("a", MaxTitleLength), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CleanTitle(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("CleanTitle() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("CleanTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}
