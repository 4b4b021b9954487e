package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hoanghai1803/sprout/internal/ai"
	"github.com/hoanghai1803/sprout/internal/models"
)

// TitleOrigin records where a working title came from.
type TitleOrigin string

const (
	OriginUser     TitleOrigin = "user"
	OriginBank     TitleOrigin = "bank"
	OriginAI       TitleOrigin = "ai-generated"
	OriginFallback TitleOrigin = "fallback-default"
)

// genericFallbackTitle is used when neither a topic nor keywords are given
// and no title could be generated.
const genericFallbackTitle = "Healthy Meal Ideas for Picky Eaters"

// TitleCandidate is the working title of one generation.
type TitleCandidate struct {
	Text   string      `json:"text"`
	Origin TitleOrigin `json:"origin"`
	// BankID is the title bank row for bank titles, zero otherwise.
	BankID int64 `json:"bank_id,omitempty"`
	// BankEligible is set for generated titles that go back into the bank.
	BankEligible bool `json:"bank_eligible"`
}

// TitleResolver decides what a new article is about.
type TitleResolver struct {
	bank    TitleStore
	guard   *DuplicateGuard
	invoker Invoker
	now     func() time.Time
	cfg     Config
}

// NewTitleResolver creates a TitleResolver.
func NewTitleResolver(bank TitleStore, guard *DuplicateGuard, invoker Invoker, now func() time.Time, cfg Config) *TitleResolver {
	return &TitleResolver{bank: bank, guard: guard, invoker: invoker, now: now, cfg: cfg}
}

// Resolve picks the working title: the caller's topic, the next bank title,
// an AI-suggested title or a dated fallback, in that order. It fails with
// *DuplicateTitleError when an existing post title scores above the hard
// stop.
func (r *TitleResolver) Resolve(ctx context.Context, req Request, provider ai.ProviderConfig) (TitleCandidate, error) {
	cand := r.pick(ctx, req, provider)

	matches, err := r.guard.CheckTitle(ctx, cand.Text, r.cfg.TitleSimilarityThreshold)
	if err != nil {
		slog.Warn("title similarity lookup failed", "title", cand.Text, "error", err)
	}
	if len(matches) > 0 && matches[0].Score > r.cfg.TitleHardStop {
		if cand.Origin == OriginBank {
			// Retire the row so the next request moves on to another bank title.
			if err := r.bank.MarkBankTitleUsed(ctx, cand.BankID); err != nil {
				slog.Warn("retiring duplicate bank title failed", "id", cand.BankID, "error", err)
			}
		}
		return TitleCandidate{}, &DuplicateTitleError{Title: cand.Text, Similar: matches}
	}

	if cand.BankEligible {
		if _, err := r.bank.AddBankTitle(ctx, cand.Text, models.BankSourceAI); err != nil {
			slog.Warn("saving generated title to bank failed", "title", cand.Text, "error", err)
		}
	}

	slog.Info("resolved title", "title", cand.Text, "origin", string(cand.Origin))
	return cand, nil
}

func (r *TitleResolver) pick(ctx context.Context, req Request, provider ai.ProviderConfig) TitleCandidate {
	if topic := strings.TrimSpace(req.Topic); topic != "" {
		return TitleCandidate{Text: topic, Origin: OriginUser}
	}

	if req.UseTitleBank {
		bt, err := r.bank.NextUnusedTitle(ctx)
		if err != nil {
			slog.Warn("title bank lookup failed", "error", err)
		}
		if bt != nil {
			return TitleCandidate{Text: bt.Title, Origin: OriginBank, BankID: bt.ID}
		}
	}

	if title, ok := r.generate(ctx, req.Keywords, provider); ok {
		return TitleCandidate{Text: title, Origin: OriginAI, BankEligible: true}
	}

	return TitleCandidate{Text: r.fallback(req.Keywords), Origin: OriginFallback}
}

// generate asks the provider for one title in the style of the bank. Any
// failure reports ok == false.
func (r *TitleResolver) generate(ctx context.Context, keywords string, provider ai.ProviderConfig) (string, bool) {
	examples, err := r.bank.SampleBankTitles(ctx, r.cfg.BankSampleSize)
	if err != nil {
		slog.Warn("sampling bank titles failed", "error", err)
		examples = nil
	}

	system, user := ai.TitlePrompt(examples, strings.TrimSpace(keywords))
	raw, err := r.invoker.Invoke(ctx, provider, ai.Request{
		SystemPrompt: system,
		UserPrompt:   user,
		MaxTokens:    r.cfg.TitleMaxTokens,
	})
	if err != nil {
		slog.Warn("title generation failed, using fallback", "error", err)
		return "", false
	}

	title, ok := ai.CleanTitle(raw)
	if !ok {
		slog.Warn("generated title rejected, using fallback", "chars", len(raw))
	}
	return title, ok
}

func (r *TitleResolver) fallback(keywords string) string {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return genericFallbackTitle
	}
	return fmt.Sprintf("%s: Practical Ideas for Picky Eaters (%s)", keywords, r.now().Format("January 2006"))
}
