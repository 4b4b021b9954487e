package pipeline

import "github.com/hoanghai1803/sprout/internal/ai"

// Config holds the tunable numbers of the pipeline.
type Config struct {
	// TitleSimilarityThreshold is the lowest score reported by title
	// lookups; TitleHardStop is the score above which generation stops.
	TitleSimilarityThreshold float64
	TitleHardStop            float64

	HistoryWindow  int
	BankSampleSize int
	TitleMaxTokens int

	MinWords int
	MaxWords int

	// Retry scope after a malformed first response.
	RetryLengthFactor         float64
	RetryMessageMaxTokensCap  int
	RetryMessageDefaultTokens int
	RetryChatDefaultTokens    int

	// PostActionLimit bounds how many post-actions run at once.
	PostActionLimit int

	// SiteURL is the public origin posts are served from.
	SiteURL string

	// DefaultProvider is used when no model configuration is active.
	DefaultProvider ai.ProviderConfig
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TitleSimilarityThreshold:  0.85,
		TitleHardStop:             0.95,
		HistoryWindow:             10,
		BankSampleSize:            20,
		TitleMaxTokens:            100,
		MinWords:                  1200,
		MaxWords:                  1800,
		RetryLengthFactor:         0.6,
		RetryMessageMaxTokensCap:  12000,
		RetryMessageDefaultTokens: 8000,
		RetryChatDefaultTokens:    4000,
		PostActionLimit:           3,
		SiteURL:                   "http://localhost:8080",
		DefaultProvider:           ai.DefaultProviderConfig(),
	}
}

// retryMaxTokens returns the reduced output budget for the retry attempt.
func (c Config) retryMaxTokens(p ai.ProviderConfig) int {
	if p.Protocol() == ai.MessageStyle {
		if p.MaxTokens != nil && *p.MaxTokens > 0 {
			return min(*p.MaxTokens, c.RetryMessageMaxTokensCap)
		}
		return c.RetryMessageDefaultTokens
	}

	if p.MaxTokens != nil && *p.MaxTokens > 0 {
		return *p.MaxTokens
	}
	return c.RetryChatDefaultTokens
}
