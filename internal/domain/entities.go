package domain

import (
	"strings"
	"time"
	"unicode"
)

// OtherCategory is the sentinel category returned when no rule or match applies.
const OtherCategory = "Other"

// Sentiment tags a category for presentation purposes.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ParseSentiment maps free-form sentiment text to a known tag, defaulting to neutral.
func ParseSentiment(s string) Sentiment {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNegative:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// Review is an immutable input record supplied by the ingestion layer.
type Review struct {
	ID         string
	Text       string
	Date       time.Time
	PriorLabel string
}

// Exemplar is a representative text snippet stored per category for
// similarity comparison.
type Exemplar struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Category groups reviews under a named theme. Name is the identity and is
// unique after normalization. Rank records creation order and breaks
// similarity ties deterministically.
type Category struct {
	Name      string     `json:"name"`
	Sentiment Sentiment  `json:"sentiment"`
	Exemplars []Exemplar `json:"exemplars"`
	Rank      int        `json:"rank"`
	Dynamic   bool       `json:"dynamic,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Tier identifies which stage of the fallback chain produced a classification.
type Tier string

const (
	TierVector  Tier = "vector"
	TierLLM     Tier = "llm"
	TierPattern Tier = "pattern"
)

// Result is the outcome of classifying a single review.
type Result struct {
	ReviewID    string  `json:"review_id,omitempty"`
	Category    string  `json:"category"`
	Tier        Tier    `json:"tier"`
	Confidence  float64 `json:"confidence,omitempty"`
	NewCategory bool    `json:"new_category,omitempty"`
}

// ProposedCategory is a discovery service answer for an unmatched review.
type ProposedCategory struct {
	Name      string
	Sentiment Sentiment
	IsNew     bool
	Rationale string
}

// NormalizeName produces the canonical form used for category identity:
// lowercased, trimmed, punctuation stripped, whitespace collapsed.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
