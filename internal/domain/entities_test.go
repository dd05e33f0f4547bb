package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Delivery issue":       "delivery issue",
		"  DELIVERY ISSUE  ":   "delivery issue",
		"Delivery issue!":      "delivery issue",
		"High Charges/Fees":    "high charges fees",
		"delivery   issue":     "delivery issue",
		"App-issues":           "app issues",
		"   ":                  "",
		"!!!":                  "",
		"Bring back 10 minute": "bring back 10 minute",
	}

	for input, want := range cases {
		assert.Equal(t, want, NormalizeName(input), "input %q", input)
	}
}

func TestParseSentiment(t *testing.T) {
	assert.Equal(t, SentimentPositive, ParseSentiment("positive"))
	assert.Equal(t, SentimentPositive, ParseSentiment("  Positive "))
	assert.Equal(t, SentimentNegative, ParseSentiment("NEGATIVE"))
	assert.Equal(t, SentimentNeutral, ParseSentiment("neutral"))
	assert.Equal(t, SentimentNeutral, ParseSentiment("mixed"))
	assert.Equal(t, SentimentNeutral, ParseSentiment(""))
}
