// Package pattern implements the deterministic keyword fallback classifier.
// It is the last tier of the pipeline and guarantees a classification even
// under total external-service outage.
package pattern

import (
	"regexp"
	"strings"

	"reviewcat/internal/domain"
)

// Rule maps a set of compiled keyword patterns to a category.
type Rule struct {
	Category string
	patterns []*regexp.Regexp
}

// CompileKeywords builds a rule whose patterns match each phrase as a whole
// word sequence, case-insensitively.
func CompileKeywords(category string, phrases []string) Rule {
	patterns := make([]*regexp.Regexp, 0, len(phrases))
	for _, phrase := range phrases {
		phrase = strings.TrimSpace(strings.ToLower(phrase))
		if phrase == "" {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(phrase)+`\b`))
	}
	return Rule{Category: category, patterns: patterns}
}

// Matcher evaluates an ordered rule list, first match wins.
type Matcher struct {
	rules []Rule
}

func NewMatcher(rules []Rule) *Matcher {
	return &Matcher{rules: rules}
}

// Match returns the category of the first rule that fires, or "Other".
// It never fails.
func (m *Matcher) Match(text string) string {
	lowered := strings.ToLower(text)
	for _, rule := range m.rules {
		for _, p := range rule.patterns {
			if p.MatchString(lowered) {
				return rule.Category
			}
		}
	}
	return domain.OtherCategory
}

// RuleCount reports how many rules the matcher carries.
func (m *Matcher) RuleCount() int {
	return len(m.rules)
}
