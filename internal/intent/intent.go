// Package intent classifies user queries into support intents using an
// ordered regex rule table. Classification is deterministic; there is no
// learned model behind it.
package intent

import (
	"log/slog"
	"regexp"
	"strings"
)

// DefaultIntent is returned when no rule matches.
const DefaultIntent = "general_help"

// matchWeight is the confidence contributed by each pattern match.
const matchWeight = 0.3

// Rule maps regex patterns to an intent label. Rules are evaluated in table
// order; the highest-scoring rule wins, earlier rules win ties.
type Rule struct {
	Intent   string
	Patterns []*regexp.Regexp
}

// Rules is the built-in intent table.
var Rules = []Rule{
	{
		Intent: "password_reset",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`password.*reset|reset.*password|forgot.*password|change.*password`),
			regexp.MustCompile(`can't.*log.*in|cannot.*log.*in|locked.*out`),
		},
	},
	{
		Intent: "printer_issue",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`printer.*not.*working|printer.*offline|can't.*print`),
			regexp.MustCompile(`print.*error|printer.*problem`),
		},
	},
	{
		Intent: "internet_slow",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`slow.*internet|internet.*slow|slow.*connection`),
			regexp.MustCompile(`web.*slow|loading.*slow`),
		},
	},
	{
		Intent: "software_update",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`software.*update|update.*software|install.*update`),
			regexp.MustCompile(`new.*version|latest.*version`),
		},
	},
	{
		Intent: "file_recovery",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`deleted.*file|lost.*file|recover.*file`),
			regexp.MustCompile(`file.*missing|restore.*file`),
		},
	},
}

// Extract classifies a query and returns the intent label with a confidence
// in [0, 1]. Unmatched queries return (DefaultIntent, 0).
func Extract(query string) (string, float64) {
	lower := strings.ToLower(query)

	best := DefaultIntent
	bestScore := 0.0

	for _, rule := range Rules {
		score := 0.0
		for _, pattern := range rule.Patterns {
			score += float64(len(pattern.FindAllString(lower, -1))) * matchWeight
		}
		if score > bestScore {
			bestScore = score
			best = rule.Intent
		}
	}

	confidence := bestScore
	if confidence > 1 {
		confidence = 1
	}
	slog.Debug("intent.Extract classified query", "intent", best, "confidence", confidence)
	return best, confidence
}
