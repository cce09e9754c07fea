// Package quality provides scoring and single-pass optimization of generated
// response text.
package quality

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/BTreeMap/DeskPipe/internal/models"
)

// simplification maps a technical term to its beginner-friendly replacement.
type simplification struct {
	pattern     *regexp.Regexp
	replacement string
}

var simplifications = []simplification{
	{regexp.MustCompile(`(?i)\bconfigure\b`), "set up"},
	{regexp.MustCompile(`(?i)\bexecute\b`), "run"},
	{regexp.MustCompile(`(?i)\bparameter\b`), "setting"},
	{regexp.MustCompile(`(?i)\binterface\b`), "screen"},
	{regexp.MustCompile(`(?i)\bprotocol\b`), "method"},
}

// expertAnnotations appends a parenthetical technical detail to common
// phrases when targeting expert users.
var expertAnnotations = map[string]string{
	"restart the service": "restart the service (systemctl restart <service-name>)",
	"check the logs":      "check the logs (/var/log/ or Event Viewer)",
}

// tone substitutions applied for friendly and empathetic targets.
var friendlySubstitutions = [][2]string{
	{"Please", "Feel free to"},
	{"You must", "You'll want to"},
}

const empatheticPrefix = "I understand this can be frustrating. "

// Truncation keeps this many leading and trailing sentences when the
// optimized text still exceeds the word window.
const (
	truncateKeepLead  = 3
	truncateKeepTail  = 2
	truncateThreshold = truncateKeepLead + truncateKeepTail
)

// Optimize rewrites text toward the target technical level and tone. This is
// a single deterministic pass with no convergence guarantee: the caller
// re-scores the result and must not feed it back into Optimize.
func (a *Analyzer) Optimize(text string, targetLevel models.TechnicalLevel, targetTone string) string {
	optimized := text

	if current := a.AssessTechnicalLevel(text); current != targetLevel {
		switch targetLevel {
		case models.LevelBeginner:
			for _, s := range simplifications {
				optimized = s.pattern.ReplaceAllString(optimized, s.replacement)
			}
		case models.LevelExpert:
			for phrase, annotated := range expertAnnotations {
				optimized = strings.ReplaceAll(optimized, phrase, annotated)
			}
		}
	}

	switch targetTone {
	case ToneFriendly:
		for _, sub := range friendlySubstitutions {
			optimized = strings.ReplaceAll(optimized, sub[0], sub[1])
		}
	case ToneEmpathetic:
		lower := strings.ToLower(optimized)
		if strings.Contains(lower, "error") || strings.Contains(lower, "problem") {
			optimized = empatheticPrefix + optimized
		}
	}

	if CountWords(optimized) > OptimalMaxWords {
		optimized = truncate(optimized)
	}

	slog.Debug("Analyzer.Optimize applied single pass", "target_level", targetLevel, "target_tone", targetTone, "words", CountWords(optimized))
	return optimized
}

// truncate keeps the first three and last two sentences, joined with an
// ellipsis marker.
func truncate(text string) string {
	sentences := strings.Split(text, ". ")
	if len(sentences) <= truncateThreshold {
		return text
	}
	kept := make([]string, 0, truncateThreshold+1)
	kept = append(kept, sentences[:truncateKeepLead]...)
	kept = append(kept, "...")
	kept = append(kept, sentences[len(sentences)-truncateKeepTail:]...)
	return strings.Join(kept, ". ")
}
