// Package quality provides scoring and single-pass optimization of generated
// response text.
package quality

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/DeskPipe/internal/models"
)

// Scoring constants.
const (
	// OptimalMinWords and OptimalMaxWords bound the word-count window that
	// scores 100 on length fit.
	OptimalMinWords = 50
	OptimalMaxWords = 300
	// TargetReadabilityLow and TargetReadabilityHigh bound the readability
	// range considered acceptable by the suggestion rules.
	TargetReadabilityLow  = 30
	TargetReadabilityHigh = 80
	// structurePoints is awarded per structural feature present.
	structurePoints = 25
)

// Tone bucket names.
const (
	ToneProfessional = "professional"
	ToneFriendly     = "friendly"
	ToneEmpathetic   = "empathetic"
	ToneTechnical    = "technical"
	ToneCasual       = "casual"
)

// Metrics holds the quality measurements for a piece of response text.
type Metrics struct {
	Readability    float64               `json:"readability_score"`
	WordCount      int                   `json:"length_words"`
	Tone           map[string]float64    `json:"tone"`
	TechnicalLevel models.TechnicalLevel `json:"technical_level"`
	QualityScore   float64               `json:"quality_score"`
	Suggestions    []string              `json:"suggestions,omitempty"`
}

// Analyzer scores response text and produces improvement suggestions. The
// zero value is not usable; construct with NewAnalyzer.
type Analyzer struct {
	toneKeywords   map[string][]string
	technicalTerms []string
	simpleTerms    []string
}

// NewAnalyzer creates an Analyzer with the default keyword tables.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		toneKeywords: map[string][]string{
			ToneProfessional: {"please", "thank you", "kindly", "appreciate", "assist"},
			ToneFriendly:     {"happy", "glad", "help", "sure", "great"},
			ToneEmpathetic:   {"understand", "frustrating", "sorry", "appreciate", "concern"},
			ToneTechnical:    {"configure", "system", "process", "execute", "parameter"},
			ToneCasual:       {"hey", "gonna", "stuff", "thing", "yeah"},
		},
		technicalTerms: []string{"configuration", "parameter", "protocol", "interface", "registry", "terminal", "command", "syntax"},
		simpleTerms:    []string{"click", "button", "screen", "icon", "menu", "window"},
	}
}

// Analyze computes all quality metrics for the given text.
func (a *Analyzer) Analyze(text string) Metrics {
	m := Metrics{
		Readability:    FleschReadingEase(text),
		WordCount:      CountWords(text),
		Tone:           a.AnalyzeTone(text),
		TechnicalLevel: a.AssessTechnicalLevel(text),
	}
	m.QualityScore = a.qualityScore(text, m)
	m.Suggestions = a.Suggestions(text)
	slog.Debug("Analyzer.Analyze computed metrics", "words", m.WordCount, "readability", m.Readability, "quality", m.QualityScore)
	return m
}

// AnalyzeTone returns the normalized tone distribution of the text across
// the five tone buckets. Each bucket's raw hit count is divided by the size
// of its keyword list, then all buckets are divided by their sum. When no
// keyword matches at all, the distribution is empty.
func (a *Analyzer) AnalyzeTone(text string) map[string]float64 {
	lower := strings.ToLower(text)
	scores := make(map[string]float64, len(a.toneKeywords))
	total := 0.0
	for tone, keywords := range a.toneKeywords {
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		score := float64(hits) / float64(len(keywords))
		scores[tone] = score
		total += score
	}
	if total == 0 {
		return map[string]float64{}
	}
	for tone := range scores {
		scores[tone] /= total
	}
	return scores
}

// AssessTechnicalLevel classifies the text by the ratio of technical to
// simple keyword hits: at least 2:1 reads as expert, at most 1:2 as
// beginner, anything else as intermediate.
func (a *Analyzer) AssessTechnicalLevel(text string) models.TechnicalLevel {
	lower := strings.ToLower(text)
	technical := 0
	for _, term := range a.technicalTerms {
		if strings.Contains(lower, term) {
			technical++
		}
	}
	simple := 0
	for _, term := range a.simpleTerms {
		if strings.Contains(lower, term) {
			simple++
		}
	}
	switch {
	case technical > simple*2:
		return models.LevelExpert
	case simple > technical*2:
		return models.LevelBeginner
	default:
		return models.LevelIntermediate
	}
}

// qualityScore combines readability, length fit, tone consistency, and
// structure into a 0-100 composite.
func (a *Analyzer) qualityScore(text string, m Metrics) float64 {
	readability := clampScore(m.Readability)
	length := lengthScore(m.WordCount)

	toneConsistency := 0.0
	for _, v := range m.Tone {
		if v > toneConsistency {
			toneConsistency = v
		}
	}
	toneConsistency *= 100

	return (readability + length + toneConsistency + structureScore(text)) / 4
}

// lengthScore is 100 inside the optimal word window and decays linearly
// outside it.
func lengthScore(words int) float64 {
	switch {
	case words >= OptimalMinWords && words <= OptimalMaxWords:
		return 100
	case words < OptimalMinWords:
		return float64(words) / OptimalMinWords * 100
	default:
		score := 100 - float64(words-OptimalMaxWords)/10
		if score < 0 {
			score = 0
		}
		return score
	}
}

// structureScore awards 25 points each for emphasis markup, list markers,
// paragraph breaks, and code-style markup.
func structureScore(text string) float64 {
	score := 0.0
	if strings.Contains(text, "**") || strings.Contains(text, "##") {
		score += structurePoints
	}
	if strings.Contains(text, "\n•") || strings.Contains(text, "\n-") || strings.Contains(text, "\n1.") {
		score += structurePoints
	}
	if strings.Contains(text, "\n\n") {
		score += structurePoints
	}
	if strings.Contains(text, "`") {
		score += structurePoints
	}
	return score
}

// Suggestions produces rule-based improvement suggestions for the text.
func (a *Analyzer) Suggestions(text string) []string {
	var suggestions []string

	readability := FleschReadingEase(text)
	if readability < TargetReadabilityLow {
		suggestions = append(suggestions, "Simplify language - the text is too complex")
	} else if readability > TargetReadabilityHigh {
		suggestions = append(suggestions, "Consider adding more detail - the text might be too simple")
	}

	words := CountWords(text)
	if words < OptimalMinWords {
		suggestions = append(suggestions, fmt.Sprintf("Response is too short (%d words). Add more detail.", words))
	} else if words > OptimalMaxWords {
		suggestions = append(suggestions, fmt.Sprintf("Response is too long (%d words). Consider breaking it up.", words))
	}

	if !strings.Contains(text, "\n") && words > 50 {
		suggestions = append(suggestions, "Add paragraph breaks for better readability")
	}
	if !containsAny(text, "**", "##", "•", "-", "1.") {
		suggestions = append(suggestions, "Consider using formatting (headers, lists) for better structure")
	}

	muddled := true
	for _, score := range a.AnalyzeTone(text) {
		if score > 0.3 {
			muddled = false
			break
		}
	}
	if muddled {
		suggestions = append(suggestions, "Establish a clearer tone (professional, friendly, or empathetic)")
	}

	return suggestions
}

func containsAny(text string, markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
