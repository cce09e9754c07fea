// Package session owns conversation sessions: lifecycle, turn history,
// inferred user context, and the escalation decision.
//
// This file holds the data-driven keyword rule tables used to infer the
// user's technical level and emotional state from message text. The tables
// are ordered: the first matching rule wins, so frustration outranks
// confusion, which outranks satisfaction.
package session

import (
	"strings"

	"github.com/BTreeMap/DeskPipe/internal/models"
)

// LevelRule maps marker keywords to a technical level.
type LevelRule struct {
	Level   models.TechnicalLevel
	Markers []string
}

// LevelRules is consulted in order; expert markers are checked first.
var LevelRules = []LevelRule{
	{models.LevelExpert, []string{"configure", "registry", "terminal", "cli"}},
	{models.LevelBeginner, []string{"click", "button", "screen", "icon"}},
}

// EmotionRule maps marker keywords to an emotional state.
type EmotionRule struct {
	Emotion models.Emotion
	Markers []string
}

// EmotionRules is consulted in order; when several classes match the same
// message, the earlier rule wins.
var EmotionRules = []EmotionRule{
	{models.EmotionFrustrated, []string{"frustrated", "annoying", "angry", "upset"}},
	{models.EmotionConfused, []string{"confused", "don't understand", "lost"}},
	{models.EmotionSatisfied, []string{"thanks", "great", "perfect", "worked"}},
}

// DetectTechnicalLevel scans message text against LevelRules. The second
// return value reports whether any rule matched; callers keep the current
// level when it is false.
func DetectTechnicalLevel(message string) (models.TechnicalLevel, bool) {
	lower := strings.ToLower(message)
	for _, rule := range LevelRules {
		for _, marker := range rule.Markers {
			if strings.Contains(lower, marker) {
				return rule.Level, true
			}
		}
	}
	return "", false
}

// DetectEmotion scans message text against EmotionRules. The second return
// value reports whether any rule matched.
func DetectEmotion(message string) (models.Emotion, bool) {
	lower := strings.ToLower(message)
	for _, rule := range EmotionRules {
		for _, marker := range rule.Markers {
			if strings.Contains(lower, marker) {
				return rule.Emotion, true
			}
		}
	}
	return models.EmotionNone, false
}
