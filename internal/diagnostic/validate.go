package diagnostic

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BTreeMap/DeskPipe/internal/models"
)

// Accepted yes/no spellings, compared after lowercasing and trimming.
var (
	yesAnswers = map[string]bool{"yes": true, "y": true, "true": true, "1": true, "ok": true, "sure": true}
	noAnswers  = map[string]bool{"no": true, "n": true, "false": true, "0": true}
)

// validateAnswer checks a raw answer against the question type and returns
// the normalized value. The reason string is user-facing guidance; it is
// empty when the answer is valid.
func validateAnswer(q models.DiagnosticQuestion, raw string) (normalized string, reason string) {
	answer := strings.TrimSpace(raw)

	switch q.Type {
	case models.QuestionYesNo:
		lower := strings.ToLower(answer)
		if yesAnswers[lower] {
			return "yes", ""
		}
		if noAnswers[lower] {
			return "no", ""
		}
		return "", "Please answer Yes or No"

	case models.QuestionMultipleChoice:
		for _, option := range q.Options {
			if strings.EqualFold(answer, option) {
				return option, ""
			}
		}
		if idx, err := strconv.Atoi(answer); err == nil {
			if idx < 1 || idx > len(q.Options) {
				return "", fmt.Sprintf("Please choose a number between 1 and %d", len(q.Options))
			}
			return q.Options[idx-1], ""
		}
		return "", "Please choose from the provided options"

	case models.QuestionNumeric:
		cleaned := stripNonNumeric(answer)
		if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
			return "", "Please provide a valid number"
		}
		return cleaned, ""

	case models.QuestionScale:
		value, err := strconv.Atoi(answer)
		if err != nil || value < models.ScaleMin || value > models.ScaleMax {
			return "", fmt.Sprintf("Please provide a number between %d and %d", models.ScaleMin, models.ScaleMax)
		}
		return strconv.Itoa(value), ""

	default:
		if answer == "" {
			return "", "Please provide an answer"
		}
		return answer, ""
	}
}

// stripNonNumeric drops everything except digits and the decimal point, so
// answers like "about 5 minutes" or "$20" still parse.
func stripNonNumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
