// Package format renders response text for every response kind DeskPipe can
// produce. Formatters return markdown-flavored text and never touch session
// state; the orchestrator records the resulting turn.
package format

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/BTreeMap/DeskPipe/internal/models"
)

// variations holds rotating phrasings per message role so repeated responses
// do not read identically. Entries with a %s placeholder take one argument.
var variations = map[string][]string{
	"greeting": {
		"Hello %s! How can I help you today?",
		"Hi %s! What can I assist you with?",
		"Welcome %s! I'm here to help with your technical issues.",
		"Good to see you %s! What seems to be the problem?",
	},
	"acknowledgment": {
		"I understand you're having trouble with %s.",
		"I see you're experiencing issues with %s.",
		"Thank you for explaining the problem with %s.",
		"I've noted that you're facing %s.",
	},
	"solution_intro": {
		"I found a solution that should help:",
		"Here's what you can try to resolve this:",
		"Let me guide you through the solution:",
		"I have a solution that has worked for similar issues:",
	},
	"step_completion": {
		"Great! Let's move to the next step.",
		"Excellent! Here's what to do next.",
		"Perfect! Now for the next part.",
		"Well done! Let's continue.",
	},
	"clarification": {
		"Could you provide more details about %s?",
		"I need a bit more information about %s.",
		"Can you elaborate on %s?",
		"Please tell me more about %s.",
	},
	"farewell": {
		"Glad I could help! Come back any time.",
		"Happy to help! Reach out again if anything else comes up.",
		"Take care! I'm here whenever you need technical help.",
	},
}

// variation picks a random phrasing for the given role.
func variation(role string, args ...any) string {
	opts := variations[role]
	if len(opts) == 0 {
		return ""
	}
	return fmt.Sprintf(opts[rand.IntN(len(opts))], args...)
}

// beginnerSimplifications rewrite technical verbs for beginner users.
var beginnerSimplifications = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\b(configure|configuration)\b`), "set up"},
	{regexp.MustCompile(`(?i)\b(execute|execution)\b`), "run"},
	{regexp.MustCompile(`(?i)\b(terminate|termination)\b`), "stop"},
	{regexp.MustCompile(`(?i)\b(initialize|initialization)\b`), "start"},
}

// AdjustTechnicalLevel rewrites content for the user's inferred level:
// simplified verbs for beginners, concrete command hints for experts.
func AdjustTechnicalLevel(content string, level models.TechnicalLevel) string {
	switch level {
	case models.LevelBeginner:
		for _, s := range beginnerSimplifications {
			content = s.pattern.ReplaceAllString(content, s.replacement)
		}
	case models.LevelExpert:
		content = strings.ReplaceAll(content, "restart", "restart (systemctl restart or service restart)")
		content = strings.ReplaceAll(content, "check the logs", "check the logs (/var/log/ or Event Viewer)")
	}
	return content
}

// displayName returns the user's name or a neutral fallback.
func displayName(ctx models.Context) string {
	if ctx.UserName != "" {
		return ctx.UserName
	}
	return "there"
}
