package format

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/DeskPipe/internal/models"
)

// Article renders a full knowledge article with its steps and metadata.
func Article(article models.Article, ctx models.Context) string {
	var parts []string

	if ctx.BotTurns == 0 && ctx.UserName != "" {
		parts = append(parts, variation("greeting", ctx.UserName))
	}
	parts = append(parts, variation("acknowledgment", article.Title))
	parts = append(parts, variation("solution_intro"))

	parts = append(parts, fmt.Sprintf("\n**%s**\n", article.Title))
	parts = append(parts, AdjustTechnicalLevel(article.Content, ctx.TechnicalLevel))

	if len(article.Steps) > 0 {
		parts = append(parts, "\n**Steps to resolve:**")
		for _, step := range article.Steps {
			content := AdjustTechnicalLevel(step.Content, ctx.TechnicalLevel)
			parts = append(parts, fmt.Sprintf("\n%d. **%s**", step.Order, step.Title))
			parts = append(parts, fmt.Sprintf("   %s", content))
			if step.EstimatedMinutes > 0 {
				parts = append(parts, fmt.Sprintf("   ⏱️ Estimated time: %d minutes", step.EstimatedMinutes))
			}
		}
	}

	if article.EstimatedMinutes > 0 {
		parts = append(parts, fmt.Sprintf("\n**Total estimated time:** %d minutes", article.EstimatedMinutes))
	}
	if article.SuccessRate > 0 {
		parts = append(parts, fmt.Sprintf("\n**Success rate:** %.0f%%", article.SuccessRate*100))
	}

	parts = append(parts, "\nDoes this help resolve your issue?")
	return strings.Join(parts, "\n")
}

// Step renders a single solution step for progressive mode.
func Step(step models.SolutionStep, ctx models.Context, first, last bool, total int) string {
	var parts []string

	if first {
		parts = append(parts, variation("solution_intro"))
		parts = append(parts, fmt.Sprintf("I'll guide you through %d steps to resolve this issue.\n", total))
	}

	parts = append(parts, fmt.Sprintf("**Step %d of %d: %s**", step.Order, total, step.Title))
	parts = append(parts, AdjustTechnicalLevel(step.Content, ctx.TechnicalLevel))

	switch step.Type {
	case models.StepWarning:
		parts = append(parts, "\n⚠️ **Warning:** Please be careful with this step.")
	case models.StepNote:
		parts = append(parts, "\n📝 **Note:** This information is important for the next steps.")
	}

	if step.EstimatedMinutes > 0 {
		parts = append(parts, fmt.Sprintf("\n⏱️ This step should take about %d minute(s).", step.EstimatedMinutes))
	}

	if last {
		parts = append(parts, "\n🎉 This is the final step! Let me know if this resolves your issue.")
	} else {
		parts = append(parts, "\n✅ Let me know when you've completed this step, and I'll guide you to the next one.")
	}
	return strings.Join(parts, "\n")
}

// Question renders a diagnostic question with its answer guidance.
func Question(q models.DiagnosticQuestion, ctx models.Context, number, total int) string {
	var parts []string

	if number == 1 {
		parts = append(parts, "I need to ask you a few questions to better understand the issue.")
		parts = append(parts, "This will help me provide the most accurate solution.\n")
	}

	parts = append(parts, fmt.Sprintf("**Question %d of %d:**", number, total))
	parts = append(parts, q.Question)

	if q.HelpText != "" {
		parts = append(parts, fmt.Sprintf("\n💡 *%s*", AdjustTechnicalLevel(q.HelpText, ctx.TechnicalLevel)))
	}

	switch q.Type {
	case models.QuestionMultipleChoice:
		parts = append(parts, "\nPlease choose from:")
		for i, option := range q.Options {
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, option))
		}
	case models.QuestionYesNo:
		parts = append(parts, "\nPlease answer: Yes or No")
	case models.QuestionNumeric:
		parts = append(parts, "\nPlease provide a number.")
	case models.QuestionScale:
		parts = append(parts, "\nPlease rate on a scale of 1-10.")
	}
	return strings.Join(parts, "\n")
}

// NoResults renders the fallback when the content store finds nothing.
func NoResults(query string, suggestions []string, ctx models.Context) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("I couldn't find an exact match for '%s' in our knowledge base.", query))

	if len(suggestions) > 0 {
		parts = append(parts, "\nHowever, here are some related topics that might help:")
		for i, suggestion := range suggestions {
			if i >= 5 {
				break
			}
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, suggestion))
		}
	}

	parts = append(parts, "\nHere's what you can try:")
	parts = append(parts, "1. 🔍 **Rephrase your question** - Try using different keywords")
	parts = append(parts, "2. 📚 **Browse categories** - I can show you available categories")
	parts = append(parts, "3. 🎯 **Be more specific** - Include error messages or software names")
	parts = append(parts, "4. 💬 **Talk to a human** - I can escalate this to our support team")

	parts = append(parts, "\nWould you like to try a different search or speak with a support agent?")
	return strings.Join(parts, "\n")
}

// Escalation renders the hand-off message when the conversation moves to a
// human agent. The reason must be one of the escalation reason codes.
func Escalation(reason string, ctx models.Context, ticket string, waitMinutes int) string {
	var parts []string

	parts = append(parts, "I understand this issue requires specialized assistance.")

	switch reason {
	case models.ReasonComplexIssue:
		parts = append(parts, "This appears to be a complex technical issue that would be better handled by our expert support team.")
	case models.ReasonUserRequest:
		parts = append(parts, "As requested, I'll connect you with a human support agent.")
	case models.ReasonRepeatedFailure:
		parts = append(parts, "Since the suggested solutions haven't resolved your issue, let me get you additional help.")
	case models.ReasonEmotionalDistress:
		parts = append(parts, "I can see this is frustrating. Let me connect you with someone who can provide more personalized assistance.")
	}

	if ticket != "" {
		parts = append(parts, fmt.Sprintf("\n📋 **Support Ticket:** #%s", ticket))
		parts = append(parts, "Please reference this number when speaking with the agent.")
	}
	if waitMinutes > 0 {
		parts = append(parts, fmt.Sprintf("\n⏰ **Estimated wait time:** %d minutes", waitMinutes))
	}

	parts = append(parts, "\n**Information I'm passing to the agent:**")
	issue := "Technical support needed"
	if s, ok := ctx.Preferences["issue_summary"].(string); ok && s != "" {
		issue = s
	}
	parts = append(parts, fmt.Sprintf("• Issue summary: %s", issue))
	parts = append(parts, fmt.Sprintf("• Technical level: %s", ctx.TechnicalLevel))

	parts = append(parts, "\n**Next steps:**")
	parts = append(parts, "1. An agent will join this conversation shortly")
	parts = append(parts, "2. They have access to our conversation history")
	parts = append(parts, "3. Feel free to provide any additional details")

	parts = append(parts, "\nThank you for your patience. An agent will be with you soon!")
	return strings.Join(parts, "\n")
}

// Greeting renders the opening message of a session.
func Greeting(ctx models.Context) string {
	return variation("greeting", displayName(ctx))
}

// Clarification asks the user for more detail about a topic.
func Clarification(topic string, ctx models.Context) string {
	if topic == "" {
		topic = "your issue"
	}
	return variation("clarification", topic)
}

// Confirmation acknowledges a completed step and hands off to the next one.
func Confirmation(ctx models.Context) string {
	return variation("step_completion")
}

// Farewell closes out a resolved conversation.
func Farewell(ctx models.Context) string {
	return variation("farewell")
}
