// Package respond composes the session registry, the solution and diagnostic
// engines, and the quality analyzer into the single entry point callers use
// to produce bot responses.
package respond

import (
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/DeskPipe/internal/diagnostic"
	"github.com/BTreeMap/DeskPipe/internal/format"
	"github.com/BTreeMap/DeskPipe/internal/intent"
	"github.com/BTreeMap/DeskPipe/internal/models"
	"github.com/BTreeMap/DeskPipe/internal/quality"
	"github.com/BTreeMap/DeskPipe/internal/session"
	"github.com/BTreeMap/DeskPipe/internal/solution"
	"github.com/BTreeMap/DeskPipe/internal/store"
)

// OptimizeThreshold is the quality score below which a response gets one
// optimization pass before delivery.
const OptimizeThreshold = 70

const fallbackText = "I'm not sure how to respond to that."

// Words a user sends to confirm a solution step worked, and words that say
// it did not.
var (
	stepDoneWords    = []string{"done", "completed", "finished", "yes", "worked"}
	stepFailureWords = []string{"didn't work", "didnt work", "not working", "failed", "no luck", "still broken"}
)

// Payload carries the kind-specific inputs to Generate. Only the fields the
// requested kind reads need to be set.
type Payload struct {
	Article     *models.Article
	Query       string
	Suggestions []string
	Reason      string
	Ticket      string
	WaitMinutes int
	Topic       string
	Intent      string
}

// ContextSummary is the caller-facing slice of the session context.
type ContextSummary struct {
	TechnicalLevel models.TechnicalLevel `json:"technical_level"`
	Emotion        models.Emotion        `json:"emotion,omitempty"`
	BotTurns       int                   `json:"bot_turns"`
}

// Result is the structured outcome of one response generation.
type Result struct {
	Text             string              `json:"response"`
	Kind             models.ResponseKind `json:"type"`
	Metrics          quality.Metrics     `json:"quality_metrics"`
	ShouldEscalate   bool                `json:"should_escalate"`
	EscalationReason string              `json:"escalation_reason,omitempty"`
	SessionID        string              `json:"session_id"`
	ArticleKey       string              `json:"article_id,omitempty"`
	Context          ContextSummary      `json:"context"`
}

// Orchestrator wires the registry, engines, and analyzer together. It is the
// only component that records bot turns; the engines render text and track
// their own per-session state.
type Orchestrator struct {
	registry    *session.Registry
	solutions   *solution.Engine
	diagnostics *diagnostic.Engine
	analyzer    *quality.Analyzer
}

// NewOrchestrator builds an Orchestrator whose session registry persists
// user profiles in the given store. A nil store keeps profiles in memory.
func NewOrchestrator(profiles store.ProfileStore) *Orchestrator {
	return &Orchestrator{
		registry:    session.NewRegistry(profiles),
		solutions:   solution.NewEngine(),
		diagnostics: diagnostic.NewEngine(),
		analyzer:    quality.NewAnalyzer(),
	}
}

// Registry exposes the session registry for history and summary reads.
func (o *Orchestrator) Registry() *session.Registry {
	return o.registry
}

// StartSession creates a session, returning ErrDuplicateSession from the
// registry when the id is already live.
func (o *Orchestrator) StartSession(sessionID, userID string) error {
	_, err := o.registry.StartSession(sessionID, userID)
	return err
}

// Generate renders a response of the given kind, runs it through the quality
// pipeline, records the bot turn, and evaluates escalation. Unknown sessions
// are started on the fly with the given user id.
func (o *Orchestrator) Generate(sessionID, userID string, kind models.ResponseKind, payload Payload) Result {
	ctx := o.ensureSession(sessionID, userID)

	var text string
	meta := models.TurnMetadata{Kind: kind, Intent: payload.Intent}

	switch kind {
	case models.KindArticle:
		if payload.Article == nil {
			text = fallbackText
		} else {
			text = format.Article(*payload.Article, ctx)
			meta.ArticleID = payload.Article.ID
		}
	case models.KindNoResults:
		text = format.NoResults(payload.Query, payload.Suggestions, ctx)
	case models.KindEscalation:
		text = format.Escalation(payload.Reason, ctx, payload.Ticket, payload.WaitMinutes)
	case models.KindGreeting:
		text = format.Greeting(ctx)
	case models.KindClarification:
		text = format.Clarification(payload.Topic, ctx)
	case models.KindConfirmation:
		text = format.Confirmation(ctx)
	case models.KindFarewell:
		text = format.Farewell(ctx)
	case models.KindStep, models.KindQuestion:
		// These kinds are produced by StartSolution/StartDiagnostic and
		// HandleUserInput, never requested directly.
		text = fallbackText
	default:
		slog.Warn("Orchestrator.Generate unknown kind", "session_id", sessionID, "kind", kind)
		text = fallbackText
	}

	return o.finish(sessionID, kind, text, &meta, ctx, "")
}

// StartSolution begins a solution walkthrough and delivers its first
// response.
func (o *Orchestrator) StartSolution(sessionID, userID string, article models.Article, mode string) Result {
	ctx := o.ensureSession(sessionID, userID)
	text := o.solutions.StartSolution(sessionID, article, mode, ctx)
	meta := models.TurnMetadata{Kind: models.KindStep, ArticleID: article.ID}
	return o.finish(sessionID, models.KindStep, text, &meta, ctx, "")
}

// StartDiagnostic begins a diagnostic run and delivers its first question.
func (o *Orchestrator) StartDiagnostic(sessionID, userID string, questions []models.DiagnosticQuestion, category string) Result {
	ctx := o.ensureSession(sessionID, userID)
	text := o.diagnostics.StartDiagnostic(sessionID, questions, category, ctx)
	meta := models.TurnMetadata{Kind: models.KindQuestion}
	if len(questions) > 0 {
		meta.QuestionKey = questions[0].Key()
	}
	return o.finish(sessionID, models.KindQuestion, text, &meta, ctx, "")
}

// HandleUserInput records the user turn and dispatches on conversation
// state: mid-diagnostic input is treated as an answer, mid-solution input as
// a step outcome, anything else earns a clarification request. A missing
// session is started fresh with a greeting.
func (o *Orchestrator) HandleUserInput(sessionID, userID, input string) Result {
	detected, confidence := intent.Extract(input)
	slog.Debug("Orchestrator extracted intent", "session_id", sessionID, "intent", detected, "confidence", confidence)
	userMeta := models.TurnMetadata{Intent: detected}

	if _, ok := o.registry.State(sessionID); !ok {
		o.ensureSession(sessionID, userID)
		o.registry.AddTurn(sessionID, models.SpeakerUser, input, &userMeta)
		return o.Generate(sessionID, userID, models.KindGreeting, Payload{Intent: detected})
	}

	o.registry.AddTurn(sessionID, models.SpeakerUser, input, &userMeta)
	state, _ := o.registry.State(sessionID)
	ctx, _ := o.registry.Context(sessionID)

	switch state {
	case models.StateGatheringInfo:
		text, articleKey := o.diagnostics.ProcessAnswer(sessionID, input, ctx)
		meta := models.TurnMetadata{Kind: models.KindQuestion}
		return o.finish(sessionID, models.KindQuestion, text, &meta, ctx, articleKey)

	case models.StatePresentingSolution:
		lower := strings.ToLower(input)
		if containsAny(lower, stepFailureWords) {
			text := o.solutions.ConfirmStepCompletion(sessionID, false, input, ctx)
			failures := o.registry.RecordSolutionFailure(sessionID)
			slog.Debug("Orchestrator step failure recorded", "session_id", sessionID, "failed_attempts", failures)
			meta := models.TurnMetadata{Kind: models.KindStep}
			return o.finish(sessionID, models.KindStep, text, &meta, ctx, "")
		}
		if containsAny(lower, stepDoneWords) {
			text := o.solutions.ConfirmStepCompletion(sessionID, true, input, ctx)
			meta := models.TurnMetadata{Kind: models.KindStep}
			return o.finish(sessionID, models.KindStep, text, &meta, ctx, "")
		}
	}

	return o.Generate(sessionID, userID, models.KindClarification, Payload{Topic: payloadTopic(input), Intent: detected})
}

// Complete marks the session resolved and delivers the farewell.
func (o *Orchestrator) Complete(sessionID, userID string) Result {
	o.registry.Complete(sessionID)
	o.solutions.Abandon(sessionID)
	o.diagnostics.Abandon(sessionID)
	return o.Generate(sessionID, userID, models.KindFarewell, Payload{})
}

// Sweep evicts sessions idle past the timeout and drops the matching engine
// records. It returns the evicted session ids.
func (o *Orchestrator) Sweep(timeout time.Duration) []string {
	removed := o.registry.CleanupExpiredSessions(timeout)
	for _, id := range removed {
		o.solutions.Abandon(id)
		o.diagnostics.Abandon(id)
	}
	return removed
}

// ensureSession returns the session context, starting the session first when
// it does not exist yet.
func (o *Orchestrator) ensureSession(sessionID, userID string) models.Context {
	if ctx, ok := o.registry.Context(sessionID); ok {
		return ctx
	}
	sess, err := o.registry.StartSession(sessionID, userID)
	if err != nil {
		// Lost a race with another starter; read the winner's context.
		if ctx, ok := o.registry.Context(sessionID); ok {
			return ctx
		}
		slog.Error("Orchestrator.ensureSession failed", "error", err, "session_id", sessionID)
		return models.NewContext()
	}
	return sess.Context
}

// finish runs the shared delivery pipeline: analyze, optimize once if the
// score is low, record the bot turn, evaluate escalation, assemble a Result.
func (o *Orchestrator) finish(sessionID string, kind models.ResponseKind, text string, meta *models.TurnMetadata, ctx models.Context, articleKey string) Result {
	metrics := o.analyzer.Analyze(text)
	if metrics.QualityScore < OptimizeThreshold {
		text = o.analyzer.Optimize(text, ctx.TechnicalLevel, quality.ToneProfessional)
		metrics = o.analyzer.Analyze(text)
	}

	o.registry.AddTurn(sessionID, models.SpeakerBot, text, meta)
	shouldEscalate, reason := o.registry.ShouldEscalate(sessionID)

	// Context after the bot turn, so BotTurns reflects this response.
	after, _ := o.registry.Context(sessionID)

	slog.Debug("Orchestrator delivered response",
		"session_id", sessionID, "kind", kind,
		"quality_score", metrics.QualityScore,
		"should_escalate", shouldEscalate)

	return Result{
		Text:             text,
		Kind:             kind,
		Metrics:          metrics,
		ShouldEscalate:   shouldEscalate,
		EscalationReason: reason,
		SessionID:        sessionID,
		ArticleKey:       articleKey,
		Context: ContextSummary{
			TechnicalLevel: after.TechnicalLevel,
			Emotion:        after.Emotion,
			BotTurns:       after.BotTurns,
		},
	}
}

// payloadTopic trims user input into a short clarification topic.
func payloadTopic(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	words := strings.Fields(input)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}

// containsAny reports whether text contains any of the markers.
func containsAny(text string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
