// Package diagnostic runs question-driven triage: it asks a category's
// questions in order, validates each answer, and either routes to a solution
// bucket or completes with an issue assessment.
package diagnostic

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/DeskPipe/internal/format"
	"github.com/BTreeMap/DeskPipe/internal/models"
)

// Confidence levels reported on completion, keyed by how many answers were
// collected.
const (
	confidenceHigh       = 0.8
	confidenceLow        = 0.6
	confidenceAnswersMin = 3
)

const msgNoQuestions = "No diagnostic questions available."
const msgNoActive = "No active diagnostic session found."

// Answer is one validated response to a diagnostic question.
type Answer struct {
	Raw        string
	Normalized string
	Type       models.QuestionType
	Timestamp  time.Time
}

// Session tracks one in-flight diagnostic run.
type Session struct {
	Category    string
	Questions   []models.DiagnosticQuestion
	Index       int
	Answers     map[string]Answer
	StartedAt   time.Time
	CompletedAt time.Time
}

// Engine tracks active diagnostic runs keyed by session id.
type Engine struct {
	mu     sync.Mutex
	active map[string]*Session
	routes RoutingTable
	now    func() time.Time
}

// NewEngine creates an Engine with the default routing table.
func NewEngine() *Engine {
	return &Engine{
		active: make(map[string]*Session),
		routes: DefaultRoutingTable(),
		now:    time.Now,
	}
}

// StartDiagnostic begins a run for the session and returns the first
// question. Starting over an existing run replaces it.
func (e *Engine) StartDiagnostic(sessionID string, questions []models.DiagnosticQuestion, category string, ctx models.Context) string {
	if len(questions) == 0 {
		slog.Debug("Engine.StartDiagnostic no questions", "session_id", sessionID, "category", category)
		return msgNoQuestions
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.active[sessionID] = &Session{
		Category:  category,
		Questions: questions,
		Answers:   make(map[string]Answer),
		StartedAt: e.now(),
	}
	slog.Info("Engine.StartDiagnostic started run", "session_id", sessionID, "category", category, "questions", len(questions))
	return e.nextQuestionLocked(sessionID, ctx)
}

// ProcessAnswer validates the answer to the current question and returns the
// next response plus, when triage resolved, an article key for solution
// lookup. An invalid answer re-asks the same question without advancing.
func (e *Engine) ProcessAnswer(sessionID, answer string, ctx models.Context) (string, string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.active[sessionID]
	if !ok {
		slog.Debug("Engine.ProcessAnswer no active run", "session_id", sessionID)
		return msgNoActive, ""
	}
	if sess.Index >= len(sess.Questions) {
		return e.completeLocked(sessionID)
	}

	question := sess.Questions[sess.Index]
	normalized, reason := validateAnswer(question, answer)
	if reason != "" {
		slog.Debug("Engine.ProcessAnswer invalid answer", "session_id", sessionID, "question_key", question.Key(), "reason", reason)
		return formatInvalidAnswer(question, reason), ""
	}

	sess.Answers[question.Key()] = Answer{
		Raw:        answer,
		Normalized: normalized,
		Type:       question.Type,
		Timestamp:  e.now(),
	}

	switch target := e.routeLocked(sess, question, normalized); target {
	case targetNextQuestion:
		sess.Index++
		return e.nextQuestionLocked(sessionID, ctx), ""
	case targetComplete:
		return e.completeLocked(sessionID)
	default:
		// Routed straight to a solution bucket; the run stays live in case
		// the caller wants the remaining questions later.
		slog.Info("Engine.ProcessAnswer routed to solution", "session_id", sessionID, "bucket", target)
		text := "Based on your answers, I've identified the issue.\n\n" + bucketIntro(target)
		return text, target
	}
}

// Session returns a snapshot of the session's diagnostic run, or false when
// none is active.
func (e *Engine) Session(sessionID string) (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.active[sessionID]
	if !ok {
		return Session{}, false
	}
	snapshot := *sess
	snapshot.Answers = make(map[string]Answer, len(sess.Answers))
	for k, v := range sess.Answers {
		snapshot.Answers[k] = v
	}
	return snapshot, true
}

// Abandon drops the session's diagnostic run, if any.
func (e *Engine) Abandon(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.active[sessionID]; ok {
		delete(e.active, sessionID)
		slog.Debug("Engine.Abandon dropped diagnostic run", "session_id", sessionID)
	}
}

// routeLocked picks the next action for an answered question: a routing-table
// target when one matches, otherwise next question or completion by position.
// Caller holds e.mu.
func (e *Engine) routeLocked(sess *Session, question models.DiagnosticQuestion, normalized string) string {
	if rules, ok := e.routes[sess.Category]; ok {
		if byAnswer, ok := rules[question.Key()]; ok {
			if target, ok := byAnswer[strings.ToLower(normalized)]; ok {
				return target
			}
		}
	}
	if len(question.FollowUps) > 0 {
		return targetNextQuestion
	}
	if sess.Index < len(sess.Questions)-1 {
		return targetNextQuestion
	}
	return targetComplete
}

// nextQuestionLocked renders the current question or, past the last one, the
// completion assessment. Caller holds e.mu.
func (e *Engine) nextQuestionLocked(sessionID string, ctx models.Context) string {
	sess, ok := e.active[sessionID]
	if !ok {
		return msgNoActive
	}
	if sess.Index >= len(sess.Questions) {
		text, _ := e.completeLocked(sessionID)
		return text
	}
	question := sess.Questions[sess.Index]
	return format.Question(question, ctx, sess.Index+1, len(sess.Questions))
}

// completeLocked analyzes collected answers, renders the assessment, and
// drops the run. The second return value is the recommended article id.
// Caller holds e.mu.
func (e *Engine) completeLocked(sessionID string) (string, string) {
	sess, ok := e.active[sessionID]
	if !ok {
		return msgNoActive, ""
	}
	sess.CompletedAt = e.now()

	issue, solution, articleID := assessAnswers(sess.Answers)
	confidence := confidenceLow
	if len(sess.Answers) >= confidenceAnswersMin {
		confidence = confidenceHigh
	}

	var parts []string
	parts = append(parts, "**Diagnostic Complete**\n")
	parts = append(parts, "Based on your answers, here's what I found:\n")
	parts = append(parts, fmt.Sprintf("**Issue identified:** %s", issue))
	parts = append(parts, fmt.Sprintf("**Confidence:** %.0f%%", confidence*100))
	parts = append(parts, fmt.Sprintf("\n**Recommended solution:** %s", solution))

	delete(e.active, sessionID)
	slog.Info("Engine diagnostic completed", "session_id", sessionID, "category", sess.Category, "article_id", articleID, "confidence", confidence)
	return strings.Join(parts, "\n"), articleID
}

// assessAnswers applies the majority-negative heuristic: mostly negative
// answers point at hardware or connectivity, otherwise software or
// configuration.
func assessAnswers(answers map[string]Answer) (issue, solution, articleID string) {
	negative := 0
	for _, a := range answers {
		switch strings.ToLower(a.Normalized) {
		case "no", "false", "n", "0":
			negative++
		}
	}
	if negative*2 > len(answers) {
		return "Hardware or connectivity problem", "Check physical connections and restart devices", "hw_001"
	}
	return "Software or configuration issue", "Review settings and update software", "sw_001"
}

// formatInvalidAnswer re-asks the question with the validation guidance.
func formatInvalidAnswer(q models.DiagnosticQuestion, reason string) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("❌ %s\n", reason))
	parts = append(parts, "Let me ask the question again:\n")
	parts = append(parts, q.Question)

	if q.Type == models.QuestionMultipleChoice && len(q.Options) > 0 {
		parts = append(parts, "\nPlease choose from:")
		for i, option := range q.Options {
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, option))
		}
	}
	return strings.Join(parts, "\n")
}
