// Package solution walks users through multi-step fixes, tracking per-step
// outcomes and rendering the next instruction after each confirmation.
package solution

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/DeskPipe/internal/format"
	"github.com/BTreeMap/DeskPipe/internal/models"
)

// Delivery modes for a solution walkthrough.
const (
	// ModeProgressive presents one step at a time, advancing on confirmation.
	ModeProgressive = "progressive"
	// ModeAllAtOnce presents every step in a single response.
	ModeAllAtOnce = "all_at_once"
)

// Fallback texts for out-of-sequence calls. Callers racing a sweep may hit
// these; they are user-facing, not errors.
const (
	msgNoSteps   = "No solution steps available for this article."
	msgNoActive  = "No active solution found."
	msgStartOver = "No active solution found. Please start over."
)

// Outcome records how a single step went.
type Outcome struct {
	Success     bool
	Feedback    string
	CompletedAt time.Time
}

// Progress tracks one session's walk through a solution.
type Progress struct {
	ArticleID   string
	Steps       []models.SolutionStep
	Mode        string
	Index       int
	Completed   []int
	Outcomes    map[int]Outcome
	StartedAt   time.Time
	CompletedAt time.Time
}

// Engine tracks active walkthroughs keyed by session id. It renders text but
// never records turns; the orchestrator owns the session history.
type Engine struct {
	mu     sync.Mutex
	active map[string]*Progress
	now    func() time.Time
}

// NewEngine creates an Engine with no active walkthroughs.
func NewEngine() *Engine {
	return &Engine{
		active: make(map[string]*Progress),
		now:    time.Now,
	}
}

// StartSolution begins a walkthrough for the session and returns the first
// response: every step at once in all-at-once mode, otherwise the first step.
// Starting over an existing walkthrough replaces it.
func (e *Engine) StartSolution(sessionID string, article models.Article, mode string, ctx models.Context) string {
	if len(article.Steps) == 0 {
		slog.Debug("Engine.StartSolution article has no steps", "session_id", sessionID, "article_id", article.ID)
		return msgNoSteps
	}
	if mode != ModeAllAtOnce {
		mode = ModeProgressive
	}

	steps := make([]models.SolutionStep, len(article.Steps))
	copy(steps, article.Steps)
	sort.Slice(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })

	e.mu.Lock()
	defer e.mu.Unlock()

	progress := &Progress{
		ArticleID: article.ID,
		Steps:     steps,
		Mode:      mode,
		Outcomes:  make(map[int]Outcome),
		StartedAt: e.now(),
	}
	e.active[sessionID] = progress
	slog.Info("Engine.StartSolution started walkthrough", "session_id", sessionID, "article_id", article.ID, "mode", mode, "steps", len(steps))

	if mode == ModeAllAtOnce {
		return formatAllSteps(progress)
	}
	return e.nextStepLocked(sessionID, ctx)
}

// ConfirmStepCompletion records the outcome of the current step. On success
// the walkthrough advances; the response is the next step, or the completion
// summary when all steps are done. On failure the index stays put and the
// response offers recovery options.
func (e *Engine) ConfirmStepCompletion(sessionID string, success bool, feedback string, ctx models.Context) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	progress, ok := e.active[sessionID]
	if !ok {
		slog.Debug("Engine.ConfirmStepCompletion no active walkthrough", "session_id", sessionID)
		return msgNoActive
	}
	if progress.Index >= len(progress.Steps) {
		return e.completeLocked(sessionID)
	}

	step := progress.Steps[progress.Index]
	progress.Outcomes[step.Order] = Outcome{
		Success:     success,
		Feedback:    feedback,
		CompletedAt: e.now(),
	}

	if !success {
		slog.Debug("Engine.ConfirmStepCompletion step failed", "session_id", sessionID, "step_order", step.Order)
		return formatStepFailure(step)
	}

	progress.Index++
	progress.Completed = append(progress.Completed, step.Order)
	return e.nextStepLocked(sessionID, ctx)
}

// Progress returns a snapshot of the session's walkthrough, or false when
// none is active.
func (e *Engine) Progress(sessionID string) (Progress, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	progress, ok := e.active[sessionID]
	if !ok {
		return Progress{}, false
	}
	snapshot := *progress
	snapshot.Completed = append([]int(nil), progress.Completed...)
	snapshot.Outcomes = make(map[int]Outcome, len(progress.Outcomes))
	for k, v := range progress.Outcomes {
		snapshot.Outcomes[k] = v
	}
	return snapshot, true
}

// Abandon drops the session's walkthrough, if any. Used when the owning
// session expires or escalates.
func (e *Engine) Abandon(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.active[sessionID]; ok {
		delete(e.active, sessionID)
		slog.Debug("Engine.Abandon dropped walkthrough", "session_id", sessionID)
	}
}

// nextStepLocked renders the current step or, past the last one, the
// completion summary. Caller holds e.mu.
func (e *Engine) nextStepLocked(sessionID string, ctx models.Context) string {
	progress, ok := e.active[sessionID]
	if !ok {
		return msgStartOver
	}
	if progress.Index >= len(progress.Steps) {
		return e.completeLocked(sessionID)
	}

	step := progress.Steps[progress.Index]
	return format.Step(step, ctx,
		progress.Index == 0,
		progress.Index == len(progress.Steps)-1,
		len(progress.Steps))
}

// completeLocked renders the completion summary and drops the walkthrough.
// Caller holds e.mu.
func (e *Engine) completeLocked(sessionID string) string {
	progress, ok := e.active[sessionID]
	if !ok {
		return msgNoActive
	}

	progress.CompletedAt = e.now()
	elapsed := int(progress.CompletedAt.Sub(progress.StartedAt).Minutes())

	successful := 0
	for _, outcome := range progress.Outcomes {
		if outcome.Success {
			successful++
		}
	}
	successRate := 0.0
	if len(progress.Steps) > 0 {
		successRate = float64(successful) / float64(len(progress.Steps)) * 100
	}

	var parts []string
	parts = append(parts, "🎉 **Solution Complete!**\n")
	parts = append(parts, fmt.Sprintf("You've completed all %d steps.", len(progress.Steps)))
	parts = append(parts, fmt.Sprintf("Total time: %d minutes", elapsed))
	parts = append(parts, fmt.Sprintf("Success rate: %.0f%%", successRate))
	parts = append(parts, "\nDid this resolve your issue?")

	delete(e.active, sessionID)
	slog.Info("Engine walkthrough completed", "session_id", sessionID, "article_id", progress.ArticleID, "elapsed_minutes", elapsed)
	return strings.Join(parts, "\n")
}

// formatAllSteps renders every step in a single response.
func formatAllSteps(progress *Progress) string {
	var parts []string
	parts = append(parts, "Here are all the steps to resolve your issue:\n")

	for _, step := range progress.Steps {
		parts = append(parts, fmt.Sprintf("**Step %d: %s**", step.Order, step.Title))
		parts = append(parts, step.Content)
		if step.EstimatedMinutes > 0 {
			parts = append(parts, fmt.Sprintf("⏱️ Time: %d minutes", step.EstimatedMinutes))
		}
		parts = append(parts, "")
	}

	total := 0
	for _, step := range progress.Steps {
		total += step.EstimatedMinutes
	}
	if total > 0 {
		parts = append(parts, fmt.Sprintf("**Total estimated time:** %d minutes", total))
	}
	return strings.Join(parts, "\n")
}

// formatStepFailure renders recovery guidance after a failed step.
func formatStepFailure(step models.SolutionStep) string {
	var parts []string
	parts = append(parts, "I see that step didn't work as expected.")

	if step.Type == models.StepTroubleshooting {
		parts = append(parts, "\nLet's try an alternative approach:")
		parts = append(parts, "• Double-check the previous steps")
		parts = append(parts, "• Try restarting the application")
		parts = append(parts, "• Check for any error messages")
	}

	parts = append(parts, "\nWould you like to:")
	parts = append(parts, "1. Try this step again")
	parts = append(parts, "2. Skip to the next step")
	parts = append(parts, "3. Get help from a human agent")
	return strings.Join(parts, "\n")
}
