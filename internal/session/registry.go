// Package session owns conversation sessions: lifecycle, turn history,
// inferred user context, and the escalation decision.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/DeskPipe/internal/models"
	"github.com/BTreeMap/DeskPipe/internal/store"
)

// Escalation trigger thresholds, evaluated in priority order.
const (
	// EscalationBotTurnThreshold is the bot-turn count a frustrated user must
	// exceed before the emotional-distress trigger fires.
	EscalationBotTurnThreshold = 3
	// EscalationFailureThreshold is the failed-solution-attempt count that
	// fires the repeated-failure trigger.
	EscalationFailureThreshold = 3
	// EscalationAgeThreshold is the session age after which an unresolved
	// conversation counts as a complex issue.
	EscalationAgeThreshold = 20 * time.Minute
	// DefaultSessionTimeout is the idle age after which a session is swept.
	DefaultSessionTimeout = 30 * time.Minute
)

// ErrDuplicateSession is returned when starting a session whose id is
// already active.
var ErrDuplicateSession = errors.New("session id already active")

// Session is one continuous interaction between a user and the bot. The
// Registry exclusively owns sessions; other engines key their own records by
// session id and never touch these fields.
type Session struct {
	ID                     string
	UserID                 string
	StartedAt              time.Time
	LastActivity           time.Time
	State                  models.ConversationState
	Context                models.Context
	Turns                  []models.Turn
	FailedSolutionAttempts int
}

// Registry tracks active sessions in a mutex-guarded table keyed by session
// id. It supports concurrent access across different session ids; operations
// within one session are inherently sequential.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	profiles store.ProfileStore
	now      func() time.Time
}

// NewRegistry creates a Registry backed by the given profile store. A nil
// store falls back to an in-memory one.
func NewRegistry(profiles store.ProfileStore) *Registry {
	if profiles == nil {
		profiles = store.NewInMemoryStore()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		profiles: profiles,
		now:      time.Now,
	}
}

// StartSession creates a session in the initial state. If a profile exists
// for userID its history seeds the session context; otherwise a fresh
// profile is created. Starting an id that is already active fails with
// ErrDuplicateSession.
func (r *Registry) StartSession(id, userID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; exists {
		slog.Debug("Registry.StartSession rejected duplicate", "session_id", id)
		return nil, ErrDuplicateSession
	}

	ctx := models.NewContext()
	if userID != "" {
		profile, err := r.profiles.GetProfile(userID)
		if err != nil {
			slog.Error("Registry.StartSession profile lookup failed", "error", err, "user_id", userID)
		} else if profile == nil {
			fresh := store.UserProfile{UserID: userID, CreatedAt: r.now(), Preferences: make(map[string]any)}
			if err := r.profiles.SaveProfile(fresh); err != nil {
				slog.Error("Registry.StartSession profile create failed", "error", err, "user_id", userID)
			}
		} else {
			for k, v := range profile.Preferences {
				ctx.Preferences[k] = v
			}
			for _, issue := range profile.PreviousIssues {
				ctx.PreviousIssues = append(ctx.PreviousIssues, issue.ArticleID)
			}
			if profile.PreferredLevel != "" {
				ctx.TechnicalLevel = models.TechnicalLevel(profile.PreferredLevel)
			}
		}
	}

	now := r.now()
	sess := &Session{
		ID:           id,
		UserID:       userID,
		StartedAt:    now,
		LastActivity: now,
		State:        models.StateInitial,
		Context:      ctx,
	}
	r.sessions[id] = sess
	slog.Info("Registry.StartSession created session", "session_id", id, "user_id", userID)
	return sess, nil
}

// AddTurn appends a turn to the session. It returns false when the session
// id is unknown: callers may race with session expiry, so this is a soft
// error rather than a failure. User turns re-evaluate the inferred context;
// bot turns advance the bot-turn count and may transition conversation state
// based on the response kind.
func (r *Registry) AddTurn(id string, speaker models.Speaker, message string, meta *models.TurnMetadata) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		slog.Debug("Registry.AddTurn unknown session", "session_id", id)
		return false
	}

	turn := models.Turn{
		Timestamp: r.now(),
		Speaker:   speaker,
		Message:   message,
	}
	if meta != nil {
		turn.Intent = meta.Intent
		turn.Kind = meta.Kind
		turn.ArticleID = meta.ArticleID
		turn.StepOrder = meta.StepOrder
		turn.QuestionKey = meta.QuestionKey
	}
	sess.Turns = append(sess.Turns, turn)
	sess.LastActivity = turn.Timestamp

	switch speaker {
	case models.SpeakerUser:
		if level, ok := DetectTechnicalLevel(message); ok {
			sess.Context.TechnicalLevel = level
		}
		if emotion, ok := DetectEmotion(message); ok {
			sess.Context.Emotion = emotion
		}
	case models.SpeakerBot:
		sess.Context.BotTurns++
		if meta != nil {
			r.applyKindTransition(sess, meta.Kind)
		}
	}
	return true
}

// applyKindTransition moves conversation state forward based on the kind of
// bot response just recorded. Terminal states never change, except that
// escalation is reachable from any non-terminal state.
func (r *Registry) applyKindTransition(sess *Session, kind models.ResponseKind) {
	if sess.State.IsTerminal() {
		return
	}
	switch kind {
	case models.KindEscalation:
		sess.State = models.StateEscalated
		slog.Info("Registry session escalated", "session_id", sess.ID)
	case models.KindArticle, models.KindStep:
		sess.State = models.StatePresentingSolution
	case models.KindQuestion:
		sess.State = models.StateGatheringInfo
	}
}

// Complete marks the session resolved. It is a no-op on terminal states.
func (r *Registry) Complete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok || sess.State.IsTerminal() {
		return false
	}
	sess.State = models.StateCompleted
	slog.Info("Registry session completed", "session_id", id)
	return true
}

// RecordSolutionFailure increments the failed-solution-attempt counter and
// returns the new count, or -1 when the session is unknown.
func (r *Registry) RecordSolutionFailure(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return -1
	}
	sess.FailedSolutionAttempts++
	slog.Debug("Registry recorded solution failure", "session_id", id, "failed_attempts", sess.FailedSolutionAttempts)
	return sess.FailedSolutionAttempts
}

// Context returns a copy of the session's inferred context.
func (r *Registry) Context(id string) (models.Context, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	if !ok {
		return models.Context{}, false
	}
	return sess.Context, true
}

// State returns the session's conversation state.
func (r *Registry) State(id string) (models.ConversationState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	if !ok {
		return "", false
	}
	return sess.State, true
}

// History returns the session's turns in append order. A positive lastN
// limits the result to the most recent turns. Unknown sessions return nil.
func (r *Registry) History(id string, lastN int) []models.Turn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	if !ok {
		return nil
	}
	turns := sess.Turns
	if lastN > 0 && lastN < len(turns) {
		turns = turns[len(turns)-lastN:]
	}
	out := make([]models.Turn, len(turns))
	copy(out, turns)
	return out
}

// Summary returns the logging-oriented view of a session.
func (r *Registry) Summary(id string) (models.SessionSummary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	if !ok {
		return models.SessionSummary{}, false
	}
	return models.SessionSummary{
		SessionID:      sess.ID,
		UserID:         sess.UserID,
		State:          sess.State,
		TechnicalLevel: sess.Context.TechnicalLevel,
		Emotion:        sess.Context.Emotion,
		TurnCount:      len(sess.Turns),
		BotTurns:       sess.Context.BotTurns,
		StartedAt:      sess.StartedAt,
		LastActivity:   sess.LastActivity,
	}, true
}

// ShouldEscalate evaluates the escalation triggers in fixed priority order
// and returns the first matching reason code. Unknown sessions never
// escalate.
func (r *Registry) ShouldEscalate(id string) (bool, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	if !ok {
		return false, ""
	}

	if sess.Context.Emotion == models.EmotionFrustrated && sess.Context.BotTurns > EscalationBotTurnThreshold {
		return true, models.ReasonEmotionalDistress
	}
	if sess.FailedSolutionAttempts >= EscalationFailureThreshold {
		return true, models.ReasonRepeatedFailure
	}
	if sess.State == models.StateEscalated {
		return true, models.ReasonAlreadyEscalated
	}
	if r.now().Sub(sess.StartedAt) > EscalationAgeThreshold && sess.State != models.StateCompleted {
		return true, models.ReasonComplexIssue
	}
	return false, ""
}

// CleanupExpiredSessions removes every session idle for longer than timeout,
// folding each outcome into the owning user profile first. It returns the
// removed session ids so the caller can drop any per-session engine records
// alongside them.
func (r *Registry) CleanupExpiredSessions(timeout time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var removed []string
	for id, sess := range r.sessions {
		if now.Sub(sess.LastActivity) <= timeout {
			continue
		}
		r.foldIntoProfile(sess)
		delete(r.sessions, id)
		removed = append(removed, id)
	}
	if len(removed) > 0 {
		slog.Info("Registry.CleanupExpiredSessions evicted sessions", "count", len(removed), "timeout", timeout)
	}
	return removed
}

// foldIntoProfile records the session outcome on the owning user profile:
// total sessions, successful sessions, and an issue record for every turn
// that referenced an article. Caller holds the registry lock.
func (r *Registry) foldIntoProfile(sess *Session) {
	if sess.UserID == "" {
		return
	}
	profile, err := r.profiles.GetProfile(sess.UserID)
	if err != nil {
		slog.Error("Registry cleanup profile lookup failed", "error", err, "user_id", sess.UserID)
		return
	}
	if profile == nil {
		profile = &store.UserProfile{UserID: sess.UserID, CreatedAt: r.now(), Preferences: make(map[string]any)}
	}

	resolved := sess.State == models.StateCompleted
	profile.TotalSessions++
	if resolved {
		profile.SuccessfulSessions++
	}
	for _, turn := range sess.Turns {
		if turn.ArticleID == "" {
			continue
		}
		profile.PreviousIssues = append(profile.PreviousIssues, store.IssueRecord{
			ArticleID: turn.ArticleID,
			Timestamp: turn.Timestamp,
			Resolved:  resolved,
		})
	}
	if err := r.profiles.SaveProfile(*profile); err != nil {
		slog.Error("Registry cleanup profile save failed", "error", err, "user_id", sess.UserID)
	}
}

// UpdatePreferences merges the given preferences into the user's profile,
// creating the profile if needed.
func (r *Registry) UpdatePreferences(userID string, prefs map[string]any) error {
	profile, err := r.profiles.GetProfile(userID)
	if err != nil {
		return err
	}
	if profile == nil {
		profile = &store.UserProfile{UserID: userID, CreatedAt: r.now(), Preferences: make(map[string]any)}
	}
	if profile.Preferences == nil {
		profile.Preferences = make(map[string]any)
	}
	for k, v := range prefs {
		profile.Preferences[k] = v
	}
	return r.profiles.SaveProfile(*profile)
}

// Preferences returns the stored preference map for a user, or an empty map
// when no profile exists.
func (r *Registry) Preferences(userID string) map[string]any {
	profile, err := r.profiles.GetProfile(userID)
	if err != nil || profile == nil || profile.Preferences == nil {
		return map[string]any{}
	}
	return profile.Preferences
}
