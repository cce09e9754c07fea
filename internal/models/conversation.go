// Package models defines the core data structures for DeskPipe.
//
// This file holds the conversation-facing types: session state, turns,
// inferred context, and the closed set of response kinds.
package models

import "time"

// Speaker identifies who produced a conversation turn.
type Speaker string

const (
	// SpeakerUser marks a turn written by the user.
	SpeakerUser Speaker = "user"
	// SpeakerBot marks a turn written by the bot.
	SpeakerBot Speaker = "bot"
)

// ConversationState is the lifecycle state of a session. Transitions only
// move forward, except that Escalated is reachable from any non-terminal
// state. Completed and Escalated are terminal.
type ConversationState string

const (
	StateInitial            ConversationState = "initial"
	StateGatheringInfo      ConversationState = "gathering_info"
	StatePresentingSolution ConversationState = "presenting_solution"
	StateAwaitingConfirm    ConversationState = "awaiting_confirmation"
	StateCompleted          ConversationState = "completed"
	StateEscalated          ConversationState = "escalated"
)

// IsTerminal reports whether the state permits no further transitions.
func (s ConversationState) IsTerminal() bool {
	return s == StateCompleted || s == StateEscalated
}

// ResponseKind is the closed set of response types the orchestrator can
// produce. Adding a kind requires extending the orchestrator's switch, which
// keeps dispatch a compile-time-checked change.
type ResponseKind string

const (
	KindArticle       ResponseKind = "article_full"
	KindStep          ResponseKind = "step_by_step"
	KindQuestion      ResponseKind = "diagnostic"
	KindNoResults     ResponseKind = "no_results"
	KindEscalation    ResponseKind = "escalation"
	KindClarification ResponseKind = "clarification"
	KindConfirmation  ResponseKind = "confirmation"
	KindGreeting      ResponseKind = "greeting"
	KindFarewell      ResponseKind = "farewell"
)

// IsValidResponseKind checks if the given response kind is supported.
func IsValidResponseKind(k ResponseKind) bool {
	switch k {
	case KindArticle, KindStep, KindQuestion, KindNoResults, KindEscalation,
		KindClarification, KindConfirmation, KindGreeting, KindFarewell:
		return true
	default:
		return false
	}
}

// TechnicalLevel is the inferred skill level of the current user.
type TechnicalLevel string

const (
	LevelBeginner     TechnicalLevel = "beginner"
	LevelIntermediate TechnicalLevel = "intermediate"
	LevelExpert       TechnicalLevel = "expert"
)

// Emotion is the inferred emotional state of the current user. The zero
// value means no emotion has been detected yet.
type Emotion string

const (
	EmotionNone       Emotion = ""
	EmotionFrustrated Emotion = "frustrated"
	EmotionConfused   Emotion = "confused"
	EmotionSatisfied  Emotion = "satisfied"
)

// Escalation reason codes, in trigger priority order.
const (
	// ReasonEmotionalDistress fires when the user is frustrated and has
	// already received more than three bot responses.
	ReasonEmotionalDistress = "emotional_distress"
	// ReasonRepeatedFailure fires after three or more failed solution attempts.
	ReasonRepeatedFailure = "repeated_failure"
	// ReasonAlreadyEscalated fires when the session is already escalated.
	ReasonAlreadyEscalated = "already_escalated"
	// ReasonComplexIssue fires when an unresolved session exceeds 20 minutes.
	ReasonComplexIssue = "complex_issue"
	// ReasonUserRequest marks an escalation the user asked for directly.
	ReasonUserRequest = "user_request"
)

// Turn is one message within a session. Turns are immutable once appended;
// ordering is insertion order.
type Turn struct {
	Timestamp   time.Time    `json:"timestamp"`
	Speaker     Speaker      `json:"speaker"`
	Message     string       `json:"message"`
	Intent      string       `json:"intent,omitempty"`
	Kind        ResponseKind `json:"response_type,omitempty"`
	ArticleID   string       `json:"article_id,omitempty"`
	StepOrder   int          `json:"step_order,omitempty"`
	QuestionKey string       `json:"question_key,omitempty"`
}

// TurnMetadata carries the optional structured fields for AddTurn.
type TurnMetadata struct {
	Intent      string
	Kind        ResponseKind
	ArticleID   string
	StepOrder   int
	QuestionKey string
}

// Context holds the attributes inferred about the current user, used to
// shape generated text.
type Context struct {
	UserName       string         `json:"user_name,omitempty"`
	TechnicalLevel TechnicalLevel `json:"technical_level"`
	Emotion        Emotion        `json:"emotion,omitempty"`
	BotTurns       int            `json:"bot_turns"`
	Preferences    map[string]any `json:"preferences,omitempty"`
	PreviousIssues []string       `json:"previous_issues,omitempty"`
}

// NewContext returns a Context with the default technical level.
func NewContext() Context {
	return Context{
		TechnicalLevel: LevelIntermediate,
		Preferences:    make(map[string]any),
	}
}

// SessionSummary is the logging-oriented view of a session.
type SessionSummary struct {
	SessionID      string            `json:"session_id"`
	UserID         string            `json:"user_id,omitempty"`
	State          ConversationState `json:"state"`
	TechnicalLevel TechnicalLevel    `json:"technical_level"`
	Emotion        Emotion           `json:"emotion,omitempty"`
	TurnCount      int               `json:"turn_count"`
	BotTurns       int               `json:"bot_turns"`
	StartedAt      time.Time         `json:"started_at"`
	LastActivity   time.Time         `json:"last_activity"`
}
