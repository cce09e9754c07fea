// Package models defines the core data structures for DeskPipe.
//
// It includes knowledge articles, solution steps, and diagnostic questions,
// which are shared across the engines and the serving layer. Content records
// are assumed to be pre-validated by the import tooling before they reach the
// engines; the Validate methods here guard the API boundary.
package models

import (
	"errors"
	"strings"
)

// QuestionType defines how a diagnostic question expects to be answered.
type QuestionType string

const (
	// QuestionYesNo expects a yes/no style answer.
	QuestionYesNo QuestionType = "yes_no"
	// QuestionMultipleChoice expects one of the listed options.
	QuestionMultipleChoice QuestionType = "multiple_choice"
	// QuestionNumeric expects a real number.
	QuestionNumeric QuestionType = "numeric"
	// QuestionScale expects an integer rating from 1 to 10.
	QuestionScale QuestionType = "scale"
	// QuestionText accepts free-form text.
	QuestionText QuestionType = "text"
)

// StepType categorizes a solution step.
type StepType string

const (
	// StepInstruction is a plain action for the user to perform.
	StepInstruction StepType = "instruction"
	// StepVerification asks the user to confirm an expected outcome.
	StepVerification StepType = "verification"
	// StepTroubleshooting is a corrective step with known alternatives.
	StepTroubleshooting StepType = "troubleshooting"
	// StepWarning flags a step that needs extra care.
	StepWarning StepType = "warning"
	// StepNote carries information needed by later steps.
	StepNote StepType = "note"
)

// DifficultyLevel rates how hard an article is to follow.
type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// Validation constants for content records
const (
	// MinChoiceOptions is the minimum number of multiple-choice options.
	MinChoiceOptions = 2
	// MaxChoiceOptions is the maximum number of multiple-choice options.
	MaxChoiceOptions = 10
	// MaxStepContentLength bounds the body text of a single step.
	MaxStepContentLength = 2000
	// ScaleMin is the lowest accepted scale answer.
	ScaleMin = 1
	// ScaleMax is the highest accepted scale answer.
	ScaleMax = 10
)

// Error variables for better error handling and testability
var (
	ErrEmptyArticleTitle     = errors.New("article title cannot be empty")
	ErrEmptyArticleContent   = errors.New("article content cannot be empty")
	ErrEmptyStepTitle        = errors.New("step title cannot be empty")
	ErrEmptyStepContent      = errors.New("step content cannot be empty")
	ErrStepContentTooLong    = errors.New("step content exceeds maximum length")
	ErrInvalidStepOrder      = errors.New("step order must be a positive integer")
	ErrInvalidStepType       = errors.New("invalid step type")
	ErrEmptyQuestion         = errors.New("question text cannot be empty")
	ErrInvalidQuestionType   = errors.New("invalid question type")
	ErrMissingChoiceOptions  = errors.New("multiple choice questions require options")
	ErrTooFewChoiceOptions   = errors.New("multiple choice questions require at least 2 options")
	ErrTooManyChoiceOptions  = errors.New("multiple choice questions allow at most 10 options")
	ErrUnexpectedOptions     = errors.New("options are only valid for multiple choice questions")
)

// IsValidQuestionType checks if the given question type is supported.
func IsValidQuestionType(qt QuestionType) bool {
	switch qt {
	case QuestionYesNo, QuestionMultipleChoice, QuestionNumeric, QuestionScale, QuestionText:
		return true
	default:
		return false
	}
}

// IsValidStepType checks if the given step type is supported.
func IsValidStepType(st StepType) bool {
	switch st {
	case StepInstruction, StepVerification, StepTroubleshooting, StepWarning, StepNote:
		return true
	default:
		return false
	}
}

// SolutionStep is one ordered instruction in an article's remediation
// procedure. Orders are unique and strictly ascending within an article;
// the content store guarantees this before steps reach the engines.
type SolutionStep struct {
	Order            int      `json:"order"`
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	Type             StepType `json:"step_type,omitempty"`
	EstimatedMinutes int      `json:"estimated_time_minutes,omitempty"` // 0 means unknown
}

// Validate performs validation on a SolutionStep structure.
func (s *SolutionStep) Validate() error {
	if s.Order < 1 {
		return ErrInvalidStepOrder
	}
	if strings.TrimSpace(s.Title) == "" {
		return ErrEmptyStepTitle
	}
	if strings.TrimSpace(s.Content) == "" {
		return ErrEmptyStepContent
	}
	if len(s.Content) > MaxStepContentLength {
		return ErrStepContentTooLong
	}
	if s.Type != "" && !IsValidStepType(s.Type) {
		return ErrInvalidStepType
	}
	return nil
}

// DiagnosticQuestion is one structured question used to narrow down the
// user's issue before presenting a solution.
type DiagnosticQuestion struct {
	Question  string       `json:"question"`
	Type      QuestionType `json:"question_type"`
	Options   []string     `json:"options,omitempty"`
	Required  bool         `json:"required,omitempty"`
	HelpText  string       `json:"help_text,omitempty"`
	FollowUps []string     `json:"follow_up_questions,omitempty"`
}

// Validate performs validation on a DiagnosticQuestion structure.
func (q *DiagnosticQuestion) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return ErrEmptyQuestion
	}
	if !IsValidQuestionType(q.Type) {
		return ErrInvalidQuestionType
	}
	if q.Type == QuestionMultipleChoice {
		if len(q.Options) == 0 {
			return ErrMissingChoiceOptions
		}
		if len(q.Options) < MinChoiceOptions {
			return ErrTooFewChoiceOptions
		}
		if len(q.Options) > MaxChoiceOptions {
			return ErrTooManyChoiceOptions
		}
	} else if len(q.Options) > 0 {
		return ErrUnexpectedOptions
	}
	return nil
}

// Key returns the routing key for this question: lowercase, spaces replaced
// with underscores, truncated to 20 characters. Routing tables are keyed by
// (category, question key, normalized answer).
func (q *DiagnosticQuestion) Key() string {
	key := strings.ReplaceAll(strings.ToLower(q.Question), " ", "_")
	if len(key) > 20 {
		key = key[:20]
	}
	return key
}

// Article is a knowledge base entry with ordered solution steps and optional
// diagnostic questions. Articles arrive from the content store already
// validated and with steps sorted by order.
type Article struct {
	ID               string               `json:"article_id"`
	Title            string               `json:"title"`
	Content          string               `json:"content"`
	Category         string               `json:"category"`
	Subcategory      string               `json:"subcategory,omitempty"`
	Difficulty       DifficultyLevel      `json:"difficulty_level,omitempty"`
	Keywords         []string             `json:"keywords,omitempty"`
	Symptoms         []string             `json:"symptoms,omitempty"`
	Steps            []SolutionStep       `json:"solution_steps,omitempty"`
	Questions        []DiagnosticQuestion `json:"diagnostic_questions,omitempty"`
	SuccessRate      float64              `json:"success_rate,omitempty"`
	EstimatedMinutes int                  `json:"estimated_time_minutes,omitempty"`
}

// Validate performs validation on an Article structure.
func (a *Article) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return ErrEmptyArticleTitle
	}
	if strings.TrimSpace(a.Content) == "" {
		return ErrEmptyArticleContent
	}
	for i := range a.Steps {
		if err := a.Steps[i].Validate(); err != nil {
			return err
		}
	}
	for i := range a.Questions {
		if err := a.Questions[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
