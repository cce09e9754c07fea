package models

import (
	"errors"
	"testing"
)

func TestSolutionStepValidate(t *testing.T) {
	cases := []struct {
		name    string
		step    SolutionStep
		wantErr error
	}{
		{
			name: "valid instruction",
			step: SolutionStep{Order: 1, Title: "Check cables", Content: "Ensure the printer is plugged in.", Type: StepInstruction},
		},
		{
			name:    "zero order",
			step:    SolutionStep{Order: 0, Title: "Check cables", Content: "Ensure the printer is plugged in."},
			wantErr: ErrInvalidStepOrder,
		},
		{
			name:    "empty title",
			step:    SolutionStep{Order: 1, Title: "   ", Content: "Ensure the printer is plugged in."},
			wantErr: ErrEmptyStepTitle,
		},
		{
			name:    "empty content",
			step:    SolutionStep{Order: 1, Title: "Check cables", Content: ""},
			wantErr: ErrEmptyStepContent,
		},
		{
			name:    "bad type",
			step:    SolutionStep{Order: 1, Title: "Check cables", Content: "x", Type: StepType("sidequest")},
			wantErr: ErrInvalidStepType,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.step.Validate()
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestDiagnosticQuestionValidate(t *testing.T) {
	cases := []struct {
		name    string
		q       DiagnosticQuestion
		wantErr error
	}{
		{
			name: "valid yes/no",
			q:    DiagnosticQuestion{Question: "Is the router powered on?", Type: QuestionYesNo},
		},
		{
			name: "valid multiple choice",
			q:    DiagnosticQuestion{Question: "Which OS?", Type: QuestionMultipleChoice, Options: []string{"Windows", "macOS"}},
		},
		{
			name:    "choice without options",
			q:       DiagnosticQuestion{Question: "Which OS?", Type: QuestionMultipleChoice},
			wantErr: ErrMissingChoiceOptions,
		},
		{
			name:    "options on yes/no",
			q:       DiagnosticQuestion{Question: "Is it on?", Type: QuestionYesNo, Options: []string{"yes"}},
			wantErr: ErrUnexpectedOptions,
		},
		{
			name:    "unknown type",
			q:       DiagnosticQuestion{Question: "Is it on?", Type: QuestionType("riddle")},
			wantErr: ErrInvalidQuestionType,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.q.Validate()
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestQuestionKey(t *testing.T) {
	q := DiagnosticQuestion{Question: "Can you access the internet from other devices?", Type: QuestionYesNo}
	key := q.Key()
	if key != "can_you_access_the_i" {
		t.Errorf("Key() = %q, want %q", key, "can_you_access_the_i")
	}
	short := DiagnosticQuestion{Question: "Lights on?", Type: QuestionYesNo}
	if short.Key() != "lights_on?" {
		t.Errorf("Key() = %q, want %q", short.Key(), "lights_on?")
	}
}

func TestConversationStateIsTerminal(t *testing.T) {
	for _, s := range []ConversationState{StateInitial, StateGatheringInfo, StatePresentingSolution, StateAwaitingConfirm} {
		if s.IsTerminal() {
			t.Errorf("state %s should not be terminal", s)
		}
	}
	for _, s := range []ConversationState{StateCompleted, StateEscalated} {
		if !s.IsTerminal() {
			t.Errorf("state %s should be terminal", s)
		}
	}
}

func TestIsValidResponseKind(t *testing.T) {
	if !IsValidResponseKind(KindArticle) {
		t.Error("article_full should be a valid response kind")
	}
	if IsValidResponseKind(ResponseKind("interpretive_dance")) {
		t.Error("unknown kind should be invalid")
	}
}
