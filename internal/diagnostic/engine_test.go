package diagnostic

import (
	"strings"
	"testing"

	"github.com/BTreeMap/DeskPipe/internal/models"
)

func networkQuestions() []models.DiagnosticQuestion {
	return []models.DiagnosticQuestion{
		{Question: "Lights on router", Type: models.QuestionYesNo},
		{Question: "How many devices are affected?", Type: models.QuestionNumeric},
		{Question: "Rate the connection speed", Type: models.QuestionScale},
	}
}

func TestStartDiagnosticEmpty(t *testing.T) {
	e := NewEngine()
	if out := e.StartDiagnostic("s1", nil, "network_connectivity", models.NewContext()); out != "No diagnostic questions available." {
		t.Errorf("got %q", out)
	}
}

func TestStartDiagnosticAsksFirstQuestion(t *testing.T) {
	e := NewEngine()
	out := e.StartDiagnostic("s1", networkQuestions(), "network_connectivity", models.NewContext())
	if !strings.Contains(out, "**Question 1 of 3:**") || !strings.Contains(out, "Lights on router") {
		t.Errorf("first question not rendered: %q", out)
	}
}

func TestProcessAnswerAdvancesAndCompletes(t *testing.T) {
	e := NewEngine()
	e.StartDiagnostic("s1", networkQuestions(), "other_category", models.NewContext())

	out, key := e.ProcessAnswer("s1", "yes", models.NewContext())
	if key != "" {
		t.Errorf("mid-run answer should not return an article key, got %q", key)
	}
	if !strings.Contains(out, "**Question 2 of 3:**") {
		t.Errorf("expected question 2, got %q", out)
	}

	out, _ = e.ProcessAnswer("s1", "about 3 laptops", models.NewContext())
	if !strings.Contains(out, "**Question 3 of 3:**") {
		t.Errorf("numeric answer should be cleaned and accepted, got %q", out)
	}

	out, key = e.ProcessAnswer("s1", "7", models.NewContext())
	for _, want := range []string{
		"**Diagnostic Complete**",
		"**Issue identified:** Software or configuration issue",
		"**Confidence:** 80%",
		"**Recommended solution:** Review settings and update software",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("completion missing %q\ngot: %s", want, out)
		}
	}
	if key != "sw_001" {
		t.Errorf("article key = %q, want sw_001", key)
	}
	if _, ok := e.Session("s1"); ok {
		t.Error("run should be dropped after completion")
	}
}

func TestProcessAnswerMajorityNegative(t *testing.T) {
	e := NewEngine()
	questions := []models.DiagnosticQuestion{
		{Question: "Is the device powered?", Type: models.QuestionYesNo},
		{Question: "Any lights visible?", Type: models.QuestionYesNo},
	}
	e.StartDiagnostic("s1", questions, "other_category", models.NewContext())

	e.ProcessAnswer("s1", "no", models.NewContext())
	out, key := e.ProcessAnswer("s1", "n", models.NewContext())
	if !strings.Contains(out, "Hardware or connectivity problem") {
		t.Errorf("majority-negative run should point at hardware, got %q", out)
	}
	// Two answers collected, below the high-confidence threshold.
	if !strings.Contains(out, "**Confidence:** 60%") {
		t.Errorf("expected low confidence, got %q", out)
	}
	if key != "hw_001" {
		t.Errorf("article key = %q, want hw_001", key)
	}
}

func TestProcessAnswerInvalidReasks(t *testing.T) {
	e := NewEngine()
	questions := []models.DiagnosticQuestion{
		{Question: "Which connection type?", Type: models.QuestionMultipleChoice, Options: []string{"WiFi", "Ethernet"}},
		{Question: "Is it new?", Type: models.QuestionYesNo},
	}
	e.StartDiagnostic("s1", questions, "other_category", models.NewContext())

	out, key := e.ProcessAnswer("s1", "5", models.NewContext())
	if key != "" {
		t.Errorf("invalid answer should not return an article key, got %q", key)
	}
	for _, want := range []string{
		"❌ Please choose a number between 1 and 2",
		"Let me ask the question again:",
		"Which connection type?",
		"1. WiFi",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("invalid-answer response missing %q\ngot: %s", want, out)
		}
	}

	sess, _ := e.Session("s1")
	if sess.Index != 0 {
		t.Errorf("invalid answer should not advance, index = %d", sess.Index)
	}

	// Option by 1-based index is accepted and normalized to the option text.
	e.ProcessAnswer("s1", "2", models.NewContext())
	sess, _ = e.Session("s1")
	if got := sess.Answers["which_connection_typ"].Normalized; got != "Ethernet" {
		t.Errorf("normalized answer = %q, want Ethernet", got)
	}
}

func TestRoutingToSolutionBucket(t *testing.T) {
	e := NewEngine()
	questions := []models.DiagnosticQuestion{
		{Question: "Lights on router", Type: models.QuestionYesNo},
		{Question: "Can you ping the gateway?", Type: models.QuestionYesNo},
	}
	e.StartDiagnostic("s1", questions, "network_connectivity", models.NewContext())

	out, key := e.ProcessAnswer("s1", "no", models.NewContext())
	if key != "power_cycle_router" {
		t.Errorf("routing key = %q, want power_cycle_router", key)
	}
	if !strings.Contains(out, "Based on your answers, I've identified the issue.") ||
		!strings.Contains(out, "Let's try restarting your router.") {
		t.Errorf("routed response wrong: %q", out)
	}
	// Run stays live when routed to a bucket.
	if _, ok := e.Session("s1"); !ok {
		t.Error("routed run should remain active")
	}
}

func TestValidateAnswer(t *testing.T) {
	yesNo := models.DiagnosticQuestion{Question: "q", Type: models.QuestionYesNo}
	scale := models.DiagnosticQuestion{Question: "q", Type: models.QuestionScale}
	free := models.DiagnosticQuestion{Question: "q", Type: models.QuestionText}

	tests := []struct {
		name       string
		question   models.DiagnosticQuestion
		answer     string
		normalized string
		wantValid  bool
	}{
		{"yes variants", yesNo, "Sure", "yes", true},
		{"numeric one is yes", yesNo, "1", "yes", true},
		{"no variants", yesNo, "FALSE", "no", true},
		{"gibberish yes/no", yesNo, "maybe", "", false},
		{"scale in range", scale, "10", "10", true},
		{"scale out of range", scale, "11", "", false},
		{"scale non-numeric", scale, "lots", "", false},
		{"text passthrough", free, "the screen flickers", "the screen flickers", true},
		{"empty text", free, "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized, reason := validateAnswer(tt.question, tt.answer)
			if (reason == "") != tt.wantValid {
				t.Fatalf("valid = %v, want %v (reason %q)", reason == "", tt.wantValid, reason)
			}
			if normalized != tt.normalized {
				t.Errorf("normalized = %q, want %q", normalized, tt.normalized)
			}
		})
	}
}
