package solution

import (
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/DeskPipe/internal/models"
)

func twoStepArticle() models.Article {
	return models.Article{
		ID:    "net_001",
		Title: "Router reset",
		Steps: []models.SolutionStep{
			{Order: 2, Title: "Verify the link", Content: "Check the WiFi icon.", Type: models.StepVerification},
			{Order: 1, Title: "Power cycle", Content: "Unplug the router for ten seconds.", Type: models.StepInstruction, EstimatedMinutes: 2},
		},
	}
}

func TestStartSolutionNoSteps(t *testing.T) {
	e := NewEngine()
	out := e.StartSolution("s1", models.Article{ID: "empty"}, ModeProgressive, models.NewContext())
	if out != "No solution steps available for this article." {
		t.Errorf("got %q", out)
	}
	if _, ok := e.Progress("s1"); ok {
		t.Error("no walkthrough should be recorded for an empty article")
	}
}

func TestStartSolutionProgressiveSortsSteps(t *testing.T) {
	e := NewEngine()
	out := e.StartSolution("s1", twoStepArticle(), ModeProgressive, models.NewContext())
	if !strings.Contains(out, "**Step 1 of 2: Power cycle**") {
		t.Errorf("first response should be the lowest-order step, got %q", out)
	}

	progress, ok := e.Progress("s1")
	if !ok {
		t.Fatal("expected an active walkthrough")
	}
	if progress.Steps[0].Order != 1 || progress.Steps[1].Order != 2 {
		t.Errorf("steps not sorted by order: %+v", progress.Steps)
	}
}

func TestStartSolutionAllAtOnce(t *testing.T) {
	e := NewEngine()
	out := e.StartSolution("s1", twoStepArticle(), ModeAllAtOnce, models.NewContext())
	for _, want := range []string{
		"Here are all the steps to resolve your issue:",
		"**Step 1: Power cycle**",
		"**Step 2: Verify the link**",
		"⏱️ Time: 2 minutes",
		"**Total estimated time:** 2 minutes",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("all-at-once response missing %q\ngot: %s", want, out)
		}
	}
}

func TestConfirmStepCompletionAdvancesAndCompletes(t *testing.T) {
	e := NewEngine()
	start := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	current := start
	e.now = func() time.Time { return current }

	e.StartSolution("s1", twoStepArticle(), ModeProgressive, models.NewContext())

	out := e.ConfirmStepCompletion("s1", true, "", models.NewContext())
	if !strings.Contains(out, "**Step 2 of 2: Verify the link**") {
		t.Errorf("success should advance to step 2, got %q", out)
	}
	if !strings.Contains(out, "🎉 This is the final step!") {
		t.Errorf("step 2 should announce it is final, got %q", out)
	}

	current = start.Add(7 * time.Minute)
	out = e.ConfirmStepCompletion("s1", true, "", models.NewContext())
	for _, want := range []string{
		"🎉 **Solution Complete!**",
		"You've completed all 2 steps.",
		"Total time: 7 minutes",
		"Success rate: 100%",
		"Did this resolve your issue?",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("completion summary missing %q\ngot: %s", want, out)
		}
	}
	if _, ok := e.Progress("s1"); ok {
		t.Error("walkthrough record should be dropped after completion")
	}
}

func TestConfirmStepCompletionFailureHoldsPosition(t *testing.T) {
	e := NewEngine()
	article := models.Article{
		ID: "net_002",
		Steps: []models.SolutionStep{
			{Order: 1, Title: "Reset adapter", Content: "Disable and re-enable the adapter.", Type: models.StepTroubleshooting},
			{Order: 2, Title: "Verify", Content: "Check connectivity.", Type: models.StepVerification},
		},
	}
	e.StartSolution("s1", article, ModeProgressive, models.NewContext())

	out := e.ConfirmStepCompletion("s1", false, "still broken", models.NewContext())
	for _, want := range []string{
		"I see that step didn't work as expected.",
		"Let's try an alternative approach:",
		"1. Try this step again",
		"3. Get help from a human agent",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("failure response missing %q\ngot: %s", want, out)
		}
	}

	progress, _ := e.Progress("s1")
	if progress.Index != 0 {
		t.Errorf("failed step should not advance, index = %d", progress.Index)
	}
	outcome, ok := progress.Outcomes[1]
	if !ok || outcome.Success || outcome.Feedback != "still broken" {
		t.Errorf("failure outcome not recorded: %+v", progress.Outcomes)
	}
}

func TestConfirmStepCompletionWithoutWalkthrough(t *testing.T) {
	e := NewEngine()
	if out := e.ConfirmStepCompletion("nobody", true, "", models.NewContext()); out != "No active solution found." {
		t.Errorf("got %q", out)
	}
}

func TestAbandonDropsWalkthrough(t *testing.T) {
	e := NewEngine()
	e.StartSolution("s1", twoStepArticle(), ModeProgressive, models.NewContext())
	e.Abandon("s1")
	if _, ok := e.Progress("s1"); ok {
		t.Error("abandoned walkthrough should be gone")
	}
}
