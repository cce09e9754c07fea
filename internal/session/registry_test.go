package session

import (
	"errors"
	"testing"
	"time"

	"github.com/BTreeMap/DeskPipe/internal/models"
	"github.com/BTreeMap/DeskPipe/internal/store"
)

// fixedClock returns a registry whose clock the test controls.
func fixedClock(r *Registry, start time.Time) *time.Time {
	current := start
	r.now = func() time.Time { return current }
	return &current
}

func TestStartSessionDuplicate(t *testing.T) {
	r := NewRegistry(nil)

	if _, err := r.StartSession("s1", "u1"); err != nil {
		t.Fatalf("first StartSession: %v", err)
	}
	if _, err := r.StartSession("s1", "u1"); !errors.Is(err, ErrDuplicateSession) {
		t.Fatalf("second StartSession err = %v, want ErrDuplicateSession", err)
	}
}

func TestStartSessionSeedsContextFromProfile(t *testing.T) {
	profiles := store.NewInMemoryStore()
	if err := profiles.SaveProfile(store.UserProfile{
		UserID:         "u1",
		Preferences:    map[string]any{"contact_method": "chat"},
		PreviousIssues: []store.IssueRecord{{ArticleID: "net_001", Resolved: true}},
		PreferredLevel: string(models.LevelExpert),
	}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	r := NewRegistry(profiles)
	sess, err := r.StartSession("s1", "u1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if sess.Context.TechnicalLevel != models.LevelExpert {
		t.Errorf("level = %q, want expert", sess.Context.TechnicalLevel)
	}
	if sess.Context.Preferences["contact_method"] != "chat" {
		t.Errorf("preferences not seeded: %+v", sess.Context.Preferences)
	}
	if len(sess.Context.PreviousIssues) != 1 || sess.Context.PreviousIssues[0] != "net_001" {
		t.Errorf("previous issues not seeded: %+v", sess.Context.PreviousIssues)
	}
	if sess.State != models.StateInitial {
		t.Errorf("state = %q, want initial", sess.State)
	}
}

func TestStartSessionCreatesProfileForNewUser(t *testing.T) {
	profiles := store.NewInMemoryStore()
	r := NewRegistry(profiles)

	if _, err := r.StartSession("s1", "fresh"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	profile, err := profiles.GetProfile("fresh")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile == nil {
		t.Fatal("expected a profile to be created for a new user")
	}
}

func TestAddTurnUnknownSession(t *testing.T) {
	r := NewRegistry(nil)
	if r.AddTurn("missing", models.SpeakerUser, "hello", nil) {
		t.Error("AddTurn on unknown session should return false")
	}
}

func TestAddTurnInfersContext(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.StartSession("s1", "u1"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	r.AddTurn("s1", models.SpeakerUser, "I edited the registry and it's still broken", nil)
	ctx, ok := r.Context("s1")
	if !ok {
		t.Fatal("Context: session missing")
	}
	if ctx.TechnicalLevel != models.LevelExpert {
		t.Errorf("level = %q, want expert", ctx.TechnicalLevel)
	}

	r.AddTurn("s1", models.SpeakerUser, "this is really frustrating", nil)
	ctx, _ = r.Context("s1")
	if ctx.Emotion != models.EmotionFrustrated {
		t.Errorf("emotion = %q, want frustrated", ctx.Emotion)
	}
	// A neutral follow-up keeps the previous inference.
	r.AddTurn("s1", models.SpeakerUser, "ok what next", nil)
	ctx, _ = r.Context("s1")
	if ctx.TechnicalLevel != models.LevelExpert || ctx.Emotion != models.EmotionFrustrated {
		t.Errorf("neutral turn should not reset context, got %+v", ctx)
	}
}

func TestAddTurnStateTransitions(t *testing.T) {
	tests := []struct {
		name string
		kind models.ResponseKind
		want models.ConversationState
	}{
		{"question gathers info", models.KindQuestion, models.StateGatheringInfo},
		{"article presents solution", models.KindArticle, models.StatePresentingSolution},
		{"step presents solution", models.KindStep, models.StatePresentingSolution},
		{"escalation terminates", models.KindEscalation, models.StateEscalated},
		{"clarification keeps state", models.KindClarification, models.StateInitial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(nil)
			if _, err := r.StartSession("s1", "u1"); err != nil {
				t.Fatalf("StartSession: %v", err)
			}
			r.AddTurn("s1", models.SpeakerBot, "response", &models.TurnMetadata{Kind: tt.kind})
			state, _ := r.State("s1")
			if state != tt.want {
				t.Errorf("state = %q, want %q", state, tt.want)
			}
		})
	}
}

func TestBotTurnsCountAndTerminalStateFrozen(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.StartSession("s1", "u1"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	r.AddTurn("s1", models.SpeakerBot, "a", &models.TurnMetadata{Kind: models.KindEscalation})
	r.AddTurn("s1", models.SpeakerBot, "b", &models.TurnMetadata{Kind: models.KindArticle})

	state, _ := r.State("s1")
	if state != models.StateEscalated {
		t.Errorf("terminal state should not change, got %q", state)
	}
	ctx, _ := r.Context("s1")
	if ctx.BotTurns != 2 {
		t.Errorf("bot turns = %d, want 2", ctx.BotTurns)
	}
}

func TestHistoryLastN(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.StartSession("s1", "u1"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	for _, msg := range []string{"one", "two", "three", "four"} {
		r.AddTurn("s1", models.SpeakerUser, msg, nil)
	}

	all := r.History("s1", 0)
	if len(all) != 4 {
		t.Fatalf("full history length = %d, want 4", len(all))
	}
	last2 := r.History("s1", 2)
	if len(last2) != 2 || last2[0].Message != "three" || last2[1].Message != "four" {
		t.Errorf("last-2 history wrong: %+v", last2)
	}
	if r.History("missing", 0) != nil {
		t.Error("history of unknown session should be nil")
	}
}

func TestShouldEscalatePriority(t *testing.T) {
	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	t.Run("emotional distress outranks complex issue", func(t *testing.T) {
		r := NewRegistry(nil)
		clock := fixedClock(r, base)
		if _, err := r.StartSession("s1", "u1"); err != nil {
			t.Fatalf("StartSession: %v", err)
		}
		r.AddTurn("s1", models.SpeakerUser, "I'm so frustrated with this", nil)
		for i := 0; i < 4; i++ {
			r.AddTurn("s1", models.SpeakerBot, "reply", &models.TurnMetadata{Kind: models.KindClarification})
		}
		// Also old enough for the complex-issue trigger; priority must win.
		*clock = base.Add(25 * time.Minute)

		esc, reason := r.ShouldEscalate("s1")
		if !esc || reason != models.ReasonEmotionalDistress {
			t.Errorf("got (%v, %q), want (true, emotional_distress)", esc, reason)
		}
	})

	t.Run("repeated failures", func(t *testing.T) {
		r := NewRegistry(nil)
		if _, err := r.StartSession("s1", "u1"); err != nil {
			t.Fatalf("StartSession: %v", err)
		}
		for i := 0; i < 3; i++ {
			r.RecordSolutionFailure("s1")
		}
		esc, reason := r.ShouldEscalate("s1")
		if !esc || reason != models.ReasonRepeatedFailure {
			t.Errorf("got (%v, %q), want (true, repeated_failure)", esc, reason)
		}
	})

	t.Run("old unresolved session is complex", func(t *testing.T) {
		r := NewRegistry(nil)
		clock := fixedClock(r, base)
		if _, err := r.StartSession("s1", "u1"); err != nil {
			t.Fatalf("StartSession: %v", err)
		}
		*clock = base.Add(21 * time.Minute)
		esc, reason := r.ShouldEscalate("s1")
		if !esc || reason != models.ReasonComplexIssue {
			t.Errorf("got (%v, %q), want (true, complex_issue)", esc, reason)
		}
	})

	t.Run("completed session never escalates on age", func(t *testing.T) {
		r := NewRegistry(nil)
		clock := fixedClock(r, base)
		if _, err := r.StartSession("s1", "u1"); err != nil {
			t.Fatalf("StartSession: %v", err)
		}
		r.Complete("s1")
		*clock = base.Add(time.Hour)
		esc, _ := r.ShouldEscalate("s1")
		if esc {
			t.Error("completed session should not escalate")
		}
	})

	t.Run("fresh session stays put", func(t *testing.T) {
		r := NewRegistry(nil)
		if _, err := r.StartSession("s1", "u1"); err != nil {
			t.Fatalf("StartSession: %v", err)
		}
		esc, reason := r.ShouldEscalate("s1")
		if esc || reason != "" {
			t.Errorf("got (%v, %q), want (false, \"\")", esc, reason)
		}
	})
}

func TestCleanupExpiredSessions(t *testing.T) {
	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	profiles := store.NewInMemoryStore()
	r := NewRegistry(profiles)
	clock := fixedClock(r, base)

	if _, err := r.StartSession("stale", "u1"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	r.AddTurn("stale", models.SpeakerBot, "article", &models.TurnMetadata{Kind: models.KindArticle, ArticleID: "net_001"})
	r.Complete("stale")

	*clock = base.Add(29 * time.Minute)
	if _, err := r.StartSession("active", "u2"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	*clock = base.Add(31 * time.Minute)
	removed := r.CleanupExpiredSessions(DefaultSessionTimeout)
	if len(removed) != 1 || removed[0] != "stale" {
		t.Fatalf("removed = %v, want [stale]", removed)
	}
	if _, ok := r.State("stale"); ok {
		t.Error("stale session should be gone")
	}
	if _, ok := r.State("active"); !ok {
		t.Error("active session should survive")
	}

	profile, err := profiles.GetProfile("u1")
	if err != nil || profile == nil {
		t.Fatalf("GetProfile: %v, %v", profile, err)
	}
	if profile.TotalSessions != 1 || profile.SuccessfulSessions != 1 {
		t.Errorf("session counters = %d/%d, want 1/1", profile.TotalSessions, profile.SuccessfulSessions)
	}
	if len(profile.PreviousIssues) != 1 || profile.PreviousIssues[0].ArticleID != "net_001" || !profile.PreviousIssues[0].Resolved {
		t.Errorf("issue record wrong: %+v", profile.PreviousIssues)
	}

	// A second sweep finds nothing new.
	if again := r.CleanupExpiredSessions(DefaultSessionTimeout); len(again) != 0 {
		t.Errorf("second sweep removed %v, want none", again)
	}
}

func TestUpdateAndReadPreferences(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.UpdatePreferences("u1", map[string]any{"contact_method": "email"}); err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	prefs := r.Preferences("u1")
	if prefs["contact_method"] != "email" {
		t.Errorf("preferences not stored: %+v", prefs)
	}
	if got := r.Preferences("nobody"); len(got) != 0 {
		t.Errorf("unknown user should yield empty preferences, got %+v", got)
	}
}
