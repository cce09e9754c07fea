package quality

import (
	"math"
	"testing"
)

func TestCountSentences(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"Hello there. How are you? Fine!", 3},
		{"No terminal punctuation", 1},
		{"Wait... what?!", 2},
		{"", 1},
		{"One. Two. Three.", 3},
	}
	for _, tc := range cases {
		if got := CountSentences(tc.text); got != tc.want {
			t.Errorf("CountSentences(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestSyllablesInWord(t *testing.T) {
	cases := []struct {
		word string
		want int
	}{
		{"it", 1},
		{"fix", 1},
		{"the", 1},
		{"cable", 2},
		{"configure", 3},
		{"printer", 2},
		{"rhythm", 1},
		{"1234", 0},
	}
	for _, tc := range cases {
		if got := syllablesInWord(tc.word); got != tc.want {
			t.Errorf("syllablesInWord(%q) = %d, want %d", tc.word, got, tc.want)
		}
	}
}

func TestFleschReadingEase(t *testing.T) {
	// "Fix it." has 2 words, 1 sentence, 2 syllables:
	// 206.835 - 1.015*2 - 84.6*1 = 120.205
	got := FleschReadingEase("Fix it.")
	if math.Abs(got-120.205) > 0.001 {
		t.Errorf("FleschReadingEase(\"Fix it.\") = %f, want 120.205", got)
	}

	if got := FleschReadingEase(""); got != 0 {
		t.Errorf("FleschReadingEase(\"\") = %f, want 0", got)
	}

	// Dense polysyllabic text must score well below simple text.
	simple := FleschReadingEase("The cat sat on the mat. It was warm.")
	dense := FleschReadingEase("Institutional organizational considerations necessitate comprehensive configurational reevaluation.")
	if dense >= simple {
		t.Errorf("dense text scored %f, expected below simple text %f", dense, simple)
	}
}
