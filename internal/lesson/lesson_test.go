package lesson

import (
	"reflect"
	"strings"
	"testing"
)

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Error("Decode(invalid) should return an error")
	}
}

func TestStripMarkers(t *testing.T) {
	got := StripMarkers("Look! [Beat] A [Emphasis: numerator] sits on top. [Pause]")
	if strings.Contains(got, "[") {
		t.Errorf("StripMarkers left a marker behind: %q", got)
	}
}

func TestSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"single", "The cat sat.", []string{"The cat sat."}},
		{
			"multiple terminators",
			"One half! Is it fair? Yes it is.",
			[]string{"One half!", "Is it fair?", "Yes it is."},
		},
		{
			"trailing fragment",
			"First sentence. And a fragment",
			[]string{"First sentence.", "And a fragment"},
		},
		{
			"decimal point not a boundary",
			"The value is 3.5 exactly.",
			[]string{"The value is 3.5 exactly."},
		},
		{
			"markers stripped first",
			"[Beat] Hello there. [Pause] Goodbye now.",
			[]string{"Hello there.", "Goodbye now."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sentences(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Sentences(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		sentence string
		want     int
	}{
		{"", 0},
		{"The cat sat.", 3},
		{"one - two -- three", 3},
		{"3.5 is a number", 4},
		{"! ? ...", 0},
	}

	for _, tt := range tests {
		if got := CountWords(tt.sentence); got != tt.want {
			t.Errorf("CountWords(%q) = %d, want %d", tt.sentence, got, tt.want)
		}
	}
}

func TestEmphasisTerms_DistinctFirstSeen(t *testing.T) {
	text := "A [Emphasis: numerator] and a [Emphasis: denominator] and the [Emphasis: numerator] again."
	got := EmphasisTerms(text)
	want := []string{"numerator", "denominator"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EmphasisTerms() = %v, want %v", got, want)
	}
}

func TestCountMarkers(t *testing.T) {
	beats, pauses, emphases := CountMarkers("[Beat] one [Pause] two [Beat] [Emphasis: three]")
	if beats != 2 || pauses != 1 || emphases != 1 {
		t.Errorf("CountMarkers() = (%d, %d, %d), want (2, 1, 1)", beats, pauses, emphases)
	}
}

func TestFlattenText_WalksNestedStructures(t *testing.T) {
	c := Content{
		"opening_narration": "Welcome aboard.",
		"narrated_explanation": []any{
			map[string]any{"teacher_explains": "Fractions split wholes."},
		},
		"count": float64(3),
	}
	got := c.FlattenText()
	for _, want := range []string{"Welcome aboard.", "Fractions split wholes."} {
		if !strings.Contains(got, want) {
			t.Errorf("FlattenText() missing %q: %q", want, got)
		}
	}
}

func TestFlattenText_StableOrder(t *testing.T) {
	// Unpunctuated leaves like a bloom level or an activity type merge
	// into neighboring sentences; the merge must land the same way on
	// every call or word counts shift between validation runs.
	c := Content{
		"interactive_activity": map[string]any{
			"type":         "Drag and Drop",
			"bloom_level":  "L3",
			"instructions": "Sort the shapes into two groups.",
		},
		"opening_narration": "Welcome to class.",
	}

	want := "L3 Sort the shapes into two groups. Drag and Drop Welcome to class."
	for i := 0; i < 100; i++ {
		if got := c.FlattenText(); got != want {
			t.Fatalf("FlattenText() call %d = %q, want %q", i, got, want)
		}
	}
}

func TestOpening_StableOrder(t *testing.T) {
	c := Content{
		"opening_narration": map[string]any{
			"line_2": "Second line.",
			"line_1": "First line.",
			"length": float64(2),
		},
	}

	want := "First line. Second line."
	for i := 0; i < 100; i++ {
		if got := c.Opening(); got != want {
			t.Fatalf("Opening() call %d = %q, want %q", i, got, want)
		}
	}
}

func TestAccessors(t *testing.T) {
	c := Content{
		"opening_narration": map[string]any{"text": "Hello class.", "duration": float64(10)},
		"quick_quiz": []any{
			map[string]any{"bloom_level": "l1"},
			map[string]any{"bloom_level": " L2 "},
		},
		"interactive_activity": map[string]any{"type": "Tap to Select", "bloom_level": "L3"},
		"narrated_explanation": []any{
			map[string]any{"teacher_explains": "Part one."},
			map[string]any{"teacher_explains": "Part two."},
		},
	}

	if got := c.Opening(); got != "Hello class." {
		t.Errorf("Opening() = %q, want %q", got, "Hello class.")
	}

	quiz := c.Quiz()
	if len(quiz) != 2 {
		t.Fatalf("Quiz() len = %d, want 2", len(quiz))
	}
	if got := quiz[0].Level("bloom_level"); got != "L1" {
		t.Errorf("Level() = %q, want L1", got)
	}
	if got := quiz[1].Level("bloom_level"); got != "L2" {
		t.Errorf("Level() = %q, want L2", got)
	}

	activity := c.Activity()
	if activity == nil {
		t.Fatal("Activity() = nil, want section")
	}
	if got := activity.Str("type"); got != "Tap to Select" {
		t.Errorf("Str(type) = %q", got)
	}

	if got := c.ExplanationText(); got != "Part one. Part two." {
		t.Errorf("ExplanationText() = %q", got)
	}
}

func TestAccessors_AbsentSections(t *testing.T) {
	c := Content{}
	if c.Quiz() != nil {
		t.Error("Quiz() on empty content should be nil")
	}
	if c.Activity() != nil {
		t.Error("Activity() on empty content should be nil")
	}
	if c.Opening() != "" {
		t.Error("Opening() on empty content should be empty")
	}
	if c.ExplanationText() != "" {
		t.Error("ExplanationText() on empty content should be empty")
	}
	if c.Str("missing") != "" {
		t.Error("Str(missing) should be empty")
	}
}
