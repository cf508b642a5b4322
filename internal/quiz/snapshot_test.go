package quiz

import (
	"errors"
	"testing"
)

func sampleQuestions() []Question {
	return []Question{
		{Text: "short", Choices: []Choice{{"A", "x"}, {"B", "y"}}, Correct: "A"},
		{Text: "a much longer question", Choices: []Choice{{"A", "x"}, {"B", "y"}}, Correct: "B"},
	}
}

func TestSnapshot_RoundTripKeepsOrder(t *testing.T) {
	s, err := New(sampleQuestions(), ModeMastery)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.Submit("B"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	snap, ok := s.Snapshot()
	if !ok {
		t.Fatal("Snapshot() reported nothing for an active session")
	}

	restored, err := Restore(snap)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored.Index() != 1 || restored.Score() != 1 {
		t.Errorf("restored index=%d score=%d, want 1/1", restored.Index(), restored.Score())
	}
	q, _ := restored.Current()
	if q.Text != "short" {
		t.Errorf("Current() = %q, want the mastery order to survive restore", q.Text)
	}
	if restored.Feedback() != feedbackCorrect {
		t.Errorf("Feedback() = %q", restored.Feedback())
	}
}

func TestRestore_RejectsBrokenInvariants(t *testing.T) {
	qs := sampleQuestions()
	tests := []struct {
		name string
		snap Snapshot
	}{
		{"no questions", Snapshot{Mode: ModeLearning}},
		{"bad mode", Snapshot{Mode: "other", Questions: qs}},
		{"negative index", Snapshot{Mode: ModeLearning, Questions: qs, Index: -1}},
		{"index past end", Snapshot{Mode: ModeLearning, Questions: qs, Index: 2}},
		{"score above answered", Snapshot{Mode: ModeLearning, Questions: qs, Index: 0, Score: 2}},
		{"negative score", Snapshot{Mode: ModeLearning, Questions: qs, Score: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Restore(tt.snap)
			if !errors.Is(err, ErrInvalidSnapshot) {
				t.Errorf("Restore() error = %v, want ErrInvalidSnapshot", err)
			}
		})
	}
}
