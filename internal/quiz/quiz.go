// Package quiz implements the multiple-choice quiz session used on class pages.
package quiz

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

var (
	// ErrEmptyQuestionSet is returned when a session is started without questions.
	ErrEmptyQuestionSet = errors.New("no quiz questions available")
	// ErrSessionClosed is returned when an answer is submitted to a finished session.
	ErrSessionClosed = errors.New("quiz session is closed")
	// ErrInvalidSnapshot is returned when a snapshot violates session invariants.
	ErrInvalidSnapshot = errors.New("invalid quiz snapshot")
)

// Mode selects how questions are ordered when a session starts.
type Mode string

const (
	ModeLearning Mode = "learning"
	ModeMastery  Mode = "mastery"
)

// ParseMode converts a mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLearning:
		return ModeLearning, nil
	case ModeMastery:
		return ModeMastery, nil
	default:
		return "", fmt.Errorf("unknown quiz mode %q", s)
	}
}

// Choice is one labelled answer option.
type Choice struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question is a single multiple-choice question. Choices keep their source order.
type Question struct {
	Text    string   `json:"question"`
	Choices []Choice `json:"choices"`
	Correct string   `json:"correct"`
}

// Options formats choices the way they are shown to the student ("A: text").
func (q Question) Options() []string {
	opts := make([]string, len(q.Choices))
	for i, c := range q.Choices {
		opts[i] = c.Label + ": " + c.Text
	}
	return opts
}

const (
	feedbackStart     = "Starting the quiz! Here is your first question."
	feedbackCorrect   = "Correct! 🎉 Here is the next question."
	feedbackIncorrect = "Not quite. The correct answer was **%s**. Here is the next question."
	feedbackComplete  = "Quiz complete! Your final score is %d/%d."
)

// StartMessage is the lead-in shown above the first question.
func StartMessage() string { return feedbackStart }

// Outcome describes the result of a single submission.
type Outcome struct {
	Correct      bool
	CorrectLabel string
	Feedback     string
	Done         bool
	Score        int
	Total        int
}

// Session holds the questions, position and running score of one quiz.
type Session struct {
	mode      Mode
	questions []Question
	index     int
	score     int
	feedback  string
	done      bool
}

// New starts a session. Mastery mode orders the questions by descending
// question text length; learning mode keeps the supplied order.
func New(questions []Question, mode Mode) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyQuestionSet
	}
	if mode != ModeLearning && mode != ModeMastery {
		return nil, fmt.Errorf("unknown quiz mode %q", mode)
	}

	qs := slices.Clone(questions)
	if mode == ModeMastery {
		slices.SortStableFunc(qs, func(a, b Question) int {
			return utf8.RuneCountInString(b.Text) - utf8.RuneCountInString(a.Text)
		})
	}

	return &Session{mode: mode, questions: qs}, nil
}

// Submit answers the current question. An empty label means no choice was made
// and is scored as incorrect.
func (s *Session) Submit(label string) (Outcome, error) {
	if s.done {
		return Outcome{}, ErrSessionClosed
	}

	q := s.questions[s.index]
	out := Outcome{
		Correct:      label != "" && label == q.Correct,
		CorrectLabel: q.Correct,
		Total:        len(s.questions),
	}

	if out.Correct {
		s.score++
		s.feedback = feedbackCorrect
	} else {
		s.feedback = fmt.Sprintf(feedbackIncorrect, q.Correct)
	}

	if s.index+1 < len(s.questions) {
		s.index++
	} else {
		s.done = true
		s.feedback = fmt.Sprintf(feedbackComplete, s.score, len(s.questions))
	}

	out.Feedback = s.feedback
	out.Done = s.done
	out.Score = s.score
	return out, nil
}

// Exit ends the session and discards its questions and score.
func (s *Session) Exit() {
	s.done = true
	s.questions = nil
	s.index = 0
	s.score = 0
	s.feedback = ""
}

// Current returns the question awaiting an answer.
func (s *Session) Current() (Question, bool) {
	if s.done {
		return Question{}, false
	}
	return s.questions[s.index], true
}

// Progress returns the 1-based number of the current question and the total,
// or 0, 0 once the session has ended.
func (s *Session) Progress() (int, int) {
	if s.done {
		return 0, 0
	}
	return s.index + 1, len(s.questions)
}

// Mode returns the question ordering the session was started with.
func (s *Session) Mode() Mode { return s.mode }

// Index returns the 0-based position of the current question.
func (s *Session) Index() int { return s.index }

// Score returns the number of correct answers so far.
func (s *Session) Score() int { return s.score }

// Len returns the number of questions in the session.
func (s *Session) Len() int { return len(s.questions) }

// Feedback returns the message for the most recent submission.
func (s *Session) Feedback() string { return s.feedback }

// Done reports whether the session has completed or been exited.
func (s *Session) Done() bool { return s.done }
