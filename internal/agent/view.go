package agent

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/p-n-ai/classbot/internal/quiz"
)

// Page kinds.
const (
	PageLanding = "landing"
	PageClass   = "class"
	PageQuiz    = "quiz"
)

const (
	landingTitle       = "Welcome to the iQRM Coursebot!"
	landingIntro       = "You can ask general questions about the course below, or select a class from the menu on the left to begin."
	landingPlaceholder = "Ask me questions about the course..."
)

// View is everything the page needs to draw itself.
type View struct {
	Page        string        `json:"page"`
	Title       string        `json:"title"`
	Intro       string        `json:"intro,omitempty"`
	Sidebar     []ClassOption `json:"sidebar"`
	Messages    []Message     `json:"messages"`
	FAQ         []string      `json:"faq,omitempty"`
	Actions     []string      `json:"actions,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
	Quiz        *QuizView     `json:"quiz,omitempty"`
	Notice      string        `json:"notice,omitempty"` // shown once, e.g. the final quiz score
}

// ClassOption is one entry of the class picker.
type ClassOption struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// QuizView is the quiz form.
type QuizView struct {
	Heading      string   `json:"heading"`
	ProgressText string   `json:"progress_text"`
	Progress     float64  `json:"progress"`
	Feedback     string   `json:"feedback"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
}

// Render builds the view for the current state without changing it.
func (e *Engine) Render(st *State) View {
	v := View{
		Sidebar:  e.sidebar(st.ClassKey),
		Messages: []Message{},
	}

	class, ok := e.content.Class(st.ClassKey)
	if st.ClassKey == "" || !ok {
		v.Page = PageLanding
		v.Title = landingTitle
		v.Intro = landingIntro
		v.Placeholder = landingPlaceholder
		v.FAQ = e.content.CourseInfo().Questions()
		if len(st.MainMessages) > 0 {
			v.Messages = st.MainMessages
		}
		return v
	}

	v.Title = fmt.Sprintf("Welcome to iQRM Classbot %02d", class.Number)
	if st.Quiz != nil {
		// A corrupt snapshot shows the class page; the next command discards it.
		if qv := quizView(st.Quiz); qv != nil {
			v.Page = PageQuiz
			v.Quiz = qv
			return v
		}
	}

	v.Page = PageClass
	if msgs := st.Transcript(st.ClassKey); len(msgs) > 0 {
		v.Messages = msgs
	}
	v.Actions = Actions
	v.Placeholder = fmt.Sprintf("Ask Classbot %02d something else...", class.Number)
	return v
}

func (e *Engine) sidebar(selected string) []ClassOption {
	classes := e.content.Classes()
	opts := make([]ClassOption, len(classes))
	for i, c := range classes {
		opts[i] = ClassOption{Key: c.Key, Label: c.Label(), Selected: c.Key == selected}
	}
	return opts
}

func quizView(snap *quiz.Snapshot) *QuizView {
	total := len(snap.Questions)
	if total == 0 || snap.Index < 0 || snap.Index >= total {
		return nil
	}
	q := snap.Questions[snap.Index]
	feedback := snap.Feedback
	if feedback == "" {
		feedback = quiz.StartMessage()
	}
	return &QuizView{
		Heading:      "Quiz Mode: " + cases.Title(language.English).String(string(snap.Mode)),
		ProgressText: fmt.Sprintf("Question %d of %d", snap.Index+1, total),
		Progress:     float64(snap.Index+1) / float64(total),
		Feedback:     feedback,
		Question:     q.Text,
		Options:      q.Options(),
	}
}
