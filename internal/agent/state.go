package agent

import (
	"time"

	"github.com/p-n-ai/classbot/internal/quiz"
)

// Message is one entry of a chat transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// State is everything the page remembers for one browser session. Handlers
// receive it explicitly and mutate it; the caller persists it afterwards.
type State struct {
	ID            string               `json:"id"`
	Initialized   bool                 `json:"initialized"`
	ClassKey      string               `json:"class_key,omitempty"` // empty on the landing page
	MainMessages  []Message            `json:"main_messages,omitempty"`
	ClassMessages map[string][]Message `json:"class_messages,omitempty"`
	LastFAQ       string               `json:"last_faq,omitempty"`
	Quiz          *quiz.Snapshot       `json:"quiz,omitempty"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// NewState creates an empty session state.
func NewState(id string) *State {
	return &State{
		ID:            id,
		ClassMessages: make(map[string][]Message),
	}
}

// Transcript returns the chat messages of a class.
func (s *State) Transcript(classKey string) []Message {
	return s.ClassMessages[classKey]
}

func (s *State) appendClass(classKey string, msgs ...Message) {
	if s.ClassMessages == nil {
		s.ClassMessages = make(map[string][]Message)
	}
	s.ClassMessages[classKey] = append(s.ClassMessages[classKey], msgs...)
}

func (s *State) appendMain(msgs ...Message) {
	s.MainMessages = append(s.MainMessages, msgs...)
}

func userMessage(content string) Message      { return Message{Role: "user", Content: content} }
func assistantMessage(content string) Message { return Message{Role: "assistant", Content: content} }
