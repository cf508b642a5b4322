// Package agent turns page commands into state changes and rendered views.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/p-n-ai/classbot/internal/ai"
	"github.com/p-n-ai/classbot/internal/chat"
	"github.com/p-n-ai/classbot/internal/content"
	"github.com/p-n-ai/classbot/internal/platform/metrics"
	"github.com/p-n-ai/classbot/internal/quiz"
)

var (
	ErrUnknownClass    = errors.New("unknown class")
	ErrUnknownAction   = errors.New("unknown action")
	ErrNoClassSelected = errors.New("no class selected")
	ErrNoActiveQuiz    = errors.New("no active quiz")
	ErrQuizInProgress  = errors.New("a quiz is in progress")
	ErrEmptyQuestion   = errors.New("question is empty")
)

// Class page actions, in menu order.
const (
	ActionListTopics = "List the topics in this class"
	ActionLearn      = "Learn through quizzing"
	ActionMastery    = "Test for mastery"
	ActionTutorial   = "Get a tutorial on a topic"
)

// Actions lists the class page actions in menu order.
var Actions = []string{ActionListTopics, ActionLearn, ActionMastery, ActionTutorial}

const (
	defaultTemperature = 0.3

	systemPrompt = "You are an AI Teaching Assistant for QRM. Based *only* on the provided context, answer the user's question. If the answer isn't in the context, say so."

	disabledMessage = "Chatbot is disabled due to missing API key."
	budgetMessage   = "You have used up the question allowance for this session. Please come back later."
	noTopics        = "No topics found."
	noSummaries     = "No summaries found."
	noSummary       = "Not available."
	noQuestions     = "There are no quiz questions available for this class."
)

// Content is the read-only course material the engine serves.
type Content interface {
	Classes() []content.Class
	Class(key string) (content.Class, bool)
	CourseInfo() content.CourseInfo
	ClassFromParam(info string) (string, bool)
	ClassContext(key string) string
}

// EngineConfig holds dependencies for the agent engine.
type EngineConfig struct {
	AIRouter    *ai.Router
	Content     Content
	Budget      ai.BudgetChecker // nil means unlimited
	Cache       AnswerCache      // nil disables answer caching
	Events      EventLogger
	Metrics     *metrics.Metrics
	Model       string  // empty lets each provider use its own default
	Temperature float64 // default 0.3
	MaxTokens   int
}

// Engine is the core command processor.
type Engine struct {
	aiRouter    *ai.Router
	content     Content
	budget      ai.BudgetChecker
	cache       AnswerCache
	events      EventLogger
	metrics     *metrics.Metrics
	model       string
	temperature float64
	maxTokens   int
}

// NewEngine creates a new agent engine.
func NewEngine(cfg EngineConfig) *Engine {
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	return &Engine{
		aiRouter:    cfg.AIRouter,
		content:     cfg.Content,
		budget:      cfg.Budget,
		cache:       cfg.Cache,
		events:      events,
		metrics:     cfg.Metrics,
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Handle applies one page command to st and returns the view to render.
// A rejected command normally leaves st untouched, but a corrupt quiz snapshot
// is cleared even when the command then fails. Callers persist st either way.
func (e *Engine) Handle(ctx context.Context, st *State, msg chat.InboundMessage) (View, error) {
	slog.Debug("handling command",
		"session_id", st.ID,
		"type", msg.Type,
		"class", st.ClassKey,
	)

	notice, err := e.dispatch(ctx, st, msg)
	e.metrics.Command(string(msg.Type), err)
	if err != nil {
		return View{}, err
	}

	st.UpdatedAt = time.Now()
	v := e.Render(st)
	v.Notice = notice
	return v, nil
}

func (e *Engine) dispatch(ctx context.Context, st *State, msg chat.InboundMessage) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	switch msg.Type {
	case chat.CommandInit:
		e.handleInit(st, msg.Info)
	case chat.CommandView:
	case chat.CommandHome:
		st.ClassKey = ""
		e.dropQuiz(ctx, st)
	case chat.CommandSelectClass:
		return "", e.handleSelectClass(ctx, st, msg.ClassKey)
	case chat.CommandFAQ:
		e.handleFAQ(ctx, st, msg.Text)
	case chat.CommandAsk:
		return "", e.handleAsk(ctx, st, msg.Text)
	case chat.CommandAction:
		return "", e.handleAction(ctx, st, msg.Action)
	case chat.CommandAnswer:
		return e.handleAnswer(ctx, st, msg.ChoiceLabel())
	case chat.CommandExitQuiz:
		if st.Quiz == nil {
			return "", ErrNoActiveQuiz
		}
		e.dropQuiz(ctx, st)
	}
	return "", nil
}

// handleInit runs once per session and honours a deep link such as
// ?info=chapter3.
func (e *Engine) handleInit(st *State, info string) {
	if st.Initialized {
		return
	}
	st.Initialized = true
	st.ClassKey = ""
	st.Quiz = nil

	if info == "" {
		return
	}
	if key, ok := e.content.ClassFromParam(info); ok {
		st.ClassKey = key
		slog.Info("session opened from deep link", "session_id", st.ID, "class", key)
	}
}

func (e *Engine) handleSelectClass(ctx context.Context, st *State, key string) error {
	if key == "" {
		st.ClassKey = ""
		e.dropQuiz(ctx, st)
		return nil
	}
	if _, ok := e.content.Class(key); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownClass, key)
	}
	if key == st.ClassKey {
		return nil
	}
	st.ClassKey = key
	e.dropQuiz(ctx, st)
	return nil
}

// handleFAQ answers a pre-answered course question. Picking the same question
// twice in a row is ignored.
func (e *Engine) handleFAQ(ctx context.Context, st *State, question string) {
	if question == "" || question == st.LastFAQ {
		return
	}
	st.LastFAQ = question
	answer := e.content.CourseInfo().Answer(question)
	st.appendMain(userMessage(question), assistantMessage(answer))

	e.logEvent(ctx, Event{
		SessionID: st.ID,
		EventType: EventFAQViewed,
		Data:      map[string]any{"question": question},
	})
}

func (e *Engine) handleAsk(ctx context.Context, st *State, text string) error {
	question := strings.TrimSpace(text)
	if question == "" {
		return ErrEmptyQuestion
	}

	if st.ClassKey == "" {
		syllabus := e.content.CourseInfo().SyllabusSummary
		answer := e.complete(ctx, st.ID, ai.TaskCourseQuestion, syllabus, question)
		st.appendMain(userMessage(question), assistantMessage(answer))
	} else {
		if e.quizActive(st) {
			return ErrQuizInProgress
		}
		answer := e.complete(ctx, st.ID, ai.TaskClassQuestion, e.content.ClassContext(st.ClassKey), question)
		st.appendClass(st.ClassKey, userMessage(question), assistantMessage(answer))
	}

	e.logEvent(ctx, Event{
		SessionID: st.ID,
		ClassKey:  st.ClassKey,
		EventType: EventQuestionAsked,
		Data:      map[string]any{"length": len(question)},
	})
	return nil
}

func (e *Engine) handleAction(ctx context.Context, st *State, action string) error {
	if st.ClassKey == "" {
		return ErrNoClassSelected
	}
	if e.quizActive(st) {
		return ErrQuizInProgress
	}
	class, ok := e.content.Class(st.ClassKey)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownClass, st.ClassKey)
	}

	var response string
	switch action {
	case ActionListTopics:
		response = topicList(class)
	case ActionTutorial:
		response = tutorial(class)
	case ActionLearn, ActionMastery:
		mode := quiz.ModeLearning
		if action == ActionMastery {
			mode = quiz.ModeMastery
		}
		response = e.startQuiz(ctx, st, class, mode)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	st.appendClass(st.ClassKey, userMessage(action))
	if response != "" {
		st.appendClass(st.ClassKey, assistantMessage(response))
	}
	return nil
}

func topicList(class content.Class) string {
	names := class.TopicNames()
	if len(names) == 0 {
		return noTopics
	}
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = "* **" + name + "**"
	}
	return "Here are the topics for this class session:\n\n" + strings.Join(lines, "\n")
}

func tutorial(class content.Class) string {
	if len(class.Topics) == 0 {
		return noSummaries
	}
	parts := make([]string, len(class.Topics))
	for i, t := range class.Topics {
		summary := t.Summary
		if summary == "" {
			summary = noSummary
		}
		parts[i] = "**" + t.Name + "** - " + summary
	}
	return "Here is a tutorial summary for each topic:\n\n" + strings.Join(parts, "\n\n")
}

// startQuiz begins a quiz and returns a chat reply only when none could start.
func (e *Engine) startQuiz(ctx context.Context, st *State, class content.Class, mode quiz.Mode) string {
	sess, err := quiz.New(class.Questions(), mode)
	if errors.Is(err, quiz.ErrEmptyQuestionSet) {
		return noQuestions
	}
	if err != nil {
		slog.Error("failed to start quiz", "class", class.Key, "mode", mode, "error", err)
		return noQuestions
	}

	snap, _ := sess.Snapshot()
	snap.Feedback = quiz.StartMessage()
	st.Quiz = &snap

	e.metrics.Quiz(string(mode), "started")
	e.logEvent(ctx, Event{
		SessionID: st.ID,
		ClassKey:  class.Key,
		EventType: EventQuizStarted,
		Data:      map[string]any{"mode": string(mode), "questions": sess.Len()},
	})
	return ""
}

// handleAnswer submits a choice to the active quiz. The completion message is
// returned as a one-off notice because the quiz is gone once it is shown.
func (e *Engine) handleAnswer(ctx context.Context, st *State, label string) (string, error) {
	if st.Quiz == nil {
		return "", ErrNoActiveQuiz
	}
	sess, err := quiz.Restore(*st.Quiz)
	if err != nil {
		slog.Warn("discarding corrupt quiz state", "session_id", st.ID, "error", err)
		st.Quiz = nil
		return "", fmt.Errorf("restore quiz: %w", err)
	}

	index := sess.Index()
	out, err := sess.Submit(label)
	if err != nil {
		return "", err
	}

	mode := string(sess.Mode())
	e.metrics.Answer(mode, out.Correct)
	e.logEvent(ctx, Event{
		SessionID: st.ID,
		ClassKey:  st.ClassKey,
		EventType: EventQuizAnswered,
		Data: map[string]any{
			"mode":     mode,
			"index":    index,
			"choice":   label,
			"correct":  out.Correct,
			"expected": out.CorrectLabel,
		},
	})

	if !out.Done {
		snap, _ := sess.Snapshot()
		st.Quiz = &snap
		return "", nil
	}

	st.Quiz = nil
	e.metrics.Quiz(mode, "completed")
	e.logEvent(ctx, Event{
		SessionID: st.ID,
		ClassKey:  st.ClassKey,
		EventType: EventQuizCompleted,
		Data:      map[string]any{"mode": mode, "score": out.Score, "total": out.Total},
	})
	return out.Feedback, nil
}

// quizActive reports whether st holds a usable quiz, discarding one whose
// snapshot no longer restores.
func (e *Engine) quizActive(st *State) bool {
	if st.Quiz == nil {
		return false
	}
	if _, err := quiz.Restore(*st.Quiz); err != nil {
		slog.Warn("discarding corrupt quiz state", "session_id", st.ID, "error", err)
		st.Quiz = nil
		return false
	}
	return true
}

// dropQuiz discards any active quiz, recording it as exited.
func (e *Engine) dropQuiz(ctx context.Context, st *State) {
	if st.Quiz == nil {
		return
	}
	mode := string(st.Quiz.Mode)
	if sess, err := quiz.Restore(*st.Quiz); err == nil {
		sess.Exit()
	}
	st.Quiz = nil

	e.metrics.Quiz(mode, "exited")
	e.logEvent(ctx, Event{
		SessionID: st.ID,
		ClassKey:  st.ClassKey,
		EventType: EventQuizExited,
		Data:      map[string]any{"mode": mode},
	})
}

// complete answers question from background with the language model. Failures
// become the reply text so they show up in the transcript.
func (e *Engine) complete(ctx context.Context, sessionID string, task ai.TaskType, background, question string) string {
	if e.aiRouter == nil || !e.aiRouter.HasProvider() {
		e.metrics.Completion(task.String(), metrics.CompletionDisabled)
		return disabledMessage
	}

	if e.budget != nil {
		ok, err := e.budget.Check(ctx, sessionID)
		if err != nil {
			slog.Warn("budget check failed, allowing request", "session_id", sessionID, "error", err)
		} else if !ok {
			e.metrics.Completion(task.String(), metrics.CompletionBudget)
			return budgetMessage
		}
	}

	key := CacheKey(e.model, background, question)
	if e.cache != nil {
		answer, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("answer cache lookup failed", "error", err)
		} else if ok {
			e.metrics.Completion(task.String(), metrics.CompletionCached)
			return answer
		}
	}

	resp, err := e.aiRouter.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "CONTEXT:\n" + background + "\n\nUSER'S QUESTION:\n" + question},
		},
		Model:       e.model,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
		Task:        task,
	})
	if err != nil {
		slog.Error("AI completion failed", "task", task.String(), "error", err)
		e.metrics.Completion(task.String(), metrics.CompletionError)
		return fmt.Sprintf("An error occurred: %v", err)
	}
	e.metrics.Completion(task.String(), metrics.CompletionOK)

	if e.budget != nil {
		if err := e.budget.Record(ctx, sessionID, resp.TotalTokens()); err != nil {
			slog.Warn("failed to record token usage", "session_id", sessionID, "error", err)
		}
	}
	if e.cache != nil {
		if err := e.cache.Set(ctx, key, resp.Content); err != nil {
			slog.Warn("answer cache store failed", "error", err)
		}
	}
	return resp.Content
}

func (e *Engine) logEvent(ctx context.Context, event Event) {
	if err := e.events.LogEvent(ctx, event); err != nil {
		slog.Warn("failed to log event", "type", event.EventType, "error", err)
	}
}
