// Package metrics exposes Prometheus counters for the classbot.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "classbot"

// Completion results.
const (
	CompletionOK       = "ok"
	CompletionError    = "error"
	CompletionCached   = "cached"
	CompletionDisabled = "disabled"
	CompletionBudget   = "over_budget"
)

// Metrics holds the application counters. A nil *Metrics records nothing.
type Metrics struct {
	commands    *prometheus.CounterVec
	answers     *prometheus.CounterVec
	quizzes     *prometheus.CounterVec
	completions *prometheus.CounterVec
	gatherer    prometheus.Gatherer
}

// New creates the counters and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Page commands handled, by command type and result.",
		}, []string{"command", "result"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quiz_answers_total",
			Help:      "Quiz answers submitted, by mode and correctness.",
		}, []string{"mode", "correct"}),
		quizzes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quizzes_total",
			Help:      "Quiz sessions by mode and lifecycle event.",
		}, []string{"mode", "event"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_completions_total",
			Help:      "Language model answers, by task and result.",
		}, []string{"task", "result"}),
		gatherer: reg,
	}
	reg.MustRegister(m.commands, m.answers, m.quizzes, m.completions)
	return m
}

// Command records a handled page command.
func (m *Metrics) Command(command string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.commands.WithLabelValues(command, result).Inc()
}

// Answer records a submitted quiz answer.
func (m *Metrics) Answer(mode string, correct bool) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(mode, strconv.FormatBool(correct)).Inc()
}

// Quiz records a quiz lifecycle event ("started", "completed", "exited").
func (m *Metrics) Quiz(mode, event string) {
	if m == nil {
		return
	}
	m.quizzes.WithLabelValues(mode, event).Inc()
}

// Completion records the outcome of a language model request.
func (m *Metrics) Completion(task, result string) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(task, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
