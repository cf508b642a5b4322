package content

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/classbot/internal/quiz"
)

const classKeyPrefix = "chapter_"

// Topic is one topic of a class session.
type Topic struct {
	Name      string
	Summary   string
	Questions []quiz.Question
}

// Class is a class session loaded from the class data file.
type Class struct {
	Key    string
	Number int
	Topics []Topic

	raw *yaml.Node
}

// Label returns the sidebar label, e.g. "Class 03".
func (c Class) Label() string {
	return fmt.Sprintf("Class %02d", c.Number)
}

// TopicNames returns topic names in file order.
func (c Class) TopicNames() []string {
	names := make([]string, len(c.Topics))
	for i, t := range c.Topics {
		names[i] = t.Name
	}
	return names
}

// Questions returns every quiz question of the class, topic by topic.
func (c Class) Questions() []quiz.Question {
	var qs []quiz.Question
	for _, t := range c.Topics {
		qs = append(qs, t.Questions...)
	}
	return qs
}

// FAQEntry is a pre-answered course question.
type FAQEntry struct {
	Question string
	Answer   string
}

// CourseInfo holds the landing page content.
type CourseInfo struct {
	SyllabusSummary string
	FAQ             []FAQEntry
}

const (
	syllabusNotFound = "Syllabus not found."
	noFAQAnswer      = "I don't have an answer for that."
)

// Questions returns FAQ questions in file order.
func (ci CourseInfo) Questions() []string {
	qs := make([]string, len(ci.FAQ))
	for i, e := range ci.FAQ {
		qs[i] = e.Question
	}
	return qs
}

// Answer looks up a pre-answered question.
func (ci CourseInfo) Answer(question string) string {
	for _, e := range ci.FAQ {
		if e.Question == question {
			return e.Answer
		}
	}
	return noFAQAnswer
}
