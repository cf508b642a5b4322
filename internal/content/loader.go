// Package content loads the course material served by the classbot: class
// sessions with topics and quiz questions, the landing page FAQ, and the
// per-class spreadsheet workbooks.
package content

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"sync"
)

// Paths locates the content files on disk.
type Paths struct {
	ClassData       string
	CourseInfo      string
	WorkbookDir     string
	WorkbookPattern string
}

// Loader loads content once at startup and caches derived prompt context.
type Loader struct {
	classes   []Class
	byKey     map[string]int
	course    CourseInfo
	workbooks *Workbooks

	contexts map[string]string
	mu       sync.RWMutex
}

// NewLoader loads all content from disk.
func NewLoader(p Paths) (*Loader, error) {
	classes, err := LoadClasses(p.ClassData)
	if err != nil {
		return nil, fmt.Errorf("loading classes: %w", err)
	}

	l := &Loader{
		classes:   classes,
		byKey:     make(map[string]int, len(classes)),
		course:    LoadCourseInfo(p.CourseInfo),
		workbooks: NewWorkbooks(p.WorkbookDir, p.WorkbookPattern),
		contexts:  make(map[string]string),
	}
	for i, c := range classes {
		l.byKey[c.Key] = i
	}

	slog.Info("content loaded", "classes", len(l.classes), "faq", len(l.course.FAQ))
	return l, nil
}

// Classes returns all classes ordered by number.
func (l *Loader) Classes() []Class {
	return l.classes
}

// Class returns a class by key.
func (l *Loader) Class(key string) (Class, bool) {
	i, ok := l.byKey[key]
	if !ok {
		return Class{}, false
	}
	return l.classes[i], true
}

// CourseInfo returns the landing page content.
func (l *Loader) CourseInfo() CourseInfo {
	return l.course
}

var classParam = regexp.MustCompile(`(?i)^chapter(\d+)`)

// ClassFromParam maps a deep-link value such as "chapter3" or "Chapter03" to
// the key of a loaded class.
func (l *Loader) ClassFromParam(info string) (string, bool) {
	m := classParam.FindStringSubmatch(info)
	if m == nil {
		return "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	for _, c := range l.classes {
		if c.Number == n {
			return c.Key, true
		}
	}
	return "", false
}

// ClassContext builds the language model context for a class: its topics as
// JSON followed by a description of its workbook. Results are memoised.
func (l *Loader) ClassContext(key string) string {
	l.mu.RLock()
	ctx, ok := l.contexts[key]
	l.mu.RUnlock()
	if ok {
		return ctx
	}

	ctx = l.buildClassContext(key)

	l.mu.Lock()
	l.contexts[key] = ctx
	l.mu.Unlock()
	return ctx
}

func (l *Loader) buildClassContext(key string) string {
	body := "{}"
	number, _ := classNumber(key)
	if c, ok := l.Class(key); ok {
		number = c.Number
		if js, err := indentedJSON(c.raw); err != nil {
			slog.Warn("rendering class context failed", "class", key, "error", err)
		} else {
			body = js
		}
	}

	return "The class session covers the following topics and concepts:\n" + body + "\n\n" +
		l.workbooks.Describe(number)
}
