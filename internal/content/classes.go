package content

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/classbot/internal/quiz"
)

//go:embed schema/classes.schema.json
var classesSchemaJSON []byte

var classesSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(classesSchemaJSON))
})

// LoadClasses reads the class data file. Only chapter_N entries are kept,
// ordered by N. A missing file yields no classes.
func LoadClasses(path string) ([]Class, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("class data file not found", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("read class data: %w", err)
	}

	root, err := parseDocument(path, data)
	if err != nil {
		return nil, fmt.Errorf("class data %s: %w", path, err)
	}
	if err := validateClasses(root); err != nil {
		return nil, fmt.Errorf("class data %s: %w", path, err)
	}

	var classes []Class
	for _, p := range pairs(root) {
		n, ok := classNumber(p.key)
		if !ok {
			if strings.HasPrefix(p.key, classKeyPrefix) {
				slog.Warn("skipping class with non-numeric key", "key", p.key)
			}
			continue
		}
		classes = append(classes, Class{
			Key:    p.key,
			Number: n,
			Topics: parseTopics(p.value),
			raw:    p.value,
		})
	}

	slices.SortStableFunc(classes, func(a, b Class) int { return a.Number - b.Number })
	return classes, nil
}

func validateClasses(root *yaml.Node) error {
	var doc map[string]any
	if err := root.Decode(&doc); err != nil {
		return fmt.Errorf("decode for validation: %w", err)
	}

	schema, err := classesSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	res, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if res.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
}

// classNumber extracts N from "chapter_N" (anything after a further underscore is ignored).
func classNumber(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, classKeyPrefix)
	if !ok {
		return 0, false
	}
	num, _, _ := strings.Cut(rest, "_")
	n, err := strconv.Atoi(num)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func parseTopics(n *yaml.Node) []Topic {
	var topics []Topic
	for _, p := range pairs(n) {
		topics = append(topics, Topic{
			Name:      p.key,
			Summary:   scalar(lookup(p.value, "summary")),
			Questions: parseQuestions(lookup(p.value, "quiz_questions")),
		})
	}
	return topics
}

func parseQuestions(n *yaml.Node) []quiz.Question {
	n = resolve(n)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}

	qs := make([]quiz.Question, 0, len(n.Content))
	for _, item := range n.Content {
		q := quiz.Question{
			Text:    scalar(lookup(item, "question")),
			Correct: scalar(lookup(item, "correct")),
		}
		for _, c := range pairs(lookup(item, "choices")) {
			q.Choices = append(q.Choices, quiz.Choice{Label: c.key, Text: scalar(c.value)})
		}
		qs = append(qs, q)
	}
	return qs
}
