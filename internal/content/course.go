package content

import (
	"log/slog"
	"os"
)

// LoadCourseInfo reads the landing page content. Any read or parse failure
// falls back to a placeholder syllabus with no FAQ.
func LoadCourseInfo(path string) CourseInfo {
	fallback := CourseInfo{SyllabusSummary: syllabusNotFound}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("course info unavailable", "path", path, "error", err)
		return fallback
	}
	root, err := parseDocument(path, data)
	if err != nil {
		slog.Warn("course info unreadable", "path", path, "error", err)
		return fallback
	}

	info := CourseInfo{SyllabusSummary: scalar(lookup(root, "syllabus_summary"))}
	for _, p := range pairs(lookup(root, "answers")) {
		info.FAQ = append(info.FAQ, FAQEntry{Question: p.key, Answer: scalar(p.value)})
	}
	return info
}
