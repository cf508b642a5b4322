package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/p-n-ai/classbot/internal/agent"
)

//go:embed templates/page.html
var templateFS embed.FS

//go:embed static
var staticAssets embed.FS

var (
	pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html"))
	staticFS     = mustSub(staticAssets, "static")
)

type pageData struct {
	View     agent.View
	ViewJSON template.JS
}

func renderPage(w io.Writer, view agent.View) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encoding view: %w", err)
	}
	return pageTemplate.Execute(w, pageData{
		View:     view,
		ViewJSON: template.JS(raw),
	})
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
