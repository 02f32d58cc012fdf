package server

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"prediction-history/internal/history"
)

// renderer executes the history page templates.
type renderer struct {
	tmpl *template.Template
}

func newRenderer(templates fs.FS) (*renderer, error) {
	t, err := template.New("history").
		Funcs(template.FuncMap{"style": history.Style}).
		ParseFS(templates, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if t.Lookup("layout") == nil || t.Lookup("content") == nil {
		return nil, fmt.Errorf("parse templates: layout or content missing")
	}
	return &renderer{tmpl: t}, nil
}

// render writes the page, buffering so a template error never leaves a half-written response.
func (p *renderer) render(w http.ResponseWriter, page history.Page) error {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("render history page: %w", err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, err := buf.WriteTo(w)
	return err
}
