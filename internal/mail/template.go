package mail

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
)

//go:embed templates/newsletter.html
var defaultTemplate string

// Renderer fills the reply template. The template sees .GominContent (the
// worry as received) and .Message (the advice).
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the template at path, or the built-in one when path is empty.
func NewRenderer(path string) (*Renderer, error) {
	src := defaultTemplate
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read template: %w", err)
		}
		src = string(b)
	}
	tmpl, err := template.New("reply").Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) Render(worry, advice string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		GominContent string
		Message      string
	}{worry, advice}
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render reply: %w", err)
	}
	return buf.String(), nil
}
