package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io"

	"github.com/timada-org/hookrelay/internal/core"
)

//go:embed templates/*.html
var templates embed.FS

type PageData struct {
	WsURL string
}

type Renderer struct {
	home *template.Template
	data *template.Template
}

func New() (*Renderer, error) {
	home, err := template.ParseFS(templates, "templates/home.html")
	if err != nil {
		return nil, err
	}

	data, err := template.New("data.html").Funcs(template.FuncMap{
		"inc":    func(i int) int { return i + 1 },
		"indent": indent,
	}).ParseFS(templates, "templates/data.html")
	if err != nil {
		return nil, err
	}

	return &Renderer{home: home, data: data}, nil
}

func (r *Renderer) Page(w io.Writer, data PageData) error {
	return r.home.Execute(w, data)
}

// Rows renders the event log as the HTML fragment pushed to the browser.
func (r *Renderer) Rows(events []core.Event) ([]byte, error) {
	var buf bytes.Buffer

	if err := r.data.Execute(&buf, events); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func indent(raw json.RawMessage) string {
	var buf bytes.Buffer

	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}

	return buf.String()
}
