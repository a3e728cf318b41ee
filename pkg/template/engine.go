package template

import (
	"bytes"
	"strings"
	"text/template"
)

// Engine renders prompt templates. Data values may be any type the
// text/template package can print; prompt data mixes strings and ints.
type Engine interface {
	RenderString(templateContent string, data map[string]any) (string, error)
}

// DefaultEngine implements the Engine interface
type DefaultEngine struct {
	funcs template.FuncMap
}

// NewEngine creates a new default template engine
func NewEngine() Engine {
	return &DefaultEngine{
		funcs: template.FuncMap{
			"indent": indent,
			"fence":  fence,
		},
	}
}

// RenderString renders a template string with the provided data
func (e *DefaultEngine) RenderString(templateContent string, data map[string]any) (string, error) {
	tmpl, err := template.New("template").Funcs(e.funcs).Parse(templateContent)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	return buf.String(), err
}

// indent adds the specified number of spaces to the beginning of each line
func indent(spaces int, text string) string {
	prefix := strings.Repeat(" ", spaces)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// fence wraps text in a code fence, growing the fence when the text itself
// contains backtick runs
func fence(text string) string {
	marker := "```"
	for strings.Contains(text, marker) {
		marker += "`"
	}
	return marker + "\n" + text + "\n" + marker
}
