package ai

import (
	"context"
	"strings"

	"github.com/promptfit/promptfit/pkg/template"
)

// Gen is the seam between the tool and a language model backend. Both the
// advisory planner and the file summarizer talk through it, so tests can
// substitute a scripted mock.
type Gen interface {
	GenerateContent(ctx context.Context, p Prompt, debug bool, args ...string) (string, error)
	GenerateContentAttr(ctx context.Context, p Prompt, debug bool, attrs []Attr) (string, error)
	GetStatus() *Status
}

// An Attr is a key-value pair.
type Attr struct {
	Key   string
	Value string
}

// Prompt is a renderable request to a model. Instruction and Text may
// contain Go template placeholders filled from attrs at call time.
type Prompt struct {
	Name        string  `yaml:"name"`
	Instruction string  `yaml:"instruction"`
	Text        string  `yaml:"text"`
	ModelName   string  `yaml:"model_name"`
	MaxTokens   int32   `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// Status reports which backend a client resolved to
type Status struct {
	Connected bool
	Backend   string
	Model     string
	Message   string
}

// RenderPrompt takes a base prompt and renders it with the given data.
func RenderPrompt(base Prompt, data map[string]string) (Prompt, error) {
	engine := template.NewEngine()

	templateData := make(map[string]any, len(data))
	for k, v := range data {
		templateData[k] = v
	}

	renderedText, err := engine.RenderString(base.Text, templateData)
	if err != nil {
		return Prompt{}, err
	}

	renderedInstruction, err := engine.RenderString(base.Instruction, templateData)
	if err != nil {
		return Prompt{}, err
	}

	rendered := base
	rendered.Text = renderedText
	rendered.Instruction = renderedInstruction
	return rendered, nil
}

// StringsToAttr maps a flat key/value string slice to an Attr slice
func StringsToAttr(attrs []string) []Attr {
	if len(attrs)%2 != 0 {
		panic("attrs must have an even number of elements")
	}
	var result []Attr
	for i := 0; i < len(attrs); i += 2 {
		result = append(result, Attr{attrs[i], attrs[i+1]})
	}
	return result
}

// AttrsToMap converts an Attr slice to a map
func AttrsToMap(attrs []Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		m[attr.Key] = attr.Value
	}
	return m
}

// StripMarkdownFence removes a surrounding code fence from model output.
// Models often wrap summaries and JSON in ``` fences even when told not to.
func StripMarkdownFence(content string) string {
	lines := strings.Split(content, "\n")

	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	if start < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[start]), "```") {
		start++
	}

	end := len(lines) - 1
	for end >= start && strings.TrimSpace(lines[end]) == "" {
		end--
	}
	if end >= start && strings.HasPrefix(strings.TrimSpace(lines[end]), "```") {
		end--
	}

	if end < start {
		return ""
	}
	return strings.Join(lines[start:end+1], "\n")
}
