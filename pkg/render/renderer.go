// Package render turns file content into its compressed form at a given
// compression level and totals the result. The none level is an identity,
// trim is a local whitespace pass, and everything above goes through a
// language model with a level-specific prompt.
package render

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/promptfit/promptfit/pkg/ai"
	"github.com/promptfit/promptfit/pkg/compress"
	"github.com/promptfit/promptfit/pkg/logging"
	"github.com/promptfit/promptfit/pkg/prompts"
)

// docExtensions selects the documentation prompt family instead of the
// code one.
var docExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".rst":      true,
	".txt":      true,
	".adoc":     true,
	".asciidoc": true,
	".org":      true,
	".pod":      true,
}

// RenderError reports a failed render of a single file. The aggregator
// recovers from it by substituting the file's original content.
type RenderError struct {
	Path  string
	Level compress.Level
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s at %s: %v", e.Path, e.Level, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Renderer produces the compressed form of one file.
type Renderer interface {
	Render(ctx context.Context, path, content string, level compress.Level) (string, error)
}

// RenderFunc adapts a function to the Renderer interface.
type RenderFunc func(ctx context.Context, path, content string, level compress.Level) (string, error)

// Render implements Renderer
func (f RenderFunc) Render(ctx context.Context, path, content string, level compress.Level) (string, error) {
	return f(ctx, path, content, level)
}

// PromptRenderer renders through a prompt executor. Prompt choice depends
// on the level and on whether the file looks like documentation.
type PromptRenderer struct {
	executor prompts.Executor
	logger   logging.Logger
}

// NewPromptRenderer creates a renderer backed by a prompt executor
func NewPromptRenderer(executor prompts.Executor, logger logging.Logger) *PromptRenderer {
	if logger == nil {
		logger = logging.NewComponentLogger("render")
	}
	return &PromptRenderer{executor: executor, logger: logger}
}

var _ Renderer = (*PromptRenderer)(nil)

// Render implements Renderer
func (r *PromptRenderer) Render(ctx context.Context, path, content string, level compress.Level) (string, error) {
	switch level {
	case compress.LevelNone:
		return content, nil
	case compress.LevelTrim:
		return TrimText(content), nil
	}

	promptName := shrinkPromptName(path, level)
	result, err := r.executor.Execute(ctx, promptName, false, ai.Attr{Key: "code", Value: content})
	if err != nil {
		return "", &RenderError{Path: path, Level: level, Err: err}
	}
	if strings.TrimSpace(result) == "" {
		return "", &RenderError{Path: path, Level: level, Err: fmt.Errorf("model returned empty content")}
	}
	return result, nil
}

// IsDocPath reports whether a path is rendered with the documentation
// prompt family instead of the code one. Callers also use it to decide
// which files are eligible for line numbering.
func IsDocPath(path string) bool {
	return docExtensions[strings.ToLower(filepath.Ext(path))]
}

func shrinkPromptName(path string, level compress.Level) string {
	kind := "code"
	if IsDocPath(path) {
		kind = "doc"
	}
	return fmt.Sprintf("shrink_%s_%s", kind, level)
}

// TrimText is the deterministic trim pass: trailing whitespace goes, runs
// of blank lines collapse to one, and the text loses leading and trailing
// blank lines. It never calls out to a model.
func TrimText(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))

	blanks := 0
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			blanks++
			if blanks > 1 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, trimmed)
	}

	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}

	return strings.Join(out, "\n")
}
