// Package promptfit is the library face of the tool: discover files,
// plan a compression level per file against a token budget, render the
// compressed forms, and assemble everything into one packed document.
package promptfit

import (
	"context"
	"errors"
	"time"

	"github.com/promptfit/promptfit/pkg/compress"
	"github.com/promptfit/promptfit/pkg/events"
	"github.com/promptfit/promptfit/pkg/overrides"
)

// DefaultMaxRounds bounds the plan-render-measure refinement loop.
const DefaultMaxRounds = 3

// ErrNoFiles is returned when discovery matches nothing usable.
var ErrNoFiles = errors.New("no files matched the given patterns")

// Promptfit packs a directory of source files into a single prompt
// document that fits a token budget.
type Promptfit interface {
	// Pack runs the full pipeline: discover, plan, render, assemble.
	Pack(ctx context.Context, req PackRequest) (*PackResult, error)
	// Count discovers files and reports their baseline token counts
	// without rendering anything or calling a model.
	Count(ctx context.Context, req CountRequest) (*CountResult, error)
	// Inspect renders a single file at a chosen level and diffs it
	// against the original, for tuning levels and prompts.
	Inspect(ctx context.Context, req InspectRequest) (*InspectResult, error)
	// GetEventBus exposes the bus progress events are published on.
	GetEventBus() events.EventBus
}

// PackRequest describes one pack run. The zero value packs the current
// directory, keeps every file uncompressed and writes no budget
// constraint into the plan.
type PackRequest struct {
	// Dir is the directory to pack. Empty means the current directory.
	Dir string
	// Include selects files; empty means every text file. Bare patterns
	// match at any depth unless StrictGlob is set, and the
	// "GLOB::REGEX" form also requires the content to match.
	Include []string
	// Exclude removes files selected by Include.
	Exclude []string
	// Budget is the token ceiling. Absent means no optimization pass:
	// every free file gets DefaultLevel.
	Budget compress.Budget
	// BufferPercent shrinks the budget the planner aims at, as a safety
	// margin against estimate drift. Zero means plan against the full
	// budget.
	BufferPercent int
	// DefaultLevel applies to free files when no budget is set. The
	// zero value keeps files uncompressed.
	DefaultLevel compress.Level
	// Overrides force levels onto matching files, first match wins.
	Overrides []overrides.Rule
	// LineNumbers lists patterns of files that get a line-number gutter
	// in the output. Only uncompressed code files are eligible.
	LineNumbers []string
	// StrictGlob keeps patterns as written instead of rewriting them to
	// match at any depth.
	StrictGlob bool
	// NoGitignore disables .gitignore filtering during discovery.
	NoGitignore bool
	// NoAdvisory skips the advisory service so planning is fully
	// deterministic.
	NoAdvisory bool
	// MaxRounds caps the refinement loop. Zero means DefaultMaxRounds.
	MaxRounds int
	// Workers is the render concurrency. Zero picks the default.
	Workers int
}

// PackResult is the outcome of a pack run. Document is the assembled
// output; Plan records what happened to every file.
type PackResult struct {
	RunID          string
	Plan           compress.Plan
	Document       string
	BaselineTokens int
	Elapsed        time.Duration
}

// CountRequest selects files for a token count, mirroring the discovery
// half of PackRequest.
type CountRequest struct {
	Dir         string
	Include     []string
	Exclude     []string
	StrictGlob  bool
	NoGitignore bool
}

// FileCount is one file's baseline token count.
type FileCount struct {
	Path   string
	Tokens int
}

// CountResult lists per-file counts in discovery order plus the total.
type CountResult struct {
	Files []FileCount
	Total int
}

// InspectRequest renders one file at one level.
type InspectRequest struct {
	Path  string
	Level compress.Level
}

// InspectResult carries the rendered content, its token accounting and a
// unified diff against the original.
type InspectResult struct {
	Path           string
	Level          compress.Level
	BaselineTokens int
	RenderedTokens int
	Rendered       string
	Diff           string
}
