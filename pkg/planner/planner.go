// Package planner decides which compression level every file receives so
// that the rendered total fits inside a token budget. Forced files keep
// their levels; everything else is fair game.
//
// Planning is layered: a cheap check that skips compression entirely when
// the codebase already fits, an advisory proposal from a language model,
// and a deterministic greedy escalation used whenever the advisory path
// is unavailable, times out or returns something invalid.
package planner

import (
	"context"

	"github.com/promptfit/promptfit/pkg/advisory"
	"github.com/promptfit/promptfit/pkg/compress"
	"github.com/promptfit/promptfit/pkg/logging"
)

// Planner assigns compression levels to file records in place.
type Planner struct {
	advisor      advisory.Service
	defaultLevel compress.Level
	logger       logging.Logger
}

// Option configures a Planner
type Option func(*Planner)

// WithAdvisor attaches an advisory service. Without one the planner is
// fully deterministic.
func WithAdvisor(advisor advisory.Service) Option {
	return func(p *Planner) {
		p.advisor = advisor
	}
}

// WithDefaultLevel sets the level applied to free files when no budget is
// given. Defaults to trim.
func WithDefaultLevel(level compress.Level) Option {
	return func(p *Planner) {
		p.defaultLevel = level
	}
}

// WithLogger overrides the default logger
func WithLogger(logger logging.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

// New creates a Planner
func New(opts ...Option) *Planner {
	p := &Planner{
		defaultLevel: compress.LevelTrim,
		logger:       logging.NewComponentLogger("planner"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PlanRound runs one planning pass over the records, raising levels as
// needed. Levels never go down: on refinement rounds the pass continues
// from wherever the previous round left the records. The returned source
// names which strategy produced the assignment. The only error returned
// is cancellation.
func (p *Planner) PlanRound(ctx context.Context, files []*compress.FileRecord, budget compress.Budget) (compress.PlanSource, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	free := freeFiles(files)

	if !budget.Set {
		for _, f := range free {
			setLevel(f, p.defaultLevel)
		}
		p.logger.Debug("no budget, applied default level", "level", p.defaultLevel, "files", len(free))
		return compress.SourceDefault, nil
	}

	if len(free) == 0 {
		return compress.SourceCheap, nil
	}

	if allAtNone(free) && cheapCost(files) <= budget.Tokens {
		p.logger.Debug("baseline fits budget, no compression needed",
			"baseline", cheapCost(files), "budget", budget.Tokens)
		return compress.SourceCheap, nil
	}

	if p.advisor != nil {
		if p.tryAdvisory(ctx, files, free, budget) {
			return compress.SourceAdvisory, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}

	escalate(files, budget.Tokens)
	return compress.SourceFallback, nil
}

// tryAdvisory submits the problem to the advisory service and applies the
// proposal when it validates and its estimate fits. Any failure along the
// way just reports false; the caller falls back to the greedy strategy.
func (p *Planner) tryAdvisory(ctx context.Context, files, free []*compress.FileRecord, budget compress.Budget) bool {
	headroom := budget.Tokens - forcedCost(files)
	if headroom <= 0 {
		p.logger.Warn("forced files alone exceed the budget, skipping advisory",
			"forced", forcedCost(files), "budget", budget.Tokens)
		return false
	}

	problem := buildProblem(files, headroom)
	proposal, err := p.advisor.Propose(ctx, problem)
	if err != nil {
		p.logger.Warn("advisory proposal failed, using fallback", "error", err)
		return false
	}

	assignment, err := advisory.Validate(problem, proposal)
	if err != nil {
		p.logger.Warn("advisory proposal rejected, using fallback", "error", err)
		return false
	}

	estimate := forcedCost(files)
	for _, f := range free {
		// A file keeping its level keeps its measured cost; only raised
		// files fall back to the nominal estimate.
		if assignment[f.Path] == f.Level {
			estimate += f.EffectiveTokens()
		} else {
			estimate += compress.EstimateTokens(f.BaselineTokens, assignment[f.Path])
		}
	}
	if estimate > budget.Tokens {
		p.logger.Warn("advisory plan exceeds budget, using fallback",
			"estimate", estimate, "budget", budget.Tokens)
		return false
	}

	for _, f := range free {
		setLevel(f, assignment[f.Path])
	}
	p.logger.Debug("advisory plan accepted", "estimate", estimate, "budget", budget.Tokens)
	return true
}

func buildProblem(files []*compress.FileRecord, headroom int) advisory.Problem {
	problem := advisory.Problem{Budget: headroom}
	for _, f := range files {
		info := advisory.FileInfo{
			Path:     f.Path,
			Baseline: f.BaselineTokens,
			Level:    f.Level,
			Pinned:   f.Pinned,
		}
		if f.Free() {
			problem.Free = append(problem.Free, info)
		} else {
			problem.Fixed = append(problem.Fixed, info)
		}
	}
	return problem
}

func freeFiles(files []*compress.FileRecord) []*compress.FileRecord {
	var free []*compress.FileRecord
	for _, f := range files {
		if f.Free() {
			free = append(free, f)
		}
	}
	return free
}

func allAtNone(files []*compress.FileRecord) bool {
	for _, f := range files {
		if f.Level != compress.LevelNone {
			return false
		}
	}
	return true
}

// cheapCost is the baseline cost of the free files plus the estimated
// cost of the forced files at their forced levels.
func cheapCost(files []*compress.FileRecord) int {
	total := 0
	for _, f := range files {
		if f.Free() {
			total += f.BaselineTokens
		} else {
			total += f.EstimatedTokens()
		}
	}
	return total
}

func forcedCost(files []*compress.FileRecord) int {
	total := 0
	for _, f := range files {
		if !f.Free() {
			total += f.EffectiveTokens()
		}
	}
	return total
}

// setLevel assigns a level and invalidates any previous render. Levels
// only move up.
func setLevel(f *compress.FileRecord, level compress.Level) {
	if level <= f.Level {
		return
	}
	f.Level = level
	f.RenderedTokens = 0
	f.RenderFailed = false
}
