package promptfit

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/promptfit/promptfit/pkg/advisory"
	"github.com/promptfit/promptfit/pkg/compress"
	"github.com/promptfit/promptfit/pkg/discover"
	"github.com/promptfit/promptfit/pkg/events"
	"github.com/promptfit/promptfit/pkg/fileops"
	"github.com/promptfit/promptfit/pkg/logging"
	"github.com/promptfit/promptfit/pkg/output"
	"github.com/promptfit/promptfit/pkg/overrides"
	"github.com/promptfit/promptfit/pkg/planner"
	"github.com/promptfit/promptfit/pkg/render"
	"github.com/promptfit/promptfit/pkg/tokens"
)

// core wires the pipeline stages together. Every dependency comes in
// through the constructor so tests can swap in doubles.
type core struct {
	finder   discover.Finder
	counter  tokens.Counter
	renderer render.Renderer
	cache    *render.Cache
	advisor  advisory.Service
	fileOps  fileops.Manager
	eventBus events.EventBus
	logger   logging.Logger
}

// New assembles a Promptfit from its parts. A nil advisor disables the
// advisory planning path; a nil cache disables render caching.
func New(
	finder discover.Finder,
	counter tokens.Counter,
	renderer render.Renderer,
	cache *render.Cache,
	advisor advisory.Service,
	fileOps fileops.Manager,
	eventBus events.EventBus,
) Promptfit {
	return &core{
		finder:   finder,
		counter:  counter,
		renderer: renderer,
		cache:    cache,
		advisor:  advisor,
		fileOps:  fileOps,
		eventBus: eventBus,
		logger:   logging.NewComponentLogger("promptfit"),
	}
}

var _ Promptfit = (*core)(nil)

func (c *core) GetEventBus() events.EventBus {
	return c.eventBus
}

// Pack runs the full pipeline. Rounds are strictly sequential: plan,
// render, measure, and only re-plan when the measured total still misses
// the budget. Levels never come back down within a run.
func (c *core) Pack(ctx context.Context, req PackRequest) (*PackResult, error) {
	started := time.Now()
	req = req.withDefaults()

	runID := uuid.New().String()
	c.eventBus.Publish(events.PackStartedEvent{}.Topic(), events.PackStartedEvent{
		RunID:      runID,
		WorkingDir: req.Dir,
		Patterns:   req.Include,
	})

	records, contents, err := c.collect(ctx, req.Dir, discover.Options{
		Include:     req.Include,
		Exclude:     req.Exclude,
		StrictGlob:  req.StrictGlob,
		NoGitignore: req.NoGitignore,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoFiles
	}

	baseline := 0
	for _, rec := range records {
		baseline += rec.BaselineTokens
	}
	c.eventBus.Publish(events.FilesDiscoveredEvent{}.Topic(), events.FilesDiscoveredEvent{
		RunID:          runID,
		FileCount:      len(records),
		BaselineTokens: baseline,
	})

	if err := applyOverrides(req.Overrides, records); err != nil {
		return nil, err
	}

	// The planner aims below the requested ceiling; feasibility is
	// always judged against what the user actually asked for.
	effective := req.Budget.Buffered(req.BufferPercent)

	pl := c.newPlanner(req)
	agg := render.NewAggregator(c.renderer, c.counter,
		render.WithWorkers(req.Workers),
		render.WithCache(c.cache),
		render.WithPublisher(runID, c.eventBus),
	)

	maxRounds := req.MaxRounds
	if !req.Budget.Set {
		maxRounds = 1
	}

	texts := make(map[string]string, len(records))
	var source compress.PlanSource
	rounds := 0
	for round := 1; round <= maxRounds; round++ {
		rounds = round
		c.eventBus.Publish(events.RoundStartedEvent{}.Topic(), events.RoundStartedEvent{
			RunID:           runID,
			Round:           round,
			Budget:          effective.Tokens,
			EstimatedTokens: compress.TotalTokens(records),
		})

		src, err := pl.PlanRound(ctx, records, effective)
		if err != nil {
			return nil, err
		}
		source = src

		rendered, err := agg.RenderAll(ctx, records, contents)
		if err != nil {
			return nil, err
		}
		for p, text := range rendered {
			texts[p] = text
		}

		if !req.Budget.Set {
			break
		}
		total := compress.TotalTokens(records)
		if total <= req.Budget.Tokens {
			break
		}
		if !canEscalate(records) {
			c.logger.Warn("budget unreachable, every free file is at max",
				"total", total, "budget", req.Budget.Tokens)
			break
		}
		c.logger.Debug("rendered total over budget, refining",
			"round", round, "total", total, "budget", req.Budget.Tokens)
	}

	total := compress.TotalTokens(records)
	feasible := !req.Budget.Set || total <= req.Budget.Tokens
	plan := compress.Plan{
		Files:       snapshot(records),
		TotalTokens: total,
		Feasible:    feasible,
		Rounds:      rounds,
		Source:      source,
	}

	c.eventBus.Publish(events.PlanReadyEvent{}.Topic(), events.PlanReadyEvent{
		RunID:       runID,
		Source:      string(source),
		Feasible:    feasible,
		TotalTokens: total,
		Rounds:      rounds,
	})

	doc := buildDocument(req, records, texts, contents, plan, baseline)

	return &PackResult{
		RunID:          runID,
		Plan:           plan,
		Document:       doc,
		BaselineTokens: baseline,
		Elapsed:        time.Since(started),
	}, nil
}

// Count is the dry half of Pack: discovery and baseline counting only.
func (c *core) Count(ctx context.Context, req CountRequest) (*CountResult, error) {
	dir := req.Dir
	if dir == "" {
		dir = "."
	}
	records, _, err := c.collect(ctx, dir, discover.Options{
		Include:     req.Include,
		Exclude:     req.Exclude,
		StrictGlob:  req.StrictGlob,
		NoGitignore: req.NoGitignore,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoFiles
	}

	result := &CountResult{Files: make([]FileCount, 0, len(records))}
	for _, rec := range records {
		result.Files = append(result.Files, FileCount{Path: rec.Path, Tokens: rec.BaselineTokens})
		result.Total += rec.BaselineTokens
	}
	return result, nil
}

// Inspect renders one file at one level and diffs it against the
// original.
func (c *core) Inspect(ctx context.Context, req InspectRequest) (*InspectResult, error) {
	if !req.Level.IsValid() {
		return nil, fmt.Errorf("invalid compression level %d", int(req.Level))
	}
	data, err := c.fileOps.ReadFile(req.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.Path, err)
	}
	content := string(data)

	rendered, err := c.renderer.Render(ctx, req.Path, content, req.Level)
	if err != nil {
		return nil, err
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(content),
		B:        difflib.SplitLines(rendered),
		FromFile: req.Path,
		ToFile:   fmt.Sprintf("%s (%s)", req.Path, req.Level),
		Context:  3,
	})
	if err != nil {
		return nil, err
	}

	return &InspectResult{
		Path:           req.Path,
		Level:          req.Level,
		BaselineTokens: c.counter.Count(content),
		RenderedTokens: c.counter.Count(rendered),
		Rendered:       rendered,
		Diff:           diff,
	}, nil
}

// collect discovers files, reads them and counts their baselines.
// Unreadable files are logged and dropped rather than failing the run.
func (c *core) collect(ctx context.Context, dir string, opts discover.Options) ([]*compress.FileRecord, map[string]string, error) {
	paths, err := c.finder.Find(dir, opts)
	if err != nil {
		return nil, nil, err
	}

	records := make([]*compress.FileRecord, 0, len(paths))
	contents := make(map[string]string, len(paths))
	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		data, err := c.fileOps.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			c.logger.Warn("skipping unreadable file", "path", rel, "error", err)
			continue
		}
		text := string(data)
		records = append(records, &compress.FileRecord{
			Path:           rel,
			BaselineTokens: c.counter.Count(text),
		})
		contents[rel] = text
	}
	return records, contents, nil
}

func (c *core) newPlanner(req PackRequest) *planner.Planner {
	opts := []planner.Option{
		planner.WithDefaultLevel(req.DefaultLevel),
	}
	if c.advisor != nil && !req.NoAdvisory {
		opts = append(opts, planner.WithAdvisor(c.advisor))
	}
	return planner.New(opts...)
}

func (r PackRequest) withDefaults() PackRequest {
	if r.Dir == "" {
		r.Dir = "."
	}
	if r.MaxRounds <= 0 {
		r.MaxRounds = DefaultMaxRounds
	}
	if r.Workers <= 0 {
		r.Workers = render.DefaultWorkers
	}
	return r
}

// applyOverrides forces levels from the rules and pins files too small
// to be worth compressing. Override rules beat pinning.
func applyOverrides(rules []overrides.Rule, records []*compress.FileRecord) error {
	paths := make([]string, len(records))
	for i, rec := range records {
		paths[i] = rec.Path
	}
	forced, err := overrides.Resolve(rules, paths)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if level, ok := forced[rec.Path]; ok {
			rec.Level = level
			rec.Forced = true
			continue
		}
		if rec.BaselineTokens <= compress.MinRenderedTokens {
			rec.Pinned = true
		}
	}
	return nil
}

func canEscalate(records []*compress.FileRecord) bool {
	for _, rec := range records {
		if rec.Free() && rec.Level != compress.LevelMax {
			return true
		}
	}
	return false
}

func snapshot(records []*compress.FileRecord) []compress.FileRecord {
	files := make([]compress.FileRecord, len(records))
	for i, rec := range records {
		files[i] = *rec
	}
	return files
}

// buildDocument assembles the packed output in discovery order. Line
// numbering applies only to uncompressed code files matching one of the
// requested patterns. The gutter is added after token accounting, so it
// never counts against the budget.
func buildDocument(req PackRequest, records []*compress.FileRecord, texts, contents map[string]string, plan compress.Plan, baseline int) string {
	entries := make([]output.Entry, 0, len(records))
	for _, rec := range records {
		content, ok := texts[rec.Path]
		if !ok {
			content = contents[rec.Path]
		}
		if rec.Level == compress.LevelNone && !rec.RenderFailed &&
			wantsLineNumbers(req.LineNumbers, rec.Path) && !render.IsDocPath(rec.Path) {
			content = output.AddLineNumbers(content)
		}
		entries = append(entries, output.Entry{
			Path:           rec.Path,
			Level:          rec.Level,
			BaselineTokens: rec.BaselineTokens,
			RenderedTokens: rec.RenderedTokens,
			RenderFailed:   rec.RenderFailed,
			Content:        content,
		})
	}

	return output.BuildDocument(entries, output.Stats{
		Files:          len(entries),
		BaselineTokens: baseline,
		PackedTokens:   plan.TotalTokens,
		Budget:         req.Budget,
		Feasible:       plan.Feasible,
	})
}

func wantsLineNumbers(patterns []string, rel string) bool {
	base := path.Base(rel)
	for _, p := range patterns {
		if overrides.Match(p, rel) || overrides.Match(p, base) {
			return true
		}
	}
	return false
}
