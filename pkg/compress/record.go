package compress

// MinRenderedTokens is the floor for any compressed rendering. A summary
// cannot usefully shrink below this size, so estimates never go under it
// (except for files that were already smaller).
const MinRenderedTokens = 100

// EstimateTokens is the nominal cost model: the expected token count of a
// file with the given baseline after rendering at the given level. Estimates
// never exceed the baseline and, for compressed levels, never drop below
// MinRenderedTokens unless the file itself is smaller.
func EstimateTokens(baseline int, level Level) int {
	if baseline < 0 {
		baseline = 0
	}

	switch level {
	case LevelNone:
		return baseline
	case LevelMax:
		if baseline < MinRenderedTokens {
			return baseline
		}
		return MinRenderedTokens
	default:
		calculated := baseline * level.RetainPercent() / 100
		if calculated < MinRenderedTokens {
			calculated = MinRenderedTokens
		}
		if calculated > baseline {
			calculated = baseline
		}
		return calculated
	}
}

// FileRecord tracks one discovered file through planning and rendering.
// Path is the unique key; BaselineTokens is set once at discovery and never
// changes. RenderedTokens is zero until the aggregator has rendered the file.
type FileRecord struct {
	Path           string `yaml:"path"`
	BaselineTokens int    `yaml:"baseline_tokens"`
	Level          Level  `yaml:"level"`
	Forced         bool   `yaml:"forced,omitempty"`
	Pinned         bool   `yaml:"pinned,omitempty"`
	RenderedTokens int    `yaml:"rendered_tokens,omitempty"`
	RenderFailed   bool   `yaml:"render_failed,omitempty"`
}

// Free reports whether the planner may choose this file's level. Forced
// files carry a user override; pinned files are too small to compress.
func (f FileRecord) Free() bool {
	return !f.Forced && !f.Pinned
}

// EstimatedTokens returns the nominal cost of this file at its current level.
func (f FileRecord) EstimatedTokens() int {
	return EstimateTokens(f.BaselineTokens, f.Level)
}

// EffectiveTokens returns the actual rendered count when one exists, falling
// back to the nominal estimate. Refinement rounds use this as the base cost.
func (f FileRecord) EffectiveTokens() int {
	if f.RenderedTokens > 0 {
		return f.RenderedTokens
	}
	return f.EstimatedTokens()
}

// Budget is a token ceiling. The zero value means no budget was requested:
// files get the default level and no optimization pass runs.
type Budget struct {
	Tokens int
	Set    bool
}

// NewBudget returns a present budget of the given size.
func NewBudget(tokens int) Budget {
	return Budget{Tokens: tokens, Set: true}
}

// Buffered returns the budget reduced by a safety margin so estimate drift
// does not blow the real ceiling. An absent budget is returned unchanged.
func (b Budget) Buffered(percent int) Budget {
	if !b.Set {
		return b
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 99 {
		percent = 99
	}
	return Budget{Tokens: b.Tokens * (100 - percent) / 100, Set: true}
}

// PlanSource records which planning path produced the final assignment.
type PlanSource string

const (
	// SourceDefault marks a run without a budget: default level everywhere.
	SourceDefault PlanSource = "default"
	// SourceCheap marks a plan where everything fit uncompressed.
	SourceCheap PlanSource = "cheap"
	// SourceAdvisory marks a plan whose levels came from the advisory service.
	SourceAdvisory PlanSource = "advisory"
	// SourceFallback marks a plan from the deterministic greedy escalation.
	SourceFallback PlanSource = "fallback"
)

// Plan is a settled assignment: every input file exactly once, each with a
// level, plus the recomputed total.
type Plan struct {
	Files       []FileRecord `yaml:"files"`
	TotalTokens int          `yaml:"total_tokens"`
	Feasible    bool         `yaml:"feasible"`
	Rounds      int          `yaml:"rounds"`
	Source      PlanSource   `yaml:"source"`
}

// RecomputeTotal derives TotalTokens from the files from scratch. Totals are
// never patched incrementally; call this after any level or render change.
func (p *Plan) RecomputeTotal() {
	total := 0
	for i := range p.Files {
		total += p.Files[i].EffectiveTokens()
	}
	p.TotalTokens = total
}

// TotalTokens sums the effective cost of all files.
func TotalTokens(files []*FileRecord) int {
	total := 0
	for _, f := range files {
		total += f.EffectiveTokens()
	}
	return total
}

// TotalEstimate sums the nominal cost of all files at their current levels,
// ignoring any rendered counts.
func TotalEstimate(files []*FileRecord) int {
	total := 0
	for _, f := range files {
		total += f.EstimatedTokens()
	}
	return total
}
