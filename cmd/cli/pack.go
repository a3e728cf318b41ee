package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/promptfit/promptfit/pkg/compress"
	"github.com/promptfit/promptfit/pkg/events"
	"github.com/promptfit/promptfit/pkg/fileops"
	"github.com/promptfit/promptfit/pkg/output"
	"github.com/promptfit/promptfit/pkg/overrides"
	"github.com/promptfit/promptfit/pkg/promptfit"
	"github.com/promptfit/promptfit/pkg/render"
	"github.com/spf13/cobra"
)

// packOptions collects every pack flag in one place so runPack stays readable
type packOptions struct {
	budget          string
	defaultLevel    string
	buffer          int
	exclude         []string
	levelPatterns   map[compress.Level]*[]string
	out             string
	planPath        string
	countOnly       bool
	lineNumbers     []string
	strictGlob      bool
	noGitignore     bool
	noClipboard     bool
	preview         bool
	noAdvisory      bool
	plannerModel    string
	summarizerModel string
	encoding        string
	workers         int
	rounds          int
	timeout         time.Duration
}

// newPackCommand creates the pack command backed by a shared promptfit instance
func newPackCommand(provider func() promptfit.Promptfit) *cobra.Command {
	opts := &packOptions{levelPatterns: make(map[compress.Level]*[]string)}

	cmd := &cobra.Command{
		Use:   "pack [patterns...]",
		Short: "Pack matching files into one prompt document",
		Long: `Pack discovers files matching the given glob patterns, compresses each one
to its assigned level, and writes a single document sized for a token budget.

Patterns support recursive matching ("*.go" means "**/*.go" unless
--strict-glob) and content search ("*.py::TODO" selects Python files
containing TODO). With no patterns, every file under the working
directory is considered.

Examples:
  promptfit pack                           # pack the whole tree at the default level
  promptfit pack "*.go" --budget 50k       # fit all Go files into 50,000 tokens
  promptfit pack --none "*.md" --heavy "vendor/*" --budget 120000
  git ls-files | promptfit pack -          # read the file list from stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPack(cmd, args, provider(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.budget, "budget", "b", "", "token budget, e.g. 50000, 50k or 1.5m (no budget: no optimization pass)")
	flags.StringVar(&opts.defaultLevel, "default-level", "trim", "compression level for files no rule covers (none, trim, light, medium, heavy, max)")
	flags.IntVar(&opts.buffer, "buffer", 10, "planning safety margin in percent of the budget")
	flags.StringArrayVarP(&opts.exclude, "exclude", "e", nil, "glob patterns to exclude (repeatable, supports ::content)")

	for _, level := range compress.Levels() {
		target := new([]string)
		opts.levelPatterns[level] = target
		flags.StringArrayVar(target, level.String(), nil,
			fmt.Sprintf("force matching files to the %s level (repeatable)", level))
	}

	flags.StringVarP(&opts.out, "out", "o", output.DefaultDocumentName, "output document path")
	flags.StringVar(&opts.planPath, "plan", "", "plan file path (default <out>.plan.yaml)")
	flags.BoolVar(&opts.countOnly, "count-only", false, "count tokens only, render nothing")
	flags.StringArrayVar(&opts.lineNumbers, "line-numbers", nil, "add line numbers to matching uncompressed files (repeatable)")
	flags.BoolVar(&opts.strictGlob, "strict-glob", false, "match patterns exactly, without recursive expansion")
	flags.BoolVar(&opts.noGitignore, "no-gitignore", false, "do not respect .gitignore")
	flags.BoolVar(&opts.noClipboard, "no-clipboard", false, "do not copy the document to the clipboard")
	flags.BoolVar(&opts.preview, "preview", false, "render the packed document to the terminal")
	flags.BoolVar(&opts.noAdvisory, "no-advisory", false, "skip the advisory model, plan greedily")
	flags.StringVar(&opts.plannerModel, "planner-model", "", "model used for compression planning")
	flags.StringVar(&opts.summarizerModel, "summarizer-model", "", "model used for file compression")
	flags.StringVar(&opts.encoding, "encoding", "", "tiktoken encoding for token counting (default cl100k_base)")
	flags.IntVar(&opts.workers, "workers", render.DefaultWorkers, "concurrent render workers")
	flags.IntVar(&opts.rounds, "rounds", promptfit.DefaultMaxRounds, "refinement round limit")
	flags.DurationVar(&opts.timeout, "timeout", 0, "overall deadline for the run, e.g. 10m")

	return cmd
}

func runPack(cmd *cobra.Command, args []string, p promptfit.Promptfit, opts *packOptions) error {
	patterns, err := collectPatterns(args)
	if err != nil {
		return err
	}

	budget, err := parseBudget(opts.budget)
	if err != nil {
		return err
	}

	defaultLevel, err := compress.ParseLevel(opts.defaultLevel)
	if err != nil {
		return err
	}

	rules := buildOverrideRules(opts.levelPatterns)

	workers := opts.workers
	if !cmd.Flags().Changed("workers") {
		if env := os.Getenv("PROMPTFIT_WORKERS"); env != "" {
			if n, err := strconv.Atoi(env); err == nil && n > 0 {
				workers = n
			}
		}
	}

	req := promptfit.PackRequest{
		Dir:           workingDir,
		Include:       patterns,
		Exclude:       opts.exclude,
		Budget:        budget,
		BufferPercent: opts.buffer,
		DefaultLevel:  defaultLevel,
		Overrides:     rules,
		LineNumbers:   opts.lineNumbers,
		StrictGlob:    opts.strictGlob,
		NoGitignore:   opts.noGitignore,
		NoAdvisory:    opts.noAdvisory,
		MaxRounds:     opts.rounds,
		Workers:       workers,
	}

	ctx := cmd.Context()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	if opts.countOnly {
		return runCount(ctx, cmd, p, req, budget)
	}

	if verbose {
		subscribeProgress(cmd, p.GetEventBus())
	}

	result, err := p.Pack(ctx, req)
	if err != nil {
		return err
	}

	writer := output.NewWriter(fileops.NewFileOpsManager())
	outPath, err := writer.WriteDocument(opts.out, result.Document)
	if err != nil {
		return err
	}

	planPath := opts.planPath
	if planPath == "" {
		planPath = output.PlanPath(opts.out)
	}
	planPath, err = writer.WritePlan(planPath, output.PlanFile{
		RunID:         result.RunID,
		CreatedAt:     time.Now().UTC(),
		WorkingDir:    req.Dir,
		Budget:        budget.Tokens,
		BufferPercent: opts.buffer,
		Plan:          result.Plan,
	})
	if err != nil {
		return err
	}

	p.GetEventBus().Publish(events.PackFinishedEvent{}.Topic(), events.PackFinishedEvent{
		RunID:       result.RunID,
		OutputPath:  outPath,
		TotalTokens: result.Plan.TotalTokens,
		Feasible:    result.Plan.Feasible,
	})

	printPackSummary(cmd, result, budget, outPath, planPath)

	if !opts.noClipboard {
		copyToClipboard(cmd, result.Document)
	}

	if opts.preview && output.IsTerminal(os.Stdout) {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), output.RenderMarkdown(result.Document))
	}

	return nil
}

// collectPatterns resolves positional args into include patterns. A single
// "-" reads newline-separated paths from stdin, one pattern per line.
func collectPatterns(args []string) ([]string, error) {
	if len(args) == 1 && args[0] == "-" {
		if !hasStdinInput() {
			return nil, fmt.Errorf("pack -: stdin is a terminal, pipe a file list in")
		}
		patterns, err := readStdinPaths()
		if err != nil {
			return nil, err
		}
		if len(patterns) == 0 {
			return nil, fmt.Errorf("pack -: stdin carried no paths")
		}
		return patterns, nil
	}
	return args, nil
}

// parseBudget reads a token budget. Digit separators are tolerated and a
// k or m suffix multiplies by a thousand or a million, so "50k", "50_000"
// and "50,000" all mean the same thing.
func parseBudget(s string) (compress.Budget, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return compress.Budget{}, nil
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(strings.ToLower(s), "k"):
		multiplier = 1_000
		s = s[:len(s)-1]
	case strings.HasSuffix(strings.ToLower(s), "m"):
		multiplier = 1_000_000
		s = s[:len(s)-1]
	}

	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || r == '_' {
			return -1
		}
		return r
	}, s)

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value <= 0 {
		return compress.Budget{}, fmt.Errorf("invalid budget %q: want a positive token count like 50000, 50k or 1.5m", s)
	}

	tokens := int(value * multiplier)
	if tokens <= 0 {
		return compress.Budget{}, fmt.Errorf("invalid budget %q: rounds down to zero tokens", s)
	}
	return compress.NewBudget(tokens), nil
}

// buildOverrideRules flattens per-level patterns into an ordered rule list.
// Stronger compression comes first: when one file matches several rules,
// the most aggressive level wins.
func buildOverrideRules(patterns map[compress.Level]*[]string) []overrides.Rule {
	var rules []overrides.Rule
	levels := compress.Levels()
	for i := len(levels) - 1; i >= 0; i-- {
		target := patterns[levels[i]]
		if target == nil {
			continue
		}
		for _, pattern := range *target {
			rules = append(rules, overrides.Rule{Pattern: pattern, Level: levels[i]})
		}
	}
	return rules
}

func runCount(ctx context.Context, cmd *cobra.Command, p promptfit.Promptfit, req promptfit.PackRequest, budget compress.Budget) error {
	result, err := p.Count(ctx, promptfit.CountRequest{
		Dir:         req.Dir,
		Include:     req.Include,
		Exclude:     req.Exclude,
		StrictGlob:  req.StrictGlob,
		NoGitignore: req.NoGitignore,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, file := range result.Files {
		fmt.Fprintf(out, "%s: %s tokens\n", file.Path, output.FormatCount(file.Tokens))
	}
	fmt.Fprintf(out, "\nTotal files: %d\n", len(result.Files))
	fmt.Fprintf(out, "Total tokens: %s\n", output.FormatCount(result.Total))
	if budget.Set {
		fmt.Fprintf(out, "Budget: %s tokens\n", output.FormatCount(budget.Tokens))
		fmt.Fprintf(out, "Usage: %.1f%% of budget\n", float64(result.Total)/float64(budget.Tokens)*100)
	}
	return nil
}

// subscribeProgress streams per-file render progress to stderr while a
// pack run is in flight.
func subscribeProgress(cmd *cobra.Command, bus events.EventBus) {
	errOut := cmd.ErrOrStderr()
	bus.Subscribe(events.RoundStartedEvent{}.Topic(), func(e interface{}) {
		if event, ok := e.(events.RoundStartedEvent); ok {
			fmt.Fprintf(errOut, "round %d: planning %s estimated tokens against %s\n",
				event.Round, output.FormatCount(event.EstimatedTokens), output.FormatCount(event.Budget))
		}
	})
	bus.Subscribe(events.FileRenderedEvent{}.Topic(), func(e interface{}) {
		if event, ok := e.(events.FileRenderedEvent); ok {
			suffix := ""
			if event.FromCache {
				suffix = " (cached)"
			}
			fmt.Fprintf(errOut, "rendered %s at %s: %s tokens%s\n",
				event.Path, event.Level, output.FormatCount(event.Tokens), suffix)
		}
	})
	bus.Subscribe(events.RenderFailedEvent{}.Topic(), func(e interface{}) {
		if event, ok := e.(events.RenderFailedEvent); ok {
			fmt.Fprintf(errOut, "render failed for %s, keeping original: %s\n", event.Path, event.Error)
		}
	})
}

func printPackSummary(cmd *cobra.Command, result *promptfit.PackResult, budget compress.Budget, outPath, planPath string) {
	out := cmd.OutOrStdout()

	failed := 0
	for _, file := range result.Plan.Files {
		if file.RenderFailed {
			failed++
		}
	}

	reduction := 0.0
	if result.BaselineTokens > 0 {
		reduction = (1 - float64(result.Plan.TotalTokens)/float64(result.BaselineTokens)) * 100
	}

	fmt.Fprintf(out, "Packed %d files in %s\n", len(result.Plan.Files), result.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "Baseline: %s tokens\n", output.FormatCount(result.BaselineTokens))
	fmt.Fprintf(out, "Packed:   %s tokens (%.1f%% reduction)\n", output.FormatCount(result.Plan.TotalTokens), reduction)
	if budget.Set {
		verdict := "within budget"
		if !result.Plan.Feasible {
			verdict = "over budget"
		}
		fmt.Fprintf(out, "Budget:   %s tokens (%s, %d rounds)\n", output.FormatCount(budget.Tokens), verdict, result.Plan.Rounds)
	}
	if failed > 0 {
		fmt.Fprintf(out, "Failures: %d files kept at baseline\n", failed)
	}
	fmt.Fprintf(out, "Output:   %s\n", outPath)
	fmt.Fprintf(out, "Plan:     %s\n", planPath)

	if budget.Set && !result.Plan.Feasible {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: the packed document exceeds the budget; raise the budget or force heavier levels")
	}
}

func copyToClipboard(cmd *cobra.Command, document string) {
	clipboard := output.NewClipboard()
	if !clipboard.IsAvailable() {
		return
	}
	if err := clipboard.Copy(document); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: clipboard copy failed: %v\n", err)
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Copied to clipboard")
}
