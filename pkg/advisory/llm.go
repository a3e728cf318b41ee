package advisory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/promptfit/promptfit/pkg/ai"
	"github.com/promptfit/promptfit/pkg/compress"
	"github.com/promptfit/promptfit/pkg/logging"
	"github.com/promptfit/promptfit/pkg/prompts"
)

const defaultProposeTimeout = 120 * time.Second

// LLMService implements Service on top of a prompt executor. One Propose
// call is one model round trip; there is no retry loop here because the
// planner's fallback already covers failures.
type LLMService struct {
	executor prompts.Executor
	timeout  time.Duration
	logger   logging.Logger
}

// Option configures an LLMService
type Option func(*LLMService)

// WithTimeout overrides the per-proposal timeout
func WithTimeout(timeout time.Duration) Option {
	return func(s *LLMService) {
		s.timeout = timeout
	}
}

// WithLogger overrides the default logger
func WithLogger(logger logging.Logger) Option {
	return func(s *LLMService) {
		s.logger = logger
	}
}

// NewLLMService creates an advisory service backed by a prompt executor
func NewLLMService(executor prompts.Executor, opts ...Option) *LLMService {
	s := &LLMService{
		executor: executor,
		timeout:  defaultProposeTimeout,
		logger:   logging.NewComponentLogger("advisory"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Service = (*LLMService)(nil)

// Propose submits the problem to the model and parses its reply.
func (s *LLMService) Propose(ctx context.Context, problem Problem) (Proposal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.logger.Debug("requesting compression proposal",
		"files", len(problem.Free), "budget", problem.Budget)

	raw, err := s.executor.Execute(ctx, "planner", false, problemAttrs(problem)...)
	if err != nil {
		return nil, fmt.Errorf("advisory proposal failed: %w", err)
	}

	proposal, err := parseProposal(raw)
	if err != nil {
		return nil, fmt.Errorf("advisory proposal unreadable: %w", err)
	}
	return proposal, nil
}

func problemAttrs(problem Problem) []ai.Attr {
	total := 0
	var files strings.Builder
	for _, f := range problem.Free {
		total += f.Baseline
		fmt.Fprintf(&files, "%s - %d tokens (currently %s)\n", f.Path, f.Baseline, f.Level)
	}

	return []ai.Attr{
		{Key: "count", Value: fmt.Sprintf("%d", len(problem.Free))},
		{Key: "total", Value: fmt.Sprintf("%d", total)},
		{Key: "budget", Value: fmt.Sprintf("%d", problem.Budget)},
		{Key: "fixed", Value: fixedSection(problem.Fixed)},
		{Key: "files", Value: strings.TrimRight(files.String(), "\n")},
	}
}

func fixedSection(fixed []FileInfo) string {
	if len(fixed) == 0 {
		return ""
	}

	fixedTokens := 0
	for _, f := range fixed {
		fixedTokens += compress.EstimateTokens(f.Baseline, f.Level)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- Fixed compression files: %d files using %d tokens\n", len(fixed), fixedTokens)
	b.WriteString("\nFiles with user-specified compression (DO NOT include in your plan):\n")
	for _, f := range fixed {
		fmt.Fprintf(&b, "%s - %d tokens at %s compression\n", f.Path, f.Baseline, f.Level)
	}
	return b.String()
}

type proposalDoc struct {
	Files []struct {
		Path  string         `yaml:"path"`
		Level compress.Level `yaml:"level"`
	} `yaml:"files"`
}

// parseProposal decodes the model's YAML reply. A path listed twice is a
// malformed reply, not a tie to break.
func parseProposal(raw string) (Proposal, error) {
	var doc proposalDoc
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	if len(doc.Files) == 0 {
		return nil, fmt.Errorf("no files in reply")
	}

	proposal := make(Proposal, len(doc.Files))
	for _, f := range doc.Files {
		path := strings.TrimSpace(f.Path)
		if path == "" {
			return nil, fmt.Errorf("entry with empty path")
		}
		if _, dup := proposal[path]; dup {
			return nil, fmt.Errorf("file %q listed twice", path)
		}
		proposal[path] = f.Level
	}
	return proposal, nil
}
