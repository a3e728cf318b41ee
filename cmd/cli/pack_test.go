package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptfit/promptfit/pkg/compress"
	"github.com/promptfit/promptfit/pkg/output"
	"github.com/promptfit/promptfit/pkg/overrides"
	"github.com/promptfit/promptfit/pkg/promptfit"
)

func TestParseBudget(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantSet bool
		wantErr bool
	}{
		{in: "", wantSet: false},
		{in: "50000", want: 50000, wantSet: true},
		{in: "50,000", want: 50000, wantSet: true},
		{in: "50_000", want: 50000, wantSet: true},
		{in: "50k", want: 50000, wantSet: true},
		{in: "128K", want: 128000, wantSet: true},
		{in: "1.5m", want: 1500000, wantSet: true},
		{in: "2M", want: 2000000, wantSet: true},
		{in: "  10k ", want: 10000, wantSet: true},
		{in: "abc", wantErr: true},
		{in: "-500", wantErr: true},
		{in: "0", wantErr: true},
		{in: "k", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			budget, err := parseBudget(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSet, budget.Set)
			if tt.wantSet {
				assert.Equal(t, tt.want, budget.Tokens)
			}
		})
	}
}

func TestBuildOverrideRules_MostAggressiveFirst(t *testing.T) {
	patterns := map[compress.Level]*[]string{
		compress.LevelNone:   {"README.md", "*.toml"},
		compress.LevelMedium: {"pkg/**"},
		compress.LevelMax:    {"vendor/**"},
	}

	rules := buildOverrideRules(patterns)

	want := []overrides.Rule{
		{Pattern: "vendor/**", Level: compress.LevelMax},
		{Pattern: "pkg/**", Level: compress.LevelMedium},
		{Pattern: "README.md", Level: compress.LevelNone},
		{Pattern: "*.toml", Level: compress.LevelNone},
	}
	assert.Equal(t, want, rules)
}

func TestCollectPatterns_PassesArgsThrough(t *testing.T) {
	patterns, err := collectPatterns([]string{"*.go", "docs/*.md::TODO"})
	require.NoError(t, err)
	assert.Equal(t, []string{"*.go", "docs/*.md::TODO"}, patterns)

	empty, err := collectPatterns(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPackCommand_CountOnly(t *testing.T) {
	double := newTestPromptfit(nil)
	double.countResult = &promptfit.CountResult{
		Files: []promptfit.FileCount{
			{Path: "main.go", Tokens: 500},
			{Path: "pkg/server.go", Tokens: 200},
		},
		Total: 700,
	}

	cmd := newPackCommand(func() promptfit.Promptfit { return double })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--count-only", "--budget", "1k", "*.go"})

	require.NoError(t, cmd.Execute())

	text := out.String()
	assert.Contains(t, text, "main.go: 500 tokens")
	assert.Contains(t, text, "Total files: 2")
	assert.Contains(t, text, "Total tokens: 700")
	assert.Contains(t, text, "Budget: 1,000 tokens")
	assert.Contains(t, text, "Usage: 70.0% of budget")

	require.Len(t, double.countRequests, 1)
	assert.Equal(t, []string{"*.go"}, double.countRequests[0].Include)
	assert.Empty(t, double.packRequests, "count-only must never pack")
}

func TestPackCommand_WritesDocumentAndPlan(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "packed.md")

	double := newTestPromptfit(nil)
	double.packResult = &promptfit.PackResult{
		RunID:          "run-123",
		Document:       "## main.go\n\npackage main\n",
		BaselineTokens: 1000,
		Plan: compress.Plan{
			Files: []compress.FileRecord{
				{Path: "main.go", BaselineTokens: 1000, Level: compress.LevelMedium, RenderedTokens: 400},
			},
			TotalTokens: 400,
			Feasible:    true,
			Rounds:      1,
			Source:      compress.SourceFallback,
		},
	}

	cmd := newPackCommand(func() promptfit.Promptfit { return double })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{
		"--budget", "500",
		"--out", outPath,
		"--no-clipboard",
		"--no-advisory",
		"--medium", "pkg/**",
		"--none", "README.md",
		"*.go",
	})

	require.NoError(t, cmd.Execute())

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, double.packResult.Document, string(written))

	planBytes, err := os.ReadFile(output.PlanPath(outPath))
	require.NoError(t, err)
	assert.Contains(t, string(planBytes), "run_id: run-123")
	assert.Contains(t, string(planBytes), "level: medium")

	require.Len(t, double.packRequests, 1)
	req := double.packRequests[0]
	assert.Equal(t, []string{"*.go"}, req.Include)
	assert.Equal(t, compress.NewBudget(500), req.Budget)
	assert.True(t, req.NoAdvisory)
	assert.Equal(t, []overrides.Rule{
		{Pattern: "pkg/**", Level: compress.LevelMedium},
		{Pattern: "README.md", Level: compress.LevelNone},
	}, req.Overrides)

	text := out.String()
	assert.Contains(t, text, "Packed 1 files")
	assert.Contains(t, text, "Baseline: 1,000 tokens")
	assert.Contains(t, text, "Packed:   400 tokens")
	assert.Contains(t, text, "within budget")
	assert.Contains(t, text, outPath)
}

func TestPackCommand_OverBudgetWarnsOnStderr(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "packed.md")

	double := newTestPromptfit(nil)
	double.packResult = &promptfit.PackResult{
		RunID:          "run-over",
		Document:       "## huge.go\n",
		BaselineTokens: 9000,
		Plan: compress.Plan{
			Files:       []compress.FileRecord{{Path: "huge.go", BaselineTokens: 9000, Level: compress.LevelMax, RenderedTokens: 800}},
			TotalTokens: 800,
			Feasible:    false,
			Rounds:      3,
			Source:      compress.SourceFallback,
		},
	}

	cmd := newPackCommand(func() promptfit.Promptfit { return double })
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--budget", "100", "--out", outPath, "--no-clipboard"})

	require.NoError(t, cmd.Execute())

	assert.Contains(t, stdout.String(), "over budget")
	assert.Contains(t, stderr.String(), "exceeds the budget")
}

func TestPackCommand_InvalidBudget(t *testing.T) {
	double := newTestPromptfit(nil)
	cmd := newPackCommand(func() promptfit.Promptfit { return double })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--budget", "plenty"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid budget")
	assert.Empty(t, double.packRequests)
}

func TestPackCommand_InvalidDefaultLevel(t *testing.T) {
	double := newTestPromptfit(nil)
	cmd := newPackCommand(func() promptfit.Promptfit { return double })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--default-level", "brutal"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Empty(t, double.packRequests)
}
