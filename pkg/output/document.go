// Package output assembles the packed prompt document and its plan
// sidecar, and gets them to where the user wants them: disk, clipboard,
// or a rendered terminal preview.
package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/promptfit/promptfit/pkg/compress"
)

// Entry is one file section of the packed document.
type Entry struct {
	Path           string
	Level          compress.Level
	BaselineTokens int
	RenderedTokens int
	RenderFailed   bool
	Content        string
}

// Stats feeds the trailing summary block of the document.
type Stats struct {
	Files          int
	BaselineTokens int
	PackedTokens   int
	Budget         compress.Budget
	Feasible       bool
}

// BuildDocument renders the full packed document: one "## path" section
// per file with its token accounting, separated by horizontal rules,
// followed by a run summary.
func BuildDocument(entries []Entry, stats Stats) string {
	var sb strings.Builder
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n\n---\n\n")
		}
		writeSection(&sb, e)
	}
	sb.WriteString("\n\n---\n\n")
	writeSummary(&sb, stats)
	return sb.String()
}

func writeSection(sb *strings.Builder, e Entry) {
	fmt.Fprintf(sb, "## %s\n", e.Path)

	switch {
	case e.RenderFailed:
		fmt.Fprintf(sb, "**Original:** %s tokens | **Render failed, preserved as-is**\n\n",
			FormatCount(e.BaselineTokens))
	case e.Level == compress.LevelNone:
		fmt.Fprintf(sb, "**Original:** %s tokens | **Preserved as-is (none)**\n\n",
			FormatCount(e.BaselineTokens))
	default:
		reduction := 0.0
		if e.BaselineTokens > 0 {
			reduction = float64(e.BaselineTokens-e.RenderedTokens) / float64(e.BaselineTokens) * 100
		}
		fmt.Fprintf(sb, "**Original:** %s tokens | **Compressed:** %s tokens (%.1f%% actual compression, %s)\n\n",
			FormatCount(e.BaselineTokens), FormatCount(e.RenderedTokens), reduction, e.Level)
	}

	sb.WriteString(e.Content)
}

func writeSummary(sb *strings.Builder, stats Stats) {
	reduction := 0.0
	if stats.BaselineTokens > 0 {
		reduction = float64(stats.BaselineTokens-stats.PackedTokens) / float64(stats.BaselineTokens) * 100
	}
	fmt.Fprintf(sb, "**Files:** %d | **Original:** %s tokens | **Packed:** %s tokens (%.1f%% reduction)\n",
		stats.Files, FormatCount(stats.BaselineTokens), FormatCount(stats.PackedTokens), reduction)

	if stats.Budget.Set {
		verdict := "within budget"
		if !stats.Feasible {
			verdict = "over budget"
		}
		fmt.Fprintf(sb, "**Budget:** %s tokens | %s\n", FormatCount(stats.Budget.Tokens), verdict)
	}
}

// AddLineNumbers prefixes each line with a right-aligned number and a
// gutter separator so a model reading the packed file can cite exact
// locations.
func AddLineNumbers(content string) string {
	lines := strings.Split(content, "\n")
	width := len(strconv.Itoa(len(lines)))

	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%*d│ %s", width, i+1, line)
	}
	return sb.String()
}

// FormatCount renders n with thousands separators, e.g. 48210 -> "48,210".
func FormatCount(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	var sb strings.Builder
	sb.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		sb.WriteByte(',')
		sb.WriteString(s[i : i+3])
	}
	return sb.String()
}
