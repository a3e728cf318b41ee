package planner

import (
	"sort"

	"github.com/promptfit/promptfit/pkg/compress"
)

// escalate drives the free files toward the budget one step at a time:
// among the files not yet at max, the one at the currently-lowest level
// is stepped one level more aggressive, largest baseline first. The loop
// is bounded by files times the number of escalation steps per file, so
// it terminates even when the budget is unreachable. Returns true when
// the estimated total fits.
func escalate(files []*compress.FileRecord, budget int) bool {
	free := freeFiles(files)
	order := planOrder(free)

	maxSteps := len(free) * (len(compress.Levels()) - 1)
	for step := 0; step < maxSteps; step++ {
		if compress.TotalTokens(files) <= budget {
			return true
		}
		target := lowestLevelFile(order)
		if target == nil {
			break
		}
		next, _ := target.Level.Next()
		target.Level = next
		target.RenderedTokens = 0
		target.RenderFailed = false
	}
	return compress.TotalTokens(files) <= budget
}

// planOrder sorts files by baseline descending, ties broken by path, so
// escalation order is stable across runs.
func planOrder(files []*compress.FileRecord) []*compress.FileRecord {
	order := make([]*compress.FileRecord, len(files))
	copy(order, files)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].BaselineTokens != order[j].BaselineTokens {
			return order[i].BaselineTokens > order[j].BaselineTokens
		}
		return order[i].Path < order[j].Path
	})
	return order
}

// lowestLevelFile picks the first file in plan order sitting at the
// lowest level, skipping files already at max. Nil when every file is
// maxed out.
func lowestLevelFile(order []*compress.FileRecord) *compress.FileRecord {
	var target *compress.FileRecord
	for _, f := range order {
		if f.Level == compress.LevelMax {
			continue
		}
		if target == nil || f.Level < target.Level {
			target = f
		}
	}
	return target
}
