// Package advisory asks an external model for a per-file compression
// assignment that fits a token budget. Proposals are untrusted: anything
// that deviates from the expected shape is rejected outright so the
// planner can fall back to its deterministic strategy.
package advisory

import (
	"context"
	"fmt"

	"github.com/promptfit/promptfit/pkg/compress"
)

// FileInfo describes one file in a planning problem.
type FileInfo struct {
	Path     string
	Baseline int
	Level    compress.Level
	Pinned   bool
}

// Problem is the compact planning request submitted to the service. Free
// files are the ones the service may assign; fixed files carry levels the
// caller already decided and are listed for context only.
type Problem struct {
	Budget int
	Free   []FileInfo
	Fixed  []FileInfo
}

// Proposal maps file paths to proposed compression levels.
type Proposal map[string]compress.Level

// Service proposes a level assignment for a problem. Implementations may
// time out, return garbage or fail entirely; callers validate every
// proposal and treat any error as a planning failure, not a fatal one.
type Service interface {
	Propose(ctx context.Context, problem Problem) (Proposal, error)
}

// Validate checks a proposal against its problem and returns the cleaned
// assignment for the free files. Rules:
//
//   - every free path must appear exactly once
//   - paths outside the problem are rejected
//   - fixed files may be echoed back only at their fixed level
//   - a proposal below a file's current level is raised to the current
//     level, keeping refinement monotonic
func Validate(problem Problem, proposal Proposal) (map[string]compress.Level, error) {
	fixed := make(map[string]compress.Level, len(problem.Fixed))
	for _, f := range problem.Fixed {
		fixed[f.Path] = f.Level
	}

	free := make(map[string]FileInfo, len(problem.Free))
	for _, f := range problem.Free {
		free[f.Path] = f
	}

	assignment := make(map[string]compress.Level, len(problem.Free))
	for path, level := range proposal {
		if !level.IsValid() {
			return nil, fmt.Errorf("proposal assigns invalid level %d to %q", int(level), path)
		}
		if fixedLevel, ok := fixed[path]; ok {
			if level != fixedLevel {
				return nil, fmt.Errorf("proposal reassigns fixed file %q from %s to %s", path, fixedLevel, level)
			}
			continue
		}
		info, ok := free[path]
		if !ok {
			return nil, fmt.Errorf("proposal names unknown file %q", path)
		}
		if info.Pinned && level != compress.LevelNone {
			return nil, fmt.Errorf("proposal compresses pinned file %q", path)
		}
		if level < info.Level {
			level = info.Level
		}
		assignment[path] = level
	}

	for _, f := range problem.Free {
		if _, ok := assignment[f.Path]; !ok {
			return nil, fmt.Errorf("proposal omits file %q", f.Path)
		}
	}

	return assignment, nil
}
