// Package overrides resolves user-supplied glob rules to compression
// levels. Rules are ordered and the first matching rule wins, so callers
// control precedence by the order they append rules in.
package overrides

import (
	"fmt"
	"path"
	"strings"

	"github.com/promptfit/promptfit/pkg/compress"
)

// Rule binds a glob pattern to the compression level every matching file
// should receive. Patterns use slash-separated path globs where a "**"
// segment matches zero or more directories.
type Rule struct {
	Pattern string
	Level   compress.Level
}

// PatternError reports a malformed glob in a rule set. Index is the
// position of the offending rule in the original slice.
type PatternError struct {
	Pattern string
	Index   int
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid override pattern %q at index %d: %v", e.Pattern, e.Index, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Resolve maps each path to the level of the first rule matching it.
// Every pattern is validated before any matching happens, so a malformed
// rule fails the whole set instead of producing a partial result. Paths
// with no matching rule are absent from the returned map.
func Resolve(rules []Rule, paths []string) (map[string]compress.Level, error) {
	for i, rule := range rules {
		if err := validatePattern(rule.Pattern); err != nil {
			return nil, &PatternError{Pattern: rule.Pattern, Index: i, Err: err}
		}
		if !rule.Level.IsValid() {
			return nil, fmt.Errorf("override rule %d: invalid compression level %d", i, int(rule.Level))
		}
	}

	resolved := make(map[string]compress.Level)
	for _, p := range paths {
		normalized := normalize(p)
		for _, rule := range rules {
			if Match(rule.Pattern, normalized) {
				resolved[p] = rule.Level
				break
			}
		}
	}
	return resolved, nil
}

// Match reports whether a slash-separated relative path matches the glob
// pattern. The pattern must already be valid; malformed segments simply
// fail to match.
func Match(pattern, name string) bool {
	return matchSegments(splitSegments(pattern), splitSegments(normalize(name)))
}

// Validate checks a single glob pattern without matching anything.
func Validate(pattern string) error {
	return validatePattern(pattern)
}

func normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimPrefix(p, "./")
}

func splitSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// matchSegments matches pattern segments against path segments. A "**"
// segment consumes zero or more path segments, everything else is a
// single-segment glob. A trailing "**" selects files inside the matched
// directory, not a file carrying the directory's name.
func matchSegments(pattern, segments []string) bool {
	if len(pattern) == 0 {
		return len(segments) == 0
	}
	if pattern[0] == "**" {
		if len(pattern) == 1 {
			return len(segments) > 0
		}
		for skip := 0; skip <= len(segments); skip++ {
			if matchSegments(pattern[1:], segments[skip:]) {
				return true
			}
		}
		return false
	}
	if len(segments) == 0 {
		return false
	}
	ok, err := path.Match(pattern[0], segments[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], segments[1:])
}

// validatePattern rejects globs that path.Match would refuse. Since Go 1.16
// Match validates the whole pattern even when the name diverges early, so
// matching each non-** segment against the empty string surfaces syntax
// errors without false positives.
func validatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("empty pattern")
	}
	for _, seg := range splitSegments(pattern) {
		if seg == "**" {
			continue
		}
		if _, err := path.Match(seg, ""); err != nil {
			return err
		}
	}
	return nil
}
