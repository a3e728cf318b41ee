package discover

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ignoreRule is one line of a .gitignore, precompiled. The matcher keeps
// to the common subset: "dir/" patterns match a path segment anywhere,
// "/x" patterns anchor to the walk root, and bare patterns match either
// the whole relative path or any parent directory name.
type ignoreRule struct {
	dir    bool
	rooted bool
	re     *regexp.Regexp
}

type gitignoreMatcher struct {
	rules []ignoreRule
}

// gitignoreSet layers the matchers found during a walk. Each matcher is
// scoped to the directory its .gitignore lives in and sees paths
// relative to that directory, so nested files can tighten the rules for
// their own subtree.
type gitignoreSet struct {
	scopes   []string
	matchers []*gitignoreMatcher
}

func (s *gitignoreSet) add(scope string, m *gitignoreMatcher) {
	if m == nil {
		return
	}
	s.scopes = append(s.scopes, scope)
	s.matchers = append(s.matchers, m)
}

func (s *gitignoreSet) Match(rel string) bool {
	for i, scope := range s.scopes {
		sub := rel
		if scope != "" {
			if !strings.HasPrefix(rel, scope+"/") {
				continue
			}
			sub = strings.TrimPrefix(rel, scope+"/")
		}
		if s.matchers[i].Match(sub) {
			return true
		}
	}
	return false
}

// loadGitignore reads the .gitignore in dir. Returns nil when there is
// no file or no usable rules.
func loadGitignore(dir string) *gitignoreMatcher {
	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return nil
	}

	m := &gitignoreMatcher{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule := ignoreRule{}
		switch {
		case strings.HasSuffix(line, "/"):
			rule.dir = true
			line = strings.TrimSuffix(line, "/")
		case strings.HasPrefix(line, "/"):
			rule.rooted = true
			line = strings.TrimPrefix(line, "/")
		}
		re, err := fnmatchRegexp(line)
		if err != nil {
			continue
		}
		rule.re = re
		m.rules = append(m.rules, rule)
	}
	if len(m.rules) == 0 {
		return nil
	}
	return m
}

// Match reports whether the relative path is ignored.
func (m *gitignoreMatcher) Match(rel string) bool {
	parts := strings.Split(rel, "/")
	for _, rule := range m.rules {
		switch {
		case rule.dir:
			for _, part := range parts {
				if rule.re.MatchString(part) {
					return true
				}
			}
		case rule.rooted:
			if rule.re.MatchString(rel) {
				return true
			}
		default:
			if rule.re.MatchString(rel) {
				return true
			}
			for _, part := range parts[:len(parts)-1] {
				if rule.re.MatchString(part) {
					return true
				}
			}
		}
	}
	return false
}

// fnmatchRegexp translates a shell-style wildcard into an anchored
// regexp. Unlike path globs, "*" here crosses path separators, which is
// how gitignore lines are commonly written.
func fnmatchRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteByte('^')
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteByte('.')
		case '[':
			if i+1 < len(pattern) && pattern[i+1] == '!' {
				sb.WriteString("[^")
				i++
			} else {
				sb.WriteByte('[')
			}
		case ']':
			sb.WriteByte(']')
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteByte('$')
	return regexp.Compile(sb.String())
}
