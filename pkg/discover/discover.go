// Package discover walks a directory tree and selects the files a pack
// run should consider. Selection is driven by slash-separated glob
// patterns, with an optional "GLOB::REGEX" form that additionally
// requires the file content to match, minus exclude patterns and
// anything the root .gitignore rules out.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/promptfit/promptfit/pkg/logging"
	"github.com/promptfit/promptfit/pkg/overrides"
)

// Options controls a single discovery run. The zero value walks the
// whole tree, rewrites patterns to match at any depth and honors the
// root .gitignore.
type Options struct {
	Include     []string
	Exclude     []string
	StrictGlob  bool // keep patterns as written instead of rewriting them recursive
	NoGitignore bool // skip .gitignore filtering
}

// Finder discovers files under a directory. Paths come back relative to
// the directory, slash-separated and sorted.
type Finder interface {
	Find(dir string, opts Options) ([]string, error)
}

// Pattern is a parsed include or exclude pattern. Content is non-nil for
// the GLOB::REGEX form and is matched case-insensitively against the
// file body.
type Pattern struct {
	Glob    string
	Content *regexp.Regexp
}

// ParsePattern splits the optional ::REGEX suffix off a pattern and
// validates the glob part. An invalid regex falls back to a literal,
// case-insensitive substring search.
func ParsePattern(raw string) (Pattern, error) {
	glob, content, found := strings.Cut(raw, "::")
	if err := overrides.Validate(glob); err != nil {
		return Pattern{}, fmt.Errorf("invalid pattern %q: %w", raw, err)
	}
	p := Pattern{Glob: glob}
	if found && content != "" {
		re, err := regexp.Compile("(?im)" + content)
		if err != nil {
			re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(content))
		}
		p.Content = re
	}
	return p, nil
}

// MakeRecursive rewrites a pattern so it matches at any depth unless it
// already carries a "**" segment. "*.py" becomes "**/*.py" and
// "src/*.py" becomes "src/**/*.py". The content part of a GLOB::REGEX
// pattern is left untouched.
func MakeRecursive(pattern string) string {
	if glob, content, found := strings.Cut(pattern, "::"); found {
		return MakeRecursive(glob) + "::" + content
	}
	if strings.Contains(pattern, "**") {
		return pattern
	}
	if i := strings.LastIndex(pattern, "/"); i >= 0 {
		return pattern[:i] + "/**/" + pattern[i+1:]
	}
	return "**/" + pattern
}

// Directories never worth walking into, no matter what the patterns say.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// Extensions that mark a file as binary without reading it.
var binaryExtensions = map[string]bool{
	".pyc": true, ".pyo": true, ".so": true, ".dll": true, ".dylib": true,
	".exe": true, ".bin": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".ico": true, ".svg": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wmv": true,
	".flv": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".7z": true,
	".rar": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true,
	".sqlite": true, ".db": true, ".pkl": true, ".pickle": true,
	".npy": true, ".npz": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".otf": true,
}

// DefaultFinder walks the filesystem directly.
type DefaultFinder struct {
	logger logging.Logger
}

// NewFinder creates a filesystem-backed Finder.
func NewFinder() Finder {
	return &DefaultFinder{
		logger: logging.NewComponentLogger("discover"),
	}
}

var _ Finder = (*DefaultFinder)(nil)

// Find walks dir and returns the relative paths of every text file that
// matches the include patterns, fails the exclude patterns and survives
// .gitignore filtering. Empty, binary and unreadable files are dropped.
func (f *DefaultFinder) Find(dir string, opts Options) ([]string, error) {
	base, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(base)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	rawIncludes := opts.Include
	if len(rawIncludes) == 0 {
		rawIncludes = []string{"**/*"}
	}
	includes, err := parsePatterns(rawIncludes, opts.StrictGlob)
	if err != nil {
		return nil, err
	}
	excludes, err := parsePatterns(opts.Exclude, opts.StrictGlob)
	if err != nil {
		return nil, err
	}

	var ignore gitignoreSet

	var files []string
	ignored := 0
	walkErr := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			f.logger.Debug("skipping unreadable entry", "path", p, "error", err)
			return nil
		}
		if d.IsDir() {
			if p != base && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			if !opts.NoGitignore {
				// Directories are visited before their contents, so the
				// matcher is in place for every file it scopes.
				scope := ""
				if p != base {
					if rel, err := filepath.Rel(base, p); err == nil {
						scope = filepath.ToSlash(rel)
					}
				}
				ignore.add(scope, loadGitignore(p))
			}
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if ignore.Match(rel) {
			ignored++
			return nil
		}
		if f.selectFile(p, rel, includes, excludes) {
			files = append(files, rel)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	if ignored > 0 {
		f.logger.Debug("files dropped by .gitignore", "count", ignored)
	}
	sort.Strings(files)
	return files, nil
}

// selectFile applies include and exclude patterns to one candidate and
// validates that it is a non-empty text file. The file body is read at
// most once, and only when a content pattern or validation needs it.
func (f *DefaultFinder) selectFile(abs, rel string, includes, excludes []Pattern) bool {
	var data []byte
	read := false
	load := func() []byte {
		if !read {
			read = true
			d, err := os.ReadFile(abs)
			if err != nil {
				f.logger.Debug("skipping unreadable file", "path", rel, "error", err)
				return nil
			}
			data = d
		}
		return data
	}

	if isBinaryPath(rel) {
		return false
	}

	included := false
	for _, p := range includes {
		if !overrides.Match(p.Glob, rel) {
			continue
		}
		if p.Content == nil {
			included = true
			break
		}
		body := load()
		if body == nil {
			return false
		}
		if p.Content.Match(body) {
			included = true
			break
		}
	}
	if !included {
		return false
	}

	for _, p := range excludes {
		if !overrides.Match(p.Glob, rel) {
			continue
		}
		if p.Content == nil {
			return false
		}
		body := load()
		if body == nil {
			return false
		}
		if p.Content.Match(body) {
			return false
		}
	}

	body := load()
	if body == nil {
		return false
	}
	if len(body) == 0 {
		f.logger.Debug("skipping empty file", "path", rel)
		return false
	}
	if looksBinary(body) {
		f.logger.Debug("skipping binary file", "path", rel)
		return false
	}
	return true
}

func parsePatterns(raw []string, strict bool) ([]Pattern, error) {
	patterns := make([]Pattern, 0, len(raw))
	for _, r := range raw {
		if !strict {
			r = MakeRecursive(r)
		}
		p, err := ParsePattern(r)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func isBinaryPath(rel string) bool {
	return binaryExtensions[strings.ToLower(filepath.Ext(rel))]
}

// looksBinary sniffs the first chunk of a file for NUL bytes, the usual
// tell for non-text content that slipped past the extension check.
func looksBinary(data []byte) bool {
	const sniffLen = 8192
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	for _, b := range data {
		if b == 0 {
			return true
		}
	}
	return false
}
