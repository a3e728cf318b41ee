package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// hasStdinInput checks if data is available from stdin (pipe or redirect)
func hasStdinInput() bool {
	return !isatty.IsTerminal(os.Stdin.Fd())
}

// readStdinPaths reads newline-separated paths from stdin, dropping blank
// lines. This is what makes `git ls-files | promptfit pack -` work.
func readStdinPaths() ([]string, error) {
	scanner := bufio.NewScanner(os.Stdin)

	var paths []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}

	return paths, nil
}
