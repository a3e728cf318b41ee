package cli

import (
	"fmt"
	"path/filepath"

	"github.com/promptfit/promptfit/pkg/compress"
	"github.com/promptfit/promptfit/pkg/output"
	"github.com/promptfit/promptfit/pkg/promptfit"
	"github.com/spf13/cobra"
)

// newInspectCommand creates the inspect command backed by a shared
// promptfit instance
func newInspectCommand(provider func() promptfit.Promptfit) *cobra.Command {
	var levelName string

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Render one file at a level and show the diff",
		Long: `Inspect renders a single file at the chosen compression level and prints
a unified diff against the original, plus before and after token counts.
Useful for tuning levels and override rules before a full pack run.

Examples:
  promptfit inspect pkg/server.go --level medium
  promptfit inspect README.md --level max --summarizer-model gpt-4.1-mini`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], levelName, provider())
		},
	}

	cmd.Flags().StringVarP(&levelName, "level", "l", "medium", "compression level to render at")
	cmd.Flags().String("summarizer-model", "", "model used for file compression")

	return cmd
}

func runInspect(cmd *cobra.Command, file, levelName string, p promptfit.Promptfit) error {
	level, err := compress.ParseLevel(levelName)
	if err != nil {
		return err
	}

	if !filepath.IsAbs(file) && workingDir != "" {
		file = filepath.Join(workingDir, file)
	}

	result, err := p.Inspect(cmd.Context(), promptfit.InspectRequest{
		Path:  file,
		Level: level,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s at %s: %s -> %s tokens\n\n",
		result.Path, result.Level,
		output.FormatCount(result.BaselineTokens), output.FormatCount(result.RenderedTokens))

	if result.Diff == "" {
		fmt.Fprintln(out, "content unchanged")
		return nil
	}
	fmt.Fprint(out, result.Diff)
	return nil
}
