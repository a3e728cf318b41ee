package cli

import (
	"fmt"
	"os"

	"github.com/promptfit/promptfit/internal/di"
	"github.com/promptfit/promptfit/pkg/config"
	"github.com/promptfit/promptfit/pkg/logging"
	"github.com/promptfit/promptfit/pkg/promptfit"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	workingDir string
	verbose    bool
	quiet      bool

	// Promptfit instance - initialized once and reused
	promptfitInstance promptfit.Promptfit
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "promptfit",
	Short: "Pack a codebase into a prompt-sized document",
	Long: `Promptfit compresses a codebase into a single LLM-ready document that
fits a token budget, choosing a compression level per file.`,
	Version: "dev", // This could be passed in or read from build info
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Configure logger based on flags
		var logger logging.Logger
		if quiet {
			logger = logging.NewQuietLogger()
		} else if verbose {
			logger = logging.NewVerboseLogger()
		} else {
			logger = logging.NewDefaultLogger()
		}
		logging.SetGlobalLogger(logger)

		// Pick up a .env from the working directory before anything reads config
		dir := workingDir
		if dir == "" {
			dir = "."
		}
		if err := config.LoadDotEnv(dir); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		// Model flags override the environment for this process
		applyModelFlags(cmd)

		// Initialize promptfit once for all commands
		var err error
		promptfitInstance, err = di.ProvidePromptfit()
		if err != nil {
			return fmt.Errorf("failed to initialize promptfit: %w", err)
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// No subcommand provided - print help
		return cmd.Help()
	},
}

// applyModelFlags maps model selection flags onto the env vars the config
// manager reads. Flags win over whatever the environment carried in.
func applyModelFlags(cmd *cobra.Command) {
	bridges := map[string]string{
		"planner-model":    "PROMPTFIT_PLANNER_MODEL",
		"summarizer-model": "PROMPTFIT_SUMMARIZER_MODEL",
		"encoding":         "PROMPTFIT_TOKEN_ENCODING",
	}
	for name, env := range bridges {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			os.Setenv(env, f.Value.String())
		}
	}
}

func init() {
	// Global flags available to all commands
	RootCmd.PersistentFlags().StringVar(&workingDir, "cwd", "", "working directory for promptfit operations")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug level)")
	RootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet output (errors only)")

	// Add CLI subcommands
	addCommands()
}

// addCommands adds all CLI subcommands to the root command
func addCommands() {
	RootCmd.AddCommand(newPackCommand(func() promptfit.Promptfit {
		return promptfitInstance
	}))
	RootCmd.AddCommand(newInspectCommand(func() promptfit.Promptfit {
		return promptfitInstance
	}))
	RootCmd.AddCommand(newUpdateCommand())
}
