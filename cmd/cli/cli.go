package cli

import (
	"os"

	"github.com/promptfit/promptfit/pkg/version"
)

// Execute runs the CLI with all commands
func Execute() {
	// Set custom version template that shows more detailed version info
	RootCmd.SetVersionTemplate(version.GetInfo().String() + "\n")
	if err := RootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with error code
		os.Exit(1)
	}
}
