package cli

import (
	"fmt"
	"time"

	"github.com/promptfit/promptfit/pkg/update"
	"github.com/spf13/cobra"
)

type updateOptions struct {
	check   bool
	force   bool
	version string
	timeout time.Duration
}

// newUpdateCommand creates the self-update command
func newUpdateCommand() *cobra.Command {
	opts := &updateOptions{}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update promptfit from GitHub releases",
		Long: `Update replaces the running promptfit binary with the latest GitHub
release. Downloads are verified against the release checksum manifest.

Examples:
  promptfit update                    # update to the latest release
  promptfit update --check            # report what would happen, change nothing
  promptfit update --version v1.2.3   # refuse anything but this release
  promptfit update --force            # reinstall even when already current`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.check, "check", false, "check for a newer release without installing")
	flags.BoolVar(&opts.force, "force", false, "reinstall even when the current version is the latest")
	flags.StringVar(&opts.version, "version", "", "only update to this release tag")
	flags.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "deadline for the check and download")

	return cmd
}

func runUpdate(cmd *cobra.Command, opts *updateOptions) error {
	updater, err := update.NewUpdater()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if opts.check {
		info, err := updater.Check(ctx)
		if err != nil {
			return err
		}
		printReleaseStatus(cmd, info)
		if info.UpdateNeeded {
			fmt.Fprintln(out, "\nRun 'promptfit update' to install it.")
		}
		return nil
	}

	info, err := updater.Run(ctx, update.Options{
		Force:         opts.force,
		TargetVersion: opts.version,
		Timeout:       opts.timeout,
	})
	if err != nil {
		return err
	}

	if !info.UpdateNeeded && !opts.force {
		fmt.Fprintf(out, "Already on the latest version (%s)\n", info.LatestVersion)
		fmt.Fprintln(out, "Use --force to reinstall it.")
		return nil
	}

	printReleaseStatus(cmd, info)
	fmt.Fprintf(out, "\nInstalled %s, restart promptfit to use it\n", info.LatestVersion)
	return nil
}

func printReleaseStatus(cmd *cobra.Command, info *update.Info) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Current: %s\n", info.CurrentVersion)
	fmt.Fprintf(out, "Latest:  %s\n", info.LatestVersion)
	if info.UpdateNeeded && info.ReleaseNotes != "" {
		fmt.Fprintf(out, "\nRelease notes:\n%s\n", info.ReleaseNotes)
	}
}
