// Package update replaces the running promptfit binary with a newer
// GitHub release.
package update

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/creativeprojects/go-selfupdate"

	"github.com/promptfit/promptfit/pkg/version"
)

const (
	githubOwner = "promptfit"
	githubRepo  = "promptfit"

	// Releases ship a checksum manifest; downloads that fail
	// verification against it are rejected.
	checksumAsset = "checksums.txt"
)

// Info describes the release an update run considered.
type Info struct {
	CurrentVersion string
	LatestVersion  string
	ReleaseNotes   string
	DownloadURL    string
	UpdateNeeded   bool
}

// Options tunes a single update run.
type Options struct {
	// Force reinstalls even when the current build is already the latest.
	Force bool
	// TargetVersion pins the run to one release tag instead of the latest.
	TargetVersion string
	// Timeout bounds the whole check and download. Zero means unbounded.
	Timeout time.Duration
}

// Updater resolves releases of this repository and swaps the binary in place.
type Updater struct {
	updater    *selfupdate.Updater
	repository selfupdate.Repository
}

// NewUpdater builds an updater with checksum validation wired in.
func NewUpdater() (*Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("creating GitHub source: %w", err)
	}

	u, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:    source,
		Validator: &selfupdate.ChecksumValidator{UniqueFilename: checksumAsset},
	})
	if err != nil {
		return nil, fmt.Errorf("creating updater: %w", err)
	}

	return &Updater{
		updater:    u,
		repository: selfupdate.NewRepositorySlug(githubOwner, githubRepo),
	}, nil
}

// Check reports whether a newer release than the running build exists.
func (u *Updater) Check(ctx context.Context) (*Info, error) {
	latest, err := u.latestRelease(ctx)
	if err != nil {
		return nil, err
	}

	current := version.GetVersion()
	return &Info{
		CurrentVersion: current,
		LatestVersion:  latest.Version(),
		ReleaseNotes:   latest.ReleaseNotes,
		DownloadURL:    latest.AssetURL,
		UpdateNeeded:   isNewer(current, latest.Version()),
	}, nil
}

// Run checks for a newer release and, when one exists or Force is set,
// replaces the running binary with it. The returned Info always reflects
// the release that was considered, even when the apply step fails.
func (u *Updater) Run(ctx context.Context, opts Options) (*Info, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	info, err := u.Check(ctx)
	if err != nil {
		return nil, err
	}
	if !info.UpdateNeeded && !opts.Force {
		return info, nil
	}

	// go-selfupdate only resolves the newest release, so a pinned target
	// is honored when it matches and refused otherwise.
	if opts.TargetVersion != "" && opts.TargetVersion != info.LatestVersion {
		return info, fmt.Errorf("release %s is not available, latest is %s", opts.TargetVersion, info.LatestVersion)
	}

	latest, err := u.latestRelease(ctx)
	if err != nil {
		return info, err
	}
	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return info, fmt.Errorf("locating executable: %w", err)
	}
	if err := u.updater.UpdateTo(ctx, latest, exe); err != nil {
		return info, fmt.Errorf("updating to %s: %w", latest.Version(), err)
	}
	return info, nil
}

func (u *Updater) latestRelease(ctx context.Context) (*selfupdate.Release, error) {
	latest, found, err := u.updater.DetectLatest(ctx, u.repository)
	if err != nil {
		return nil, fmt.Errorf("detecting latest release: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("no releases found for %s/%s", githubOwner, githubRepo)
	}
	return latest, nil
}

// isNewer compares the running build against a release tag. Dev builds
// and unparseable local versions always want the update; an unparseable
// release tag never wins.
func isNewer(current, latest string) bool {
	switch current {
	case "", "dev", "development":
		return true
	}

	cur, err := semver.NewVersion(current)
	if err != nil {
		return true
	}
	rel, err := semver.NewVersion(latest)
	if err != nil {
		return false
	}
	return rel.GreaterThan(cur)
}
