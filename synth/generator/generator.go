package generator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/byte4ever/synthetic_git/synth/artifact"
	"github.com/byte4ever/synthetic_git/synth/builder"
	"github.com/byte4ever/synthetic_git/synth/events"
	"github.com/byte4ever/synthetic_git/synth/failure"
	"github.com/byte4ever/synthetic_git/synth/plan"
	"github.com/byte4ever/synthetic_git/synth/prs"
	"github.com/byte4ever/synthetic_git/synth/vcs"
)

// Config holds the settings of a generation run.
type Config struct {
	// BaseDir receives the repositories and both
	// artifact files.
	BaseDir string

	// Force wipes BaseDir before building.
	Force bool

	// Plan describes the repositories. Nil means
	// plan.Default().
	Plan *plan.Plan

	// Open creates the workspace of each repository.
	// Nil means an on-disk repository under BaseDir.
	Open builder.Opener[*vcs.Workspace]
}

// Run builds the dataset and writes its artifacts.
func Run(ctx context.Context, cfg Config) (*artifact.Dataset, error) {
	const errCtx = "generating dataset"

	if err := builder.Prepare(cfg.BaseDir, cfg.Force); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	p := cfg.Plan
	if p == nil {
		p = plan.Default()
	}

	open := cfg.Open
	if open == nil {
		open = builder.DiskOpener(cfg.BaseDir)
	}

	repos, err := builder.BuildAll(ctx, p, open)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var ds artifact.Dataset

	for _, r := range repos {
		evs, err := events.Extract(ctx, r.Workspace, events.RepoInfo{
			Name:          r.Spec.Name,
			URL:           r.Spec.URL,
			DefaultBranch: r.Spec.Branch(),
			Owners:        r.Result.Owners,
		})
		if err != nil {
			return nil, failure.Wrap(
				failure.ErrBuild, fmt.Errorf("%s: %w", errCtx, err),
			)
		}

		pulls, err := prs.Synthesize(r.Spec, evs, r.Spec.Branch())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		slog.Info(
			"repository processed",
			"repo", r.Spec.Name,
			"events", len(evs),
			"prs", len(pulls),
		)

		ds.Events = append(ds.Events, evs...)
		ds.PRs = append(ds.PRs, pulls...)
	}

	if _, err := artifact.Write(cfg.BaseDir, &ds); err != nil {
		return nil, failure.Wrap(
			failure.ErrBuild, fmt.Errorf("%s: %w", errCtx, err),
		)
	}

	return &ds, nil
}

// Load reads the artifacts of a previous run from baseDir.
func Load(baseDir string) (*artifact.Dataset, error) {
	const errCtx = "loading dataset"

	ds, err := artifact.Read(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	digests, err := artifact.DigestDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"reusing existing dataset",
		"dir", baseDir,
		"events", len(ds.Events),
		"prs", len(ds.PRs),
		"events_sha256", digests[artifact.EventsFile],
		"prs_sha256", digests[artifact.PRsFile],
	)

	return ds, nil
}
