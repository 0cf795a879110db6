// Command synthetic_git builds the synthetic multi-repository
// git dataset, writes git_events.json and git_prs.json, and
// optionally commits and pushes them to a dedicated branch.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/byte4ever/synthetic_git/gitops/git"
	"github.com/byte4ever/synthetic_git/gitops/git/bitbucket"
	"github.com/byte4ever/synthetic_git/gitops/git/github"
	"github.com/byte4ever/synthetic_git/gitops/git/gitlab"
	"github.com/byte4ever/synthetic_git/synth/artifact"
	"github.com/byte4ever/synthetic_git/synth/config"
	"github.com/byte4ever/synthetic_git/synth/failure"
	"github.com/byte4ever/synthetic_git/synth/generator"
	"github.com/byte4ever/synthetic_git/synth/plan"
	"github.com/byte4ever/synthetic_git/synth/publish"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		stage := failure.Stage(err)
		if stage == "" {
			stage = "setup"
		}

		slog.Error("fatal", "stage", stage, "error", err)
		os.Exit(1)
	}
}

// errSameBranch rejects a pull request whose source and
// target are the same branch.
var errSameBranch = errors.New("pull request source equals target")

type options struct {
	configPath   string
	baseDir      string
	branch       string
	planFile     string
	remote       string
	force        bool
	push         bool
	skipGenerate bool
	includeAll   bool
	openPR       bool
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "synthetic_git",
		Short: "Generate and optionally push the synthetic git dataset",
		Long: `synthetic_git builds four toy repositories with branches and
merges, derives git events and pull requests from them and writes
git_events.json and git_prs.json under the dataset directory.

With --push the dataset is committed to a dedicated branch of the
current repository and pushed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "config file (default ./config.yaml)")
	f.StringVar(&opts.baseDir, "base-dir", "", "dataset directory (default synthetic_git.base_dir)")
	f.StringVar(&opts.branch, "branch", "", "target branch for --push")
	f.StringVar(&opts.planFile, "plan", "", "YAML plan replacing the built-in demo repositories")
	f.StringVar(&opts.remote, "remote", "", "remote name or URL to push to")
	f.BoolVar(&opts.force, "force", false, "wipe the dataset directory before generating")
	f.BoolVar(&opts.push, "push", false, "commit and push the dataset after generation")
	f.BoolVar(&opts.skipGenerate, "skip-generate", false, "reuse existing artifacts instead of generating")
	f.BoolVar(&opts.includeAll, "include-all", false, "stage the whole working tree instead of the dataset directory")
	f.BoolVar(&opts.openPR, "open-pr", false, "open a pull request for the pushed branch")

	return cmd
}

func run(ctx context.Context, opts options) error {
	const errCtx = "running synthetic_git"

	s, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	baseDir, err := filepath.Abs(first(opts.baseDir, s.BaseDir))
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	var pub *publish.Publisher

	if opts.push {
		pub, err = newPublisher(ctx, opts, s, baseDir)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		if err := pub.Prepare(ctx); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	var ds *artifact.Dataset

	if opts.skipGenerate {
		slog.Info("skipping generation, reusing artifacts", "dir", baseDir)

		ds, err = generator.Load(baseDir)
	} else {
		ds, err = generate(ctx, opts, s, baseDir)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"dataset ready",
		"dir", baseDir,
		"events", len(ds.Events),
		"prs", len(ds.PRs),
	)

	if pub == nil {
		return nil
	}

	res, err := pub.Publish(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"publish complete",
		"state", pub.State().String(),
		"committed", res.Committed,
		"remote", res.Remote,
		"pr", res.PRURL,
	)

	return nil
}

func generate(
	ctx context.Context,
	opts options,
	s config.Settings,
	baseDir string,
) (*artifact.Dataset, error) {
	var p *plan.Plan

	if file := first(opts.planFile, s.PlanFile); file != "" {
		loaded, err := plan.Load(file)
		if err != nil {
			return nil, failure.Wrap(failure.ErrBuild, err)
		}

		p = loaded
	}

	return generator.Run(ctx, generator.Config{
		BaseDir: baseDir,
		Force:   opts.force,
		Plan:    p,
	})
}

func newPublisher(
	ctx context.Context,
	opts options,
	s config.Settings,
	baseDir string,
) (*publish.Publisher, error) {
	branch := first(opts.branch, s.Branch)

	if opts.openPR && branch == s.BaseBranch {
		return nil, fmt.Errorf(
			"--open-pr needs a target branch other than %q: %w",
			s.BaseBranch, errSameBranch,
		)
	}

	repo, err := git.Open(ctx, ".")
	if err != nil {
		return nil, failure.Wrap(failure.ErrGitOp, err)
	}

	cfg := publish.Config{
		Branch:        branch,
		BaseBranch:    s.BaseBranch,
		DatasetDir:    baseDir,
		IncludeAll:    opts.includeAll,
		CommitMessage: s.CommitMessage,
		RemoteFlag:    opts.remote,
		RemoteEnv:     s.RemoteURL,
		RepoOwner:     s.RepoOwner,
		RepoName:      s.RepoName,
		Token:         s.Token,
		PRTitle:       s.PRTitle,
		PRBody:        s.PRBody,
		PRLabels:      s.PRLabels,
	}

	if opts.openPR {
		cfg.Provider, err = newGitProvider(s)
		if err != nil {
			return nil, err
		}
	}

	return publish.New(repo, cfg), nil
}

// newGitProvider selects the platform that opens the
// dataset pull request.
func newGitProvider(s config.Settings) (git.GitProvider, error) {
	const errCtx = "creating git provider"

	switch s.Provider {
	case "github":
		p, err := github.NewProvider(github.Config{
			RepoOwner:   s.RepoOwner,
			Repo:        s.RepoName,
			AccessToken: s.Token,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		return p, nil
	case "gitlab":
		p, err := gitlab.NewProvider(gitlab.Config{
			Host:        s.GitLabHost,
			Repo:        s.RepoOwner + "/" + s.RepoName,
			AccessToken: s.Token,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		return p, nil
	case "bitbucket":
		p, err := bitbucket.NewProvider(bitbucket.Config{
			Host:     s.BitbucketHost,
			Project:  s.RepoOwner,
			Repo:     s.RepoName,
			User:     s.BitbucketUser,
			Password: s.Token,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		return p, nil
	default:
		return nil, fmt.Errorf(
			"%s: unknown provider %q (want github, gitlab or bitbucket)",
			errCtx, s.Provider,
		)
	}
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
