package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/byte4ever/synthetic_git/gitops/commitmsg"
	"github.com/byte4ever/synthetic_git/synth/failure"
	"github.com/byte4ever/synthetic_git/synth/plan"
	"github.com/byte4ever/synthetic_git/synth/vcs"
)

// Workspace is the version control capability a build
// needs.
type Workspace interface {
	WriteFile(name string, content string) error
	Remove(name string) error
	Stage() error
	Commit(req vcs.CommitRequest) (string, error)
	Checkout(branch string, create bool, at string) error
}

// Opener creates an empty workspace for repository name
// with HEAD on branch.
type Opener[W Workspace] func(name string, branch string) (W, error)

// Built is a repository replayed by BuildAll.
type Built[W Workspace] struct {
	Spec      plan.RepositorySpec
	Result    Result
	Workspace W
}

// Result maps plan commit IDs to the hashes assigned by
// the workspace, records the tip of every branch and the
// branch each commit hash was made on.
type Result struct {
	Hashes map[string]string
	Tips   map[string]string
	Owners map[string]string
}

type build struct {
	ws      Workspace
	res     Result
	current string
}

// Build replays spec into ws in schedule order, so a
// commit may merge any line as long as the merged commit
// is older. HEAD ends on the default branch. Failures
// carry failure.ErrBuild.
func Build(
	ctx context.Context,
	ws Workspace,
	spec plan.RepositorySpec,
) (Result, error) {
	const errCtx = "building repository"

	if err := spec.Validate(); err != nil {
		return Result{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	steps, err := spec.Schedule()
	if err != nil {
		return Result{}, failure.Wrap(
			failure.ErrBuild,
			fmt.Errorf("%s: %s: %w", errCtx, spec.Name, err),
		)
	}

	b := &build{
		ws: ws,
		res: Result{
			Hashes: make(map[string]string, len(steps)),
			Tips:   make(map[string]string),
			Owners: make(map[string]string, len(steps)),
		},
		current: spec.Branch(),
	}

	if err := b.run(ctx, steps, spec.Branch()); err != nil {
		return Result{}, failure.Wrap(
			failure.ErrBuild,
			fmt.Errorf("%s: %s: %w", errCtx, spec.Name, err),
		)
	}

	slog.Info(
		"repository built",
		"repo", spec.Name,
		"commits", len(b.res.Hashes),
		"branches", len(b.res.Tips),
	)

	return b.res, nil
}

func (b *build) run(
	ctx context.Context,
	steps []plan.Step,
	defaultBranch string,
) error {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := b.switchTo(s); err != nil {
			return fmt.Errorf("branch %s: %w", s.Branch, err)
		}

		h, err := b.commit(s)
		if err != nil {
			if s.Branch != defaultBranch {
				return fmt.Errorf("branch %s: %w", s.Branch, err)
			}

			return err
		}

		b.res.Hashes[s.Commit.ID] = h
		b.res.Tips[s.Branch] = h
		b.res.Owners[h] = s.Branch
	}

	if b.current != defaultBranch {
		return b.ws.Checkout(defaultBranch, false, "")
	}

	return nil
}

// switchTo checks out the line of s, creating the branch
// at its fork point on its first commit.
func (b *build) switchTo(s plan.Step) error {
	if s.Fork == "" {
		if s.Branch == b.current {
			return nil
		}

		if err := b.ws.Checkout(s.Branch, false, ""); err != nil {
			return err
		}

		b.current = s.Branch

		return nil
	}

	if _, dup := b.res.Tips[s.Branch]; dup {
		return fmt.Errorf("branch %q already exists", s.Branch)
	}

	at, ok := b.res.Hashes[s.Fork]
	if !ok {
		return fmt.Errorf("base %q not created yet", s.Fork)
	}

	if err := b.ws.Checkout(s.Branch, true, at); err != nil {
		return err
	}

	b.res.Tips[s.Branch] = at
	b.current = s.Branch

	return nil
}

func (b *build) commit(s plan.Step) (string, error) {
	c := s.Commit

	when, err := c.Time()
	if err != nil {
		return "", err
	}

	ids := s.Parents()
	parents := make([]string, 0, len(ids))

	for _, id := range ids {
		h, ok := b.res.Hashes[id]
		if !ok {
			return "", fmt.Errorf(
				"commit %s: parent %q not created yet", c.ID, id,
			)
		}

		parents = append(parents, h)
	}

	for _, f := range c.Files {
		if f.Delete {
			err = b.ws.Remove(f.Path)
		} else {
			err = b.ws.WriteFile(f.Path, f.Content)
		}

		if err != nil {
			return "", fmt.Errorf("commit %s: %w", c.ID, err)
		}
	}

	if err := b.ws.Stage(); err != nil {
		return "", fmt.Errorf("commit %s: %w", c.ID, err)
	}

	h, err := b.ws.Commit(vcs.CommitRequest{
		Message: commitmsg.Generate(c.Message, c.Summary, c.Annotations),
		Author:  c.Author,
		Email:   c.AuthorEmail(),
		When:    when,
		Parents: parents,
	})
	if err != nil {
		return "", fmt.Errorf("commit %s: %w", c.ID, err)
	}

	return h, nil
}

// DiskOpener initializes each repository in its own
// directory under baseDir.
func DiskOpener(baseDir string) Opener[*vcs.Workspace] {
	return func(name string, branch string) (*vcs.Workspace, error) {
		return vcs.Init(filepath.Join(baseDir, name), branch)
	}
}

// BuildAll builds every repository of p with workspaces
// from open, in plan order.
func BuildAll[W Workspace](
	ctx context.Context,
	p *plan.Plan,
	open Opener[W],
) ([]Built[W], error) {
	const errCtx = "building repositories"

	out := make([]Built[W], 0, len(p.Repos))

	for _, spec := range p.Repos {
		ws, err := open(spec.Name, spec.Branch())
		if err != nil {
			return nil, failure.Wrap(failure.ErrBuild, fmt.Errorf(
				"%s: %s: %w", errCtx, spec.Name, err,
			))
		}

		res, err := Build(ctx, ws, spec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		out = append(out, Built[W]{
			Spec:      spec,
			Result:    res,
			Workspace: ws,
		})
	}

	return out, nil
}

// ErrExists is returned by Prepare when the dataset
// directory is already populated and force is not set.
var ErrExists = errors.New("dataset directory already exists")

// Prepare readies baseDir for a fresh build. With force
// any previous content is deleted first; without it an
// existing non-empty directory is refused.
func Prepare(baseDir string, force bool) error {
	const errCtx = "preparing dataset directory"

	if force {
		slog.Info("wiping dataset directory", "dir", baseDir)

		if err := os.RemoveAll(baseDir); err != nil {
			return failure.Wrap(failure.ErrBuild, fmt.Errorf(
				"%s: %w", errCtx, err,
			))
		}
	} else {
		entries, err := os.ReadDir(baseDir)

		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return failure.Wrap(failure.ErrBuild, fmt.Errorf(
				"%s: %w", errCtx, err,
			))
		case len(entries) > 0:
			return failure.Wrap(failure.ErrBuild, fmt.Errorf(
				"%s: %s: %w (use --force)", errCtx, baseDir, ErrExists,
			))
		}
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return failure.Wrap(failure.ErrBuild, fmt.Errorf(
			"%s: %w", errCtx, err,
		))
	}

	return nil
}
