package git

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/byte4ever/synthetic_git/gitops/exec"
)

// Repo is the working tree the dataset is published
// from. Create with Open.
type Repo struct {
	// Dir is the top-level directory of the working
	// tree.
	Dir string
}

// Open locates the working tree containing dir and
// returns a Repo rooted at its top level.
func Open(ctx context.Context, dir string) (*Repo, error) {
	const errCtx = "opening repository"

	out, err := exec.Ex(
		ctx, dir, "git", "rev-parse", "--show-toplevel",
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &Repo{Dir: strings.TrimSpace(out)}, nil
}

// CurrentBranch returns the checked out branch name,
// or "HEAD" when detached.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	const errCtx = "reading current branch"

	out, err := exec.Ex(
		ctx, r.Dir, "git", "rev-parse", "--abbrev-ref", "HEAD",
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return strings.TrimSpace(out), nil
}

// BranchExists reports whether a local branch named
// branch exists.
func (r *Repo) BranchExists(
	ctx context.Context,
	branch string,
) (bool, error) {
	const errCtx = "checking branch"

	_, err := exec.Ex(
		ctx, r.Dir, "git",
		"rev-parse", "--verify", "--quiet",
		"refs/heads/"+branch,
	)

	switch exec.ExitCode(err) {
	case 0:
		return true, nil
	case 1:
		return false, nil
	default:
		return false, fmt.Errorf(
			"%s %s: %w", errCtx, branch, err,
		)
	}
}

// Switch checks out an existing branch.
func (r *Repo) Switch(ctx context.Context, branch string) error {
	const errCtx = "switching branch"

	if _, err := exec.Ex(
		ctx, r.Dir, "git", "checkout", branch,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// CreateBranch creates branch at the tip of from and
// checks it out.
func (r *Repo) CreateBranch(
	ctx context.Context,
	branch string,
	from string,
) error {
	const errCtx = "creating branch"

	if _, err := exec.Ex(
		ctx, r.Dir, "git", "checkout", "-b", branch, from,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Stage adds every change (including deletions) under
// pathspec to the index. An empty pathspec or "." stages
// the whole working tree.
func (r *Repo) Stage(ctx context.Context, pathspec string) error {
	const errCtx = "staging changes"

	if isRootPath(pathspec) {
		pathspec = "."
	}

	if _, err := exec.Ex(
		ctx, r.Dir, "git", "add", "-A", "--", pathspec,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// HasStagedChanges reports whether the index differs
// from HEAD.
func (r *Repo) HasStagedChanges(ctx context.Context) (bool, error) {
	const errCtx = "checking staged changes"

	_, err := exec.Ex(
		ctx, r.Dir, "git", "diff", "--cached", "--quiet",
	)

	switch exec.ExitCode(err) {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}
}

// Commit records the index with message.
func (r *Repo) Commit(ctx context.Context, message string) error {
	const errCtx = "committing"

	if _, err := exec.Ex(
		ctx, r.Dir, "git", "commit", "-m", message,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Push pushes branch to remote (a remote name or URL)
// and records it as upstream.
func (r *Repo) Push(
	ctx context.Context,
	remote string,
	branch string,
) error {
	const errCtx = "pushing"

	if _, err := exec.Ex(
		ctx, r.Dir, "git",
		"push", "--set-upstream", remote, branch,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// RelPath returns path relative to the top of the
// working tree, slash separated. Paths outside the
// tree are an error.
func (r *Repo) RelPath(path string) (string, error) {
	const errCtx = "resolving path"

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	top, err := filepath.EvalSymlinks(r.Dir)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if resolved, evalErr := filepath.EvalSymlinks(abs); evalErr == nil {
		abs = resolved
	}

	rel, err := filepath.Rel(top, abs)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf(
			"%s: %s is outside %s", errCtx, path, r.Dir,
		)
	}

	return filepath.ToSlash(rel), nil
}

// isRootPath reports whether pathspec refers to the
// repository root.
func isRootPath(pathspec string) bool {
	return pathspec == "" || pathspec == "."
}
