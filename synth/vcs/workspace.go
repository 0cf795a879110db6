package vcs

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Commit is one node of a repository history.
type Commit struct {
	Hash    string
	Parents []string
	Author  string
	Email   string
	When    time.Time
	Message string
	Files   []string
}

// CommitRequest describes a commit to record. Parents are
// commit hashes; when empty the current HEAD is the parent.
type CommitRequest struct {
	Message string
	Author  string
	Email   string
	When    time.Time
	Parents []string
}

// Workspace is a git repository with a work tree.
type Workspace struct {
	fs   billy.Filesystem
	repo *git.Repository
	wt   *git.Worktree
}

// Init creates a repository in dir whose HEAD points at
// branch.
func Init(dir string, branch string) (*Workspace, error) {
	const errCtx = "initializing workspace"

	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(branch),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, dir, err)
	}

	return newWorkspace(repo)
}

// Open opens an existing on-disk repository.
func Open(dir string) (*Workspace, error) {
	const errCtx = "opening workspace"

	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, dir, err)
	}

	return newWorkspace(repo)
}

// InMemory creates a repository held entirely in memory.
func InMemory(branch string) (*Workspace, error) {
	const errCtx = "initializing in-memory workspace"

	fs := memfs.New()

	repo, err := git.InitWithOptions(
		memory.NewStorage(),
		fs,
		git.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(branch),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return newWorkspace(repo)
}

func newWorkspace(repo *git.Repository) (*Workspace, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}

	return &Workspace{fs: wt.Filesystem, repo: repo, wt: wt}, nil
}

// WriteFile replaces the content of name, creating parent
// directories as needed.
func (w *Workspace) WriteFile(name string, content string) error {
	const errCtx = "writing file"

	name = clean(name)

	if dir := path.Dir(name); dir != "." {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%s: %s: %w", errCtx, name, err)
		}
	}

	if err := util.WriteFile(
		w.fs, name, []byte(content), 0o644,
	); err != nil {
		return fmt.Errorf("%s: %s: %w", errCtx, name, err)
	}

	return nil
}

// Remove deletes name from the work tree and the index.
func (w *Workspace) Remove(name string) error {
	const errCtx = "removing file"

	if _, err := w.wt.Remove(clean(name)); err != nil {
		return fmt.Errorf("%s: %s: %w", errCtx, name, err)
	}

	return nil
}

// Stage records every work tree change, deletions
// included, in the index.
func (w *Workspace) Stage() error {
	const errCtx = "staging"

	if err := w.wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Commit records the index as a new commit on the current
// branch and returns its hash.
func (w *Workspace) Commit(req CommitRequest) (string, error) {
	const errCtx = "committing"

	sig := &object.Signature{
		Name:  req.Author,
		Email: req.Email,
		When:  req.When.UTC(),
	}

	opts := &git.CommitOptions{
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: true,
	}

	for _, p := range req.Parents {
		opts.Parents = append(opts.Parents, plumbing.NewHash(p))
	}

	h, err := w.wt.Commit(req.Message, opts)
	if err != nil {
		return "", fmt.Errorf(
			"%s: %q: %w", errCtx, firstLine(req.Message), err,
		)
	}

	return h.String(), nil
}

// Checkout switches to branch. With create set the branch
// is created at commit hash at.
func (w *Workspace) Checkout(
	branch string,
	create bool,
	at string,
) error {
	const errCtx = "checking out"

	opts := &git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: create,
		Force:  true,
	}

	if create {
		opts.Hash = plumbing.NewHash(at)
	}

	if err := w.wt.Checkout(opts); err != nil {
		return fmt.Errorf("%s: %s: %w", errCtx, branch, err)
	}

	return nil
}

// Head returns the current branch and the commit it points
// at.
func (w *Workspace) Head() (string, string, error) {
	const errCtx = "reading HEAD"

	ref, err := w.repo.Head()
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return ref.Name().Short(), ref.Hash().String(), nil
}

// Branches maps every local branch to its tip.
func (w *Workspace) Branches() (map[string]string, error) {
	const errCtx = "listing branches"

	it, err := w.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	out := make(map[string]string)

	if err := it.ForEach(func(ref *plumbing.Reference) error {
		out[ref.Name().Short()] = ref.Hash().String()

		return nil
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return out, nil
}

// Log returns every commit reachable from any reference,
// sorted by hash. Files lists the paths changed against the
// first parent.
func (w *Workspace) Log() ([]Commit, error) {
	const errCtx = "reading log"

	it, err := w.repo.Log(&git.LogOptions{All: true})
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var out []Commit

	if err := it.ForEach(func(c *object.Commit) error {
		stats, err := c.Stats()
		if err != nil {
			return fmt.Errorf("diffing %s: %w", c.Hash, err)
		}

		files := make([]string, 0, len(stats))
		for _, s := range stats {
			files = append(files, s.Name)
		}

		sort.Strings(files)

		parents := make([]string, 0, len(c.ParentHashes))
		for _, p := range c.ParentHashes {
			parents = append(parents, p.String())
		}

		out = append(out, Commit{
			Hash:    c.Hash.String(),
			Parents: parents,
			Author:  c.Author.Name,
			Email:   c.Author.Email,
			When:    c.Author.When.UTC(),
			Message: c.Message,
			Files:   files,
		})

		return nil
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Hash < out[j].Hash
	})

	return out, nil
}

// Read returns the work tree content of name.
func (w *Workspace) Read(name string) (string, error) {
	const errCtx = "reading file"

	raw, err := util.ReadFile(w.fs, clean(name))
	if err != nil {
		return "", fmt.Errorf("%s: %s: %w", errCtx, name, err)
	}

	return string(raw), nil
}

func clean(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

func firstLine(msg string) string {
	line, _, _ := strings.Cut(msg, "\n")

	return line
}
