package plan

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/byte4ever/synthetic_git/gitops/commitmsg"
	"github.com/byte4ever/synthetic_git/synth/failure"
)

// DefaultBranch is used when a repository does not name
// its own default branch.
const DefaultBranch = "main"

// Plan is the full dataset description.
type Plan struct {
	Repos []RepositorySpec `yaml:"repos"`
}

// RepositorySpec describes one synthetic repository.
type RepositorySpec struct {
	Name          string       `yaml:"name"`
	URL           string       `yaml:"url"`
	DefaultBranch string       `yaml:"default_branch"`
	Commits       []CommitSpec `yaml:"commits"`
	Branches      []BranchSpec `yaml:"branches"`
}

// CommitSpec describes one scripted commit. Parents lists
// commit IDs; when empty the preceding commit on the same
// line is the only parent. A second parent makes the
// commit a merge.
type CommitSpec struct {
	ID          string                `yaml:"id"`
	Message     string                `yaml:"message"`
	Summary     string                `yaml:"summary"`
	Author      string                `yaml:"author"`
	Email       string                `yaml:"email"`
	Timestamp   string                `yaml:"timestamp"`
	Files       []FileSpec            `yaml:"files"`
	Parents     []string              `yaml:"parents"`
	Annotations commitmsg.Annotations `yaml:"annotations"`
}

// FileSpec is the full content of one file after the
// commit, or its removal when Delete is set.
type FileSpec struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
	Delete  bool   `yaml:"delete"`
}

// BranchSpec is a branch forked at commit Base with
// Commits applied on top.
type BranchSpec struct {
	Name    string       `yaml:"name"`
	Base    string       `yaml:"base"`
	Commits []CommitSpec `yaml:"commits"`
	PR      PRSpec       `yaml:"pr"`
}

// PRSpec is the review metadata of the pull request
// synthesized for a branch. Zero values are derived from
// the branch history.
type PRSpec struct {
	Number int      `yaml:"number"`
	Author string   `yaml:"author"`
	Title  string   `yaml:"title"`
	Body   string   `yaml:"body"`
	Labels []string `yaml:"labels"`
}

// Branch returns the default branch name.
func (r RepositorySpec) Branch() string {
	if r.DefaultBranch == "" {
		return DefaultBranch
	}

	return r.DefaultBranch
}

// Time parses the commit timestamp.
func (c CommitSpec) Time() (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, c.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf(
			"commit %s: timestamp %q: %w",
			c.ID, c.Timestamp, err,
		)
	}

	return ts.UTC(), nil
}

// AuthorEmail returns the author address, derived from the
// author name when unset.
func (c CommitSpec) AuthorEmail() string {
	if c.Email != "" {
		return c.Email
	}

	return c.Author + "@synthetic.local"
}

// Load reads and validates a YAML plan.
func Load(path string) (*Plan, error) {
	const errCtx = "loading plan"

	raw, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var p Plan
	if err := yaml.UnmarshalWithOptions(
		raw, &p, yaml.Strict(),
	); err != nil {
		return nil, fmt.Errorf(
			"%s: %s: %w", errCtx, path, err,
		)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &p, nil
}

// Validate checks every repository and rejects duplicate
// repository names.
func (p Plan) Validate() error {
	if len(p.Repos) == 0 {
		return failure.Wrap(
			failure.ErrBuild, errors.New("plan has no repositories"),
		)
	}

	seen := make(map[string]struct{}, len(p.Repos))

	for _, r := range p.Repos {
		if _, dup := seen[r.Name]; dup {
			return failure.Wrap(failure.ErrBuild, fmt.Errorf(
				"duplicate repository %q", r.Name,
			))
		}

		seen[r.Name] = struct{}{}

		if err := r.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks the commit graph declared by r. Errors
// carry failure.ErrBuild.
func (r RepositorySpec) Validate() error {
	if err := r.validate(); err != nil {
		return failure.Wrap(
			failure.ErrBuild,
			fmt.Errorf("repository %q: %w", r.Name, err),
		)
	}

	return nil
}

func (r RepositorySpec) validate() error {
	if r.Name == "" {
		return errors.New("name must be set")
	}

	if len(r.Commits) == 0 {
		return errors.New("no commits")
	}

	times := make(map[string]time.Time)

	// Pass 1: ids and timestamps, so parents may be
	// checked wherever they are declared.
	for _, c := range r.all() {
		if c.ID == "" {
			return fmt.Errorf("commit %q has no id", c.Message)
		}

		if _, dup := times[c.ID]; dup {
			return fmt.Errorf("duplicate commit id %q", c.ID)
		}

		if c.Message == "" || c.Author == "" {
			return fmt.Errorf(
				"commit %s: message and author must be set", c.ID,
			)
		}

		ts, err := c.Time()
		if err != nil {
			return err
		}

		times[c.ID] = ts
	}

	if err := checkLine(r.Commits, "", times); err != nil {
		return err
	}

	names := map[string]struct{}{r.Branch(): {}}
	numbers := make(map[int]string, len(r.Branches))

	for _, b := range r.Branches {
		if b.Name == "" {
			return errors.New("branch without name")
		}

		switch other, dup := numbers[b.PR.Number]; {
		case b.PR.Number < 0:
			return fmt.Errorf("branch %s: negative pr number", b.Name)
		case b.PR.Number > 0 && dup:
			return fmt.Errorf(
				"branch %s: pr number %d already used by %s",
				b.Name, b.PR.Number, other,
			)
		}

		numbers[b.PR.Number] = b.Name

		if _, dup := names[b.Name]; dup {
			return fmt.Errorf("duplicate branch %q", b.Name)
		}

		names[b.Name] = struct{}{}

		if _, ok := times[b.Base]; !ok {
			return fmt.Errorf(
				"branch %s: unknown base %q", b.Name, b.Base,
			)
		}

		if len(b.Commits) == 0 {
			return fmt.Errorf("branch %s: no commits", b.Name)
		}

		if err := checkLine(b.Commits, b.Base, times); err != nil {
			return fmt.Errorf("branch %s: %w", b.Name, err)
		}
	}

	if _, err := r.Schedule(); err != nil {
		return err
	}

	return nil
}

// checkLine verifies the parents of a sequence of commits
// whose first commit descends from prev ("" for a root).
func checkLine(
	line []CommitSpec,
	prev string,
	times map[string]time.Time,
) error {
	for _, c := range line {
		parents := c.ParentIDs(prev)

		if len(parents) > 2 {
			return fmt.Errorf(
				"commit %s: more than two parents", c.ID,
			)
		}

		if len(c.Parents) > 0 && prev == "" {
			return fmt.Errorf(
				"commit %s: root commit cannot have parents", c.ID,
			)
		}

		if len(c.Parents) > 0 && c.Parents[0] != prev {
			return fmt.Errorf(
				"commit %s: first parent must be %q, got %q",
				c.ID, prev, c.Parents[0],
			)
		}

		for _, p := range parents {
			pt, ok := times[p]
			if !ok {
				return fmt.Errorf(
					"commit %s: unknown parent %q", c.ID, p,
				)
			}

			if times[c.ID].Before(pt) {
				return fmt.Errorf(
					"commit %s: timestamp precedes parent %s",
					c.ID, p,
				)
			}
		}

		prev = c.ID
	}

	return nil
}

// ParentIDs returns the effective parents of c given the
// preceding commit prev on its line.
func (c CommitSpec) ParentIDs(prev string) []string {
	if len(c.Parents) > 0 {
		return c.Parents
	}

	if prev == "" {
		return nil
	}

	return []string{prev}
}

// all returns main-line and branch commits.
func (r RepositorySpec) all() []CommitSpec {
	out := append([]CommitSpec(nil), r.Commits...)

	for _, b := range r.Branches {
		out = append(out, b.Commits...)
	}

	return out
}
