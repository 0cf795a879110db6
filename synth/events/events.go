package events

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/byte4ever/synthetic_git/gitops/commitmsg"
	"github.com/byte4ever/synthetic_git/synth/vcs"
)

// Kind is the type of a git event.
type Kind string

// Event kinds.
const (
	KindCommit       Kind = "commit"
	KindBranchCreate Kind = "branch_create"
	KindMerge        Kind = "merge"
)

// GitEvent is one historical action in a repository.
type GitEvent struct {
	ID           string   `json:"id"`
	SourceType   string   `json:"source_type"`
	Kind         Kind     `json:"kind"`
	Repo         string   `json:"repo"`
	RepoURL      string   `json:"repo_url"`
	Branch       string   `json:"branch"`
	CommitSHA    string   `json:"commit_sha"`
	Parents      []string `json:"parents"`
	Author       string   `json:"author"`
	AuthorEmail  string   `json:"author_email"`
	Timestamp    string   `json:"timestamp"`
	Message      string   `json:"message"`
	Summary      string   `json:"summary"`
	FilesChanged []string `json:"files_changed"`
	commitmsg.Annotations
	SourceBranch     string `json:"source_branch,omitempty"`
	TargetBranch     string `json:"target_branch,omitempty"`
	TextForEmbedding string `json:"text_for_embedding"`
}

// Time parses the event timestamp.
func (e GitEvent) Time() (time.Time, error) {
	return time.Parse(time.RFC3339, e.Timestamp)
}

// History is the read side of a repository.
type History interface {
	Log() ([]vcs.Commit, error)
	Branches() (map[string]string, error)
}

// RepoInfo identifies the repository events belong to.
type RepoInfo struct {
	Name          string
	URL           string
	DefaultBranch string
	// Owners maps commit hashes to the branch they were
	// made on. Commits it does not cover are attributed
	// from the branch tips.
	Owners map[string]string
}

// Extract walks h and returns its events.
func Extract(
	ctx context.Context,
	h History,
	repo RepoInfo,
) ([]GitEvent, error) {
	const errCtx = "extracting events"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	log, err := h.Log()
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, repo.Name, err)
	}

	tips, err := h.Branches()
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, repo.Name, err)
	}

	byHash := make(map[string]vcs.Commit, len(log))
	for _, c := range log {
		byHash[c.Hash] = c
	}

	owner, created := attribute(byHash, tips, repo.DefaultBranch, repo.Owners)

	out := make([]GitEvent, 0, len(log)+len(created))

	for _, c := range order(log) {
		msg := commitmsg.Parse(c.Message)
		base := event(repo, c, msg, owner[c.Hash])

		if br, ok := created[c.Hash]; ok {
			e := base
			e.Kind = KindBranchCreate
			e.Branch = br
			e.TargetBranch = br

			if len(c.Parents) > 0 {
				e.SourceBranch = owner[c.Parents[0]]
			}

			out = append(out, e.finish())
		}

		out = append(out, base.finish())

		if len(c.Parents) == 2 {
			e := base
			e.Kind = KindMerge
			e.SourceBranch = owner[c.Parents[1]]
			e.TargetBranch = owner[c.Hash]
			out = append(out, e.finish())
		}
	}

	return out, nil
}

func event(
	repo RepoInfo,
	c vcs.Commit,
	msg commitmsg.Message,
	branch string,
) GitEvent {
	files := c.Files
	if files == nil {
		files = []string{}
	}

	parents := c.Parents
	if parents == nil {
		parents = []string{}
	}

	return GitEvent{
		Kind:         KindCommit,
		Repo:         repo.Name,
		RepoURL:      repo.URL,
		Branch:       branch,
		CommitSHA:    c.Hash,
		Parents:      parents,
		Author:       c.Author,
		AuthorEmail:  c.Email,
		Timestamp:    c.When.UTC().Format(time.RFC3339),
		Message:      msg.Subject,
		Summary:      msg.Summary,
		FilesChanged: files,
		Annotations:  msg.Annotations,
	}
}

func (e GitEvent) finish() GitEvent {
	e.ID = fmt.Sprintf("git_%s:%s:%s", e.Kind, e.Repo, e.CommitSHA)
	e.SourceType = "git_" + string(e.Kind)

	switch e.Kind {
	case KindBranchCreate:
		e.TextForEmbedding = fmt.Sprintf(
			"Branch %s created from %s at %s",
			e.Branch, e.SourceBranch, e.Message,
		)
	case KindMerge:
		e.TextForEmbedding = fmt.Sprintf(
			"Merged %s into %s: %s",
			e.SourceBranch, e.TargetBranch, e.Summary,
		)
	default:
		e.TextForEmbedding = e.Message + "\n\n" + e.Summary
	}

	return e
}

// attribute assigns each commit to the branch that owns it
// and reports, per commit, the branch whose first commit it
// is. Known owners win. The remaining commits go to the
// default branch along its first-parent chain, then to the
// other branches in name order, each claiming first-parent
// commits from its tip down to the first commit owned by
// another branch. A commit starts a branch when its first
// parent belongs to another branch.
func attribute(
	commits map[string]vcs.Commit,
	tips map[string]string,
	defaultBranch string,
	known map[string]string,
) (map[string]string, map[string]string) {
	owner := make(map[string]string, len(commits))

	for h := range commits {
		if b, ok := known[h]; ok && b != "" {
			owner[h] = b
		}
	}

	names := make([]string, 0, len(tips))
	for name := range tips {
		if name != defaultBranch {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	if _, ok := tips[defaultBranch]; ok {
		names = append([]string{defaultBranch}, names...)
	}

	for _, name := range names {
		for h := tips[name]; h != ""; {
			if b, taken := owner[h]; taken && b != name {
				break
			}

			c, ok := commits[h]
			if !ok {
				break
			}

			owner[h] = name

			h = ""
			if len(c.Parents) > 0 {
				h = c.Parents[0]
			}
		}
	}

	created := make(map[string]string)

	for h, c := range commits {
		b := owner[h]
		if b == "" || b == defaultBranch {
			continue
		}

		if len(c.Parents) == 0 || owner[c.Parents[0]] != b {
			created[h] = b
		}
	}

	return owner, created
}

// order sorts commits topologically, picking among ready
// commits the one with the earliest time, then the lowest
// hash.
func order(log []vcs.Commit) []vcs.Commit {
	known := make(map[string]bool, len(log))
	for _, c := range log {
		known[c.Hash] = true
	}

	pending := make(map[string]int, len(log))
	children := make(map[string][]vcs.Commit)

	var ready []vcs.Commit

	for _, c := range log {
		n := 0

		for _, p := range c.Parents {
			if known[p] {
				n++
				children[p] = append(children[p], c)
			}
		}

		pending[c.Hash] = n
		if n == 0 {
			ready = append(ready, c)
		}
	}

	out := make([]vcs.Commit, 0, len(log))

	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			return before(ready[i], ready[j])
		})

		next := ready[0]
		ready = ready[1:]
		out = append(out, next)

		for _, child := range children[next.Hash] {
			pending[child.Hash]--
			if pending[child.Hash] == 0 {
				ready = append(ready, child)
			}
		}
	}

	return out
}

func before(a, b vcs.Commit) bool {
	if !a.When.Equal(b.When) {
		return a.When.Before(b.When)
	}

	return a.Hash < b.Hash
}
