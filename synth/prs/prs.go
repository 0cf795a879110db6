package prs

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/byte4ever/synthetic_git/synth/events"
	"github.com/byte4ever/synthetic_git/synth/failure"
	"github.com/byte4ever/synthetic_git/synth/plan"
)

// Status of a synthetic pull request.
type Status string

// Statuses.
const (
	StatusOpen   Status = "open"
	StatusMerged Status = "merged"
)

// PullRequest is a synthetic review record for one branch.
type PullRequest struct {
	ID               string   `json:"id"`
	SourceType       string   `json:"source_type"`
	Number           int      `json:"number"`
	Repo             string   `json:"repo"`
	RepoURL          string   `json:"repo_url"`
	SourceBranch     string   `json:"source_branch"`
	TargetBranch     string   `json:"target_branch"`
	Author           string   `json:"author"`
	Title            string   `json:"title"`
	Body             string   `json:"body"`
	Labels           []string `json:"labels"`
	Status           Status   `json:"status"`
	Merged           bool     `json:"merged"`
	CreatedAt        string   `json:"created_at"`
	MergedAt         *string  `json:"merged_at"`
	MergeCommit      string   `json:"merge_commit,omitempty"`
	Commits          []string `json:"commits"`
	FilesChanged     []string `json:"files_changed"`
	ServiceIDs       []string `json:"service_ids"`
	ComponentIDs     []string `json:"component_ids"`
	ChangedAPIs      []string `json:"changed_apis"`
	TextForEmbedding string   `json:"text_for_embedding"`
}

// ErrNoBranchCreate is reported when a branch has no
// recorded branch_create event.
var ErrNoBranchCreate = errors.New("no branch_create event")

// ErrDuplicateNumber is reported when two branches declare
// the same pull request number.
var ErrDuplicateNumber = errors.New("duplicate pull request number")

// Synthesize returns one pull request per branch of spec,
// in declaration order, targeting base. A branch is merged
// when a merge event carries it as source and base as
// target; the earliest such merge wins. Failures carry
// failure.ErrSynthesis.
func Synthesize(
	spec plan.RepositorySpec,
	evs []events.GitEvent,
	base string,
) ([]PullRequest, error) {
	const errCtx = "synthesizing pull requests"

	created := make(map[string]events.GitEvent)
	merges := make(map[string]events.GitEvent)
	commits := make(map[string][]events.GitEvent)

	for _, e := range evs {
		switch e.Kind {
		case events.KindBranchCreate:
			if _, ok := created[e.Branch]; !ok {
				created[e.Branch] = e
			}
		case events.KindCommit:
			commits[e.Branch] = append(commits[e.Branch], e)
		case events.KindMerge:
			if e.TargetBranch != base {
				continue
			}

			if _, ok := merges[e.SourceBranch]; !ok {
				merges[e.SourceBranch] = e
			}
		}
	}

	for _, e := range evs {
		if e.Kind != events.KindMerge || e.TargetBranch != base {
			continue
		}

		if _, ok := created[e.SourceBranch]; !ok {
			return nil, failure.Wrap(failure.ErrSynthesis, fmt.Errorf(
				"%s: %s: merge %s from %q: %w",
				errCtx, spec.Name, e.CommitSHA, e.SourceBranch,
				ErrNoBranchCreate,
			))
		}
	}

	out := make([]PullRequest, 0, len(spec.Branches))
	next := 1

	// Declared numbers are reserved before any is assigned.
	taken := make(map[int]string, len(spec.Branches))

	for _, br := range spec.Branches {
		if br.PR.Number == 0 {
			continue
		}

		if other, dup := taken[br.PR.Number]; dup {
			return nil, failure.Wrap(failure.ErrSynthesis, fmt.Errorf(
				"%s: %s: branches %q and %q: %w",
				errCtx, spec.Name, other, br.Name, ErrDuplicateNumber,
			))
		}

		taken[br.PR.Number] = br.Name
	}

	for _, br := range spec.Branches {
		start, ok := created[br.Name]
		if !ok {
			return nil, failure.Wrap(failure.ErrSynthesis, fmt.Errorf(
				"%s: %s: branch %q: %w",
				errCtx, spec.Name, br.Name, ErrNoBranchCreate,
			))
		}

		number := br.PR.Number
		if number == 0 {
			for taken[next] != "" {
				next++
			}

			number = next
			taken[number] = br.Name
		}

		next = max(next, number) + 1

		pr := build(spec, br, number, base, start, commits[br.Name])

		if m, ok := merges[br.Name]; ok {
			at := m.Timestamp
			pr.Status = StatusMerged
			pr.Merged = true
			pr.MergedAt = &at
			pr.MergeCommit = m.CommitSHA
		}

		out = append(out, pr)
	}

	return out, nil
}

func build(
	spec plan.RepositorySpec,
	br plan.BranchSpec,
	number int,
	base string,
	start events.GitEvent,
	commits []events.GitEvent,
) PullRequest {
	pr := PullRequest{
		ID:           fmt.Sprintf("git_pr:%s:%d", spec.Name, number),
		SourceType:   "git_pr",
		Number:       number,
		Repo:         spec.Name,
		RepoURL:      spec.URL,
		SourceBranch: br.Name,
		TargetBranch: base,
		Author:       br.PR.Author,
		Title:        br.PR.Title,
		Body:         br.PR.Body,
		Labels:       append([]string{}, br.PR.Labels...),
		Status:       StatusOpen,
		CreatedAt:    start.Timestamp,
		Commits:      []string{},
		FilesChanged: []string{},
		ServiceIDs:   []string{},
		ComponentIDs: []string{},
		ChangedAPIs:  []string{},
	}

	for _, c := range commits {
		pr.Commits = append(pr.Commits, c.CommitSHA)
		pr.FilesChanged = appendNew(pr.FilesChanged, c.FilesChanged...)
		pr.ServiceIDs = appendNew(pr.ServiceIDs, c.Services...)
		pr.ComponentIDs = appendNew(pr.ComponentIDs, c.Components...)
		pr.ChangedAPIs = appendNew(pr.ChangedAPIs, c.APIs...)
	}

	sort.Strings(pr.FilesChanged)

	if pr.Author == "" {
		pr.Author = start.Author
	}

	if pr.Title == "" {
		pr.Title = start.Message
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "PR #%d: %s.", number, pr.Title)

	if pr.Body != "" {
		sb.WriteByte(' ')
		sb.WriteString(pr.Body)
	}

	pr.TextForEmbedding = sb.String()

	return pr
}

func appendNew(dst []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}

	return dst
}
