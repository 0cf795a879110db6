package plan

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Step is one commit of a repository in build order.
type Step struct {
	// Branch is the line the commit belongs to.
	Branch string
	// Fork is set on the first commit of a branch to
	// the commit the branch starts from.
	Fork string
	// Prev is the preceding commit on the line, ""
	// for the root commit.
	Prev   string
	Commit CommitSpec
}

// Parents returns the effective parent IDs of the step.
func (s Step) Parents() []string {
	return s.Commit.ParentIDs(s.Prev)
}

// Schedule orders every commit of r so that all parents
// of a commit come before it, whichever line they are on.
// Among ready commits the earliest timestamp goes first,
// then declaration order (each branch right after its
// base).
func (r RepositorySpec) Schedule() ([]Step, error) {
	steps := r.declared()

	if total := len(r.all()); len(steps) != total {
		return nil, fmt.Errorf(
			"%d commits not reachable from the default branch",
			total-len(steps),
		)
	}

	index := make(map[string]int, len(steps))
	times := make([]time.Time, len(steps))

	for i, s := range steps {
		ts, err := s.Commit.Time()
		if err != nil {
			return nil, err
		}

		index[s.Commit.ID] = i
		times[i] = ts
	}

	pending := make([]int, len(steps))
	children := make([][]int, len(steps))

	var ready []int

	for i, s := range steps {
		for _, p := range s.Parents() {
			j, ok := index[p]
			if !ok {
				return nil, fmt.Errorf(
					"commit %s: unknown parent %q", s.Commit.ID, p,
				)
			}

			pending[i]++
			children[j] = append(children[j], i)
		}

		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}

	out := make([]Step, 0, len(steps))

	for len(ready) > 0 {
		sort.Slice(ready, func(a, b int) bool {
			ta, tb := times[ready[a]], times[ready[b]]
			if !ta.Equal(tb) {
				return ta.Before(tb)
			}

			return ready[a] < ready[b]
		})

		next := ready[0]
		ready = ready[1:]
		out = append(out, steps[next])

		for _, c := range children[next] {
			pending[c]--
			if pending[c] == 0 {
				ready = append(ready, c)
			}
		}
	}

	if len(out) != len(steps) {
		var stuck []string

		for i, n := range pending {
			if n > 0 {
				stuck = append(stuck, steps[i].Commit.ID)
			}
		}

		return nil, fmt.Errorf(
			"commits %s form a cycle", strings.Join(stuck, ", "),
		)
	}

	return out, nil
}

// declared lists the commits line by line, each branch
// right after the commit it forks from.
func (r RepositorySpec) declared() []Step {
	forked := make(map[string][]BranchSpec)
	for _, b := range r.Branches {
		forked[b.Base] = append(forked[b.Base], b)
	}

	var (
		out  []Step
		walk func(branch string, fork string, line []CommitSpec)
	)

	walk = func(branch string, fork string, line []CommitSpec) {
		prev := fork

		for i, c := range line {
			s := Step{Branch: branch, Prev: prev, Commit: c}
			if i == 0 {
				s.Fork = fork
			}

			out = append(out, s)
			prev = c.ID

			for _, b := range forked[c.ID] {
				walk(b.Name, b.Base, b.Commits)
			}
		}
	}

	walk(r.Branch(), "", r.Commits)

	return out
}
