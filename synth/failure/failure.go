// Package failure defines the error kinds that abort a dataset
// run and the stage each kind belongs to.
package failure

import (
	"errors"
	"fmt"
)

// Error kinds. Every error leaving the generator or the
// publisher matches exactly one of these via errors.Is.
var (
	// ErrBuild marks a broken repository construction
	// invariant.
	ErrBuild = errors.New("build error")
	// ErrSynthesis marks a broken pull request
	// derivation invariant.
	ErrSynthesis = errors.New("synthesis error")
	// ErrGitOp marks a failed checkout, stage or commit.
	ErrGitOp = errors.New("git operation error")
	// ErrPush marks an unresolved or rejected remote.
	ErrPush = errors.New("push error")
	// ErrMissingArtifact marks a reuse request without
	// prior artifacts on disk.
	ErrMissingArtifact = errors.New("missing artifact error")
	// ErrCorruptArtifact marks an artifact file that
	// does not decode.
	ErrCorruptArtifact = errors.New("corrupt artifact error")
)

var stages = []struct {
	kind error
	name string
}{
	{ErrBuild, "build"},
	{ErrSynthesis, "synthesis"},
	{ErrGitOp, "git"},
	{ErrPush, "push"},
	{ErrMissingArtifact, "artifacts"},
	{ErrCorruptArtifact, "artifacts"},
}

// Wrap tags err with kind. A nil err stays nil and an
// err already carrying kind is returned unchanged.
func Wrap(kind error, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, kind) {
		return err
	}

	return fmt.Errorf("%w: %w", kind, err)
}

// Stage names the stage that produced err, or "" when err
// carries no known kind.
func Stage(err error) string {
	for _, st := range stages {
		if errors.Is(err, st.kind) {
			return st.name
		}
	}

	return ""
}
