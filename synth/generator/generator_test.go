package generator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/synthetic_git/synth/artifact"
	"github.com/byte4ever/synthetic_git/synth/builder"
	"github.com/byte4ever/synthetic_git/synth/events"
	"github.com/byte4ever/synthetic_git/synth/failure"
	"github.com/byte4ever/synthetic_git/synth/generator"
	"github.com/byte4ever/synthetic_git/synth/plan"
	"github.com/byte4ever/synthetic_git/synth/prs"
	"github.com/byte4ever/synthetic_git/synth/vcs"
)

func TestRun_default_scenario(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "data", "synthetic_git")

	ds, err := generator.Run(context.Background(), generator.Config{
		BaseDir: dir,
	})
	require.NoError(t, err)

	commits := 0
	for _, r := range plan.Default().Repos {
		commits += len(r.Commits)
		for _, b := range r.Branches {
			commits += len(b.Commits)
		}
	}

	perKind := map[events.Kind]int{}
	perRepo := map[string]int{}

	for _, e := range ds.Events {
		perKind[e.Kind]++
		perRepo[e.Repo]++
	}

	assert.Equal(t, commits, perKind[events.KindCommit])
	assert.Equal(t, 4, perKind[events.KindBranchCreate])
	assert.Equal(t, 4, perKind[events.KindMerge])
	assert.Len(t, ds.Events, commits+8)
	assert.Len(t, perRepo, 4)

	require.Len(t, ds.PRs, 4)

	merged := map[string]int{}
	for _, pr := range ds.PRs {
		if pr.Status == prs.StatusMerged {
			merged[pr.Repo]++
		}
	}

	assert.Equal(t, map[string]int{
		"core-api":              1,
		"billing-service":       1,
		"notifications-service": 1,
		"docs-portal":           1,
	}, merged)

	for _, name := range []string{"core-api", "docs-portal"} {
		assert.DirExists(t, filepath.Join(dir, name, ".git"))
	}

	back, err := artifact.Read(dir)
	require.NoError(t, err)
	assert.Equal(t, ds, back)
}

func TestRun_events_grouped_by_repo_in_plan_order(t *testing.T) {
	t.Parallel()

	ds, err := generator.Run(context.Background(), generator.Config{
		BaseDir: t.TempDir(),
		Open:    memory,
	})
	require.NoError(t, err)

	var order []string

	for _, e := range ds.Events {
		if len(order) == 0 || order[len(order)-1] != e.Repo {
			order = append(order, e.Repo)
		}
	}

	assert.Equal(t, []string{
		"core-api",
		"billing-service",
		"notifications-service",
		"docs-portal",
	}, order)
}

func memory(_ string, branch string) (*vcs.Workspace, error) {
	return vcs.InMemory(branch)
}

func TestRun_forced_rebuild_is_byte_identical(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := generator.Config{BaseDir: dir, Force: true}

	_, err := generator.Run(context.Background(), cfg)
	require.NoError(t, err)

	first, err := artifact.DigestDir(dir)
	require.NoError(t, err)

	_, err = generator.Run(context.Background(), cfg)
	require.NoError(t, err)

	second, err := artifact.DigestDir(dir)
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestRun_refuses_existing_dataset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, artifact.EventsFile), []byte("[]\n"), 0o600,
	))

	_, err := generator.Run(context.Background(), generator.Config{
		BaseDir: dir,
		Open:    memory,
	})
	require.ErrorIs(t, err, failure.ErrBuild)
	assert.ErrorIs(t, err, builder.ErrExists)
}

func TestRun_invalid_plan(t *testing.T) {
	t.Parallel()

	p := plan.Default()
	p.Repos[1].Commits[1].Parents = []string{"nope"}

	_, err := generator.Run(context.Background(), generator.Config{
		BaseDir: t.TempDir(),
		Plan:    p,
		Open:    memory,
	})
	assert.ErrorIs(t, err, failure.ErrBuild)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	ds, err := generator.Run(context.Background(), generator.Config{
		BaseDir: dir,
		Open:    memory,
	})
	require.NoError(t, err)

	loaded, err := generator.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ds, loaded)
}

func TestLoad_missing(t *testing.T) {
	t.Parallel()

	_, err := generator.Load(t.TempDir())
	require.ErrorIs(t, err, failure.ErrMissingArtifact)
	assert.Equal(t, "artifacts", failure.Stage(err))
}
