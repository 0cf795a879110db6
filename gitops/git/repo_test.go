package git_test

import (
	"context"
	"os"
	oe "os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/synthetic_git/gitops/git"
)

func TestIsRootPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		want bool
	}{
		{
			name: "empty string is root",
			path: "",
			want: true,
		},
		{
			name: "dot is root",
			path: ".",
			want: true,
		},
		{
			name: "subdir is not root",
			path: "data/synthetic_git",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := git.IsRootPathForTest(tt.path)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen_resolves_toplevel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	initGitRepo(t, dir)

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o750))

	rp, err := git.Open(context.Background(), sub)
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, want, rp.Dir)
}

func TestOpen_not_a_repository(t *testing.T) {
	t.Parallel()

	_, err := git.Open(context.Background(), t.TempDir())

	assert.ErrorContains(t, err, "opening repository")
}

func TestRepo_CurrentBranch(t *testing.T) {
	t.Parallel()

	rp := newRepo(t)

	got, err := rp.CurrentBranch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "main", got)
}

func TestRepo_BranchExists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rp := newRepo(t)

	ok, err := rp.BranchExists(ctx, "main")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rp.BranchExists(ctx, "synthetic-data")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepo_CreateBranch_and_Switch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rp := newRepo(t)

	require.NoError(t, rp.CreateBranch(ctx, "synthetic-data", "main"))

	got, err := rp.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "synthetic-data", got)

	require.NoError(t, rp.Switch(ctx, "main"))

	got, err = rp.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", got)
}

func TestRepo_CreateBranch_missing_base(t *testing.T) {
	t.Parallel()

	rp := newRepo(t)

	err := rp.CreateBranch(
		context.Background(), "synthetic-data", "develop",
	)

	assert.ErrorContains(t, err, "creating branch")
}

func TestRepo_HasStagedChanges_clean(t *testing.T) {
	t.Parallel()

	rp := newRepo(t)

	staged, err := rp.HasStagedChanges(context.Background())
	require.NoError(t, err)
	assert.False(t, staged)
}

func TestRepo_Stage_only_pathspec(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rp := newRepo(t)

	writeFile(t, filepath.Join(rp.Dir, "data", "events.json"), "[]\n")
	writeFile(t, filepath.Join(rp.Dir, "notes.txt"), "scratch\n")

	require.NoError(t, rp.Stage(ctx, "data"))

	staged, err := rp.HasStagedChanges(ctx)
	require.NoError(t, err)
	assert.True(t, staged)

	out := gitOut(t, rp.Dir, "diff", "--cached", "--name-only")
	assert.Contains(t, out, "data/events.json")
	assert.NotContains(t, out, "notes.txt")
}

func TestRepo_Stage_root_includes_everything(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rp := newRepo(t)

	writeFile(t, filepath.Join(rp.Dir, "data", "events.json"), "[]\n")
	writeFile(t, filepath.Join(rp.Dir, "notes.txt"), "scratch\n")

	require.NoError(t, rp.Stage(ctx, ""))

	out := gitOut(t, rp.Dir, "diff", "--cached", "--name-only")
	assert.Contains(t, out, "data/events.json")
	assert.Contains(t, out, "notes.txt")
}

func TestRepo_Commit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rp := newRepo(t)

	writeFile(t, filepath.Join(rp.Dir, "data", "events.json"), "[]\n")
	require.NoError(t, rp.Stage(ctx, "data"))
	require.NoError(t, rp.Commit(ctx, "chore: refresh dataset"))

	staged, err := rp.HasStagedChanges(ctx)
	require.NoError(t, err)
	assert.False(t, staged)

	msg := gitOut(t, rp.Dir, "log", "-1", "--pretty=%B")
	assert.Contains(t, msg, "chore: refresh dataset")
}

func TestRepo_Commit_nothing_staged_fails(t *testing.T) {
	t.Parallel()

	rp := newRepo(t)

	err := rp.Commit(context.Background(), "empty")

	assert.ErrorContains(t, err, "committing")
}

func TestRepo_Push_to_bare_remote(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rp := newRepo(t)

	remote := filepath.Join(t.TempDir(), "remote.git")
	gitCmd(t, "", "init", "--bare", "-b", "main", remote)

	require.NoError(t, rp.CreateBranch(ctx, "synthetic-data", "main"))
	require.NoError(t, rp.Push(ctx, remote, "synthetic-data"))

	refs := gitOut(t, remote, "branch", "--list", "synthetic-data")
	assert.Contains(t, refs, "synthetic-data")
}

func TestRepo_RelPath(t *testing.T) {
	t.Parallel()

	rp := newRepo(t)

	got, err := rp.RelPath(filepath.Join(rp.Dir, "data", "synthetic_git"))
	require.NoError(t, err)
	assert.Equal(t, "data/synthetic_git", got)

	_, err = rp.RelPath(t.TempDir())
	assert.ErrorContains(t, err, "outside")
}

func newRepo(tb testing.TB) *git.Repo {
	tb.Helper()

	dir := tb.TempDir()
	initGitRepo(tb, dir)

	top, err := filepath.EvalSymlinks(dir)
	require.NoError(tb, err)

	return &git.Repo{Dir: top}
}

func writeFile(tb testing.TB, path string, content string) {
	tb.Helper()

	require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(tb, os.WriteFile(path, []byte(content), 0o600))
}

// initGitRepo creates a git repository with one
// initial commit. Git hooks are disabled to avoid
// interference from pre-commit hooks.
func initGitRepo(tb testing.TB, dir string) {
	tb.Helper()

	cmds := [][]string{
		{"init", "-b", "main"},
		{
			"config",
			"user.email", "test@test.com",
		},
		{"config", "user.name", "Test"},
		{
			"config", "core.hooksPath",
			"/dev/null",
		},
		{
			"commit", "--allow-empty",
			"-m", "initial",
		},
	}

	for _, args := range cmds {
		gitCmd(tb, dir, args...)
	}
}

// gitCmd runs a git command in the given directory.
func gitCmd(
	tb testing.TB,
	dir string,
	args ...string,
) {
	tb.Helper()

	gitOut(tb, dir, args...)
}

func gitOut(
	tb testing.TB,
	dir string,
	args ...string,
) string {
	tb.Helper()

	//nolint:gosec // test helper
	cmd := oe.CommandContext(
		context.Background(), "git", args...,
	)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	if err != nil {
		tb.Fatalf(
			"git %v failed: %s: %v",
			args, string(out), err,
		)
	}

	return strings.TrimSpace(string(out))
}
