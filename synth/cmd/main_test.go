package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/synthetic_git/synth/artifact"
	"github.com/byte4ever/synthetic_git/synth/config"
	"github.com/byte4ever/synthetic_git/synth/failure"
	"github.com/byte4ever/synthetic_git/synth/publish"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, name := range []string{
		"SYNTHETIC_GIT_BRANCH",
		"GIT_DATA_BRANCH",
		"SYNTHETIC_GIT_REMOTE",
		"SYNTHETIC_GIT_REMOTE_URL",
		"GIT_DATA_REMOTE",
		"SYNTHETIC_GIT_REPO_OWNER",
		"SYNTHETIC_GIT_REPO_NAME",
		"SYNTHETIC_GIT_TOKEN",
		"SYNTHETIC_GIT_BASE_DIR",
		"GITHUB_TOKEN",
		"GITHUB_REPO_OWNER",
		"GITHUB_REPO_NAME",
	} {
		t.Setenv(name, "")
	}
}

func execute(t *testing.T, args ...string) error {
	t.Helper()

	cmd := newRootCmd()
	cmd.SetArgs(args)

	return cmd.ExecuteContext(context.Background())
}

func TestRoot_generates_dataset(t *testing.T) {
	clearEnv(t)

	dir := filepath.Join(t.TempDir(), "synthetic_git")

	require.NoError(t, execute(t, "--base-dir", dir))

	ds, err := artifact.Read(dir)
	require.NoError(t, err)
	assert.Len(t, ds.PRs, 4)

	err = execute(t, "--base-dir", dir)
	require.ErrorIs(t, err, failure.ErrBuild, "existing dataset needs --force")

	require.NoError(t, execute(t, "--base-dir", dir, "--force"))
}

func TestRoot_skip_generate_without_artifacts(t *testing.T) {
	clearEnv(t)

	err := execute(t, "--base-dir", t.TempDir(), "--skip-generate")
	require.ErrorIs(t, err, failure.ErrMissingArtifact)
	assert.Equal(t, "artifacts", failure.Stage(err))
}

func TestRoot_push_without_remote(t *testing.T) {
	clearEnv(t)

	repo := t.TempDir()

	out, err := exec.Command("git", "init", "-b", "main", repo).CombinedOutput()
	require.NoError(t, err, string(out))

	t.Chdir(repo)

	dataset := filepath.Join(repo, "data", "synthetic_git")

	err = execute(t, "--base-dir", dataset, "--push")
	require.ErrorIs(t, err, failure.ErrPush)
	assert.ErrorIs(t, err, publish.ErrNoRemote)
	assert.NoDirExists(t, dataset, "nothing generated before the failure")
}

// gitIn runs git in dir and returns its trimmed output.
func gitIn(t *testing.T, dir string, args ...string) string {
	t.Helper()

	out, err := exec.Command(
		"git", append([]string{"-C", dir}, args...)...,
	).CombinedOutput()
	require.NoError(t, err, string(out))

	return strings.TrimSpace(string(out))
}

// newOuterRepo creates a working tree with one commit on
// main and a bare remote next to it. Hooks, signing and
// the user's global config are disabled.
func newOuterRepo(t *testing.T) (string, string) {
	t.Helper()

	t.Setenv("GIT_CONFIG_GLOBAL", filepath.Join(t.TempDir(), "gitconfig"))
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")

	root := t.TempDir()
	repo := filepath.Join(root, "work")
	bare := filepath.Join(root, "remote.git")

	gitIn(t, root, "init", "--bare", "-b", "main", bare)
	gitIn(t, root, "init", "-b", "main", repo)

	for _, args := range [][]string{
		{"config", "user.email", "test@test.com"},
		{"config", "user.name", "Test"},
		{"config", "core.hooksPath", "/dev/null"},
		{"config", "commit.gpgsign", "false"},
		{"commit", "--allow-empty", "-m", "initial"},
	} {
		gitIn(t, repo, args...)
	}

	return repo, bare
}

func TestRoot_push_then_reuse_unchanged_artifacts(t *testing.T) {
	clearEnv(t)

	repo, bare := newOuterRepo(t)
	t.Chdir(repo)

	dataset := filepath.Join(repo, "data", "synthetic_git")

	require.NoError(t, execute(t,
		"--base-dir", dataset,
		"--push", "--remote", bare, "--branch", "synthetic-data",
	))

	head := gitIn(t, repo, "rev-parse", "HEAD")
	assert.Equal(t, head, gitIn(t, bare, "rev-parse", "refs/heads/synthetic-data"))
	assert.Equal(t, "synthetic-data", gitIn(t, repo, "rev-parse", "--abbrev-ref", "HEAD"))

	digests, err := artifact.DigestDir(dataset)
	require.NoError(t, err)

	require.NoError(t, execute(t,
		"--base-dir", dataset,
		"--skip-generate",
		"--push", "--remote", bare, "--branch", "synthetic-data",
	))

	assert.Equal(t, head, gitIn(t, repo, "rev-parse", "HEAD"), "no new commit")
	assert.Equal(t, head, gitIn(t, bare, "rev-parse", "refs/heads/synthetic-data"))

	again, err := artifact.DigestDir(dataset)
	require.NoError(t, err)
	assert.Equal(t, digests, again)
}

func TestRoot_skip_generate_corrupt_artifacts(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, artifact.EventsFile), []byte("{"), 0o600,
	))

	err := execute(t, "--base-dir", dir, "--skip-generate")
	require.ErrorIs(t, err, failure.ErrCorruptArtifact)
	assert.Equal(t, "artifacts", failure.Stage(err))
}

func TestRoot_open_pr_needs_distinct_branch(t *testing.T) {
	clearEnv(t)

	dataset := filepath.Join(t.TempDir(), "synthetic_git")

	err := execute(t,
		"--base-dir", dataset,
		"--push", "--open-pr", "--remote", "/nowhere",
	)
	require.ErrorIs(t, err, errSameBranch)
	assert.NoDirExists(t, dataset)
}

func TestRoot_rejects_arguments(t *testing.T) {
	clearEnv(t)

	assert.Error(t, execute(t, "extra"))
}

func TestNewGitProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		s       config.Settings
		wantErr bool
	}{
		{
			name: "github",
			s: config.Settings{
				Provider: "github", RepoOwner: "acme", RepoName: "data", Token: "t",
			},
		},
		{
			name: "gitlab",
			s: config.Settings{
				Provider: "gitlab", GitLabHost: "https://gitlab.example.test",
				RepoOwner: "acme", RepoName: "data", Token: "t",
			},
		},
		{
			name: "bitbucket",
			s: config.Settings{
				Provider: "bitbucket", BitbucketHost: "https://bb.example.test",
				BitbucketUser: "ci", RepoOwner: "DATA", RepoName: "data", Token: "t",
			},
		},
		{
			name:    "bitbucket without host",
			s:       config.Settings{Provider: "bitbucket", RepoOwner: "DATA", RepoName: "data", Token: "t"},
			wantErr: true,
		},
		{
			name:    "unknown",
			s:       config.Settings{Provider: "gitea"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := newGitProvider(tt.s)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}
}
