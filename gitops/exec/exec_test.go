package exec_test

import (
	"context"
	"testing"

	"github.com/byte4ever/synthetic_git/gitops/exec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEx_success(t *testing.T) {
	t.Parallel()

	out, err := exec.Ex(context.Background(), "", "echo", "hello")

	require.NoError(t, err)
	assert.Contains(t, out, "hello")
}

func TestEx_with_dir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	out, err := exec.Ex(context.Background(), dir, "pwd")

	require.NoError(t, err)
	assert.Contains(t, out, dir)
}

func TestEx_failure(t *testing.T) {
	t.Parallel()

	_, err := exec.Ex(context.Background(), "", "false")

	require.Error(t, err)
	assert.Equal(t, 1, exec.ExitCode(err))
}

func TestExEnv_passes_environment(t *testing.T) {
	t.Parallel()

	out, err := exec.ExEnv(
		context.Background(),
		"",
		[]string{"SYNTH_EXEC_PROBE=42"},
		"sh", "-c", "echo $SYNTH_EXEC_PROBE",
	)

	require.NoError(t, err)
	assert.Contains(t, out, "42")
}

func TestExitCode_nil(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, exec.ExitCode(nil))
}

func TestEx_error_redacts_credentials(t *testing.T) {
	t.Parallel()

	_, err := exec.Ex(
		context.Background(), "",
		"false", "https://s3cr3t@github.com/acme/data.git",
	)

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "s3cr3t")
	assert.Contains(t, err.Error(), "https://***@github.com/acme/data.git")
}

func TestRedact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "token url",
			in:   "https://tok@github.com/acme/data.git",
			want: "https://***@github.com/acme/data.git",
		},
		{
			name: "user and password",
			in:   "https://user:pw@gitlab.com/acme/data.git",
			want: "https://***@gitlab.com/acme/data.git",
		},
		{
			name: "no credentials",
			in:   "https://github.com/acme/data.git",
			want: "https://github.com/acme/data.git",
		},
		{
			name: "at sign in path",
			in:   "https://github.com/acme/@data",
			want: "https://github.com/acme/@data",
		},
		{
			name: "remote name",
			in:   "origin",
			want: "origin",
		},
		{
			name: "scp style is left alone",
			in:   "git@github.com:acme/data.git",
			want: "git@github.com:acme/data.git",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, exec.Redact(tt.in))
		})
	}
}
