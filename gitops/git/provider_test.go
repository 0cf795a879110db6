package git_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/synthetic_git/gitops/git"
)

func TestGitProviderFunc_CreatePR_passes_args(
	t *testing.T,
) {
	t.Parallel()

	var got git.PullRequest

	fn := git.GitProviderFunc(
		func(
			_ context.Context,
			pr git.PullRequest,
		) (string, error) {
			got = pr

			return "https://example.com/pr/1", nil
		},
	)

	url, err := fn.CreatePR(
		context.Background(),
		git.PullRequest{
			From:   "synthetic-data",
			To:     "main",
			Title:  "my title",
			Body:   "my body",
			Labels: []string{"dataset"},
		},
	)

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/pr/1", url)
	assert.Equal(t, "synthetic-data", got.From)
	assert.Equal(t, "main", got.To)
	assert.Equal(t, "my title", got.Title)
	assert.Equal(t, "my body", got.Body)
	assert.Equal(t, []string{"dataset"}, got.Labels)
}

func TestGitProviderFunc_CreatePR_empty_body_uses_title(
	t *testing.T,
) {
	t.Parallel()

	var gotBody string

	fn := git.GitProviderFunc(
		func(
			_ context.Context,
			pr git.PullRequest,
		) (string, error) {
			gotBody = pr.Body

			return "", nil
		},
	)

	_, err := fn.CreatePR(
		context.Background(),
		git.PullRequest{From: "a", To: "b", Title: "the title"},
	)

	require.NoError(t, err)
	assert.Equal(t, "the title", gotBody)
}

func TestGitProviderFunc_CreatePR_returns_error(
	t *testing.T,
) {
	t.Parallel()

	errTest := errors.New("test error")

	fn := git.GitProviderFunc(
		func(
			_ context.Context,
			_ git.PullRequest,
		) (string, error) {
			return "", errTest
		},
	)

	_, err := fn.CreatePR(
		context.Background(),
		git.PullRequest{From: "a", To: "b", Title: "t"},
	)

	assert.ErrorIs(t, err, errTest)
}
