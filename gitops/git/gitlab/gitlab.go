package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/synthetic_git/gitops/git"
)

// Config holds the settings needed to create a GitLab
// merge request provider.
type Config struct {
	// Host is the base URL of the GitLab instance
	// (e.g. "https://gitlab.com").
	Host string
	// Repo is the full project path
	// (e.g. "org/project").
	Repo string
	// AccessToken is a personal or project access
	// token used for authentication.
	AccessToken string
}

// Provider creates merge requests on GitLab.
//
// Pattern: Strategy -- implements git.GitProvider.
type Provider struct {
	client *gl.Client
	repo   string
}

var _ git.GitProvider = (*Provider)(nil)

// NewProvider validates cfg and returns a Provider
// ready to create merge requests.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating gitlab provider"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	if cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	host := cfg.Host
	if host == "" {
		host = "https://gitlab.com"
	}

	client, err := gl.NewClient(
		cfg.AccessToken,
		gl.WithBaseURL(host),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: new client: %w", errCtx, err,
		)
	}

	return &Provider{
		client: client,
		repo:   cfg.Repo,
	}, nil
}

// CreatePR opens a merge request from pr.From into
// pr.To. When GitLab answers HTTP 409 the open merge
// request for the source branch is returned instead.
func (p *Provider) CreatePR(
	ctx context.Context,
	pr git.PullRequest,
) (string, error) {
	const errCtx = "creating gitlab merge request"

	opts := gl.CreateMergeRequestOptions{
		Title:        &pr.Title,
		Description:  &pr.Body,
		SourceBranch: &pr.From,
		TargetBranch: &pr.To,
	}

	if len(pr.Labels) > 0 {
		labels := gl.LabelOptions(pr.Labels)
		opts.Labels = &labels
	}

	created, resp, err := p.client.MergeRequests.CreateMergeRequest(
		p.repo, &opts, gl.WithContext(ctx),
	)
	if err == nil {
		slog.Info(
			"created merge request",
			"url", created.WebURL,
		)

		return created.WebURL, nil
	}

	// HTTP 409: MR already exists for this source
	// branch.
	if resp != nil &&
		resp.StatusCode == http.StatusConflict {
		return p.existing(ctx, pr)
	}

	return "", fmt.Errorf("%s: %w", errCtx, err)
}

// existing returns the URL of the open merge request
// for pr's source and target branches.
func (p *Provider) existing(
	ctx context.Context,
	pr git.PullRequest,
) (string, error) {
	const errCtx = "looking up existing merge request"

	state := "opened"

	open, _, err := p.client.MergeRequests.ListProjectMergeRequests(
		p.repo,
		&gl.ListProjectMergeRequestsOptions{
			State:        &state,
			SourceBranch: &pr.From,
			TargetBranch: &pr.To,
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if len(open) == 0 {
		return "", fmt.Errorf(
			"%s: gitlab rejected %s -> %s and no open merge request exists",
			errCtx, pr.From, pr.To,
		)
	}

	slog.Info(
		"reusing existing merge request",
		"url", open[0].WebURL,
	)

	return open[0].WebURL, nil
}
