package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/synthetic_git/gitops/git"
)

// Config holds the settings needed to create a GitHub
// pull request provider.
type Config struct {
	// RepoOwner is the GitHub user or organisation
	// that owns the repository.
	RepoOwner string
	// Repo is the repository name (without owner).
	Repo string
	// AccessToken is a personal access token or
	// GitHub App token used for authentication.
	AccessToken string
	// EnterpriseHost is an optional GitHub Enterprise
	// hostname (e.g. "git.corp.example.com"). Leave
	// empty for github.com.
	EnterpriseHost string
	// APIURL overrides the REST endpoint entirely
	// (e.g. a local test server). Must end with "/".
	APIURL string
}

// Provider creates pull requests on GitHub.
//
// Pattern: Strategy -- implements git.GitProvider.
type Provider struct {
	client    *gh.Client
	repoOwner string
	repo      string
}

var _ git.GitProvider = (*Provider)(nil)

// NewProvider validates cfg and returns a Provider
// ready to create pull requests.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating github provider"

	if cfg.RepoOwner == "" {
		return nil, fmt.Errorf(
			"%s: repo owner must be set", errCtx,
		)
	}

	if cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	client := gh.NewClient(nil).
		WithAuthToken(cfg.AccessToken)

	switch {
	case cfg.APIURL != "":
		base, err := url.Parse(cfg.APIURL)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: api url: %w", errCtx, err,
			)
		}

		if !strings.HasSuffix(base.Path, "/") {
			base.Path += "/"
		}

		client.BaseURL = base

	case cfg.EnterpriseHost != "":
		baseURL := "https://" +
			cfg.EnterpriseHost + "/api/v3/"
		uploadURL := "https://" +
			cfg.EnterpriseHost + "/api/uploads/"

		var err error

		client, err = client.WithEnterpriseURLs(
			baseURL, uploadURL,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: enterprise urls: %w",
				errCtx, err,
			)
		}
	}

	return &Provider{
		client:    client,
		repoOwner: cfg.RepoOwner,
		repo:      cfg.Repo,
	}, nil
}

// CreatePR opens a pull request from pr.From into
// pr.To and applies pr.Labels. When GitHub answers
// HTTP 422 the open pull request for the same head and
// base is looked up and its URL returned instead.
func (p *Provider) CreatePR(
	ctx context.Context,
	pr git.PullRequest,
) (string, error) {
	const errCtx = "creating github pull request"

	created, resp, err := p.client.PullRequests.Create(
		ctx, p.repoOwner, p.repo,
		&gh.NewPullRequest{
			Title: &pr.Title,
			Head:  &pr.From,
			Base:  &pr.To,
			Body:  &pr.Body,
		},
	)
	if err != nil {
		// HTTP 422: PR already exists for this
		// head/base pair.
		if resp != nil &&
			resp.StatusCode ==
				http.StatusUnprocessableEntity {
			return p.existing(ctx, pr)
		}

		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"created pull request",
		"url", created.GetHTMLURL(),
		"number", created.GetNumber(),
	)

	if len(pr.Labels) > 0 {
		if _, _, err := p.client.Issues.AddLabelsToIssue(
			ctx, p.repoOwner, p.repo,
			created.GetNumber(), pr.Labels,
		); err != nil {
			return "", fmt.Errorf(
				"%s: labels: %w", errCtx, err,
			)
		}
	}

	return created.GetHTMLURL(), nil
}

// existing returns the URL of the open pull request
// for pr's head and base.
func (p *Provider) existing(
	ctx context.Context,
	pr git.PullRequest,
) (string, error) {
	const errCtx = "looking up existing pull request"

	open, _, err := p.client.PullRequests.List(
		ctx, p.repoOwner, p.repo,
		&gh.PullRequestListOptions{
			State: "open",
			Head:  p.repoOwner + ":" + pr.From,
			Base:  pr.To,
		},
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if len(open) == 0 {
		return "", fmt.Errorf(
			"%s: github rejected %s -> %s and no open pull request exists",
			errCtx, pr.From, pr.To,
		)
	}

	slog.Info(
		"reusing existing pull request",
		"url", open[0].GetHTMLURL(),
	)

	return open[0].GetHTMLURL(), nil
}
