package bitbucket

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/synthetic_git/gitops/git"
)

// Config holds the settings needed to create a
// Bitbucket pull request provider.
type Config struct {
	// Host is the base URL of the Bitbucket Server
	// instance (e.g. "https://bb.example.com").
	Host string
	// Project is the project key owning the
	// repository.
	Project string
	// Repo is the repository slug.
	Repo string
	// User is the Bitbucket API username.
	User string
	// Password is the Bitbucket API password (or
	// personal access token).
	Password string
	// Client sends the requests. Nil means
	// http.DefaultClient.
	Client *http.Client
}

// Provider creates pull requests on Bitbucket Server.
//
// Pattern: Strategy -- implements git.GitProvider.
type Provider struct {
	endpoint string
	project  string
	repo     string
	user     string
	password string
	client   *http.Client
}

var _ git.GitProvider = (*Provider)(nil)

type project struct {
	Key string `json:"key,omitempty"`
}

type repository struct {
	Slug    string  `json:"slug,omitempty"`
	Project project `json:"project"`
}

type ref struct {
	ID         string     `json:"id,omitempty"`
	Repository repository `json:"repository"`
}

type pullrequest struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	State       string `json:"state,omitempty"`
	Open        bool   `json:"open"`
	Closed      bool   `json:"closed"`
	FromRef     *ref   `json:"fromRef,omitempty"`
	ToRef       *ref   `json:"toRef,omitempty"`
	Locked      bool   `json:"locked"`
	Links       links  `json:"links,omitempty"`
}

type links struct {
	Self []struct {
		Href string `json:"href"`
	} `json:"self,omitempty"`
}

type page struct {
	Values []pullrequest `json:"values"`
}

// NewProvider validates cfg and returns a Provider
// ready to create pull requests.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating bitbucket provider"

	if cfg.Host == "" {
		return nil, fmt.Errorf(
			"%s: host must be set", errCtx,
		)
	}

	if cfg.Project == "" || cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: project and repo must be set", errCtx,
		)
	}

	if cfg.User == "" {
		return nil, fmt.Errorf(
			"%s: user must be set", errCtx,
		)
	}

	if cfg.Password == "" {
		return nil, fmt.Errorf(
			"%s: password must be set", errCtx,
		)
	}

	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}

	return &Provider{
		endpoint: fmt.Sprintf(
			"%s/rest/api/1.0/projects/%s/repos/%s/pull-requests",
			strings.TrimRight(cfg.Host, "/"),
			url.PathEscape(cfg.Project),
			url.PathEscape(cfg.Repo),
		),
		project:  cfg.Project,
		repo:     cfg.Repo,
		user:     cfg.User,
		password: cfg.Password,
		client:   client,
	}, nil
}

// CreatePR opens a pull request from pr.From into
// pr.To and returns its web URL. On 409 (already
// exists) the open pull request for pr.From is looked
// up instead. Bitbucket Server has no pull request
// labels, so pr.Labels are only logged.
func (p *Provider) CreatePR(
	ctx context.Context,
	pr git.PullRequest,
) (string, error) {
	const errCtx = "creating bitbucket pull request"

	repo := repository{
		Slug:    p.repo,
		Project: project{Key: p.project},
	}

	payload, err := json.Marshal(&pullrequest{
		Title:       pr.Title,
		Description: pr.Body,
		State:       "OPEN",
		Open:        true,
		FromRef:     &ref{ID: "refs/heads/" + pr.From, Repository: repo},
		ToRef:       &ref{ID: "refs/heads/" + pr.To, Repository: repo},
	})
	if err != nil {
		return "", fmt.Errorf(
			"%s: marshal request: %w", errCtx, err,
		)
	}

	status, rb, err := p.do(ctx, http.MethodPost, p.endpoint, payload)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if len(pr.Labels) > 0 {
		slog.Warn(
			"bitbucket ignores pull request labels",
			"labels", pr.Labels,
		)
	}

	switch status {
	case http.StatusCreated:
		var created pullrequest
		if err := json.Unmarshal(rb, &created); err != nil {
			return "", fmt.Errorf(
				"%s: decode response: %w", errCtx, err,
			)
		}

		slog.Info("pull request created", "url", created.Links.href())

		return created.Links.href(), nil
	case http.StatusConflict:
		return p.existing(ctx, pr)
	default:
		return "", fmt.Errorf(
			"%s: unexpected status %d", errCtx, status,
		)
	}
}

// existing returns the URL of the open pull request
// whose source is pr.From.
func (p *Provider) existing(
	ctx context.Context,
	pr git.PullRequest,
) (string, error) {
	const errCtx = "looking up existing pull request"

	q := url.Values{}
	q.Set("state", "OPEN")
	q.Set("direction", "OUTGOING")
	q.Set("at", "refs/heads/"+pr.From)

	status, rb, err := p.do(
		ctx, http.MethodGet, p.endpoint+"?"+q.Encode(), nil,
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if status != http.StatusOK {
		return "", fmt.Errorf(
			"%s: unexpected status %d", errCtx, status,
		)
	}

	var open page
	if err := json.Unmarshal(rb, &open); err != nil {
		return "", fmt.Errorf(
			"%s: decode response: %w", errCtx, err,
		)
	}

	if len(open.Values) == 0 {
		return "", fmt.Errorf(
			"%s: bitbucket rejected %s -> %s and no open pull request exists",
			errCtx, pr.From, pr.To,
		)
	}

	href := open.Values[0].Links.href()

	slog.Info("reusing existing pull request", "url", href)

	return href, nil
}

func (p *Provider) do(
	ctx context.Context,
	method string,
	target string,
	payload []byte,
) (int, []byte, error) {
	req, err := http.NewRequestWithContext(
		ctx, method, target, bytes.NewReader(payload),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set(
		"Content-Type",
		"application/json; charset=utf-8",
	)
	req.SetBasicAuth(p.user, p.password)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}

	defer resp.Body.Close() //nolint:errcheck

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn(
			"cannot read response body",
			"error", err,
		)
	} else {
		slog.Debug(
			"bitbucket response",
			"status", resp.Status,
			"body", string(rb),
		)
	}

	return resp.StatusCode, rb, nil
}

func (l links) href() string {
	if len(l.Self) == 0 {
		return ""
	}

	return l.Self[0].Href
}
