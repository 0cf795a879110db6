package git

import "context"

// Pattern: Strategy -- swap git platform without
// changing the publishing logic.

// PullRequest describes a pull request to open from
// branch From into branch To.
type PullRequest struct {
	From   string
	To     string
	Title  string
	Body   string
	Labels []string
}

// GitProvider opens pull requests on a git hosting
// platform. CreatePR returns the web URL of the created
// or already existing pull request.
type GitProvider interface {
	CreatePR(ctx context.Context, pr PullRequest) (string, error)
}

// GitProviderFunc adapts a plain function to the
// GitProvider interface. When the body is empty the
// title is used as body.
type GitProviderFunc func(
	ctx context.Context,
	pr PullRequest,
) (string, error)

// CreatePR delegates to the wrapped function. If the
// body is empty, the title is substituted.
func (f GitProviderFunc) CreatePR(
	ctx context.Context,
	pr PullRequest,
) (string, error) {
	if pr.Body == "" {
		pr.Body = pr.Title
	}

	return f(ctx, pr)
}
