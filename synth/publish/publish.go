package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/valyala/fasttemplate"

	"github.com/byte4ever/synthetic_git/gitops/exec"
	"github.com/byte4ever/synthetic_git/gitops/git"
	"github.com/byte4ever/synthetic_git/synth/failure"
)

// DefaultCommitMessage is used when no template is set.
const DefaultCommitMessage = "chore(synthetic-git): refresh dataset"

// ErrNoRemote is returned when no push target can be
// resolved.
var ErrNoRemote = errors.New("no remote configured")

// State of a Publisher.
type State int

// States, in order.
const (
	StateIdle State = iota
	StateOnTargetBranch
	StateStaged
	StateCommitted
	StatePushed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOnTargetBranch:
		return "on_target_branch"
	case StateStaged:
		return "staged"
	case StateCommitted:
		return "committed"
	case StatePushed:
		return "pushed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Repository is the working tree the dataset is
// published from. *git.Repo implements it.
type Repository interface {
	CurrentBranch(ctx context.Context) (string, error)
	BranchExists(ctx context.Context, branch string) (bool, error)
	Switch(ctx context.Context, branch string) error
	CreateBranch(ctx context.Context, branch string, from string) error
	Stage(ctx context.Context, pathspec string) error
	HasStagedChanges(ctx context.Context) (bool, error)
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context, remote string, branch string) error
	RelPath(path string) (string, error)
}

var _ Repository = (*git.Repo)(nil)

// Config holds the settings of a publish run.
type Config struct {
	// Branch receives the dataset commit.
	Branch string

	// BaseBranch is where Branch is created from when
	// it does not exist yet.
	BaseBranch string

	// DatasetDir is the directory staged unless
	// IncludeAll is set.
	DatasetDir string

	// IncludeAll stages the whole working tree.
	IncludeAll bool

	// CommitMessage is a template; {timestamp} is
	// replaced with the commit time.
	CommitMessage string

	// Remote inputs, see ResolveRemote.
	RemoteFlag string
	RemoteEnv  string
	RepoOwner  string
	RepoName   string
	Token      string

	// Provider, when set, opens a pull request from
	// Branch into BaseBranch after the push.
	Provider git.GitProvider
	PRTitle  string
	PRBody   string
	PRLabels []string

	// Now defaults to time.Now.
	Now func() time.Time
}

// Result summarizes a publish run.
type Result struct {
	// Remote is the push target with credentials
	// masked.
	Remote    string
	Committed bool
	Message   string
	PRURL     string
}

// Publisher drives one publish run.
type Publisher struct {
	repo   Repository
	cfg    Config
	state  State
	remote string
}

// New returns an idle Publisher.
func New(repo Repository, cfg Config) *Publisher {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Publisher{repo: repo, cfg: cfg}
}

// State returns the current state.
func (p *Publisher) State() State {
	return p.state
}

// Prepare resolves the remote, then checks out the
// target branch, creating it from the base branch when
// needed. No git command runs when the remote cannot be
// resolved.
func (p *Publisher) Prepare(ctx context.Context) error {
	const errCtx = "preparing publish"

	if p.state != StateIdle {
		return fmt.Errorf("%s: unexpected state %s", errCtx, p.state)
	}

	remote, ok := ResolveRemote(
		p.cfg.RemoteFlag,
		p.cfg.RemoteEnv,
		p.cfg.RepoOwner,
		p.cfg.RepoName,
		p.cfg.Token,
	)
	if !ok {
		return failure.Wrap(failure.ErrPush, fmt.Errorf(
			"%s: %w (set --remote, SYNTHETIC_GIT_REMOTE or "+
				"SYNTHETIC_GIT_REPO_OWNER/SYNTHETIC_GIT_REPO_NAME "+
				"with a token)",
			errCtx, ErrNoRemote,
		))
	}

	p.remote = remote

	if err := p.checkout(ctx); err != nil {
		return failure.Wrap(
			failure.ErrGitOp, fmt.Errorf("%s: %w", errCtx, err),
		)
	}

	p.state = StateOnTargetBranch

	return nil
}

func (p *Publisher) checkout(ctx context.Context) error {
	branch := p.cfg.Branch

	current, err := p.repo.CurrentBranch(ctx)
	if err != nil {
		return err
	}

	if current == branch {
		slog.Info("already on target branch", "branch", branch)

		return nil
	}

	exists, err := p.repo.BranchExists(ctx, branch)
	if err != nil {
		return err
	}

	if exists {
		slog.Info("switching to target branch", "branch", branch)

		return p.repo.Switch(ctx, branch)
	}

	base := p.cfg.BaseBranch

	baseExists, err := p.repo.BranchExists(ctx, base)
	if err != nil {
		return err
	}

	if !baseExists {
		return fmt.Errorf("base branch %q does not exist", base)
	}

	slog.Info(
		"creating target branch",
		"branch", branch,
		"from", base,
	)

	return p.repo.CreateBranch(ctx, branch, base)
}

// Publish stages, commits and pushes the dataset. It
// must follow a successful Prepare.
func (p *Publisher) Publish(ctx context.Context) (Result, error) {
	const errCtx = "publishing dataset"

	res := Result{Remote: exec.Redact(p.remote)}

	if p.state != StateOnTargetBranch {
		return res, fmt.Errorf(
			"%s: unexpected state %s", errCtx, p.state,
		)
	}

	if err := p.stage(ctx); err != nil {
		return res, failure.Wrap(
			failure.ErrGitOp, fmt.Errorf("%s: %w", errCtx, err),
		)
	}

	p.state = StateStaged

	changed, err := p.repo.HasStagedChanges(ctx)
	if err != nil {
		return res, failure.Wrap(
			failure.ErrGitOp, fmt.Errorf("%s: %w", errCtx, err),
		)
	}

	if !changed {
		slog.Info("no staged changes to commit, skipping push")

		p.state = StateCommitted

		return res, nil
	}

	res.Message = RenderMessage(p.cfg.CommitMessage, p.cfg.Now())

	if err := p.repo.Commit(ctx, res.Message); err != nil {
		return res, failure.Wrap(
			failure.ErrGitOp, fmt.Errorf("%s: %w", errCtx, err),
		)
	}

	res.Committed = true
	p.state = StateCommitted

	slog.Info(
		"pushing dataset",
		"remote", res.Remote,
		"branch", p.cfg.Branch,
	)

	if err := p.repo.Push(ctx, p.remote, p.cfg.Branch); err != nil {
		return res, failure.Wrap(
			failure.ErrPush, fmt.Errorf("%s: %w", errCtx, err),
		)
	}

	p.state = StatePushed

	if p.cfg.Provider == nil {
		return res, nil
	}

	url, err := p.cfg.Provider.CreatePR(ctx, git.PullRequest{
		From:   p.cfg.Branch,
		To:     p.cfg.BaseBranch,
		Title:  p.prTitle(res.Message),
		Body:   p.cfg.PRBody,
		Labels: p.cfg.PRLabels,
	})
	if err != nil {
		return res, failure.Wrap(
			failure.ErrPush,
			fmt.Errorf("%s: opening pull request: %w", errCtx, err),
		)
	}

	res.PRURL = url

	slog.Info("pull request ready", "url", url)

	return res, nil
}

func (p *Publisher) stage(ctx context.Context) error {
	pathspec := "."

	if !p.cfg.IncludeAll {
		rel, err := p.repo.RelPath(p.cfg.DatasetDir)
		if err != nil {
			return fmt.Errorf("cannot stage selectively: %w", err)
		}

		pathspec = rel
	}

	slog.Info("staging", "pathspec", pathspec)

	return p.repo.Stage(ctx, pathspec)
}

func (p *Publisher) prTitle(message string) string {
	if p.cfg.PRTitle != "" {
		return p.cfg.PRTitle
	}

	return message
}

// Run prepares then publishes.
func Run(
	ctx context.Context,
	repo Repository,
	cfg Config,
) (Result, error) {
	p := New(repo, cfg)

	if err := p.Prepare(ctx); err != nil {
		return Result{}, err
	}

	return p.Publish(ctx)
}

// ResolveRemote picks the push target: the explicit flag,
// else the environment or configured URL, else a GitHub
// HTTPS URL carrying token built from owner and name.
// ok is false when none applies.
func ResolveRemote(
	flag string,
	env string,
	owner string,
	name string,
	token string,
) (string, bool) {
	switch {
	case flag != "":
		return flag, true
	case env != "":
		return env, true
	case owner != "" && name != "" && token != "":
		return fmt.Sprintf(
			"https://%s@github.com/%s/%s.git", token, owner, name,
		), true
	default:
		return "", false
	}
}

// RenderMessage substitutes {timestamp} in tpl with now
// in UTC. Templates without the placeholder get it
// appended after " @ ".
func RenderMessage(tpl string, now time.Time) string {
	if strings.TrimSpace(tpl) == "" {
		tpl = DefaultCommitMessage
	}

	if !strings.Contains(tpl, "{timestamp}") {
		tpl += " @ {timestamp}"
	}

	return fasttemplate.ExecuteStringStd(tpl, "{", "}", map[string]any{
		"timestamp": now.UTC().Format("2006-01-02T15:04:05Z"),
	})
}
