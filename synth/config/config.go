package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

// Defaults.
const (
	DefaultBaseDir       = "data/synthetic_git"
	DefaultBaseBranch    = "main"
	DefaultCommitMessage = "chore(synthetic-git): refresh dataset"
	DefaultProvider      = "github"
	DefaultGitLabHost    = "https://gitlab.com"
)

const section = "synthetic_git."

// Settings is the resolved configuration.
type Settings struct {
	BaseDir       string
	BaseBranch    string
	Branch        string
	CommitMessage string
	// RemoteURL comes from the environment or the
	// remote_url key; the --remote flag is applied by
	// the caller.
	RemoteURL  string
	RepoOwner  string
	RepoName   string
	Token      string
	PlanFile   string
	Provider   string
	GitLabHost string

	// BitbucketHost and BitbucketUser address a
	// Bitbucket Server; Token is the password.
	BitbucketHost string
	BitbucketUser string
	PRTitle       string
	PRBody        string
	PRLabels      []string
}

var envBindings = map[string][]string{
	section + "branch":     {"SYNTHETIC_GIT_BRANCH", "GIT_DATA_BRANCH"},
	section + "remote_url": {"SYNTHETIC_GIT_REMOTE", "SYNTHETIC_GIT_REMOTE_URL", "GIT_DATA_REMOTE"},
	section + "repo_owner": {"SYNTHETIC_GIT_REPO_OWNER"},
	section + "repo_name":  {"SYNTHETIC_GIT_REPO_NAME"},
	section + "token":      {"SYNTHETIC_GIT_TOKEN", "GITHUB_TOKEN"},
	section + "base_dir":   {"SYNTHETIC_GIT_BASE_DIR"},
	"github.repo_owner":    {"GITHUB_REPO_OWNER"},
	"github.repo_name":     {"GITHUB_REPO_NAME"},
}

// Load reads path, or ./config.yaml when path is empty
// and the file exists, then applies the environment.
func Load(path string) (Settings, error) {
	const errCtx = "loading configuration"

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Settings{}, fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	v.SetDefault(section+"base_dir", DefaultBaseDir)
	v.SetDefault(section+"commit_message", DefaultCommitMessage)
	v.SetDefault(section+"provider", DefaultProvider)
	v.SetDefault(section+"gitlab_host", DefaultGitLabHost)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("%s: %w", errCtx, err)
		}
	} else {
		slog.Info("using config file", "path", v.ConfigFileUsed())
	}

	s := Settings{
		BaseDir: v.GetString(section + "base_dir"),
		BaseBranch: first(
			v.GetString(section+"base_branch"),
			v.GetString("github.base_branch"),
			DefaultBaseBranch,
		),
		CommitMessage: v.GetString(section + "commit_message"),
		RemoteURL:     v.GetString(section + "remote_url"),
		RepoOwner: first(
			v.GetString(section+"repo_owner"),
			v.GetString("github.repo_owner"),
		),
		RepoName: first(
			v.GetString(section+"repo_name"),
			v.GetString("github.repo_name"),
		),
		Token:         v.GetString(section + "token"),
		PlanFile:      v.GetString(section + "plan_file"),
		Provider:      v.GetString(section + "provider"),
		GitLabHost:    v.GetString(section + "gitlab_host"),
		BitbucketHost: v.GetString(section + "bitbucket_host"),
		BitbucketUser: v.GetString(section + "bitbucket_user"),
		PRTitle:       v.GetString(section + "pr_title"),
		PRBody:        v.GetString(section + "pr_body"),
		PRLabels:      v.GetStringSlice(section + "pr_labels"),
	}

	s.Branch = first(v.GetString(section+"branch"), s.BaseBranch)

	if len(s.PRLabels) == 0 {
		s.PRLabels = nil
	}

	return s, nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
