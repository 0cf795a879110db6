// Package gitlab implements a git.GitProvider that opens the dataset merge
// request on GitLab.
package gitlab
