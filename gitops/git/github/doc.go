// Package github implements a git.GitProvider that opens the dataset pull
// request on GitHub (cloud or enterprise). Configure with a Config holding
// the repository owner, name, and access token, the same values used to
// derive the tokenized push remote.
package github
