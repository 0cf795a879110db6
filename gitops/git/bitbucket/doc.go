// Package bitbucket implements a git.GitProvider that opens the dataset pull
// request on Bitbucket Server through its REST API.
package bitbucket
