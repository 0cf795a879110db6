// Package git drives the git working tree that the synthetic
// dataset is published from, and defines a strategy interface
// for opening pull requests on git hosting platforms.
//
// Repo wraps the git binary with the handful of operations the
// publisher needs: branch inspection and creation, staging,
// empty-index detection, committing and pushing.
//
// The GitProvider interface abstracts PR creation. Implementations
// exist for GitHub and GitLab in sub-packages. GitProviderFunc is a
// convenience adapter that lets plain functions satisfy the
// interface.
package git
