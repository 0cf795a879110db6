// Package vcs is the version control capability behind the
// synthetic repositories. Workspace wraps a go-git
// repository with a work tree, either on disk or fully in
// memory, and exposes the few operations needed to script a
// history and read it back.
package vcs
