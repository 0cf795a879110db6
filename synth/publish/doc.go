// Package publish commits the dataset to a dedicated branch
// of the working repository and pushes it.
//
// A Publisher walks a linear state machine:
//
//	idle -> on_target_branch -> staged -> committed -> pushed
//
// Prepare resolves the remote and checks out the target
// branch. Publish stages, commits and pushes, then
// optionally opens a pull request through a
// git.GitProvider. When nothing is staged the commit step
// succeeds without committing and the run stops there.
package publish
