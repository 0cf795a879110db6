// Package builder materializes the repositories of a plan.
//
// Build replays a RepositorySpec against a workspace in the
// order given by plan.Schedule: every commit after all of its
// parents, each branch forked at its base on its first
// commit, merges recorded with both parents.
// Prepare owns the destructive wipe of the dataset directory
// and must run before anything is built or written.
package builder
