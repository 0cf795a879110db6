// Package events derives the normalized git event stream of
// a built repository.
//
// Every commit yields a commit event. The first commit owned
// by a non-default branch is preceded by a branch_create
// event and every two-parent commit is followed by a merge
// event. Events are ordered parents first, then by commit
// time, then by hash.
package events
