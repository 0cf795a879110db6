// Package prs synthesizes pull request records from the
// branch layout of a plan and the events extracted from the
// built repository.
package prs
