// Package plan declares the synthetic repositories of the
// dataset: their commits, branches, merges and the pull
// request metadata attached to each branch.
//
// Default returns the built-in demo of four services. Load
// reads a custom plan from a YAML file with the same shape.
// Both are validated before use so the builder can assume a
// well formed commit graph.
package plan
