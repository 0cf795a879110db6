// Package artifact reads and writes the two dataset files,
// git_events.json and git_prs.json, and computes their
// SHA256 digests so runs can be compared byte for byte.
package artifact
