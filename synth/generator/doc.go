// Package generator runs the dataset pipeline: prepare the
// dataset directory, build every synthetic repository,
// extract events, synthesize pull requests and write the
// artifacts. Load is the reuse path that reads previously
// written artifacts instead.
package generator
