// Package commitmsg generates and parses the messages of synthetic commits.
// Catalogue annotations (services, components, changed APIs, doc-only
// changes) are encoded between marker lines so that event extraction can
// recover them from the repository alone.
package commitmsg
