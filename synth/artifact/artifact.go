package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/synthetic_git/synth/events"
	"github.com/byte4ever/synthetic_git/synth/failure"
	"github.com/byte4ever/synthetic_git/synth/prs"
)

// Artifact file names.
const (
	EventsFile = "git_events.json"
	PRsFile    = "git_prs.json"
)

// Dataset is the content of both artifact files.
type Dataset struct {
	Events []events.GitEvent
	PRs    []prs.PullRequest
}

// Digests maps artifact file names to their SHA256.
type Digests map[string]string

// Write serializes ds under dir, overwriting previous
// files, and returns the digest of each file written.
func Write(dir string, ds *Dataset) (Digests, error) {
	const errCtx = "writing artifacts"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	evs := ds.Events
	if evs == nil {
		evs = []events.GitEvent{}
	}

	pulls := ds.PRs
	if pulls == nil {
		pulls = []prs.PullRequest{}
	}

	out := make(Digests, 2)

	for _, f := range []struct {
		name string
		v    any
	}{
		{EventsFile, evs},
		{PRsFile, pulls},
	} {
		path := filepath.Join(dir, f.name)

		if err := writeJSON(path, f.v); err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		d, err := Digest(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		out[f.name] = d

		slog.Info("artifact written", "path", path, "sha256", d)
	}

	return out, nil
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}

	raw = append(raw, '\n')

	if err := os.WriteFile(path, raw, 0o644); err != nil { //nolint:gosec // dataset files are meant to be shared
		return fmt.Errorf("saving %s: %w", path, err)
	}

	return nil
}

// Read loads both artifact files from dir. A missing or
// unreadable file is reported with failure.ErrMissingArtifact,
// one that does not decode with failure.ErrCorruptArtifact.
func Read(dir string) (*Dataset, error) {
	const errCtx = "reading artifacts"

	var ds Dataset

	for _, f := range []struct {
		name string
		v    any
	}{
		{EventsFile, &ds.Events},
		{PRsFile, &ds.PRs},
	} {
		path := filepath.Join(dir, f.name)

		raw, err := os.ReadFile(path) //nolint:gosec // path built from configured dataset dir
		if errors.Is(err, os.ErrNotExist) {
			return nil, failure.Wrap(failure.ErrMissingArtifact, fmt.Errorf(
				"%s: %s not found (run without --skip-generate first)",
				errCtx, path,
			))
		}

		if err != nil {
			return nil, failure.Wrap(
				failure.ErrMissingArtifact,
				fmt.Errorf("%s: %w", errCtx, err),
			)
		}

		if err := json.Unmarshal(raw, f.v); err != nil {
			return nil, failure.Wrap(
				failure.ErrCorruptArtifact,
				fmt.Errorf("%s: %s: %w", errCtx, path, err),
			)
		}
	}

	return &ds, nil
}

// Digest computes the SHA256 hex digest of the file at
// path.
func Digest(path string) (result string, retErr error) {
	const errCtx = "calculating digest"

	fi, err := os.Open(path) //nolint:gosec // path is caller-provided by design
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if closeErr := fi.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("%s: %w", errCtx, closeErr)
		}
	}()

	ha := sha256.New()

	if _, err := io.Copy(ha, fi); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return hex.EncodeToString(ha.Sum(nil)), nil
}

// DigestDir returns the digests of the artifact files
// present in dir.
func DigestDir(dir string) (Digests, error) {
	const errCtx = "digesting artifacts"

	out := make(Digests, 2)

	for _, name := range []string{EventsFile, PRsFile} {
		path := filepath.Join(dir, name)

		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}

		d, err := Digest(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		out[name] = d
	}

	return out, nil
}
