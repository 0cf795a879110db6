// Package exec provides shell command execution helpers.
package exec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Ex executes the named command in the given directory and
// returns combined stdout+stderr output. Pass empty dir to
// use the current working directory. Arguments that look like
// credential-bearing URLs are redacted in logs and errors.
func Ex(
	ctx context.Context,
	dir string,
	name string,
	arg ...string,
) (string, error) {
	return ExEnv(ctx, dir, nil, name, arg...)
}

// ExEnv is Ex with extra KEY=VALUE entries appended to the
// process environment.
func ExEnv(
	ctx context.Context,
	dir string,
	env []string,
	name string,
	arg ...string,
) (string, error) {
	const errCtx = "executing command"

	shown := redactAll(arg)

	slog.Info(
		"executing",
		"cmd", name,
		"args", shown,
	)

	//nolint:gosec // command and args come from this module
	cmd := exec.CommandContext(ctx, name, arg...)
	if dir != "" {
		cmd.Dir = dir
	}

	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	by, err := cmd.CombinedOutput()

	slog.Debug("output", "result", string(by))

	if err != nil {
		return string(by), fmt.Errorf(
			"%s: %s %s: %w",
			errCtx, name, shown, err,
		)
	}

	return string(by), nil
}

// ExitCode returns the exit status carried by err, 0 for a
// nil error and -1 when the command did not run to completion.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}

	return -1
}

// Redact hides the userinfo part of a URL such as
// https://token@host/owner/repo.git. Other strings are
// returned unchanged.
func Redact(s string) string {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return s
	}

	at := strings.Index(rest, "@")
	if at < 0 {
		return s
	}

	// An "@" after the first path separator is not userinfo.
	if slash := strings.Index(rest, "/"); slash >= 0 && slash < at {
		return s
	}

	return scheme + "://***@" + rest[at+1:]
}

func redactAll(arg []string) string {
	shown := make([]string, len(arg))
	for i, a := range arg {
		shown[i] = Redact(a)
	}

	return strings.Join(shown, " ")
}
