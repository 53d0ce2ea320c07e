// Package command runs the external commands attached to user-defined operations.
package command

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/hierbuild/internal/graph"
	"git.home.luguber.info/inful/hierbuild/internal/logfields"
	"git.home.luguber.info/inful/hierbuild/internal/observability"
	"git.home.luguber.info/inful/hierbuild/internal/unit"
)

// Environment variables describing the unit a command runs for.
const (
	EnvUnit    = "HIERBUILD_UNIT"
	EnvGroup   = "HIERBUILD_GROUP"
	EnvVersion = "HIERBUILD_VERSION"
	EnvOutput  = "HIERBUILD_OUTPUT"
)

// Result is the captured outcome of one command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes argv inside dir with extra environment entries.
type Runner interface {
	Run(ctx context.Context, dir string, env []string, argv []string) (*Result, error)
}

// ExecRunner runs commands as child processes inheriting the process environment.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, env []string, argv []string) (*Result, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, ferrors.ValidationError("empty command").Build()
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNotFound, "command not found").
			WithContext("program", argv[0]).
			UserAction().
			Build()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return res, ferrors.WrapError(ctx.Err(), ferrors.CategoryCanceled, "command canceled").
			WithContext("program", argv[0]).
			Build()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		b := ferrors.OperationError("command failed").
			WithCause(err).
			WithContext("program", argv[0]).
			WithContext("exit_code", res.ExitCode)
		if out := diagnostics(res); out != "" {
			b = b.WithContext("output", out)
		}
		return res, b.Build()
	}
	return res, ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to run command").
		WithContext("program", argv[0]).
		Build()
}

// Env describes u to a command.
func Env(u *unit.Unit) []string {
	return []string{
		EnvUnit + "=" + u.DisplayPath(),
		EnvGroup + "=" + u.Group(),
		EnvVersion + "=" + u.Version(),
		EnvOutput + "=" + u.OutputPath(),
	}
}

// Action returns a post-action running argv in u's root directory. The unit
// environment is read when the action runs, after metadata has been inherited.
func Action(r Runner, u *unit.Unit, argv []string) graph.Action {
	return func(ctx context.Context) error {
		observability.DebugContext(ctx, "Running command",
			logfields.Unit(u.DisplayPath()),
			logfields.Path(u.RootPath()),
			logfields.Name(argv[0]))
		res, err := r.Run(ctx, u.RootPath(), Env(u), argv)
		if res != nil {
			if res.Stdout != "" {
				observability.DebugContext(ctx, "command stdout", logfields.Name(argv[0]), logfields.Output(res.Stdout))
			}
			if res.Stderr != "" {
				observability.WarnContext(ctx, "command stderr", logfields.Name(argv[0]), logfields.Output(res.Stderr))
			}
		}
		if err != nil {
			if ce, ok := ferrors.AsClassified(err); ok {
				return ce.WithContext("unit", u.DisplayPath())
			}
			return err
		}
		return nil
	}
}

// diagnostics prefers stderr, falling back to stdout, truncated for error context.
func diagnostics(res *Result) string {
	out := strings.TrimSpace(res.Stderr)
	if out == "" {
		out = strings.TrimSpace(res.Stdout)
	}
	const limit = 2048
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
