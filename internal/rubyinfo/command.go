package rubyinfo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultCommand is the interpreter executable name inside a bin directory.
const DefaultCommand = "ruby"

// QueryScript is the self-query program passed to the interpreter with -e.
const QueryScript = `require "rubygems"
engine = defined?(RUBY_ENGINE) ? RUBY_ENGINE : "ruby"
puts [engine, RUBY_VERSION, Gem.path.join(":")].join("\n")`

// CommandResolver resolves descriptors by running <binDir>/<Command> -e
// QueryScript and parsing its standard output.
//
// The call blocks until the interpreter exits; no timeout is applied beyond
// whatever ctx carries.
type CommandResolver struct {
	// Command is the interpreter executable name. Empty means DefaultCommand.
	Command string

	// Env is the environment given to the interpreter. Nil inherits the
	// current process environment.
	Env []string

	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger
}

// NewCommandResolver creates a resolver for the given executable name.
func NewCommandResolver(command string, logger *slog.Logger) *CommandResolver {
	return &CommandResolver{Command: command, Logger: logger}
}

// Resolve implements Resolver.
func (r *CommandResolver) Resolve(ctx context.Context, binDir string) (Descriptor, error) {
	interpreter := filepath.Join(binDir, r.command())
	r.logger().Debug("querying interpreter", "interpreter", interpreter)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, interpreter, "-e", QueryScript)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = r.Env

	if err := cmd.Run(); err != nil {
		rerr := &ResolutionError{
			Code:        ErrCodeExecFailed,
			Message:     "interpreter self-query failed",
			Interpreter: interpreter,
			Err:         err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			rerr.Details = map[string]string{"exit_code": strconv.Itoa(exitErr.ExitCode())}
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			if rerr.Details == nil {
				rerr.Details = map[string]string{}
			}
			rerr.Details["stderr"] = msg
		}
		return Descriptor{}, rerr
	}

	desc, err := Parse(stdout.String())
	if err != nil {
		var rerr *ResolutionError
		if errors.As(err, &rerr) {
			rerr.Interpreter = interpreter
		}
		return Descriptor{}, err
	}

	r.logger().Debug("resolved interpreter",
		"interpreter", interpreter,
		"engine", desc.Engine,
		"version", desc.Version)
	return desc, nil
}

func (r *CommandResolver) command() string {
	if r.Command == "" {
		return DefaultCommand
	}
	return r.Command
}

func (r *CommandResolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Logger
}
