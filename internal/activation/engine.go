package activation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/roach88/rubies/internal/environment"
	"github.com/roach88/rubies/internal/pathset"
	"github.com/roach88/rubies/internal/rubyinfo"
)

// Default layout values.
const (
	DefaultRubiesRoot = "~/.rubies"
	DefaultSandboxDir = ".lib"
)

var (
	// ErrInvalidRuntimeName is returned for runtime names that are empty or
	// would escape the runtimes root.
	ErrInvalidRuntimeName = errors.New("invalid runtime name")

	// ErrInvalidSandbox is returned when the sandbox directory cannot be
	// made absolute.
	ErrInvalidSandbox = errors.New("invalid sandbox directory")
)

// Layout describes where runtimes and sandboxed gems live on disk.
type Layout struct {
	// RubiesRoot holds one directory per runtime, each with a bin/ inside.
	// It is used verbatim; callers expand "~" beforehand if they need to.
	RubiesRoot string

	// SandboxDir is the directory inside a sandbox that holds
	// <engine>/<version> gem homes.
	SandboxDir string

	// RubyCommand is the interpreter executable name inside a bin directory.
	RubyCommand string
}

// DefaultLayout returns the layout used when nothing is configured.
func DefaultLayout() Layout {
	return Layout{
		RubiesRoot:  DefaultRubiesRoot,
		SandboxDir:  DefaultSandboxDir,
		RubyCommand: rubyinfo.DefaultCommand,
	}
}

// Engine computes activation and deactivation mappings.
type Engine struct {
	resolver rubyinfo.Resolver
	layout   Layout
	logger   *slog.Logger
	lookPath func(searchPath, name string) (string, bool)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLookPath replaces the search-path executable lookup used to find the
// current interpreter. The default is pathset.LookPath.
func WithLookPath(fn func(searchPath, name string) (string, bool)) Option {
	return func(e *Engine) {
		e.lookPath = fn
	}
}

// New creates an engine. Empty layout fields fall back to DefaultLayout and
// a nil logger discards output.
func New(resolver rubyinfo.Resolver, layout Layout, logger *slog.Logger, opts ...Option) *Engine {
	def := DefaultLayout()
	if layout.RubiesRoot == "" {
		layout.RubiesRoot = def.RubiesRoot
	}
	if layout.SandboxDir == "" {
		layout.SandboxDir = def.SandboxDir
	}
	if layout.RubyCommand == "" {
		layout.RubyCommand = def.RubyCommand
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := &Engine{
		resolver: resolver,
		layout:   layout,
		logger:   logger,
		lookPath: pathset.LookPath,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Layout returns the effective layout.
func (e *Engine) Layout() Layout {
	return e.layout
}

// RubyBin returns the bin directory of the named runtime.
func (e *Engine) RubyBin(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsRune(name, filepath.Separator) || strings.Contains(name, pathset.Separator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRuntimeName, name)
	}
	bin := filepath.Join(e.layout.RubiesRoot, name, "bin")
	// A bin directory containing the list separator would split into
	// several search-path entries that RemoveAll could never take back out.
	if strings.Contains(bin, pathset.Separator) {
		return "", fmt.Errorf("%w: %q contains %q", ErrInvalidRuntimeName, bin, pathset.Separator)
	}
	return bin, nil
}

// Activate computes the mapping that switches env to the named runtime with
// gems isolated under sandboxDir. Resolution errors are returned unchanged.
func (e *Engine) Activate(ctx context.Context, env environment.Snapshot, name, sandboxDir string) (*environment.Mapping, error) {
	rubyBin, err := e.RubyBin(name)
	if err != nil {
		return nil, err
	}

	desc, err := e.resolver.Resolve(ctx, rubyBin)
	if err != nil {
		return nil, err
	}

	sandbox, err := absSandbox(env, sandboxDir)
	if err != nil {
		return nil, err
	}
	gemHome := filepath.Join(sandbox, e.layout.SandboxDir, desc.Engine, desc.Version)
	sandboxBin := filepath.Join(gemHome, "bin")
	if strings.Contains(sandboxBin, pathset.Separator) {
		return nil, fmt.Errorf("%w: %q contains %q", ErrInvalidSandbox, sandboxBin, pathset.Separator)
	}

	cleaned := pathset.RemoveAll(env.SearchPath, env.ActivatedRubyBin, env.ActivatedSandboxBin)
	searchPath := pathset.Prepend(cleaned, sandboxBin, rubyBin)

	e.logger.Debug("activating runtime",
		"runtime", name,
		"engine", desc.Engine,
		"version", desc.Version,
		"ruby_bin", rubyBin,
		"sandbox_bin", sandboxBin,
		"path", searchPath)

	m := environment.NewMapping().
		Set(environment.VarPath, environment.Export(searchPath)).
		Set(environment.VarGemHome, environment.Export(gemHome)).
		Set(environment.VarGemPath, environment.Export(pathset.Prepend(desc.GemPath, gemHome))).
		Set(environment.VarActivatedRubyBin, environment.Export(rubyBin)).
		Set(environment.VarActivatedSandboxBin, environment.Export(sandboxBin))
	return m, nil
}

// Deactivate computes the mapping that undoes the last activation recorded
// in env. An interpreter must still resolve from the current search path;
// if none does, deactivation fails and nothing is emitted.
func (e *Engine) Deactivate(ctx context.Context, env environment.Snapshot) (*environment.Mapping, error) {
	if _, _, err := e.Current(ctx, env); err != nil {
		return nil, err
	}

	restored := pathset.RemoveAll(env.SearchPath, env.ActivatedRubyBin, env.ActivatedSandboxBin)
	e.logger.Debug("deactivating runtime",
		"ruby_bin", env.ActivatedRubyBin,
		"sandbox_bin", env.ActivatedSandboxBin,
		"path", restored)

	m := environment.NewMapping().
		Set(environment.VarPath, environment.Export(restored)).
		Set(environment.VarGemHome, environment.Unset()).
		Set(environment.VarGemPath, environment.Unset()).
		Set(environment.VarActivatedRubyBin, environment.Unset()).
		Set(environment.VarActivatedSandboxBin, environment.Unset())
	return m, nil
}

// Current resolves the interpreter found first on env's search path and
// returns its descriptor and bin directory.
func (e *Engine) Current(ctx context.Context, env environment.Snapshot) (rubyinfo.Descriptor, string, error) {
	interpreter, ok := e.lookPath(env.SearchPath, e.layout.RubyCommand)
	if !ok {
		return rubyinfo.Descriptor{}, "", rubyinfo.NewNotFoundError(e.layout.RubyCommand, env.SearchPath)
	}
	binDir := filepath.Dir(interpreter)

	desc, err := e.resolver.Resolve(ctx, binDir)
	if err != nil {
		return rubyinfo.Descriptor{}, "", err
	}
	return desc, binDir, nil
}

// absSandbox expands a leading "~" and anchors relative paths at the
// snapshot's working directory.
func absSandbox(env environment.Snapshot, dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidSandbox)
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		if env.Home == "" {
			return "", fmt.Errorf("%w: %q needs HOME", ErrInvalidSandbox, dir)
		}
		dir = filepath.Join(env.Home, strings.TrimPrefix(dir, "~"))
	}
	if !filepath.IsAbs(dir) {
		if env.WorkDir == "" {
			return "", fmt.Errorf("%w: %q is relative and no working directory is known", ErrInvalidSandbox, dir)
		}
		dir = filepath.Join(env.WorkDir, dir)
	}
	dir = filepath.Clean(dir)
	if strings.Contains(dir, pathset.Separator) {
		return "", fmt.Errorf("%w: %q contains %q", ErrInvalidSandbox, dir, pathset.Separator)
	}
	return dir, nil
}
