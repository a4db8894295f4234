package rubyinfo

import (
	"context"
	"strconv"
	"strings"
)

// Descriptor identifies an interpreter installation. All fields are
// non-empty once a Resolver has returned it.
type Descriptor struct {
	// Engine is the implementation name (e.g. "ruby", "jruby", "truffleruby").
	Engine string

	// Version is the language version reported by the interpreter.
	Version string

	// GemPath is the interpreter's default gem search path list.
	GemPath string
}

// Resolver produces the Descriptor of the interpreter living in binDir.
type Resolver interface {
	Resolve(ctx context.Context, binDir string) (Descriptor, error)
}

// ResolverFunc adapts an ordinary function to the Resolver interface.
type ResolverFunc func(ctx context.Context, binDir string) (Descriptor, error)

// Resolve calls f(ctx, binDir).
func (f ResolverFunc) Resolve(ctx context.Context, binDir string) (Descriptor, error) {
	return f(ctx, binDir)
}

// Triple renders the descriptor in the self-query wire format, without a
// trailing newline.
func (d Descriptor) Triple() string {
	return strings.Join([]string{d.Engine, d.Version, d.GemPath}, "\n")
}

// Parse decodes self-query output. A single trailing newline is allowed and a
// trailing carriage return on each line is tolerated.
func Parse(output string) (Descriptor, error) {
	trimmed := strings.TrimSuffix(output, "\n")
	lines := strings.Split(trimmed, "\n")
	if len(lines) != 3 {
		return Descriptor{}, &ResolutionError{
			Code:    ErrCodeMalformedOutput,
			Message: "expected 3 lines of interpreter info",
			Details: map[string]string{"lines": strconv.Itoa(len(lines))},
		}
	}

	fields := []string{"engine", "version", "gem path"}
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
		if lines[i] == "" {
			return Descriptor{}, &ResolutionError{
				Code:    ErrCodeMalformedOutput,
				Message: "empty " + fields[i] + " in interpreter info",
			}
		}
	}

	return Descriptor{Engine: lines[0], Version: lines[1], GemPath: lines[2]}, nil
}
