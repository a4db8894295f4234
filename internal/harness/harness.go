package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/roach88/rubies/internal/activation"
	"github.com/roach88/rubies/internal/environment"
	"github.com/roach88/rubies/internal/pathset"
	"github.com/roach88/rubies/internal/rubyinfo"
	"github.com/roach88/rubies/internal/shell"
	"github.com/roach88/rubies/internal/testutil"
)

// Harness is the scenario execution engine.
type Harness struct {
	engine *activation.Engine
	system map[string]bool
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Build a stub resolver from the scenario's runtimes
// 2. Snapshot the starting environment
// 3. Run each step against the previous step's environment
// 4. Check each step's expect clause
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with an explicit context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	resolver := testutil.NewStubResolver()
	system := make(map[string]bool)
	for bin, rt := range scenario.Runtimes {
		if rt.Fail {
			resolver.Fail(bin)
		} else {
			resolver.Add(bin, rubyinfo.Descriptor{Engine: rt.Engine, Version: rt.Version, GemPath: rt.GemPath})
		}
		if rt.System {
			system[bin] = true
		}
	}

	h := &Harness{
		system: system,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	layout := activation.Layout{
		RubiesRoot: scenario.Layout.RubiesRoot,
		SandboxDir: scenario.Layout.SandboxDir,
	}
	h.engine = activation.New(resolver, layout, h.logger, activation.WithLookPath(h.lookPath))

	env := snapshot(scenario.Environment)
	result := NewResult()
	for i, step := range scenario.Steps {
		env = h.executeStep(ctx, i, step, env, result)
	}
	return result, nil
}

// executeStep runs one step and returns the environment it leaves behind.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, env environment.Snapshot, result *Result) environment.Snapshot {
	var (
		m   *environment.Mapping
		err error
		sr  StepResult
	)
	if step.Activate != nil {
		sr.Command = fmt.Sprintf("rubies activate %s %s", step.Activate.Runtime, step.Activate.Sandbox)
		m, err = h.engine.Activate(ctx, env, step.Activate.Runtime, step.Activate.Sandbox)
	} else {
		sr.Command = "rubies deactivate"
		m, err = h.engine.Deactivate(ctx, env)
	}

	next := env
	if err != nil {
		sr.Error = err.Error()
	} else {
		sr.Output = shell.Format(m)
		next = env.Apply(m)
	}
	result.Steps = append(result.Steps, sr)

	if step.Expect != nil {
		h.checkExpect(index, step.Expect, err, next, result)
	} else if err != nil {
		result.AddError(fmt.Sprintf("steps[%d]: unexpected error: %v", index, err))
	}
	return next
}

func (h *Harness) checkExpect(index int, exp *ExpectClause, err error, env environment.Snapshot, result *Result) {
	if exp.Error != "" {
		var rerr *rubyinfo.ResolutionError
		switch {
		case err == nil:
			result.AddError(fmt.Sprintf("steps[%d]: expected error %s, step succeeded", index, exp.Error))
		case !errors.As(err, &rerr):
			result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got %v", index, exp.Error, err))
		case string(rerr.Code) != exp.Error:
			result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got %s", index, exp.Error, rerr.Code))
		}
	} else if err != nil {
		result.AddError(fmt.Sprintf("steps[%d]: unexpected error: %v", index, err))
		return
	}

	check := func(name, want, got string) {
		if want == "" {
			return
		}
		if got == "" {
			got = Unset
		}
		if want != got {
			result.AddError(fmt.Sprintf("steps[%d]: %s = %q, want %q", index, name, got, want))
		}
	}
	check(environment.VarPath, exp.Path, env.SearchPath)
	check(environment.VarGemHome, exp.GemHome, env.GemHome)
	check(environment.VarGemPath, exp.GemPath, env.GemPath)
}

// lookPath finds the first system runtime on searchPath.
func (h *Harness) lookPath(searchPath, name string) (string, bool) {
	for _, dir := range pathset.Split(searchPath) {
		if h.system[dir] {
			return filepath.Join(dir, name), true
		}
	}
	return "", false
}

func snapshot(spec EnvironmentSpec) environment.Snapshot {
	vars := map[string]string{
		environment.VarPath:                spec.Path,
		environment.VarGemHome:             spec.GemHome,
		environment.VarGemPath:             spec.GemPath,
		environment.VarActivatedRubyBin:    spec.ActivatedRubyBin,
		environment.VarActivatedSandboxBin: spec.ActivatedSandboxBin,
		"HOME":                             spec.Home,
	}
	for k, v := range vars {
		if v == "" {
			delete(vars, k)
		}
	}
	return environment.FromMap(vars, spec.WorkDir)
}

// Transcript renders a result the way a terminal session would show it.
func Transcript(result *Result) string {
	var b strings.Builder
	for _, s := range result.Steps {
		b.WriteString("$ " + s.Command + "\n")
		if s.Error != "" {
			b.WriteString("error: " + s.Error + "\n")
			continue
		}
		if s.Output != "" {
			b.WriteString(s.Output + "\n")
		}
	}
	return b.String()
}
