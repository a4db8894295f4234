// Package environment captures the process environment relevant to
// activation and models the variable mutations a transition produces.
//
// A Snapshot is read once at program entry and passed by value into the
// activation engine; nothing below the CLI reads the ambient environment.
package environment

import (
	"os"
	"sort"
	"strings"
)

// Variable names read and written by the tool. This is the closed set of
// keys a Mapping may carry.
const (
	VarPath                = "PATH"
	VarGemHome             = "GEM_HOME"
	VarGemPath             = "GEM_PATH"
	VarActivatedRubyBin    = "RUBIES_ACTIVATED_RUBY_BIN_PATH"
	VarActivatedSandboxBin = "RUBIES_ACTIVATED_SANDBOX_BIN_PATH"
)

// Names lists every managed variable.
var Names = []string{
	VarPath,
	VarGemHome,
	VarGemPath,
	VarActivatedRubyBin,
	VarActivatedSandboxBin,
}

// Snapshot is the activation-relevant view of a process environment.
// Empty strings stand for unset variables.
type Snapshot struct {
	// SearchPath is the colon-delimited executable search path.
	SearchPath string

	// GemHome is the current library home, if any.
	GemHome string

	// GemPath is the current library search path, if any.
	GemPath string

	// ActivatedRubyBin is the runtime bin directory inserted by the last
	// activation.
	ActivatedRubyBin string

	// ActivatedSandboxBin is the sandbox bin directory inserted by the last
	// activation.
	ActivatedSandboxBin string

	// Home is the user's home directory, used to expand "~".
	Home string

	// WorkDir is the directory relative sandbox paths are resolved against.
	WorkDir string

	// Lookup exposes the full environment for configuration overrides.
	// Nil means no other variables are set.
	Lookup func(key string) (string, bool)

	// names lists the variables Environ enumerates besides the managed ones.
	names []string
}

// FromLookup builds a Snapshot from a variable lookup function such as
// os.LookupEnv.
func FromLookup(lookup func(string) (string, bool), workDir string) Snapshot {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	return Snapshot{
		SearchPath:          get(VarPath),
		GemHome:             get(VarGemHome),
		GemPath:             get(VarGemPath),
		ActivatedRubyBin:    get(VarActivatedRubyBin),
		ActivatedSandboxBin: get(VarActivatedSandboxBin),
		Home:                get("HOME"),
		WorkDir:             workDir,
		Lookup:              lookup,
	}
}

// FromMap builds a Snapshot from an explicit variable map.
func FromMap(vars map[string]string, workDir string) Snapshot {
	s := FromLookup(func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}, workDir)
	for name := range vars {
		s.names = append(s.names, name)
	}
	return s
}

// FromEnviron builds a Snapshot from "KEY=value" pairs as returned by
// os.Environ. Later duplicates win.
func FromEnviron(environ []string, workDir string) Snapshot {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		vars[name] = value
	}
	return FromMap(vars, workDir)
}

// FromOS snapshots the current process environment and working directory.
func FromOS() (Snapshot, error) {
	wd, err := os.Getwd()
	if err != nil {
		return Snapshot{}, err
	}
	return FromEnviron(os.Environ(), wd), nil
}

// Get returns the value of an arbitrary variable from the snapshot.
func (s Snapshot) Get(key string) (string, bool) {
	if s.Lookup == nil {
		return "", false
	}
	return s.Lookup(key)
}

// Environ returns the snapshot as sorted "KEY=value" pairs suitable for
// exec.Cmd.Env, leaving out the named variables. Snapshots built with
// FromLookup only enumerate the managed variables.
func (s Snapshot) Environ(without ...string) []string {
	skip := make(map[string]bool, len(without))
	for _, name := range without {
		skip[name] = true
	}
	seen := make(map[string]bool, len(s.names)+len(Names))
	env := []string{}
	for _, list := range [][]string{s.names, Names} {
		for _, name := range list {
			if seen[name] || skip[name] {
				continue
			}
			seen[name] = true
			if v, ok := s.Get(name); ok {
				env = append(env, name+"="+v)
			}
		}
	}
	sort.Strings(env)
	return env
}

// Apply returns a new Snapshot reflecting m as if the calling shell had
// evaluated it. s is not modified.
func (s Snapshot) Apply(m *Mapping) Snapshot {
	next := s
	pick := func(name, current string) string {
		v, ok := m.Get(name)
		if !ok {
			return current
		}
		if !v.IsSet() {
			return ""
		}
		return v.String()
	}
	next.SearchPath = pick(VarPath, s.SearchPath)
	next.GemHome = pick(VarGemHome, s.GemHome)
	next.GemPath = pick(VarGemPath, s.GemPath)
	next.ActivatedRubyBin = pick(VarActivatedRubyBin, s.ActivatedRubyBin)
	next.ActivatedSandboxBin = pick(VarActivatedSandboxBin, s.ActivatedSandboxBin)

	prev := s.Lookup
	next.Lookup = func(key string) (string, bool) {
		if v, ok := m.Get(key); ok {
			return v.String(), v.IsSet()
		}
		if prev == nil {
			return "", false
		}
		return prev(key)
	}
	return next
}
