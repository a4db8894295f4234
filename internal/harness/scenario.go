package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines an activation test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Layout overrides the default runtimes root and sandbox directory.
	Layout LayoutSpec `yaml:"layout,omitempty"`

	// Environment is the process environment before the first step.
	Environment EnvironmentSpec `yaml:"environment"`

	// Runtimes maps bin directories to the descriptors the stub resolver
	// returns for them.
	Runtimes map[string]RuntimeSpec `yaml:"runtimes"`

	// Steps run in order, each against the environment the previous one
	// produced.
	Steps []Step `yaml:"steps"`
}

// LayoutSpec mirrors activation.Layout.
type LayoutSpec struct {
	RubiesRoot string `yaml:"runtimes_root,omitempty"`
	SandboxDir string `yaml:"sandbox_dir,omitempty"`
}

// EnvironmentSpec describes the starting environment snapshot.
type EnvironmentSpec struct {
	Path                string `yaml:"path"`
	GemHome             string `yaml:"gem_home,omitempty"`
	GemPath             string `yaml:"gem_path,omitempty"`
	ActivatedRubyBin    string `yaml:"activated_ruby_bin,omitempty"`
	ActivatedSandboxBin string `yaml:"activated_sandbox_bin,omitempty"`
	Home                string `yaml:"home,omitempty"`
	WorkDir             string `yaml:"workdir,omitempty"`
}

// RuntimeSpec is a canned interpreter.
type RuntimeSpec struct {
	Engine  string `yaml:"engine,omitempty"`
	Version string `yaml:"version,omitempty"`
	GemPath string `yaml:"gem_path,omitempty"`

	// Fail makes resolution of this runtime fail.
	Fail bool `yaml:"fail,omitempty"`

	// System makes the runtime discoverable on the search path.
	System bool `yaml:"system,omitempty"`
}

// Step is a single command. Exactly one of Activate or Deactivate is set.
type Step struct {
	Activate   *ActivateStep `yaml:"activate,omitempty"`
	Deactivate bool          `yaml:"deactivate,omitempty"`
	Expect     *ExpectClause `yaml:"expect,omitempty"`
}

// ActivateStep holds the arguments of an activate command.
type ActivateStep struct {
	Runtime string `yaml:"runtime"`
	Sandbox string `yaml:"sandbox"`
}

// ExpectClause specifies the expected outcome of a step.
// Empty fields are not checked.
type ExpectClause struct {
	// Error is the expected ResolutionError code (e.g. "EXEC_FAILED").
	Error string `yaml:"error,omitempty"`

	Path    string `yaml:"path,omitempty"`
	GemHome string `yaml:"gem_home,omitempty"`
	GemPath string `yaml:"gem_path,omitempty"`
}

// Unset is the expectation value for a variable that must not be set.
const Unset = "<unset>"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for bin, rt := range s.Runtimes {
		if rt.Fail {
			continue
		}
		if rt.Engine == "" || rt.Version == "" || rt.GemPath == "" {
			return fmt.Errorf("runtimes[%s]: engine, version and gem_path are required", bin)
		}
	}

	for i, step := range s.Steps {
		switch {
		case step.Activate != nil && step.Deactivate:
			return fmt.Errorf("steps[%d]: activate and deactivate are mutually exclusive", i)
		case step.Activate == nil && !step.Deactivate:
			return fmt.Errorf("steps[%d]: one of activate or deactivate is required", i)
		case step.Activate != nil && step.Activate.Runtime == "":
			return fmt.Errorf("steps[%d].activate: runtime is required", i)
		case step.Activate != nil && step.Activate.Sandbox == "":
			return fmt.Errorf("steps[%d].activate: sandbox is required", i)
		}
	}

	return nil
}
