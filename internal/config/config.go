// Package config loads the optional rubies configuration file.
//
// The file is YAML:
//
//	runtimes_root: ~/.rubies   # one directory per installed runtime
//	sandbox_dir: .lib          # gem homes live in <sandbox>/<sandbox_dir>/<engine>/<version>
//	ruby_command: ruby         # interpreter executable inside a runtime's bin/
//	log_level: warn            # debug | info | warn | error
//
// Documents are decoded strictly (unknown keys are rejected) and then
// checked against an embedded CUE schema. RUBIES_ROOT and RUBIES_LOG_LEVEL
// override the corresponding keys unless they are empty.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rubies/internal/activation"
	"github.com/roach88/rubies/internal/environment"
)

// Environment variables consulted by Load.
const (
	EnvConfig   = "RUBIES_CONFIG"
	EnvRoot     = "RUBIES_ROOT"
	EnvLogLevel = "RUBIES_LOG_LEVEL"
)

// DefaultLogLevel is used when no level is configured.
const DefaultLogLevel = "warn"

//go:embed schema.cue
var schemaSource string

// Config is the effective configuration.
type Config struct {
	RubiesRoot  string
	SandboxDir  string
	RubyCommand string
	LogLevel    string

	// Source is the file the configuration was read from, if any.
	Source string
}

// document mirrors the file format. Pointers distinguish an absent key from
// an explicitly empty one; json tags name the fields for CUE.
type document struct {
	RubiesRoot  *string `yaml:"runtimes_root" json:"runtimes_root,omitempty"`
	SandboxDir  *string `yaml:"sandbox_dir" json:"sandbox_dir,omitempty"`
	RubyCommand *string `yaml:"ruby_command" json:"ruby_command,omitempty"`
	LogLevel    *string `yaml:"log_level" json:"log_level,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	layout := activation.DefaultLayout()
	return Config{
		RubiesRoot:  layout.RubiesRoot,
		SandboxDir:  layout.SandboxDir,
		RubyCommand: layout.RubyCommand,
		LogLevel:    DefaultLogLevel,
	}
}

// Layout returns the activation layout described by c.
func (c Config) Layout() activation.Layout {
	return activation.Layout{
		RubiesRoot:  c.RubiesRoot,
		SandboxDir:  c.SandboxDir,
		RubyCommand: c.RubyCommand,
	}
}

// Path returns the config file location for env and whether it was named
// explicitly through RUBIES_CONFIG. The empty string means there is nowhere
// to look.
func Path(env environment.Snapshot) (string, bool) {
	if p, ok := env.Get(EnvConfig); ok && p != "" {
		return p, true
	}
	if xdg, ok := env.Get("XDG_CONFIG_HOME"); ok && xdg != "" {
		return filepath.Join(xdg, "rubies", "config.yaml"), false
	}
	if env.Home != "" {
		return filepath.Join(env.Home, ".config", "rubies", "config.yaml"), false
	}
	return "", false
}

// Load reads the configuration for env. A missing file is only an error when
// it was named through RUBIES_CONFIG.
func Load(env environment.Snapshot) (Config, error) {
	var doc document
	path, explicit := Path(env)
	source := ""

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if doc, err = decode(data); err != nil {
				return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
			}
			source = path
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Empty overrides count as unset.
	if v, ok := env.Get(EnvRoot); ok && v != "" {
		doc.RubiesRoot = &v
	}
	if v, ok := env.Get(EnvLogLevel); ok && v != "" {
		v = strings.ToLower(v)
		doc.LogLevel = &v
	}

	if err := validate(doc); err != nil {
		if source != "" {
			return Config{}, fmt.Errorf("invalid config %s: %w", source, err)
		}
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	cfg := Default()
	cfg.Source = source
	apply(&cfg.RubiesRoot, doc.RubiesRoot)
	apply(&cfg.SandboxDir, doc.SandboxDir)
	apply(&cfg.RubyCommand, doc.RubyCommand)
	apply(&cfg.LogLevel, doc.LogLevel)

	root, err := expandHome(cfg.RubiesRoot, env.Home)
	if err != nil {
		return Config{}, err
	}
	cfg.RubiesRoot = root
	return cfg, nil
}

// decode parses a YAML document, rejecting unknown keys. An empty document
// decodes to the zero document.
func decode(data []byte) (document, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return document{}, nil
		}
		return document{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return doc, nil
}

// validate checks doc against the embedded #Config schema.
func validate(doc document) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := def.Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return errors.New(strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}

func apply(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func expandHome(path, home string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	if home == "" {
		return "", fmt.Errorf("cannot expand %q: HOME is not set", path)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
