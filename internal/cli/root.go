package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rubies/internal/activation"
	"github.com/roach88/rubies/internal/config"
	"github.com/roach88/rubies/internal/environment"
	"github.com/roach88/rubies/internal/rubyinfo"
)

// RootOptions holds what every command needs. Env is captured once at
// program entry; nothing below the CLI reads the process environment.
type RootOptions struct {
	Env environment.Snapshot

	// Stdout receives shell code. Help and usage text go to Stderr so the
	// calling shell never evaluates them.
	Stdout io.Writer
	Stderr io.Writer

	// Resolver overrides the subprocess resolver (for testing).
	Resolver rubyinfo.Resolver

	config config.Config
	logger *slog.Logger
	engine *activation.Engine
}

// helpCommandName replaces cobra's help subcommand; only --help is offered.
const helpCommandName = "help"

// NewRootCommand creates the root command for the rubies CLI.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rubies",
		Short: "Switch between installed Ruby runtimes",
		Long: `Switch between installed Ruby runtimes with per-project gem sandboxes.

rubies prints shell code; evaluate it in the current shell:

  eval "$(rubies activate 3.2.0 .)"
  eval "$(rubies deactivate)"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Usage errors are reported before configuration is read.
			if !cmd.HasParent() || cmd.Name() == helpCommandName {
				return nil
			}
			return opts.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return usageError("no subcommand given")
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{
		Use:    helpCommandName,
		Hidden: true,
		Args:   cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return usageError("unknown command %q for %q", helpCommandName, "rubies")
		},
	})
	cmd.SetOut(opts.stderr())
	cmd.SetErr(opts.stderr())

	cmd.AddCommand(NewRubyInfoCommand(opts))
	cmd.AddCommand(NewActivateCommand(opts))
	cmd.AddCommand(NewDeactivateCommand(opts))

	return cmd
}

// Execute runs the root command with args. The returned error is always an
// *ExitError; use GetExitCode to pick the process exit status.
func Execute(ctx context.Context, opts *RootOptions, args []string) error {
	cmd := NewRootCommand(opts)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return usageError("%s", err.Error())
}

// setup loads configuration and builds the logger and engine.
func (o *RootOptions) setup() error {
	cfg, err := config.Load(o.Env)
	if err != nil {
		return WrapExitError(ExitFailure, "configuration error", err)
	}
	o.config = cfg
	o.logger = NewLogger(o.stderr(), cfg.LogLevel)
	if cfg.Source != "" {
		o.logger.Debug("loaded config", "path", cfg.Source)
	}

	resolver := o.Resolver
	if resolver == nil {
		r := rubyinfo.NewCommandResolver(cfg.RubyCommand, o.logger)
		// The interpreter must report its own gem path, not the one a
		// previous activation exported.
		r.Env = o.Env.Environ(environment.VarGemHome, environment.VarGemPath)
		resolver = r
	}
	o.engine = activation.New(resolver, cfg.Layout(), o.logger)
	return nil
}

func (o *RootOptions) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

func (o *RootOptions) stderr() io.Writer {
	if o.Stderr == nil {
		return os.Stderr
	}
	return o.Stderr
}

// exactArgs is cobra.ExactArgs reporting a UsageError.
func exactArgs(n int, names string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			if names == "" {
				return usageError("%s takes no arguments", cmd.Name())
			}
			return usageError("%s %s", cmd.Name(), names)
		}
		return nil
	}
}
