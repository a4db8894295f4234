package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/rubies/internal/activation"
)

// NewRubyInfoCommand creates the ruby-info command.
func NewRubyInfoCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ruby-info",
		Short: "Print engine, version and gem path of the current Ruby",
		Long: `Print the engine, version and gem path of the Ruby found first on PATH,
one per line. This is the same triple rubies reads from an interpreter
when it activates it.`,
		Args:          exactArgs(0, ""),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, binDir, err := opts.engine.Current(cmd.Context(), opts.Env)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to get Ruby info", err)
			}
			opts.logger.Debug("current ruby", "bin", binDir)

			out := &Output{Writer: opts.stdout()}
			out.Println(desc.Triple())
			return out.Flush()
		},
	}
}

// NewActivateCommand creates the activate command.
func NewActivateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <ruby> <sandbox>",
		Short: "Print shell code activating a Ruby with a gem sandbox",
		Long: `Print shell code that puts the named Ruby and the sandbox's gem bin
directory at the front of PATH and points GEM_HOME and GEM_PATH at the
sandbox. Any previous activation is undone first.

Example:
  eval "$(rubies activate 3.2.0 .)"`,
		Args:          exactArgs(2, "<ruby> <sandbox>"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.engine.Activate(cmd.Context(), opts.Env, args[0], args[1])
			if err != nil {
				if errors.Is(err, activation.ErrInvalidRuntimeName) || errors.Is(err, activation.ErrInvalidSandbox) {
					return usageError("%v", err)
				}
				return WrapExitError(ExitFailure, "failed to activate "+args[0], err)
			}

			out := &Output{Writer: opts.stdout()}
			if err := out.Emit(m); err != nil {
				return WrapExitError(ExitFailure, "failed to render shell code", err)
			}
			return out.Flush()
		},
	}
}

// NewDeactivateCommand creates the deactivate command.
func NewDeactivateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate",
		Short: "Print shell code undoing the last activation",
		Long: `Print shell code that removes the activated Ruby and sandbox from PATH
and unsets GEM_HOME, GEM_PATH and the activation tracking variables.

Example:
  eval "$(rubies deactivate)"`,
		Args:          exactArgs(0, ""),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.engine.Deactivate(cmd.Context(), opts.Env)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to deactivate", err)
			}

			out := &Output{Writer: opts.stdout()}
			if err := out.Emit(m); err != nil {
				return WrapExitError(ExitFailure, "failed to render shell code", err)
			}
			return out.Flush()
		},
	}
}
