package main

import (
	"context"
	"os"
	"strings"

	"github.com/roach88/rubies/internal/cli"
	"github.com/roach88/rubies/internal/environment"
)

func main() {
	env, err := environment.FromOS()
	if err != nil {
		fail(cli.WrapExitError(cli.ExitFailure, "cannot read working directory", err))
	}

	opts := &cli.RootOptions{Env: env, Stdout: os.Stdout, Stderr: os.Stderr}
	if err := cli.Execute(context.Background(), opts, os.Args[1:]); err != nil {
		fail(err)
	}
}

// fail prints a short, single-line error to stderr and exits. Nothing has
// been written to stdout at this point, so the calling shell evaluates
// nothing.
func fail(err error) {
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if msg == "" {
		msg = "error"
	}
	_, _ = os.Stderr.WriteString("rubies: " + msg + "\n")
	os.Exit(cli.GetExitCode(err))
}
