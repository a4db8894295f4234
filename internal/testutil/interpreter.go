package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roach88/rubies/internal/rubyinfo"
)

// WriteInterpreter installs a fake interpreter called name into binDir.
//
// The fake is a /bin/sh script that ignores its arguments, prints stdout
// verbatim and exits with exitCode. binDir is created if needed.
// Returns the path of the script.
func WriteInterpreter(t *testing.T, binDir, name, stdout string, exitCode int) string {
	t.Helper()

	var script strings.Builder
	script.WriteString("#!/bin/sh\n")
	if stdout != "" {
		fmt.Fprintf(&script, "printf '%%s' '%s'\n", strings.ReplaceAll(stdout, "'", `'\''`))
	}
	if exitCode != 0 {
		script.WriteString("echo 'interpreter exploded' >&2\n")
	}
	fmt.Fprintf(&script, "exit %d\n", exitCode)

	return WriteScript(t, binDir, name, script.String())
}

// WriteScript installs an executable called name with the given contents
// into binDir, creating binDir if needed. Returns the path of the script.
func WriteScript(t *testing.T, binDir, name, contents string) string {
	t.Helper()

	if err := os.MkdirAll(binDir, 0755); err != nil {
		t.Fatalf("create bin dir: %v", err)
	}
	path := filepath.Join(binDir, name)
	if err := os.WriteFile(path, []byte(contents), 0755); err != nil {
		t.Fatalf("write interpreter: %v", err)
	}
	return path
}

// WriteRuby installs a fake "ruby" in binDir that reports desc.
func WriteRuby(t *testing.T, binDir string, desc rubyinfo.Descriptor) string {
	t.Helper()
	return WriteInterpreter(t, binDir, rubyinfo.DefaultCommand, desc.Triple()+"\n", 0)
}
