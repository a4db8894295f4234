// Package shell renders an environment.Mapping as POSIX shell code for the
// calling shell to eval.
//
// Output is one line per variable, sorted by name:
//
//	export NAME="value"
//	unset NAME
//
// Inside the double quotes, backslash, double quote, dollar and backtick are
// escaped so every value evaluates to itself.
package shell

import (
	"io"
	"strings"

	"github.com/roach88/rubies/internal/environment"
)

// Format renders m without a trailing newline. An empty mapping renders as
// the empty string.
func Format(m *environment.Mapping) string {
	entries := m.Entries()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Value.IsSet() {
			lines = append(lines, "export "+e.Name+"="+Quote(e.Value.String()))
		} else {
			lines = append(lines, "unset "+e.Name)
		}
	}
	return strings.Join(lines, "\n")
}

// Write renders m followed by a newline. Nothing is written for an empty
// mapping.
func Write(w io.Writer, m *environment.Mapping) error {
	if m.Len() == 0 {
		return nil
	}
	_, err := io.WriteString(w, Format(m)+"\n")
	return err
}

var quoteReplacer = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`$`, `\$`,
	"`", "\\`",
)

// Quote wraps s in double quotes, escaping the characters that keep their
// special meaning inside them.
func Quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}
