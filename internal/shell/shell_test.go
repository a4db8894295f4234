package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/roach88/rubies/internal/environment"
)

func activationMapping() *environment.Mapping {
	return environment.NewMapping().
		Set(environment.VarActivatedSandboxBin, environment.Export("/proj/.lib/ruby/3.2.0/bin")).
		Set(environment.VarPath, environment.Export("/proj/.lib/ruby/3.2.0/bin:/home/u/.rubies/3.2.0/bin:/usr/bin:/bin")).
		Set(environment.VarGemPath, environment.Export("/proj/.lib/ruby/3.2.0:/opt/ruby/lib")).
		Set(environment.VarActivatedRubyBin, environment.Export("/home/u/.rubies/3.2.0/bin")).
		Set(environment.VarGemHome, environment.Export("/proj/.lib/ruby/3.2.0"))
}

func deactivationMapping() *environment.Mapping {
	return environment.NewMapping().
		Set(environment.VarGemPath, environment.Unset()).
		Set(environment.VarPath, environment.Export("/usr/bin:/bin")).
		Set(environment.VarActivatedRubyBin, environment.Unset()).
		Set(environment.VarGemHome, environment.Unset()).
		Set(environment.VarActivatedSandboxBin, environment.Unset())
}

func TestFormat_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, activationMapping()))
	g.Assert(t, "activate", buf.Bytes())

	buf.Reset()
	require.NoError(t, Write(&buf, deactivationMapping()))
	g.Assert(t, "deactivate", buf.Bytes())
}

func TestFormat_SortedLines(t *testing.T) {
	got := Format(deactivationMapping())
	assert.Equal(t, strings.Join([]string{
		"unset GEM_HOME",
		"unset GEM_PATH",
		`export PATH="/usr/bin:/bin"`,
		"unset RUBIES_ACTIVATED_RUBY_BIN_PATH",
		"unset RUBIES_ACTIVATED_SANDBOX_BIN_PATH",
	}, "\n"), got)
}

func TestFormat_Empty(t *testing.T) {
	assert.Equal(t, "", Format(environment.NewMapping()))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, environment.NewMapping()))
	assert.Zero(t, buf.Len())
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", `""`},
		{"/usr/bin", `"/usr/bin"`},
		{`a "b"`, `"a \"b\""`},
		{`$HOME`, `"\$HOME"`},
		{"`id`", "\"\\`id\\`\""},
		{`C:\x`, `"C:\\x"`},
		{"it's", `"it's"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Quote(tt.in), "input %q", tt.in)
	}
}

// evaluate runs script in an embedded POSIX shell seeded with env and
// reports the resulting value of each managed variable, or "<unset>".
func evaluate(t *testing.T, script string, env ...string) map[string]string {
	t.Helper()

	var probe strings.Builder
	probe.WriteString(script)
	probe.WriteString("\n")
	for _, name := range environment.Names {
		probe.WriteString(`echo "` + name + `=${` + name + `-<unset>}"` + "\n")
	}

	file, err := syntax.NewParser().Parse(strings.NewReader(probe.String()), "emitted")
	require.NoError(t, err, "emitted code must parse as shell")

	var out bytes.Buffer
	runner, err := interp.New(
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, &out, &out),
	)
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background(), file))

	vars := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n") {
		name, value, ok := strings.Cut(line, "=")
		require.True(t, ok, "unexpected probe line %q", line)
		vars[name] = value
	}
	return vars
}

func TestFormat_EvaluatesInShell(t *testing.T) {
	vars := evaluate(t, Format(activationMapping()), "PATH=/usr/bin:/bin", "GEM_HOME=/old")

	assert.Equal(t, "/proj/.lib/ruby/3.2.0/bin:/home/u/.rubies/3.2.0/bin:/usr/bin:/bin", vars[environment.VarPath])
	assert.Equal(t, "/proj/.lib/ruby/3.2.0", vars[environment.VarGemHome])
	assert.Equal(t, "/proj/.lib/ruby/3.2.0:/opt/ruby/lib", vars[environment.VarGemPath])
	assert.Equal(t, "/home/u/.rubies/3.2.0/bin", vars[environment.VarActivatedRubyBin])
	assert.Equal(t, "/proj/.lib/ruby/3.2.0/bin", vars[environment.VarActivatedSandboxBin])
}

func TestFormat_UnsetEvaluatesInShell(t *testing.T) {
	vars := evaluate(t, Format(deactivationMapping()),
		"PATH=/s/bin:/usr/bin:/bin",
		"GEM_HOME=/g",
		"GEM_PATH=/g:/sys",
		"RUBIES_ACTIVATED_RUBY_BIN_PATH=/r/bin",
		"RUBIES_ACTIVATED_SANDBOX_BIN_PATH=/s/bin",
	)

	assert.Equal(t, "/usr/bin:/bin", vars[environment.VarPath])
	for _, name := range []string{
		environment.VarGemHome,
		environment.VarGemPath,
		environment.VarActivatedRubyBin,
		environment.VarActivatedSandboxBin,
	} {
		assert.Equal(t, "<unset>", vars[name], name)
	}
}

func TestFormat_SpecialCharactersSurviveEvaluation(t *testing.T) {
	weird := "/tmp/my \"odd\" dir/$HOME/`id`/back\\slash/it's"
	m := environment.NewMapping().Set(environment.VarGemHome, environment.Export(weird))

	vars := evaluate(t, Format(m), "HOME=/home/u")
	assert.Equal(t, weird, vars[environment.VarGemHome])
}
