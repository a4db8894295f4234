package activation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rubies/internal/environment"
	"github.com/roach88/rubies/internal/pathset"
	"github.com/roach88/rubies/internal/rubyinfo"
	"github.com/roach88/rubies/internal/testutil"
)

var ruby320 = rubyinfo.Descriptor{Engine: "ruby", Version: "3.2.0", GemPath: "/opt/ruby/lib"}

func newTestEngine(resolver rubyinfo.Resolver) *Engine {
	return New(resolver, Layout{RubiesRoot: "~/.rubies"}, nil)
}

func exported(t *testing.T, m *environment.Mapping, name string) string {
	t.Helper()
	v, ok := m.Get(name)
	require.True(t, ok, "%s missing from mapping", name)
	require.True(t, v.IsSet(), "%s should be exported", name)
	return v.String()
}

func assertUnset(t *testing.T, m *environment.Mapping, name string) {
	t.Helper()
	v, ok := m.Get(name)
	require.True(t, ok, "%s missing from mapping", name)
	assert.False(t, v.IsSet(), "%s should be unset", name)
}

func TestNew_Defaults(t *testing.T) {
	e := New(testutil.NewStubResolver(), Layout{}, nil)
	assert.Equal(t, DefaultLayout(), e.Layout())
}

func TestRubyBin(t *testing.T) {
	e := New(testutil.NewStubResolver(), Layout{RubiesRoot: "/opt/rubies"}, nil)

	bin, err := e.RubyBin("3.2.0")
	require.NoError(t, err)
	assert.Equal(t, "/opt/rubies/3.2.0/bin", bin)

	for _, name := range []string{"", ".", "..", "../etc", "a/b", "3.2.0:/usr/bin", ":"} {
		_, err := e.RubyBin(name)
		assert.ErrorIs(t, err, ErrInvalidRuntimeName, "name %q", name)
	}

	colonRoot := New(testutil.NewStubResolver(), Layout{RubiesRoot: "/opt/my:rubies"}, nil)
	_, err = colonRoot.RubyBin("3.2.0")
	assert.ErrorIs(t, err, ErrInvalidRuntimeName)
}

func TestActivate_FreshEnvironment(t *testing.T) {
	resolver := testutil.NewStubResolver().Add("~/.rubies/3.2.0/bin", ruby320)
	e := newTestEngine(resolver)
	env := environment.Snapshot{SearchPath: "/usr/bin:/bin"}

	m, err := e.Activate(context.Background(), env, "3.2.0", "/proj")
	require.NoError(t, err)

	assert.Equal(t, "/proj/.lib/ruby/3.2.0/bin:~/.rubies/3.2.0/bin:/usr/bin:/bin", exported(t, m, environment.VarPath))
	assert.Equal(t, "/proj/.lib/ruby/3.2.0", exported(t, m, environment.VarGemHome))
	assert.Equal(t, "/proj/.lib/ruby/3.2.0:/opt/ruby/lib", exported(t, m, environment.VarGemPath))
	assert.Equal(t, "~/.rubies/3.2.0/bin", exported(t, m, environment.VarActivatedRubyBin))
	assert.Equal(t, "/proj/.lib/ruby/3.2.0/bin", exported(t, m, environment.VarActivatedSandboxBin))
	assert.Equal(t, 5, m.Len())
	assert.Equal(t, []string{"~/.rubies/3.2.0/bin"}, resolver.Calls())

	assert.Equal(t, "/usr/bin:/bin", env.SearchPath, "snapshot is never mutated")
}

func TestActivate_ReplacesPreviousActivation(t *testing.T) {
	jruby := rubyinfo.Descriptor{Engine: "jruby", Version: "9.4.5.0", GemPath: "/opt/jruby/gems"}
	resolver := testutil.NewStubResolver().
		Add("~/.rubies/3.2.0/bin", ruby320).
		Add("~/.rubies/jruby-9.4/bin", jruby)
	e := newTestEngine(resolver)

	env := environment.Snapshot{SearchPath: "/usr/bin:/bin"}
	first, err := e.Activate(context.Background(), env, "3.2.0", "/proj")
	require.NoError(t, err)

	second, err := e.Activate(context.Background(), env.Apply(first), "jruby-9.4", "/other")
	require.NoError(t, err)

	assert.Equal(t,
		"/other/.lib/jruby/9.4.5.0/bin:~/.rubies/jruby-9.4/bin:/usr/bin:/bin",
		exported(t, second, environment.VarPath))
	assert.Equal(t, "/other/.lib/jruby/9.4.5.0:/opt/jruby/gems", exported(t, second, environment.VarGemPath))
}

func TestActivate_Idempotent(t *testing.T) {
	resolver := testutil.NewStubResolver().Add("~/.rubies/3.2.0/bin", ruby320)
	e := newTestEngine(resolver)
	env := environment.Snapshot{SearchPath: "/usr/bin:/bin"}

	for i := 0; i < 5; i++ {
		m, err := e.Activate(context.Background(), env, "3.2.0", "/proj")
		require.NoError(t, err)
		env = env.Apply(m)

		assert.Equal(t, 1, pathset.Count(env.SearchPath, "/proj/.lib/ruby/3.2.0/bin"), "iteration %d", i)
		assert.Equal(t, 1, pathset.Count(env.SearchPath, "~/.rubies/3.2.0/bin"), "iteration %d", i)
	}
	assert.Equal(t, "/proj/.lib/ruby/3.2.0/bin:~/.rubies/3.2.0/bin:/usr/bin:/bin", env.SearchPath)
}

func TestActivate_EmptySearchPath(t *testing.T) {
	resolver := testutil.NewStubResolver().Add("~/.rubies/3.2.0/bin", ruby320)
	e := newTestEngine(resolver)

	m, err := e.Activate(context.Background(), environment.Snapshot{}, "3.2.0", "/proj")
	require.NoError(t, err)
	assert.Equal(t, "/proj/.lib/ruby/3.2.0/bin:~/.rubies/3.2.0/bin", exported(t, m, environment.VarPath))
}

func TestActivate_SandboxPaths(t *testing.T) {
	resolver := testutil.NewStubResolver().Add("~/.rubies/3.2.0/bin", ruby320)
	e := newTestEngine(resolver)

	tests := []struct {
		name    string
		sandbox string
		env     environment.Snapshot
		want    string
	}{
		{"absolute", "/proj", environment.Snapshot{}, "/proj/.lib/ruby/3.2.0"},
		{"unclean absolute", "/proj/./sub/../", environment.Snapshot{}, "/proj/.lib/ruby/3.2.0"},
		{"relative", "app", environment.Snapshot{WorkDir: "/work"}, "/work/app/.lib/ruby/3.2.0"},
		{"dot", ".", environment.Snapshot{WorkDir: "/work"}, "/work/.lib/ruby/3.2.0"},
		{"home", "~/code", environment.Snapshot{Home: "/home/u"}, "/home/u/code/.lib/ruby/3.2.0"},
		{"bare home", "~", environment.Snapshot{Home: "/home/u"}, "/home/u/.lib/ruby/3.2.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := e.Activate(context.Background(), tt.env, "3.2.0", tt.sandbox)
			require.NoError(t, err)
			assert.Equal(t, tt.want, exported(t, m, environment.VarGemHome))
		})
	}
}

func TestActivate_InvalidSandbox(t *testing.T) {
	resolver := testutil.NewStubResolver().Add("~/.rubies/3.2.0/bin", ruby320)
	e := newTestEngine(resolver)

	for _, dir := range []string{"", "relative", "~/x", "/my:proj", "/proj:", ":"} {
		m, err := e.Activate(context.Background(), environment.Snapshot{}, "3.2.0", dir)
		assert.ErrorIs(t, err, ErrInvalidSandbox, "sandbox %q", dir)
		assert.Nil(t, m)
	}

	home := environment.Snapshot{Home: "/home/a:b", WorkDir: "/work:tree"}
	for _, dir := range []string{"~/proj", "proj"} {
		_, err := e.Activate(context.Background(), home, "3.2.0", dir)
		assert.ErrorIs(t, err, ErrInvalidSandbox, "sandbox %q", dir)
	}
}

func TestActivate_SeparatorInDescriptor(t *testing.T) {
	odd := rubyinfo.Descriptor{Engine: "ruby", Version: "3.2:0", GemPath: "/g"}
	e := newTestEngine(testutil.NewStubResolver().Add("~/.rubies/odd/bin", odd))

	_, err := e.Activate(context.Background(), environment.Snapshot{SearchPath: "/bin"}, "odd", "/proj")
	assert.ErrorIs(t, err, ErrInvalidSandbox)
}

func TestActivate_RejectedSeparatorKeepsRoundTrip(t *testing.T) {
	resolver := testutil.NewStubResolver().Add("~/.rubies/3.2.0/bin", ruby320)
	e := newTestEngine(resolver)
	env := environment.Snapshot{SearchPath: "/usr/bin:/bin"}

	_, err := e.Activate(context.Background(), env, "3.2.0", "/my:proj")
	require.Error(t, err)

	for i := 0; i < 3; i++ {
		m, err := e.Activate(context.Background(), env, "3.2.0", "/proj")
		require.NoError(t, err)
		env = env.Apply(m)
	}
	assert.Equal(t, 1, pathset.Count(env.SearchPath, "/proj/.lib/ruby/3.2.0/bin"))
}

func TestActivate_CustomSandboxDir(t *testing.T) {
	resolver := testutil.NewStubResolver().Add("/opt/rubies/3.2.0/bin", ruby320)
	e := New(resolver, Layout{RubiesRoot: "/opt/rubies", SandboxDir: ".gem"}, nil)

	m, err := e.Activate(context.Background(), environment.Snapshot{}, "3.2.0", "/proj")
	require.NoError(t, err)
	assert.Equal(t, "/proj/.gem/ruby/3.2.0", exported(t, m, environment.VarGemHome))
}

func TestActivate_ResolutionErrorPropagates(t *testing.T) {
	resolver := testutil.NewStubResolver().Fail("~/.rubies/3.2.0/bin")
	e := newTestEngine(resolver)

	m, err := e.Activate(context.Background(), environment.Snapshot{SearchPath: "/bin"}, "3.2.0", "/proj")
	require.Error(t, err)
	assert.Nil(t, m)

	var rerr *rubyinfo.ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "~/.rubies/3.2.0/bin", rerr.Interpreter, "error is returned unchanged")
}

func TestActivate_InvalidNameDoesNotResolve(t *testing.T) {
	resolver := testutil.NewStubResolver()
	e := newTestEngine(resolver)

	_, err := e.Activate(context.Background(), environment.Snapshot{}, "../evil", "/proj")
	assert.ErrorIs(t, err, ErrInvalidRuntimeName)
	assert.Empty(t, resolver.Calls())
}

// systemRuby installs a fake interpreter on disk so deactivation can find one
// on the search path; the stub resolver supplies its descriptor.
func systemRuby(t *testing.T, resolver *testutil.StubResolver) string {
	t.Helper()
	binDir := filepath.Join(t.TempDir(), "usr", "bin")
	testutil.WriteRuby(t, binDir, rubyinfo.Descriptor{Engine: "ruby", Version: "2.6.10", GemPath: "/sys/gems"})
	resolver.Add(binDir, rubyinfo.Descriptor{Engine: "ruby", Version: "2.6.10", GemPath: "/sys/gems"})
	return binDir
}

func TestDeactivate_RoundTrip(t *testing.T) {
	resolver := testutil.NewStubResolver().Add("~/.rubies/3.2.0/bin", ruby320)
	sysBin := systemRuby(t, resolver)
	e := newTestEngine(resolver)

	other := t.TempDir()
	original := environment.Snapshot{SearchPath: pathset.Join([]string{other, sysBin, other})}

	activated, err := e.Activate(context.Background(), original, "3.2.0", "/proj")
	require.NoError(t, err)

	m, err := e.Deactivate(context.Background(), original.Apply(activated))
	require.NoError(t, err)

	assert.Equal(t, original.SearchPath, exported(t, m, environment.VarPath))
	assertUnset(t, m, environment.VarGemHome)
	assertUnset(t, m, environment.VarGemPath)
	assertUnset(t, m, environment.VarActivatedRubyBin)
	assertUnset(t, m, environment.VarActivatedSandboxBin)
}

func TestDeactivate_NoPriorActivation(t *testing.T) {
	resolver := testutil.NewStubResolver()
	sysBin := systemRuby(t, resolver)
	e := newTestEngine(resolver)

	env := environment.Snapshot{SearchPath: sysBin + ":/bin", GemHome: "/stale"}
	m, err := e.Deactivate(context.Background(), env)
	require.NoError(t, err)

	assert.Equal(t, env.SearchPath, exported(t, m, environment.VarPath))
	assertUnset(t, m, environment.VarGemHome)
	assertUnset(t, m, environment.VarGemPath)
	assertUnset(t, m, environment.VarActivatedRubyBin)
	assertUnset(t, m, environment.VarActivatedSandboxBin)
	assert.Equal(t, []string{sysBin}, resolver.Calls())
}

func TestDeactivate_RemovesEveryOccurrence(t *testing.T) {
	resolver := testutil.NewStubResolver()
	sysBin := systemRuby(t, resolver)
	e := newTestEngine(resolver)

	env := environment.Snapshot{
		SearchPath:          "/s/bin:/r/bin:" + sysBin + ":/r/bin:/bin:/s/bin",
		ActivatedRubyBin:    "/r/bin",
		ActivatedSandboxBin: "/s/bin",
	}
	m, err := e.Deactivate(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, sysBin+":/bin", exported(t, m, environment.VarPath))
}

func TestDeactivate_FailsWithoutInterpreter(t *testing.T) {
	e := newTestEngine(testutil.NewStubResolver())

	m, err := e.Deactivate(context.Background(), environment.Snapshot{SearchPath: t.TempDir()})
	require.Error(t, err)
	assert.Nil(t, m)
	assert.True(t, rubyinfo.HasCode(err, rubyinfo.ErrCodeNotFound))
}

func TestDeactivate_FailsWhenInterpreterBroken(t *testing.T) {
	resolver := testutil.NewStubResolver()
	sysBin := systemRuby(t, resolver)
	resolver.Fail(sysBin)
	e := newTestEngine(resolver)

	m, err := e.Deactivate(context.Background(), environment.Snapshot{SearchPath: sysBin})
	assert.True(t, rubyinfo.HasCode(err, rubyinfo.ErrCodeExecFailed))
	assert.Nil(t, m)
}

func TestCurrent(t *testing.T) {
	resolver := testutil.NewStubResolver()
	sysBin := systemRuby(t, resolver)
	e := newTestEngine(resolver)

	desc, binDir, err := e.Current(context.Background(), environment.Snapshot{SearchPath: "/nonexistent:" + sysBin})
	require.NoError(t, err)
	assert.Equal(t, sysBin, binDir)
	assert.Equal(t, "2.6.10", desc.Version)
}

func TestWithLookPath(t *testing.T) {
	resolver := testutil.NewStubResolver().Add("/virtual/bin", ruby320)
	var searched string
	e := New(resolver, Layout{}, nil, WithLookPath(func(searchPath, name string) (string, bool) {
		searched = searchPath
		return "/virtual/bin/" + name, true
	}))

	m, err := e.Deactivate(context.Background(), environment.Snapshot{SearchPath: "/virtual/bin:/bin"})
	require.NoError(t, err)
	assert.Equal(t, "/virtual/bin:/bin", searched)
	assert.Equal(t, "/virtual/bin:/bin", exported(t, m, environment.VarPath))
}
