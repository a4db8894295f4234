// Package harness runs activation scenarios described in YAML and compares
// the shell code they produce against golden files.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	layout:
//	  runtimes_root: ~/.rubies
//	  sandbox_dir: .lib
//	environment:
//	  path: /usr/bin:/bin
//	  gem_home: /old/gems
//	  activated_ruby_bin: /old/ruby/bin
//	  activated_sandbox_bin: /old/sandbox/bin
//	  home: /home/u
//	  workdir: /proj
//	runtimes:
//	  ~/.rubies/3.2.0/bin: { engine: ruby, version: 3.2.0, gem_path: /opt/ruby/lib }
//	  /usr/bin: { engine: ruby, version: 2.6.10, gem_path: /sys/gems, system: true }
//	  ~/.rubies/broken/bin: { fail: true }
//	steps:
//	  - activate: { runtime: 3.2.0, sandbox: /proj }
//	  - deactivate: true
//	    expect:
//	      error: NOT_FOUND
//
// Runtimes are served by a stub resolver. Runtimes marked system: true are
// also what the current-interpreter lookup finds when their bin directory
// appears on the search path, so deactivate can be exercised without any
// interpreter installed.
//
// Each step starts from the environment left by the previous one, as if the
// calling shell had evaluated its output. A failing step leaves the
// environment unchanged.
//
// # Expectations
//
// A step's expect clause may name the ResolutionError code the step must
// fail with, or the exact PATH, GEM_HOME and GEM_PATH it must leave behind.
// Use "<unset>" for a variable that must be unset.
//
// # Golden Files
//
// RunWithGolden writes the transcript of every step to
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
