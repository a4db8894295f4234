// Package rubyinfo resolves a RuntimeDescriptor (engine, version and gem
// search path) for an installed interpreter.
//
// The descriptor is obtained by running the interpreter itself with a small
// self-query program that prints exactly three lines:
//
//	<engine>
//	<version>
//	<gem path list, colon-delimited>
//
// Resolution is all-or-nothing: a non-zero exit, a missing interpreter or
// anything other than three non-empty lines yields a *ResolutionError and
// no descriptor.
//
// The Resolver interface is the seam the activation engine depends on, so
// transition logic can be tested against canned descriptors without spawning
// a real interpreter.
package rubyinfo
