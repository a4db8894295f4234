// Package activation computes the environment transitions behind the
// activate and deactivate commands.
//
// The engine holds no state between invocations. Everything it knows about
// earlier activations comes from the two tracking variables in the incoming
// environment.Snapshot, and everything it decides is returned as an
// environment.Mapping for the shell to evaluate:
//
//	PATH                               sandbox bin, runtime bin, cleaned PATH
//	GEM_HOME                           <sandbox>/<sandbox dir>/<engine>/<version>
//	GEM_PATH                           GEM_HOME, then the runtime's own gem path
//	RUBIES_ACTIVATED_RUBY_BIN_PATH     runtime bin
//	RUBIES_ACTIVATED_SANDBOX_BIN_PATH  sandbox bin
//
// Before anything is prepended, entries recorded by the previous activation
// are removed from PATH, so repeated activations never accumulate entries
// and a deactivation restores the pre-activation PATH.
package activation
