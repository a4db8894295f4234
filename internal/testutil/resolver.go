package testutil

import (
	"context"
	"sync"

	"github.com/roach88/rubies/internal/rubyinfo"
)

// StubResolver returns canned descriptors keyed by bin directory.
//
// Unknown bin directories and directories registered with Fail resolve to an
// EXEC_FAILED *rubyinfo.ResolutionError, mirroring a missing or broken
// interpreter. Every call is recorded for later inspection.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StubResolver struct {
	mu          sync.Mutex
	descriptors map[string]rubyinfo.Descriptor
	failures    map[string]bool
	calls       []string
}

// NewStubResolver creates an empty stub resolver.
func NewStubResolver() *StubResolver {
	return &StubResolver{
		descriptors: make(map[string]rubyinfo.Descriptor),
		failures:    make(map[string]bool),
	}
}

// Add registers the descriptor returned for binDir.
func (r *StubResolver) Add(binDir string, desc rubyinfo.Descriptor) *StubResolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors[binDir] = desc
	delete(r.failures, binDir)
	return r
}

// Fail makes resolution of binDir fail.
func (r *StubResolver) Fail(binDir string) *StubResolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[binDir] = true
	delete(r.descriptors, binDir)
	return r
}

// Resolve implements rubyinfo.Resolver.
func (r *StubResolver) Resolve(_ context.Context, binDir string) (rubyinfo.Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, binDir)

	desc, ok := r.descriptors[binDir]
	if !ok || r.failures[binDir] {
		return rubyinfo.Descriptor{}, &rubyinfo.ResolutionError{
			Code:        rubyinfo.ErrCodeExecFailed,
			Message:     "stub interpreter failed",
			Interpreter: binDir,
		}
	}
	return desc, nil
}

// Calls returns the bin directories resolved so far, in call order.
func (r *StubResolver) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}
