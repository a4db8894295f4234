package harness

// StepResult is the outcome of one scenario step.
type StepResult struct {
	// Command is the equivalent command line, e.g. "rubies activate 3.2.0 /proj".
	Command string `json:"command"`

	// Output is the emitted shell code. Empty when the step failed.
	Output string `json:"output,omitempty"`

	// Error is the failure message. Empty when the step succeeded.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses match.
	Pass bool `json:"pass"`

	// Steps contains one entry per scenario step, in order.
	Steps []StepResult `json:"steps"`

	// Errors contains expectation failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
