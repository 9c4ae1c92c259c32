package harness

import "github.com/roach88/textfsm/internal/ir"

// Result is the outcome of verifying one case.
type Result struct {
	// Pass is true when the parsed records equal the sample and no error
	// occurred.
	Pass bool `json:"pass"`

	Template string `json:"template"`
	Input    string `json:"input"`
	Sample   string `json:"sample,omitempty"`

	// Records are the parsed records after key lowercasing.
	Records []ir.Record `json:"records"`

	// Expected are the sample records.
	Expected []ir.Record `json:"expected,omitempty"`

	// Diffs lists per-index differences. Empty if Pass is true.
	Diffs []RecordDiff `json:"diffs,omitempty"`

	// Errors holds compile and parse failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(template, input, sample string) *Result {
	return &Result{
		Pass:     true,
		Template: template,
		Input:    input,
		Sample:   sample,
		Records:  []ir.Record{},
		Errors:   []string{},
	}
}

// AddError adds an error message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddDiffs records differences and marks the result as failed when any exist.
func (r *Result) AddDiffs(diffs []RecordDiff) {
	if len(diffs) == 0 {
		return
	}
	r.Diffs = append(r.Diffs, diffs...)
	r.Pass = false
}

// Err returns nil for a passing result and a *MismatchError otherwise.
func (r *Result) Err() error {
	if r.Pass {
		return nil
	}
	return &MismatchError{Template: r.Template, Input: r.Input, Diffs: r.Diffs, Errors: r.Errors}
}

// Case names the files of one verification.
type Case struct {
	Family   string `json:"family"`
	Set      string `json:"set"`
	Name     string `json:"name"`
	Template string `json:"template"`
	Raw      string `json:"raw"`
	Sample   string `json:"sample"`
}

// TreeReport summarizes a tree run.
type TreeReport struct {
	Root      string    `json:"root"`
	Templates int       `json:"templates"`
	Families  int       `json:"families"`
	Results   []*Result `json:"results"`
	Warnings  []string  `json:"warnings,omitempty"`
}

// Passed counts passing cases.
func (r *TreeReport) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Pass {
			n++
		}
	}
	return n
}

// Failed counts failing cases.
func (r *TreeReport) Failed() int { return len(r.Results) - r.Passed() }
