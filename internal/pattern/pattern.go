// Package pattern compiles rule regexes against two engines and runs them.
//
// A Pattern is a closed two-variant type: Linear patterns use Go's RE2
// engine (guaranteed linear time, no lookaround or backreferences);
// Backtracking patterns use regexp2, which supports both. The variant is
// chosen once, at compile time: Linear is always tried first.
//
// Templates are often written for a dialect that quietly accepts a
// quantifier on a zero-width assertion (`\b*`, `(?=x)+`). The backtracking
// backend here rejects that with a RepeatTargetError carrying the offset of
// the quantifier, so callers can repair the expression and retry.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"regexp/syntax"
	"strings"

	"github.com/dlclark/regexp2"
)

// Kind identifies the engine a Pattern was compiled with.
type Kind int

const (
	// Linear patterns run on Go's regexp (RE2).
	Linear Kind = iota
	// Backtracking patterns run on regexp2.
	Backtracking
)

func (k Kind) String() string {
	switch k {
	case Linear:
		return "linear"
	case Backtracking:
		return "backtracking"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Pattern is a compiled regex tagged with its engine.
// Exactly one of linear or backtrack is non-nil, matching kind.
// A Pattern is immutable and safe for concurrent use.
type Pattern struct {
	kind      Kind
	source    string
	linear    *regexp.Regexp
	backtrack *regexp2.Regexp
}

// Kind returns the engine variant.
func (p *Pattern) Kind() Kind { return p.kind }

// String returns the source expression.
func (p *Pattern) String() string { return p.source }

// Capture is one named group's outcome within a single occurrence.
// Bound is false when the group did not participate in the match.
type Capture struct {
	Text  string
	Bound bool
}

// Occurrence is one non-overlapping match: named group → capture.
type Occurrence map[string]Capture

// RepeatTargetError reports a quantifier applied directly to a zero-width
// assertion. Offset is the byte offset of the quantifier in Expr.
type RepeatTargetError struct {
	Expr   string
	Offset int
	Width  int
}

func (e *RepeatTargetError) Error() string {
	return fmt.Sprintf("target of repeat operator is not repeatable at offset %d in %q", e.Offset, e.Expr)
}

// Error is a non-repairable compile failure from both engines.
type Error struct {
	Expr      string
	Offset    int
	Fragment  string
	LinearErr error
	Err       error
}

func (e *Error) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("invalid regex %q at offset %d (%q): %v", e.Expr, e.Offset, e.Fragment, e.Err)
	}
	return fmt.Sprintf("invalid regex %q: %v", e.Expr, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// CompileLinear compiles expr with the RE2 engine only.
func CompileLinear(expr string) (*Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Pattern{kind: Linear, source: expr, linear: re}, nil
}

// CompileBacktracking compiles expr with regexp2 in RE2-compatible mode.
// A quantified zero-width assertion yields *RepeatTargetError.
func CompileBacktracking(expr string) (*Pattern, error) {
	if off, width, ok := findUnrepeatable(expr); ok {
		return nil, &RepeatTargetError{Expr: expr, Offset: off, Width: width}
	}
	re, err := regexp2.Compile(expr, regexp2.RE2)
	if err != nil {
		return nil, err
	}
	return &Pattern{kind: Backtracking, source: expr, backtrack: re}, nil
}

// Compile selects a backend: Linear if RE2 accepts expr, Backtracking
// otherwise. RepeatTargetError from the backtracking backend is returned
// unwrapped so callers can repair; any other failure is *Error.
func Compile(expr string) (*Pattern, error) {
	p, linErr := CompileLinear(expr)
	if linErr == nil {
		return p, nil
	}

	p, err := CompileBacktracking(expr)
	if err == nil {
		return p, nil
	}
	var rt *RepeatTargetError
	if errors.As(err, &rt) {
		return nil, rt
	}
	return nil, newError(expr, linErr, err)
}

// Repair records one automatic fix applied by CompileRepairing.
type Repair struct {
	Offset  int
	Removed string
	Before  string
	After   string
}

// CompileRepairing is Compile plus the quantifier repair loop: each
// RepeatTargetError deletes the offending quantifier and retries until the
// expression compiles or fails for another reason.
func CompileRepairing(expr string) (*Pattern, []Repair, error) {
	var repairs []Repair
	current := expr
	for {
		p, err := Compile(current)
		if err == nil {
			return p, repairs, nil
		}
		var rt *RepeatTargetError
		if !errors.As(err, &rt) {
			return nil, repairs, err
		}
		fixed := current[:rt.Offset] + current[rt.Offset+rt.Width:]
		repairs = append(repairs, Repair{
			Offset:  rt.Offset,
			Removed: current[rt.Offset : rt.Offset+rt.Width],
			Before:  current,
			After:   fixed,
		})
		current = fixed
	}
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string) *Pattern {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// MatchString reports whether s contains any match.
func (p *Pattern) MatchString(s string) (bool, error) {
	switch p.kind {
	case Linear:
		return p.linear.MatchString(s), nil
	case Backtracking:
		return p.backtrack.MatchString(s)
	default:
		return false, fmt.Errorf("unknown pattern kind %v", p.kind)
	}
}

// FindAll returns every non-overlapping occurrence in s, reporting the
// named groups listed in names for each.
func (p *Pattern) FindAll(s string, names []string) ([]Occurrence, error) {
	switch p.kind {
	case Linear:
		return p.findAllLinear(s, names), nil
	case Backtracking:
		return p.findAllBacktracking(s, names)
	default:
		return nil, fmt.Errorf("unknown pattern kind %v", p.kind)
	}
}

func (p *Pattern) findAllLinear(s string, names []string) []Occurrence {
	matches := p.linear.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return nil
	}

	// Resolve each requested name to its group index once.
	index := make(map[string]int, len(names))
	for _, name := range names {
		if i := p.linear.SubexpIndex(name); i >= 0 {
			index[name] = i
		}
	}

	out := make([]Occurrence, 0, len(matches))
	for _, m := range matches {
		occ := make(Occurrence, len(names))
		for _, name := range names {
			i, ok := index[name]
			if !ok || m[2*i] < 0 {
				occ[name] = Capture{}
				continue
			}
			occ[name] = Capture{Text: s[m[2*i]:m[2*i+1]], Bound: true}
		}
		out = append(out, occ)
	}
	return out
}

// findAllBacktracking mirrors the linear backend's occurrence rule: an empty
// match directly after the previous match is not reported.
func (p *Pattern) findAllBacktracking(s string, names []string) ([]Occurrence, error) {
	var out []Occurrence
	prevEnd := -1 // in runes, as regexp2 reports positions
	m, err := p.backtrack.FindStringMatch(s)
	for m != nil && err == nil {
		if m.Length == 0 && m.Index == prevEnd {
			m, err = p.backtrack.FindNextMatch(m)
			continue
		}
		prevEnd = m.Index + m.Length
		occ := make(Occurrence, len(names))
		for _, name := range names {
			g := m.GroupByName(name)
			if g == nil || len(g.Captures) == 0 {
				occ[name] = Capture{}
				continue
			}
			occ[name] = Capture{Text: g.String(), Bound: true}
		}
		out = append(out, occ)
		m, err = p.backtrack.FindNextMatch(m)
	}
	if err != nil {
		return nil, fmt.Errorf("match %q: %w", p.source, err)
	}
	return out, nil
}

// newError builds an *Error, locating the failure offset where the RE2
// error names the offending fragment.
func newError(expr string, linErr, err error) *Error {
	e := &Error{Expr: expr, Offset: -1, LinearErr: linErr, Err: err}
	var se *syntax.Error
	if errors.As(linErr, &se) && se.Expr != "" {
		e.Fragment = se.Expr
		e.Offset = strings.Index(expr, se.Expr)
	}
	return e
}
