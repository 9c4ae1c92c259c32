package compiler

import (
	"fmt"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/textfsm/internal/ir"
)

// Validation codes (E100-E199). These are lint findings on a table that
// compiled successfully; none of them stops a parse.
const (
	ErrNoStartState      = "E101" // no Start state: every parse ends immediately
	ErrUndefinedTarget   = "E102" // Goto names a state that does not exist
	ErrUnusedValue       = "E103" // value is never captured by any rule
	ErrUnreachableState  = "E104" // no transition leads to the state
	ErrInertOption       = "E105" // Key/Fillup are accepted but have no effect
	ErrRequiredNeverSeen = "E106" // Required value is never captured, so nothing is ever recorded
	ErrCaseCollision     = "E107" // two value names differ only by case and merge under lowercased keys
)

// ValidationError is one lint finding.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate lints a compiled table. Returns all findings (does not fail-fast).
func Validate(t *StateTable) []ValidationError {
	var errs []ValidationError

	start, hasStart := t.State(ir.StateStart)
	if !hasStart {
		errs = append(errs, ValidationError{
			Field:   "states",
			Message: "no Start state",
			Code:    ErrNoStartState,
		})
	}

	captured := make(map[string]bool)
	for _, s := range t.States() {
		for i, r := range s.Rules {
			for _, name := range r.Captures {
				captured[name] = true
			}
			if r.Transition.Line.Kind != ir.LineGoto {
				continue
			}
			target := r.Transition.Line.Target
			if _, ok := t.State(target); !ok && target != ir.StateEnd {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.rules[%d]", s.Name, i),
					Message: fmt.Sprintf("transition to undefined state %q", target),
					Code:    ErrUndefinedTarget,
					Line:    r.Line,
				})
			}
		}
	}

	for _, v := range t.values {
		if !captured[v.Name] {
			code, msg := ErrUnusedValue, fmt.Sprintf("value %q is never captured", v.Name)
			if v.IsRequired() {
				code, msg = ErrRequiredNeverSeen, fmt.Sprintf("required value %q is never captured; no record can be emitted", v.Name)
			}
			errs = append(errs, ValidationError{Field: "values." + v.Name, Message: msg, Code: code, Line: v.Line})
		}
		for _, opt := range []ir.Option{ir.OptionKey, ir.OptionFillup} {
			if v.Has(opt) {
				errs = append(errs, ValidationError{
					Field:   "values." + v.Name,
					Message: fmt.Sprintf("option %s has no effect", opt),
					Code:    ErrInertOption,
					Line:    v.Line,
				})
			}
		}
	}

	lower := make(map[string]string, len(t.values))
	for _, v := range t.values {
		// A Caser is stateful, so each name gets its own.
		key := cases.Lower(language.Und).String(v.Name)
		if first, ok := lower[key]; ok {
			errs = append(errs, ValidationError{
				Field:   "values." + v.Name,
				Message: fmt.Sprintf("value %q collides with %q when keys are lowercased", v.Name, first),
				Code:    ErrCaseCollision,
				Line:    v.Line,
			})
			continue
		}
		lower[key] = v.Name
	}

	if hasStart {
		reached := reachable(t, start.Name)
		for _, s := range t.States() {
			if !reached[s.Name] && s.Name != ir.StateEOF {
				errs = append(errs, ValidationError{
					Field:   s.Name,
					Message: fmt.Sprintf("state %q is unreachable from Start", s.Name),
					Code:    ErrUnreachableState,
					Line:    s.Line,
				})
			}
		}
	}

	return errs
}

// transitionGraph maps state name → states its rules can Goto.
type transitionGraph map[string][]string

func buildTransitionGraph(t *StateTable) transitionGraph {
	graph := make(transitionGraph)
	for _, s := range t.States() {
		// Initialize with empty slice if no edges (ensures node exists in graph)
		if graph[s.Name] == nil {
			graph[s.Name] = []string{}
		}
		for _, r := range s.Rules {
			if r.Transition.Line.Kind == ir.LineGoto && !slices.Contains(graph[s.Name], r.Transition.Line.Target) {
				graph[s.Name] = append(graph[s.Name], r.Transition.Line.Target)
			}
		}
	}
	return graph
}

// reachable returns the set of states reachable from the named state.
func reachable(t *StateTable, from string) map[string]bool {
	graph := buildTransitionGraph(t)
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range graph[cur] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}
