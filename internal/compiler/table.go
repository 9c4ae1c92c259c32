package compiler

import (
	"fmt"
	"io"
	"slices"

	"github.com/roach88/textfsm/internal/ir"
	"github.com/roach88/textfsm/internal/parser"
	"github.com/roach88/textfsm/internal/pattern"
)

// State is a named, ordered list of compiled rules.
type State struct {
	Name  string  `json:"name"`
	Rules []*Rule `json:"rules"`
	Line  int     `json:"line,omitempty"`
	// Synthetic marks the EOF state supplied when a template defines none.
	Synthetic bool `json:"synthetic,omitempty"`
}

// StateTable is a compiled template. It is never mutated after Assemble
// returns and may be shared by any number of interpreters.
type StateTable struct {
	states   map[string]*State
	order    []string
	values   []ir.ValueDef
	valueIdx map[string]int
	required []string
	digest   string
}

// State looks up a state by name.
func (t *StateTable) State(name string) (*State, bool) {
	s, ok := t.states[name]
	return s, ok
}

// States returns the states in definition order, synthetic EOF last.
func (t *StateTable) States() []*State {
	out := make([]*State, len(t.order))
	for i, name := range t.order {
		out[i] = t.states[name]
	}
	return out
}

// Values returns the value declarations in declaration order.
func (t *StateTable) Values() []ir.ValueDef { return slices.Clone(t.values) }

// Value looks up a value declaration by name.
func (t *StateTable) Value(name string) (ir.ValueDef, bool) {
	i, ok := t.valueIdx[name]
	if !ok {
		return ir.ValueDef{}, false
	}
	return t.values[i], true
}

// ValueNames returns the declared value names in declaration order.
func (t *StateTable) ValueNames() []string {
	names := make([]string, len(t.values))
	for i, v := range t.values {
		names[i] = v.Name
	}
	return names
}

// Required returns the names of Required values in declaration order.
func (t *StateTable) Required() []string { return slices.Clone(t.required) }

// Digest identifies the template text the table was compiled from. Tables
// built directly from an AST have an empty digest.
func (t *StateTable) Digest() string { return t.digest }

// syntheticEOF is installed when a template has no EOF state: at end of
// input, attempt a final Record and stop.
func syntheticEOF() *State {
	return &State{
		Name:      ir.StateEOF,
		Synthetic: true,
		Rules: []*Rule{{
			Match:    ".*",
			Expanded: ".*",
			Pattern:  pattern.MustCompile(".*"),
			Transition: ir.Transition{
				Record: ir.ActionRecord,
				Line:   ir.LineAction{Kind: ir.LineGoto, Target: ir.StateEnd},
			},
		}},
	}
}

// Assemble compiles every rule of tmpl into a StateTable.
//
// A template-defined EOF state replaces the synthetic one, and a later EOF
// definition replaces an earlier one. End is a sentinel:
// an empty End block is accepted and ignored, an End block with rules is a
// CompileError.
func Assemble(tmpl *ir.Template, opts ...Option) (*StateTable, error) {
	o := buildOptions(opts)

	t := &StateTable{
		states:   make(map[string]*State, len(tmpl.States)+1),
		values:   slices.Clone(tmpl.Values),
		valueIdx: make(map[string]int, len(tmpl.Values)),
	}

	for i, v := range t.values {
		if _, dup := t.valueIdx[v.Name]; dup {
			return nil, &CompileError{
				Code:    ErrDuplicateValue,
				Line:    v.Line,
				Message: fmt.Sprintf("value %q defined twice", v.Name),
			}
		}
		t.valueIdx[v.Name] = i
		if v.IsRequired() {
			t.required = append(t.required, v.Name)
		}
	}

	rc := newRuleCompiler(t.values, o.logger)
	for _, sd := range tmpl.States {
		_, dup := t.states[sd.Name]
		if dup && sd.Name != ir.StateEOF {
			return nil, &CompileError{
				Code:    ErrDuplicateState,
				Line:    sd.Line,
				State:   sd.Name,
				Message: fmt.Sprintf("state %q defined twice", sd.Name),
			}
		}
		if sd.Name == ir.StateEnd {
			if len(sd.Rules) > 0 {
				return nil, &CompileError{
					Code:    ErrSyntax,
					Line:    sd.Line,
					State:   sd.Name,
					Message: "End state cannot have rules",
				}
			}
			continue
		}

		state := &State{Name: sd.Name, Line: sd.Line, Rules: make([]*Rule, 0, len(sd.Rules))}
		for _, rd := range sd.Rules {
			rule, err := rc.compile(rd, sd.Name)
			if err != nil {
				return nil, err
			}
			state.Rules = append(state.Rules, rule)
		}
		t.states[sd.Name] = state
		if !dup {
			t.order = append(t.order, sd.Name)
		}
	}

	if _, ok := t.states[ir.StateEOF]; !ok {
		t.states[ir.StateEOF] = syntheticEOF()
		t.order = append(t.order, ir.StateEOF)
	}
	return t, nil
}

// Compile parses and assembles template text.
func Compile(text string, opts ...Option) (*StateTable, error) {
	tmpl, err := parser.Parse(text)
	if err != nil {
		return nil, fromParseError(err)
	}
	t, err := Assemble(tmpl, opts...)
	if err != nil {
		return nil, err
	}
	t.digest = ir.TemplateDigest(text)
	return t, nil
}

// CompileReader reads template text from r and compiles it.
func CompileReader(r io.Reader, opts ...Option) (*StateTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return Compile(string(data), opts...)
}
