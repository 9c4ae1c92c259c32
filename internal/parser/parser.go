// Package parser reads template text into the ir.Template AST.
//
// A template is a Value section followed by state blocks:
//
//	Value Required,Filldown host (\S+)
//	Value List iface (\S+)
//
//	Start
//	  ^Hostname: ${host}
//	  ^Interface ${iface} -> Record
//
// Comment lines (optional whitespace, then '#') are ignored everywhere.
// The parser is purely syntactic: variable references and regex sources are
// left to the compiler.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/textfsm/internal/ir"
)

// MaxNameLen bounds value and state names.
const MaxNameLen = 48

var (
	commentRe   = regexp.MustCompile(`^\s*#`)
	nameRe      = regexp.MustCompile(`^\w+$`)
	ruleStartRe = regexp.MustCompile(`^(?: {1,2}|\t)\^`)
	// Greedy: the last " ->" on the line separates match from action.
	matchActionRe = regexp.MustCompile(`^(.*)\s->(.*)$`)
)

// SyntaxError reports malformed template text at a 1-based line.
type SyntaxError struct {
	Line    int    `json:"line"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message"`
}

func (e *SyntaxError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("line %d: %s: %q", e.Line, e.Message, e.Text)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// ParseReader reads the whole template from r and parses it.
func ParseReader(r io.Reader) (*ir.Template, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return parseLines(lines)
}

// Parse parses template text.
func Parse(text string) (*ir.Template, error) {
	return ParseReader(strings.NewReader(text))
}

type parser struct {
	lines []string
	pos   int // index of the next unread line
	tmpl  *ir.Template
}

func parseLines(lines []string) (*ir.Template, error) {
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	p := &parser{lines: lines, tmpl: &ir.Template{}}
	if err := p.parseValues(); err != nil {
		return nil, err
	}
	if err := p.parseStates(); err != nil {
		return nil, err
	}
	return p.tmpl, nil
}

func (p *parser) next() (line string, num int, ok bool) {
	if p.pos >= len(p.lines) {
		return "", 0, false
	}
	p.pos++
	return p.lines[p.pos-1], p.pos, true
}

func isBlank(line string) bool { return strings.TrimSpace(line) == "" }

// parseValues consumes Value lines up to the first blank line. A template
// with no Value lines may start directly with its first state.
func (p *parser) parseValues() error {
	for {
		line, num, ok := p.next()
		if !ok || isBlank(line) {
			return nil
		}
		if commentRe.MatchString(line) {
			continue
		}
		if !strings.HasPrefix(line, "Value ") {
			if len(p.tmpl.Values) == 0 {
				p.pos--
				return nil
			}
			return &SyntaxError{Line: num, Text: line, Message: "expected blank line after last Value entry"}
		}
		v, err := parseValue(strings.TrimRight(line, " \t"), num)
		if err != nil {
			return err
		}
		if slices.ContainsFunc(p.tmpl.Values, func(o ir.ValueDef) bool { return o.Name == v.Name }) {
			return &DuplicateError{Kind: "value", Name: v.Name, Line: num}
		}
		p.tmpl.Values = append(p.tmpl.Values, v)
	}
}

// DuplicateError reports a value or state declared twice.
type DuplicateError struct {
	Kind string // "value" or "state"
	Name string
	Line int
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("line %d: duplicate %s %q", e.Line, e.Kind, e.Name)
}

// parseValue parses `Value [Opt[,Opt...]] name (regex)`.
func parseValue(line string, num int) (ir.ValueDef, error) {
	fail := func(msg string) (ir.ValueDef, error) {
		return ir.ValueDef{}, &SyntaxError{Line: num, Text: line, Message: msg}
	}

	rest := strings.TrimPrefix(line, "Value ")
	first, rest := cutField(rest)
	second, rest := cutField(rest)
	if first == "" || second == "" {
		return fail("value definition needs a name and a regex")
	}

	v := ir.ValueDef{Line: num}
	if !strings.HasPrefix(second, "(") && strings.TrimSpace(rest) == "" {
		return fail("value regex must be wrapped in parentheses")
	}
	if strings.HasPrefix(second, "(") {
		v.Name = first
		v.Pattern = strings.TrimSpace(second + rest)
	} else {
		opts, err := parseOptions(first)
		if err != nil {
			return fail(err.Error())
		}
		v.Options = opts
		v.Name = second
		v.Pattern = strings.TrimSpace(rest)
	}

	if !nameRe.MatchString(v.Name) || len(v.Name) > MaxNameLen {
		return fail(fmt.Sprintf("invalid value name %q", v.Name))
	}
	if len(v.Pattern) < 2 || v.Pattern[0] != '(' || v.Pattern[len(v.Pattern)-1] != ')' {
		return fail("value regex must be wrapped in parentheses")
	}
	return v, nil
}

// cutField splits off the first whitespace-delimited field.
func cutField(s string) (field, rest string) {
	s = strings.TrimLeft(s, " \t")
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], s[i:]
	}
	return s, ""
}

func parseOptions(s string) ([]ir.Option, error) {
	var opts []ir.Option
	for _, name := range strings.Split(s, ",") {
		opt := ir.Option(name)
		if !ir.ValidOptions[opt] {
			return nil, fmt.Errorf("unknown option %q", name)
		}
		if slices.Contains(opts, opt) {
			return nil, fmt.Errorf("duplicate option %q", name)
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

func (p *parser) parseStates() error {
	for {
		ok, err := p.parseState()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// parseState reads one state header and its rules. It reports false once the
// input is exhausted without finding another header.
func (p *parser) parseState() (bool, error) {
	var state ir.StateDef
	for {
		line, num, ok := p.next()
		if !ok {
			return false, nil
		}
		line = strings.TrimRight(line, " \t")
		if line == "" || commentRe.MatchString(line) {
			continue
		}
		if err := checkStateName(line, num); err != nil {
			return false, err
		}
		// A later EOF replaces an earlier one; any other repeat is an error.
		if line != ir.StateEOF && slices.ContainsFunc(p.tmpl.States, func(s ir.StateDef) bool { return s.Name == line }) {
			return false, &DuplicateError{Kind: "state", Name: line, Line: num}
		}
		state = ir.StateDef{Name: line, Line: num}
		break
	}

	for {
		line, num, ok := p.next()
		if !ok || isBlank(line) {
			break
		}
		if commentRe.MatchString(line) {
			continue
		}
		if !ruleStartRe.MatchString(line) {
			return false, &SyntaxError{Line: num, Text: line, Message: "missing white space or caret ('^') before rule"}
		}
		rule, err := parseRule(line, num)
		if err != nil {
			return false, err
		}
		state.Rules = append(state.Rules, rule)
	}

	p.tmpl.States = append(p.tmpl.States, state)
	return true, nil
}

func checkStateName(name string, num int) error {
	_, isLineOp := lineOps[name]
	_, isRecordOp := ir.ParseRecordAction(name)
	if !nameRe.MatchString(name) || len(name) > MaxNameLen || isLineOp || isRecordOp {
		return &SyntaxError{Line: num, Text: name, Message: "invalid state name"}
	}
	return nil
}

// parseRule splits a rule line into its match text and action. Trailing
// whitespace of a rule without an action is preserved for the compiler.
func parseRule(line string, num int) (ir.RuleDef, error) {
	text := strings.TrimLeft(line, " \t")
	rule := ir.RuleDef{Match: text, Line: num}

	if m := matchActionRe.FindStringSubmatch(text); m != nil {
		rule.Match = m[1]
		rule.Action = strings.TrimSpace(m[2])
		tr, err := ParseAction(rule.Action)
		if err != nil {
			return ir.RuleDef{}, &SyntaxError{Line: num, Text: line, Message: err.Error()}
		}
		rule.Transition = tr
	}
	return rule, nil
}
