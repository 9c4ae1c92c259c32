package engine

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/textfsm/internal/compiler"
	"github.com/roach88/textfsm/internal/ir"
	"github.com/roach88/textfsm/internal/pattern"
)

// Interpreter is one run of a state table over a stream of lines.
//
// Usage:
//
//	it := engine.New(table)
//	for _, line := range lines {
//		if err := it.Feed(line); err != nil {
//			return err
//		}
//	}
//	records, err := it.Finish()
type Interpreter struct {
	table      *compiler.StateTable
	logger     *slog.Logger
	maxRecords int

	state    string
	cur      ir.Record
	filldown ir.Record
	// dirty is set once a value is assigned to cur; values seeded from the
	// filldown record do not count.
	dirty   bool
	records []ir.Record
	line    int
	done    bool // End reached; further lines are ignored
	err     error
	closed  bool
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger routes warnings (unbound captures) to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(it *Interpreter) { it.logger = logger }
}

// WithMaxRecords aborts the run with a quota error once more than n records
// have been emitted. Zero means no limit.
func WithMaxRecords(n int) Option {
	return func(it *Interpreter) { it.maxRecords = n }
}

// New creates an interpreter positioned at the Start state.
func New(table *compiler.StateTable, opts ...Option) *Interpreter {
	it := &Interpreter{table: table, logger: slog.Default()}
	for _, opt := range opts {
		opt(it)
	}
	it.Reset()
	return it
}

// Reset discards all progress and returns to the Start state.
func (it *Interpreter) Reset() {
	it.state = ir.StateStart
	it.cur = ir.Record{}
	it.filldown = ir.Record{}
	it.dirty = false
	it.records = nil
	it.line = 0
	it.done = false
	it.err = nil
	it.closed = false
}

// State returns the current state name.
func (it *Interpreter) State() string { return it.state }

// Records returns the records emitted so far.
func (it *Interpreter) Records() []ir.Record { return slices.Clone(it.records) }

// Line returns the number of input lines consumed.
func (it *Interpreter) Line() int { return it.line }

// Feed evaluates one input line. Once the End state is reached, lines are
// ignored. After an error every call returns that error.
func (it *Interpreter) Feed(line string) error {
	if it.err != nil {
		return it.err
	}
	if it.closed {
		return ErrFinished
	}
	if it.done {
		return nil
	}

	it.line++
	if err := it.evaluate(line, it.line); err != nil {
		it.err = err
		return err
	}

	switch it.state {
	case ir.StateEnd:
		it.done = true
	case ir.StateEOF:
		if err := it.endOfInput(); err != nil {
			it.err = err
			return err
		}
	}
	return nil
}

// Finish runs end-of-input handling and returns every emitted record.
// Calling it again returns the same records.
func (it *Interpreter) Finish() ([]ir.Record, error) {
	if it.err != nil {
		return nil, it.err
	}
	if !it.closed {
		if !it.done {
			if err := it.endOfInput(); err != nil {
				it.err = err
				return nil, err
			}
		}
		it.closed = true
	}
	return slices.Clone(it.records), nil
}

// endOfInput feeds one empty line in the EOF state, then stops.
func (it *Interpreter) endOfInput() error {
	if it.state != ir.StateEnd {
		it.state = ir.StateEOF
		if err := it.evaluate("", 0); err != nil {
			return err
		}
		it.state = ir.StateEnd
	}
	it.done = true
	return nil
}

// evaluate runs the current state's rules against one line.
func (it *Interpreter) evaluate(line string, lineNum int) error {
	state, ok := it.table.State(it.state)
	if !ok {
		return &RuntimeError{
			Code:     ErrCodeMissingState,
			Message:  fmt.Sprintf("state %q is not defined", it.state),
			State:    it.state,
			Line:     lineNum,
			LineText: line,
		}
	}

	for _, rule := range state.Rules {
		occurrences, err := rule.Pattern.FindAll(line, rule.Captures)
		if err != nil {
			return it.internalError(line, lineNum, rule, err)
		}
		if len(occurrences) == 0 {
			continue
		}

		if err := it.assign(line, lineNum, rule, occurrences); err != nil {
			return err
		}

		tr := rule.Transition
		if tr.Line.Kind == ir.LineFail {
			return &RuntimeError{
				Code:     ErrCodeRuleError,
				Message:  tr.Line.Message,
				State:    it.state,
				Line:     lineNum,
				LineText: line,
				RuleLine: rule.Line,
			}
		}

		switch tr.Record {
		case ir.ActionRecord:
			if err := it.emit(line, lineNum); err != nil {
				return err
			}
		case ir.ActionClear:
			it.cur.Clear(it.isFilldown)
			it.dirty = false
		case ir.ActionClearall:
			it.cur = ir.Record{}
			it.filldown = ir.Record{}
			it.dirty = false
		}

		switch tr.Line.Kind {
		case ir.LineContinue:
			continue
		case ir.LineGoto:
			target := tr.Line.Target
			if target != ir.StateEnd {
				if _, ok := it.table.State(target); !ok {
					return &RuntimeError{
						Code:     ErrCodeMissingState,
						Message:  fmt.Sprintf("transition to undefined state %q", target),
						State:    it.state,
						Line:     lineNum,
						LineText: line,
						RuleLine: rule.Line,
					}
				}
			}
			it.state = target
		}
		return nil
	}
	return nil
}

// assign merges every occurrence's captures into a rule-local record, merges
// that into the current record and overwrites the filldown record with the
// Filldown bindings.
func (it *Interpreter) assign(line string, lineNum int, rule *compiler.Rule, occurrences []pattern.Occurrence) error {
	if len(rule.Captures) == 0 {
		return nil
	}

	temp := ir.Record{}
	for _, occ := range occurrences {
		for _, name := range rule.Captures {
			c := occ[name]
			text := c.Text
			if !c.Bound {
				it.logger.Warn("capture not bound by match, using placeholder",
					"value", name, "state", it.state, "line", lineNum)
				text = ir.UnboundScalar
			}
			def, _ := it.table.Value(name)
			if err := temp.InsertString(name, text, def.IsList()); err != nil {
				return it.internalError(line, lineNum, rule, err)
			}
		}
	}

	fill := ir.Record{}
	for _, name := range rule.Captures {
		if err := it.cur.Append(name, temp[name]); err != nil {
			return it.internalError(line, lineNum, rule, err)
		}
		if it.isFilldown(name) {
			fill[name] = temp[name]
		}
	}
	it.filldown.OverwriteFrom(fill)
	it.dirty = true
	return nil
}

func (it *Interpreter) isFilldown(name string) bool {
	v, ok := it.table.Value(name)
	return ok && v.IsFilldown()
}

func (it *Interpreter) internalError(line string, lineNum int, rule *compiler.Rule, err error) error {
	return &RuntimeError{
		Code:     ErrCodeInternal,
		Message:  err.Error(),
		State:    it.state,
		Line:     lineNum,
		LineText: line,
		RuleLine: rule.Line,
		Err:      err,
	}
}

// emit finalizes the current record if it passes gating.
func (it *Interpreter) emit(line string, lineNum int) error {
	if !it.dirty {
		return nil
	}
	for _, name := range it.table.Required() {
		if _, ok := it.cur[name]; !ok {
			return nil
		}
	}

	out := it.cur
	for _, v := range it.table.Values() {
		if _, ok := out[v.Name]; !ok {
			out[v.Name] = v.Empty()
		}
	}
	it.records = append(it.records, out)
	it.cur = it.filldown.Clone()
	it.dirty = false

	if it.maxRecords > 0 && len(it.records) > it.maxRecords {
		return &RuntimeError{
			Code:     ErrCodeQuotaExceeded,
			Message:  fmt.Sprintf("more than %d records", it.maxRecords),
			State:    it.state,
			Line:     lineNum,
			LineText: line,
		}
	}
	return nil
}

// ParseLines resets the interpreter, feeds every line and finishes.
func (it *Interpreter) ParseLines(lines []string) ([]ir.Record, error) {
	it.Reset()
	for _, line := range lines {
		if err := it.Feed(line); err != nil {
			return nil, err
		}
	}
	return it.Finish()
}

// ParseText splits text into lines (LF or CRLF) and parses them.
func (it *Interpreter) ParseText(text string) ([]ir.Record, error) {
	return it.ParseLines(SplitLines(text))
}

// ParseReader parses every line read from r.
func (it *Interpreter) ParseReader(r io.Reader) ([]ir.Record, error) {
	it.Reset()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if err := it.Feed(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return it.Finish()
}

// SplitLines splits text on line endings. A trailing line ending does not
// produce a final empty line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
