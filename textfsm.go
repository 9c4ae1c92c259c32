// Package textfsm compiles TextFSM templates and runs them over
// line-oriented text, typically network device CLI output, to extract an
// ordered list of records.
//
//	tmpl, err := textfsm.Compile(templateText)
//	if err != nil {
//		return err
//	}
//	records, err := tmpl.ParseText(output, textfsm.LowercaseKeys)
//
// A compiled Template is immutable and safe for concurrent use; each Parse
// call runs its own interpreter.
package textfsm

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/textfsm/internal/compiler"
	"github.com/roach88/textfsm/internal/engine"
	"github.com/roach88/textfsm/internal/ir"
)

type (
	// Record maps value names to extracted values.
	Record = ir.Record
	// Value is either a Scalar or a List.
	Value = ir.Value
	Scalar = ir.Scalar
	List   = ir.List

	// Conversion rewrites each finished record.
	Conversion = engine.Conversion

	// Interpreter feeds lines one at a time.
	Interpreter = engine.Interpreter

	CompileError = compiler.CompileError
	RuntimeError = engine.RuntimeError
)

// LowercaseKeys lowercases every value name in each record.
var LowercaseKeys Conversion = engine.LowercaseKeys

// Option configures compilation and parsing.
type Option func(*Template)

// WithLogger receives compile and parse warnings. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Template) { t.logger = logger }
}

// Template is a compiled template.
type Template struct {
	table  *compiler.StateTable
	logger *slog.Logger
}

// Compile compiles template text.
func Compile(text string, opts ...Option) (*Template, error) {
	t := &Template{logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	table, err := compiler.Compile(text, compiler.WithLogger(t.logger))
	if err != nil {
		return nil, err
	}
	t.table = table
	return t, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(text string, opts ...Option) *Template {
	t, err := Compile(text, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// CompileFile reads and compiles a template file.
func CompileFile(path string, opts ...Option) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	t, err := Compile(string(data), opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Values returns the declared value names in declaration order.
func (t *Template) Values() []string { return t.table.ValueNames() }

// Digest identifies the template source text.
func (t *Template) Digest() string { return t.table.Digest() }

// NewInterpreter returns a fresh interpreter for incremental feeding.
func (t *Template) NewInterpreter() *Interpreter {
	return engine.New(t.table, engine.WithLogger(t.logger))
}

// ParseText parses text and applies convs to the result.
func (t *Template) ParseText(text string, convs ...Conversion) ([]Record, error) {
	return t.ParseLines(engine.SplitLines(text), convs...)
}

// ParseLines parses pre-split lines and applies convs to the result.
func (t *Template) ParseLines(lines []string, convs ...Conversion) ([]Record, error) {
	records, err := t.NewInterpreter().ParseLines(lines)
	if err != nil {
		return nil, err
	}
	return engine.Convert(records, convs...), nil
}

// ParseReader parses every line read from r and applies convs to the result.
func (t *Template) ParseReader(r io.Reader, convs ...Conversion) ([]Record, error) {
	records, err := t.NewInterpreter().ParseReader(r)
	if err != nil {
		return nil, err
	}
	return engine.Convert(records, convs...), nil
}
