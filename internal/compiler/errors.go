package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/textfsm/internal/parser"
	"github.com/roach88/textfsm/internal/pattern"
	"github.com/roach88/textfsm/internal/varsubst"
)

// ErrorCode classifies a CompileError.
type ErrorCode string

const (
	// ErrSyntax is malformed template text.
	ErrSyntax ErrorCode = "Syntax"
	// ErrVariableSyntax is a malformed $ reference in a match.
	ErrVariableSyntax ErrorCode = "VariableSyntax"
	// ErrUndefinedVariable is a reference to an undeclared value.
	ErrUndefinedVariable ErrorCode = "UndefinedVariable"
	// ErrDuplicateState is a state defined twice.
	ErrDuplicateState ErrorCode = "DuplicateState"
	// ErrDuplicateValue is a value declared twice.
	ErrDuplicateValue ErrorCode = "DuplicateValue"
	// ErrRegex is a pattern neither backend accepts.
	ErrRegex ErrorCode = "Regex"
)

// CompileError is a fatal problem found while compiling a template.
// Line is the 1-based template line when known.
type CompileError struct {
	Code     ErrorCode `json:"code"`
	Line     int       `json:"line,omitempty"`
	State    string    `json:"state,omitempty"`
	Fragment string    `json:"fragment,omitempty"`
	Offset   int       `json:"offset,omitempty"`
	Message  string    `json:"message"`
	Err      error     `json:"-"`
}

func (e *CompileError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	if e.State != "" {
		fmt.Fprintf(&b, "state %s: ", e.State)
	}
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Fragment != "" {
		fmt.Fprintf(&b, " (at offset %d: %q)", e.Offset, e.Fragment)
	}
	return b.String()
}

func (e *CompileError) Unwrap() error { return e.Err }

// IsCompileError reports whether err is a CompileError with the given code.
func IsCompileError(err error, code ErrorCode) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Code == code
}

// fromParseError lifts front-end errors into CompileErrors.
func fromParseError(err error) error {
	var se *parser.SyntaxError
	if errors.As(err, &se) {
		return &CompileError{Code: ErrSyntax, Line: se.Line, Fragment: se.Text, Message: se.Message, Err: err}
	}
	var de *parser.DuplicateError
	if errors.As(err, &de) {
		code := ErrDuplicateValue
		if de.Kind == "state" {
			code = ErrDuplicateState
		}
		return &CompileError{Code: code, Line: de.Line, Message: fmt.Sprintf("%s %q defined twice", de.Kind, de.Name), Err: err}
	}
	return err
}

func variableSyntaxError(rule Rule, state string, err *varsubst.SyntaxError) *CompileError {
	return &CompileError{
		Code:     ErrVariableSyntax,
		Line:     rule.Line,
		State:    state,
		Fragment: err.Fragment,
		Offset:   err.Offset,
		Message:  fmt.Sprintf("invalid variable reference in %q", rule.Match),
		Err:      err,
	}
}

func regexError(rule Rule, state string, err *pattern.Error) *CompileError {
	return &CompileError{
		Code:     ErrRegex,
		Line:     rule.Line,
		State:    state,
		Fragment: err.Fragment,
		Offset:   err.Offset,
		Message:  fmt.Sprintf("cannot compile %q", err.Expr),
		Err:      err,
	}
}
