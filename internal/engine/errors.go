package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while driving input through a
// state table.
//
// Runtime errors include:
//   - Rule error: a rule with the Error action matched
//   - Missing state: a transition named a state the table does not define
//   - Quota exceeded: more records than WithMaxRecords allows
//   - Internal: a merge between incompatible value shapes
//
// A RuntimeError aborts the run; records emitted before it are discarded by
// the Parse helpers.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description. For rule errors it is the
	// message given in the template, possibly empty.
	Message string

	// State is the state being evaluated.
	State string

	// Line is the 1-based input line number; 0 during end-of-input handling.
	Line int

	// LineText is the input line being evaluated.
	LineText string

	// RuleLine is the template line of the rule that raised the error.
	RuleLine int

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeRuleError indicates a rule with the Error action matched.
	ErrCodeRuleError RuntimeErrorCode = "RULE_ERROR"

	// ErrCodeMissingState indicates a transition to an undefined state.
	ErrCodeMissingState RuntimeErrorCode = "MISSING_STATE"

	// ErrCodeQuotaExceeded indicates the record limit was exceeded.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeInternal indicates a broken invariant, such as a value shape
	// mismatch.
	ErrCodeInternal RuntimeErrorCode = "INTERNAL"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "state error raised"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s (state=%s, line=%d: %q)", e.Code, msg, e.State, e.Line, e.LineText)
	}
	return fmt.Sprintf("%s: %s (state=%s)", e.Code, msg, e.State)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// IsRuleError returns true if the error was raised by an Error action.
// Uses errors.As to handle wrapped errors.
func IsRuleError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeRuleError
	}
	return false
}

// IsMissingState returns true if the error is a transition to an undefined
// state. Uses errors.As to handle wrapped errors.
func IsMissingState(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeMissingState
	}
	return false
}

// IsQuotaError returns true if the error is a record quota error.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	return false
}

// ErrFinished is returned by Feed after Finish.
var ErrFinished = errors.New("interpreter already finished")
