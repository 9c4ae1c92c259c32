package ir

import (
	"fmt"
	"slices"
	"strings"
)

// Option is a value declaration flag.
type Option string

// Recognized value options. Key and Fillup are carried as metadata only;
// the engine does not consult them.
const (
	OptionFilldown Option = "Filldown"
	OptionRequired Option = "Required"
	OptionList     Option = "List"
	OptionKey      Option = "Key"
	OptionFillup   Option = "Fillup"
)

// ValidOptions defines the allowed value options.
var ValidOptions = map[Option]bool{
	OptionFilldown: true,
	OptionRequired: true,
	OptionList:     true,
	OptionKey:      true,
	OptionFillup:   true,
}

// ValueDef is a declared extraction target: `Value [options] name (regex)`.
type ValueDef struct {
	Name    string   `json:"name"`
	Pattern string   `json:"pattern"`
	Options []Option `json:"options,omitempty"`
	Line    int      `json:"line,omitempty"`
}

// Has reports whether the value carries the given option.
func (v ValueDef) Has(opt Option) bool {
	return slices.Contains(v.Options, opt)
}

// IsList reports whether the value accumulates as a List.
func (v ValueDef) IsList() bool { return v.Has(OptionList) }

// IsFilldown reports whether the value is sticky across records.
func (v ValueDef) IsFilldown() bool { return v.Has(OptionFilldown) }

// IsRequired reports whether records are gated on the value's presence.
func (v ValueDef) IsRequired() bool { return v.Has(OptionRequired) }

// Empty returns the default for a value absent from a finished record:
// an empty List for List values, an empty Scalar otherwise.
func (v ValueDef) Empty() Value {
	if v.IsList() {
		return List{}
	}
	return Scalar("")
}

// RecordAction controls whether and how the current record is finalized.
type RecordAction int

const (
	ActionNoRecord RecordAction = iota
	ActionRecord
	ActionClear
	ActionClearall
)

var recordActionNames = map[RecordAction]string{
	ActionNoRecord: "NoRecord",
	ActionRecord:   "Record",
	ActionClear:    "Clear",
	ActionClearall: "Clearall",
}

func (a RecordAction) String() string {
	if s, ok := recordActionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("RecordAction(%d)", int(a))
}

// ParseRecordAction maps a template keyword to a RecordAction.
func ParseRecordAction(s string) (RecordAction, bool) {
	for a, name := range recordActionNames {
		if name == s {
			return a, true
		}
	}
	return ActionNoRecord, false
}

// LineActionKind is the tag of a LineAction.
type LineActionKind int

const (
	// LineAdvance stops processing the current line; the state is unchanged.
	LineAdvance LineActionKind = iota
	// LineContinue evaluates the next rule against the same line.
	LineContinue
	// LineGoto stops processing the current line and switches state.
	LineGoto
	// LineFail aborts the run.
	LineFail
)

func (k LineActionKind) String() string {
	switch k {
	case LineAdvance:
		return "Next"
	case LineContinue:
		return "Continue"
	case LineGoto:
		return "Goto"
	case LineFail:
		return "Error"
	default:
		return fmt.Sprintf("LineActionKind(%d)", int(k))
	}
}

// LineAction is a tagged variant: Target is set only for Goto, Message only
// (and optionally) for Fail.
type LineAction struct {
	Kind    LineActionKind `json:"kind"`
	Target  string         `json:"target,omitempty"`
	Message string         `json:"message,omitempty"`
}

// Transition is the action half of a rule: `-> LineOp.RecordOp NewState`.
type Transition struct {
	Record RecordAction `json:"record"`
	Line   LineAction   `json:"line"`
}

func (t Transition) String() string {
	op := t.Line.Kind.String()
	if t.Line.Kind == LineGoto {
		op = LineAdvance.String()
	}
	parts := []string{op + "." + t.Record.String()}
	switch t.Line.Kind {
	case LineGoto:
		parts = append(parts, t.Line.Target)
	case LineFail:
		if t.Line.Message != "" {
			parts = append(parts, fmt.Sprintf("%q", t.Line.Message))
		}
	}
	return strings.Join(parts, " ")
}

// RuleDef is one parsed rule: its raw match text and its transition.
// Action is the raw text after "->", empty when the rule has none.
type RuleDef struct {
	Match      string     `json:"match"`
	Action     string     `json:"action,omitempty"`
	Transition Transition `json:"transition"`
	Line       int        `json:"line,omitempty"`
}

// StateDef is a named, ordered block of rules.
type StateDef struct {
	Name  string    `json:"name"`
	Rules []RuleDef `json:"rules"`
	Line  int       `json:"line,omitempty"`
}

// Template is the abstract structure produced by the template front end.
// Values and States keep declaration order.
type Template struct {
	Values []ValueDef `json:"values"`
	States []StateDef `json:"states"`
}

// Reserved state names.
const (
	StateStart = "Start"
	StateEOF   = "EOF"
	StateEnd   = "End"
)
