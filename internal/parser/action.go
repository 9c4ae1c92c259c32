package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/textfsm/internal/ir"
)

// Line operator keywords.
const (
	opNext     = "Next"
	opContinue = "Continue"
	opError    = "Error"
)

var lineOps = map[string]ir.LineActionKind{
	opNext:     ir.LineAdvance,
	opContinue: ir.LineContinue,
	opError:    ir.LineFail,
}

// ParseAction parses the text after "->". Accepted forms:
//
//	LineOp[.RecordOp] [NewState]
//	RecordOp [NewState]
//	NewState
//	Error ["message"]
//
// The record operator may also come first, and operators may be separated by
// a comma instead of a dot ("Record, Next Other"). An empty action yields the
// defaults NoRecord and Next.
func ParseAction(text string) (ir.Transition, error) {
	tr := ir.Transition{Record: ir.ActionNoRecord, Line: ir.LineAction{Kind: ir.LineAdvance}}

	head, message, quoted, err := splitMessage(strings.TrimSpace(text))
	if err != nil {
		return tr, err
	}

	var lineOp, recordOp, newState string
	for _, tok := range strings.FieldsFunc(head, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == '.'
	}) {
		switch {
		case newState != "":
			return tr, fmt.Errorf("unexpected %q after new state %q", tok, newState)
		case isLineOp(tok):
			if lineOp != "" {
				return tr, fmt.Errorf("duplicate line operator %q", tok)
			}
			lineOp = tok
		case isRecordOp(tok):
			if recordOp != "" {
				return tr, fmt.Errorf("duplicate record operator %q", tok)
			}
			recordOp = tok
		case nameRe.MatchString(tok):
			newState = tok
		default:
			return tr, fmt.Errorf("invalid action token %q", tok)
		}
	}
	if strings.Contains(head, ".") && (lineOp == "" || recordOp == "") {
		return tr, errors.New("'.' must join a line operator and a record operator")
	}

	if recordOp != "" {
		tr.Record, _ = ir.ParseRecordAction(recordOp)
	}

	switch lineOp {
	case opError:
		if newState != "" && quoted {
			return tr, errors.New("Error takes a single message")
		}
		msg := message
		if newState != "" {
			msg = newState
		}
		tr.Line = ir.LineAction{Kind: ir.LineFail, Message: msg}
		return tr, nil
	case opContinue:
		if newState != "" {
			return tr, errors.New("Continue cannot change state")
		}
		tr.Line = ir.LineAction{Kind: ir.LineContinue}
	}

	if quoted {
		return tr, errors.New("quoted message is only valid after Error")
	}
	if newState != "" {
		tr.Line = ir.LineAction{Kind: ir.LineGoto, Target: newState}
	}
	return tr, nil
}

// splitMessage separates a trailing quoted message from the operators.
func splitMessage(text string) (head, message string, quoted bool, err error) {
	i := strings.IndexByte(text, '"')
	if i < 0 {
		return text, "", false, nil
	}
	rest := text[i:]
	if len(rest) < 2 || !strings.HasSuffix(rest, `"`) {
		return "", "", false, fmt.Errorf("unterminated message %s", rest)
	}
	return text[:i], rest[1 : len(rest)-1], true, nil
}

func isLineOp(s string) bool {
	_, ok := lineOps[s]
	return ok
}

func isRecordOp(s string) bool {
	_, ok := ir.ParseRecordAction(s)
	return ok
}
