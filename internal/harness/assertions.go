package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/textfsm/internal/ir"
)

// RecordDiff describes how the parsed record at Index differs from the
// sample record at the same index.
type RecordDiff struct {
	Index int `json:"index"`

	// Extra is set when the parse produced a record the sample lacks.
	Extra bool `json:"extra,omitempty"`
	// Missing is set when the sample has a record the parse lacks.
	Missing bool `json:"missing,omitempty"`

	OnlyInParse  []string `json:"only_in_parse,omitempty"`
	OnlyInSample []string `json:"only_in_sample,omitempty"`
	// Changed names keys present on both sides with different values.
	Changed []string `json:"changed,omitempty"`
}

// Compare diffs two record sequences index by index. An empty result means
// they are equal.
func Compare(parsed, expected []ir.Record) []RecordDiff {
	var diffs []RecordDiff
	for i := range max(len(parsed), len(expected)) {
		switch {
		case i >= len(expected):
			diffs = append(diffs, RecordDiff{Index: i, Extra: true, OnlyInParse: parsed[i].SortedKeys()})
		case i >= len(parsed):
			diffs = append(diffs, RecordDiff{Index: i, Missing: true, OnlyInSample: expected[i].SortedKeys()})
		default:
			if d, ok := compareRecord(i, parsed[i], expected[i]); !ok {
				diffs = append(diffs, d)
			}
		}
	}
	return diffs
}

func compareRecord(i int, got, want ir.Record) (RecordDiff, bool) {
	d := RecordDiff{Index: i}
	for _, k := range got.SortedKeys() {
		w, ok := want[k]
		switch {
		case !ok:
			d.OnlyInParse = append(d.OnlyInParse, k)
		case !ir.ValuesEqual(got[k], w):
			d.Changed = append(d.Changed, k)
		}
	}
	for _, k := range want.SortedKeys() {
		if _, ok := got[k]; !ok {
			d.OnlyInSample = append(d.OnlyInSample, k)
		}
	}
	ok := len(d.OnlyInParse) == 0 && len(d.OnlyInSample) == 0 && len(d.Changed) == 0
	return d, ok
}

// MismatchError is returned when a verification fails.
type MismatchError struct {
	Template string
	Input    string
	Diffs    []RecordDiff
	Errors   []string
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "verification failed: %s on %s\n", e.Template, e.Input)
	for _, msg := range e.Errors {
		fmt.Fprintf(&buf, "  error: %s\n", msg)
	}
	for _, d := range e.Diffs {
		switch {
		case d.Extra:
			fmt.Fprintf(&buf, "  [%d] only in parse\n", d.Index)
		case d.Missing:
			fmt.Fprintf(&buf, "  [%d] only in sample\n", d.Index)
		default:
			fmt.Fprintf(&buf, "  [%d]", d.Index)
			writeKeys(&buf, "only in parse", d.OnlyInParse)
			writeKeys(&buf, "only in sample", d.OnlyInSample)
			writeKeys(&buf, "changed", d.Changed)
			buf.WriteByte('\n')
		}
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func writeKeys(buf *strings.Builder, label string, keys []string) {
	if len(keys) == 0 {
		return
	}
	fmt.Fprintf(buf, " %s: %s;", label, strings.Join(keys, ", "))
}
