package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/textfsm/internal/ir"
)

func TestCompare_Equal(t *testing.T) {
	a := []ir.Record{{"x": ir.Scalar("1")}, {"l": ir.List{"a"}}}
	b := []ir.Record{{"x": ir.Scalar("1")}, {"l": ir.List{"a"}}}
	assert.Empty(t, Compare(a, b))
	assert.Empty(t, Compare(nil, nil))
}

func TestCompare_ShapeMatters(t *testing.T) {
	diffs := Compare(
		[]ir.Record{{"x": ir.List{"1"}}},
		[]ir.Record{{"x": ir.Scalar("1")}},
	)
	require.Len(t, diffs, 1)
	assert.Equal(t, []string{"x"}, diffs[0].Changed)
}

func TestCompare_ExtraAndMissing(t *testing.T) {
	parsed := []ir.Record{{"a": ir.Scalar("1")}, {"b": ir.Scalar("2"), "c": ir.Scalar("3")}}
	expected := []ir.Record{{"a": ir.Scalar("1")}}

	diffs := Compare(parsed, expected)
	require.Len(t, diffs, 1)
	assert.Equal(t, RecordDiff{Index: 1, Extra: true, OnlyInParse: []string{"b", "c"}}, diffs[0])

	diffs = Compare(expected, parsed)
	require.Len(t, diffs, 1)
	assert.Equal(t, RecordDiff{Index: 1, Missing: true, OnlyInSample: []string{"b", "c"}}, diffs[0])
}

func TestCompare_OrderMatters(t *testing.T) {
	a := []ir.Record{{"x": ir.Scalar("1")}, {"x": ir.Scalar("2")}}
	b := []ir.Record{{"x": ir.Scalar("2")}, {"x": ir.Scalar("1")}}

	diffs := Compare(a, b)
	assert.Len(t, diffs, 2)
}

func TestMismatchError_Format(t *testing.T) {
	err := &MismatchError{
		Template: "t.textfsm",
		Input:    "in.raw",
		Errors:   []string{"RULE_ERROR: boom"},
		Diffs: []RecordDiff{
			{Index: 0, OnlyInParse: []string{"a"}, Changed: []string{"b"}},
			{Index: 1, Extra: true},
			{Index: 2, Missing: true},
		},
	}

	assert.Equal(t, "verification failed: t.textfsm on in.raw\n"+
		"  error: RULE_ERROR: boom\n"+
		"  [0] only in parse: a; changed: b;\n"+
		"  [1] only in parse\n"+
		"  [2] only in sample", err.Error())
}
