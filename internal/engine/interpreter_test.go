package engine

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/textfsm/internal/compiler"
	"github.com/roach88/textfsm/internal/ir"
)

func mustCompile(t *testing.T, text string) *compiler.StateTable {
	t.Helper()
	table, err := compiler.Compile(text)
	require.NoError(t, err)
	return table
}

func parse(t *testing.T, table *compiler.StateTable, lines ...string) []ir.Record {
	t.Helper()
	records, err := New(table).ParseLines(lines)
	require.NoError(t, err)
	return records
}

const filldownTemplate = `Value Filldown host (\S+)
Value iface (\S+)

Start
  ^host $host -> Continue
  ^iface $iface -> Record
`

func TestScenario_RequiredName(t *testing.T) {
	table := mustCompile(t, "Value Required name (\\S+)\n\nStart\n  ^name: $name -> Record\n")

	got := parse(t, table, "name: alice", "name: bob")
	assert.Equal(t, []ir.Record{
		{"name": ir.Scalar("alice")},
		{"name": ir.Scalar("bob")},
	}, got)
}

func TestScenario_FilldownPersists(t *testing.T) {
	table := mustCompile(t, filldownTemplate)

	got := parse(t, table, "host r1", "iface eth0", "iface eth1")
	assert.Equal(t, []ir.Record{
		{"host": ir.Scalar("r1"), "iface": ir.Scalar("eth0")},
		{"host": ir.Scalar("r1"), "iface": ir.Scalar("eth1")},
	}, got, "the seeded filldown value alone does not produce a trailing record")
}

func TestScenario_UndefinedVariable(t *testing.T) {
	_, err := compiler.Compile("Value x (a)\n\nStart\n  ^$x $missing\n")
	require.Error(t, err)
	assert.True(t, compiler.IsCompileError(err, compiler.ErrUndefinedVariable))
	assert.Contains(t, err.Error(), "missing")
}

func TestScenario_ClearallSuppressesRequired(t *testing.T) {
	table := mustCompile(t, `Value Required,Filldown host (\S+)
Value iface (\S+)

Start
  ^host ${host}
  ^iface ${iface} -> Record
  ^reset -> Clearall
`)

	got := parse(t, table, "host r1", "iface eth0", "reset", "iface eth1")
	assert.Equal(t, []ir.Record{
		{"host": ir.Scalar("r1"), "iface": ir.Scalar("eth0")},
	}, got)
}

func TestRequiredGating_LeavesRecordUnchanged(t *testing.T) {
	table := mustCompile(t, `Value Required name (\S+)
Value age (\d+)

Start
  ^age ${age} -> Record
  ^name ${name} -> Record
`)

	it := New(table)
	require.NoError(t, it.Feed("age 3"))
	assert.Empty(t, it.Records(), "Record without the Required value is dropped")

	require.NoError(t, it.Feed("name bob"))
	got, err := it.Finish()
	require.NoError(t, err)
	assert.Equal(t, []ir.Record{{"name": ir.Scalar("bob"), "age": ir.Scalar("3")}}, got)
}

func TestFilldown_SurvivesClear(t *testing.T) {
	table := mustCompile(t, `Value Filldown host (\S+)
Value iface (\S+)

Start
  ^host ${host}
  ^iface ${iface} -> Record
  ^clear -> Clear
`)

	got := parse(t, table, "host r1", "iface e0", "clear", "iface e1")
	assert.Equal(t, []ir.Record{
		{"host": ir.Scalar("r1"), "iface": ir.Scalar("e0")},
		{"host": ir.Scalar("r1"), "iface": ir.Scalar("e1")},
	}, got)
}

func TestClear_DropsNonFilldownValues(t *testing.T) {
	table := mustCompile(t, `Value a (\S+)
Value b (\S+)

Start
  ^a ${a}
  ^b ${b} -> Record
  ^clear -> Clear
`)

	got := parse(t, table, "a 1", "clear", "b 2")
	assert.Equal(t, []ir.Record{{"a": ir.Scalar(""), "b": ir.Scalar("2")}}, got)
}

func TestMergeLaws(t *testing.T) {
	table := mustCompile(t, `Value List item (\w+)
Value last (\w+)

Start
  ^item ${item}
  ^last ${last}
  ^end -> Record
`)

	got := parse(t, table, "item a", "last a", "item b", "last b", "end")
	assert.Equal(t, []ir.Record{
		{"item": ir.List{"a", "b"}, "last": ir.Scalar("b")},
	}, got)
}

func TestAllOccurrencesOnOneLine(t *testing.T) {
	table, err := compiler.Assemble(&ir.Template{
		Values: []ir.ValueDef{{Name: "n", Pattern: `(\d+)`, Options: []ir.Option{ir.OptionList}}},
		States: []ir.StateDef{{Name: "Start", Rules: []ir.RuleDef{{Match: "${n}"}}}},
	})
	require.NoError(t, err)

	got := parse(t, table, "1 22 333")
	assert.Equal(t, []ir.Record{{"n": ir.List{"1", "22", "333"}}}, got)
}

func TestDefaultsFilledOnRecord(t *testing.T) {
	table := mustCompile(t, `Value a (\S+)
Value List b (\S+)
Value c (\S+)

Start
  ^a ${a} -> Record
`)

	got := parse(t, table, "a 1")
	assert.Equal(t, []ir.Record{{"a": ir.Scalar("1"), "b": ir.List{}, "c": ir.Scalar("")}}, got)
}

func TestEndOfInput_FinalRecordAttempt(t *testing.T) {
	table := mustCompile(t, "Value x (\\w+)\n\nStart\n  ^x ${x}\n")

	got := parse(t, table, "x a")
	assert.Equal(t, []ir.Record{{"x": ir.Scalar("a")}}, got)
}

func TestEndOfInput_TemplateEOFSuppressesFinalRecord(t *testing.T) {
	table := mustCompile(t, "Value x (\\w+)\n\nStart\n  ^x ${x}\n\nEOF\n")

	got := parse(t, table, "x a")
	assert.Empty(t, got)
}

func TestGotoEnd_StopsConsumption(t *testing.T) {
	table := mustCompile(t, "Value x (\\w+)\n\nStart\n  ^x ${x}\n  ^stop -> End\n")

	it := New(table)
	for _, line := range []string{"x a", "stop", "x b"} {
		require.NoError(t, it.Feed(line))
	}
	assert.Equal(t, "End", it.State())
	assert.Equal(t, 2, it.Line(), "lines after End are ignored")

	got, err := it.Finish()
	require.NoError(t, err)
	assert.Empty(t, got, "End skips the EOF record attempt")
}

func TestGotoEOF_RunsEndOfInputEarly(t *testing.T) {
	table := mustCompile(t, "Value x (\\w+)\n\nStart\n  ^x ${x}\n  ^eof -> EOF\n")

	got := parse(t, table, "x a", "eof", "x b")
	assert.Equal(t, []ir.Record{{"x": ir.Scalar("a")}}, got)
}

func TestStateTransitions(t *testing.T) {
	table := mustCompile(t, `Value Required iface (\S+)
Value List addr (\S+)

Start
  ^interface ${iface} -> Iface

Iface
  ^  address ${addr}
  ^! -> Record Start
`)

	got := parse(t, table,
		"interface e0",
		"  address 10.0.0.1",
		"  address 10.0.0.2",
		"!",
		"  address 9.9.9.9",
		"interface e1",
		"!",
	)
	assert.Equal(t, []ir.Record{
		{"iface": ir.Scalar("e0"), "addr": ir.List{"10.0.0.1", "10.0.0.2"}},
		{"iface": ir.Scalar("e1"), "addr": ir.List{}},
	}, got)
}

func TestErrorAction(t *testing.T) {
	table := mustCompile(t, "Start\n  ^ok\n  ^bad -> Error \"unexpected input\"\n")

	_, err := New(table).ParseLines([]string{"ok", "bad"})
	require.Error(t, err)
	assert.True(t, IsRuleError(err))

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "unexpected input", re.Message)
	assert.Equal(t, 2, re.Line)
	assert.Equal(t, "bad", re.LineText)
	assert.Equal(t, 3, re.RuleLine)
}

func TestErrorAction_PrecedesRecord(t *testing.T) {
	table := mustCompile(t, "Value x (\\w+)\n\nStart\n  ^${x} -> Error.Record\n")

	it := New(table)
	err := it.Feed("a")
	require.True(t, IsRuleError(err))
	assert.Empty(t, it.Records())
}

func TestGotoMissingState(t *testing.T) {
	table := mustCompile(t, "Start\n  ^go -> Nowhere\n")

	it := New(table)
	require.NoError(t, it.Feed("stay"))
	err := it.Feed("go")
	require.Error(t, err)
	assert.True(t, IsMissingState(err))
	assert.Contains(t, err.Error(), "Nowhere")

	assert.Equal(t, err, it.Feed("more"), "errors are sticky")
	_, ferr := it.Finish()
	assert.Equal(t, err, ferr)
}

func TestMissingStartState(t *testing.T) {
	table := mustCompile(t, "Other\n  ^x\n")

	_, err := New(table).ParseLines([]string{"x"})
	assert.True(t, IsMissingState(err))
}

// Synthesizing "" for a capture the regex engine left unbound keeps every
// declared name present in the record. The behavior is kept for
// compatibility but is a candidate for review.
func TestUnboundCapturePlaceholder_CandidateForReview(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	table := mustCompile(t, `Value a (x)
Value List b (y)
Value c (z)

Start
  ^(?:${a}|${b}|${c}) -> Record
`)

	records, err := New(table, WithLogger(logger)).ParseLines([]string{"y"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ir.Record{
		"a": ir.Scalar(ir.UnboundScalar),
		"b": ir.List{"y"},
		"c": ir.Scalar(ir.UnboundScalar),
	}, records[0])
	assert.Contains(t, buf.String(), "using placeholder")

	records, err = New(table, WithLogger(logger)).ParseLines([]string{"x"})
	require.NoError(t, err)
	assert.Equal(t, ir.List{ir.UnboundScalar}, records[0]["b"], "List values get a one-element placeholder list")
}

func TestFinish_Idempotent(t *testing.T) {
	table := mustCompile(t, "Value x (\\w+)\n\nStart\n  ^x ${x}\n")
	it := New(table)
	require.NoError(t, it.Feed("x a"))

	first, err := it.Finish()
	require.NoError(t, err)
	second, err := it.Finish()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.ErrorIs(t, it.Feed("x b"), ErrFinished)
}

func TestReset(t *testing.T) {
	table := mustCompile(t, filldownTemplate)
	it := New(table)

	first, err := it.ParseLines([]string{"host r1", "iface e0"})
	require.NoError(t, err)
	second, err := it.ParseLines([]string{"iface e9"})
	require.NoError(t, err)

	assert.Len(t, first, 1)
	assert.Equal(t, []ir.Record{{"host": ir.Scalar(""), "iface": ir.Scalar("e9")}}, second,
		"filldown state does not leak between runs")
}

func TestWithMaxRecords(t *testing.T) {
	table := mustCompile(t, "Value x (\\w+)\n\nStart\n  ^${x} -> Record\n")

	_, err := New(table, WithMaxRecords(2)).ParseLines([]string{"a", "b", "c"})
	require.Error(t, err)
	assert.True(t, IsQuotaError(err))

	got, err := New(table, WithMaxRecords(3)).ParseLines([]string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestParseTextAndReader(t *testing.T) {
	table := mustCompile(t, filldownTemplate)
	text := "host r1\r\niface eth0\r\niface eth1\r\n"

	fromText, err := New(table).ParseText(text)
	require.NoError(t, err)
	fromReader, err := New(table).ParseReader(strings.NewReader(text))
	require.NoError(t, err)

	assert.Len(t, fromText, 2)
	assert.Equal(t, fromText, fromReader)
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\r\nb\n"))
	assert.Equal(t, []string{"a", "", "b"}, SplitLines("a\n\nb"))
	assert.Equal(t, []string{""}, SplitLines("\n"))
}

func TestConcurrentInterpretersShareTable(t *testing.T) {
	table := mustCompile(t, filldownTemplate)
	want := parse(t, table, "host r1", "iface eth0", "iface eth1")

	var wg sync.WaitGroup
	results := make([][]ir.Record, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = New(table).ParseLines([]string{"host r1", "iface eth0", "iface eth1"})
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, want, results[i])
	}
}

func TestGolden_FilldownScenario(t *testing.T) {
	table := mustCompile(t, filldownTemplate)
	records := parse(t, table, "host r1", "iface eth0", "iface eth1")

	data, err := ir.MarshalCanonical(records)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "filldown_scenario", data)
}
