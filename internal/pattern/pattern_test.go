package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_SelectsBackend(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want Kind
	}{
		{"plain", `^(?<iface>\S+)\s+is up`, Linear},
		{"lookahead", `^(?<name>\w+)(?=:)`, Backtracking},
		{"negative lookbehind", `(?<!x)(?<v>\d+)`, Backtracking},
		{"backreference", `^(\w)\1$`, Backtracking},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Kind())
			assert.Equal(t, tt.expr, p.String())
		})
	}
}

func TestCompile_RepeatTargetError(t *testing.T) {
	_, err := Compile(`(?=a)*a`)
	require.Error(t, err)

	var rt *RepeatTargetError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, 5, rt.Offset)
	assert.Equal(t, 1, rt.Width)
}

func TestCompile_LinearAcceptsQuantifiedAnchor(t *testing.T) {
	// RE2 tolerates this, so no repair is ever attempted.
	p, err := Compile(`\b*foo`)
	require.NoError(t, err)
	assert.Equal(t, Linear, p.Kind())
}

func TestCompileRepairing(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		fixed   string
		removed []string
	}{
		{"quantified lookahead", `(?=a)*a`, `(?=a)a`, []string{"*"}},
		{"quantified word boundary", `(?=x)\b+x`, `(?=x)\bx`, []string{"+"}},
		{"lazy quantifier needs two passes", `(?=x)^*?x`, `(?=x)^x`, []string{"*", "?"}},
		{"brace quantifier", `(?!y)$(?<=z){2}`, `(?!y)$(?<=z)`, []string{"{2}"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, repairs, err := CompileRepairing(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, Backtracking, p.Kind())
			assert.Equal(t, tt.fixed, p.String())

			require.Len(t, repairs, len(tt.removed))
			for i, r := range repairs {
				assert.Equal(t, tt.removed[i], r.Removed)
			}
			assert.Equal(t, tt.expr, repairs[0].Before)
		})
	}
}

func TestCompileRepairing_NoRepairNeeded(t *testing.T) {
	p, repairs, err := CompileRepairing(`^\s+(?<x>\d+)`)
	require.NoError(t, err)
	assert.Empty(t, repairs)
	assert.Equal(t, Linear, p.Kind())
}

func TestCompileRepairing_FatalError(t *testing.T) {
	_, _, err := CompileRepairing(`(?=a)(unclosed`)
	require.Error(t, err)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, `(?=a)(unclosed`, pe.Expr)
	assert.Error(t, pe.LinearErr)
}

func TestFindUnrepeatable_IgnoresLiteralsAndClasses(t *testing.T) {
	for _, expr := range []string{
		`\^*`,
		`[$]*`,
		`[[:alpha:]$]+`,
		`(?:a)*`,
		`(?<name>x)+`,
		`(?i)a*`,
		`\p{L}+`,
		`a{2}`,
	} {
		_, _, ok := findUnrepeatable(expr)
		assert.False(t, ok, expr)
	}
}

func TestFindAll_Linear(t *testing.T) {
	p := MustCompile(`(?<n>\d+)`)
	occ, err := p.FindAll("a1 b22 c333", []string{"n"})
	require.NoError(t, err)

	require.Len(t, occ, 3)
	assert.Equal(t, Capture{Text: "1", Bound: true}, occ[0]["n"])
	assert.Equal(t, Capture{Text: "22", Bound: true}, occ[1]["n"])
	assert.Equal(t, Capture{Text: "333", Bound: true}, occ[2]["n"])
}

func TestFindAll_LinearUnboundGroup(t *testing.T) {
	p := MustCompile(`(?<a>x)|(?<b>y)`)
	occ, err := p.FindAll("y", []string{"a", "b"})
	require.NoError(t, err)

	require.Len(t, occ, 1)
	assert.False(t, occ[0]["a"].Bound)
	assert.Equal(t, Capture{Text: "y", Bound: true}, occ[0]["b"])
}

func TestFindAll_NoMatch(t *testing.T) {
	p := MustCompile(`^zzz`)
	occ, err := p.FindAll("abc", nil)
	require.NoError(t, err)
	assert.Empty(t, occ)
}

func TestFindAll_Backtracking(t *testing.T) {
	p := MustCompile(`(?<w>\w+)(?=,)`)
	require.Equal(t, Backtracking, p.Kind())

	occ, err := p.FindAll("a,bb,c", []string{"w"})
	require.NoError(t, err)

	require.Len(t, occ, 2)
	assert.Equal(t, "a", occ[0]["w"].Text)
	assert.Equal(t, "bb", occ[1]["w"].Text)
}

func TestFindAll_BacktrackingUnboundGroup(t *testing.T) {
	p := MustCompile(`(?<a>x)?(?<b>y)(?=z)`)
	require.Equal(t, Backtracking, p.Kind())

	occ, err := p.FindAll("yz", []string{"a", "b"})
	require.NoError(t, err)

	require.Len(t, occ, 1)
	assert.False(t, occ[0]["a"].Bound)
	assert.Equal(t, "y", occ[0]["b"].Text)
}

func TestFindAll_BackendsAgreeOnEmptyMatches(t *testing.T) {
	back := MustCompile(`(?<x>\d*)(?=\s|$)`)
	require.Equal(t, Backtracking, back.Kind())
	lin := MustCompile(`(?<x>\d*)(?:\s|$)`)
	require.Equal(t, Linear, lin.Kind())

	occ, err := back.FindAll("12 34", []string{"x"})
	require.NoError(t, err)
	require.Len(t, occ, 2)
	assert.Equal(t, "12", occ[0]["x"].Text)
	assert.Equal(t, "34", occ[1]["x"].Text)

	occ, err = lin.FindAll("12 34", []string{"x"})
	require.NoError(t, err)
	assert.Len(t, occ, 2)
}

func TestFindAll_BacktrackingKeepsSeparatedEmptyMatches(t *testing.T) {
	p := MustCompile(`(?<x>a*)(?=b)`)
	require.Equal(t, Backtracking, p.Kind())

	occ, err := p.FindAll("bab", []string{"x"})
	require.NoError(t, err)
	require.Len(t, occ, 2)
	assert.Equal(t, "", occ[0]["x"].Text)
	assert.True(t, occ[0]["x"].Bound)
	assert.Equal(t, "a", occ[1]["x"].Text)
}

func TestMatchString(t *testing.T) {
	for _, expr := range []string{`^ab`, `^a(?=b)`} {
		p := MustCompile(expr)
		ok, err := p.MatchString("abc")
		require.NoError(t, err)
		assert.True(t, ok, expr)

		ok, err = p.MatchString("xbc")
		require.NoError(t, err)
		assert.False(t, ok, expr)
	}
}
