package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalRecord(t *testing.T) {
	r := Record{"z": Scalar("1"), "a": List{"x", "y"}}

	result, err := MarshalCanonical(r)
	require.NoError(t, err)
	assert.Equal(t, `{"a":["x","y"],"z":"1"}`, string(result))
}

func TestMarshalCanonicalRecords(t *testing.T) {
	result, err := MarshalCanonical([]Record{{"b": Scalar("2")}, {"a": Scalar("1")}})
	require.NoError(t, err)
	assert.Equal(t, `[{"b":"2"},{"a":"1"}]`, string(result), "record order is preserved")
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+E000 vs U+10000 - UTF-16 order differs from UTF-8
	r := Record{
		"\uE000": Scalar("1"),
		"𐀀":      Scalar("2"),
	}

	result, err := MarshalCanonical(r)
	require.NoError(t, err)

	expected := `{"𐀀":"2","` + "\uE000" + `":"1"}`
	assert.Equal(t, expected, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(Scalar("<a> & <b>"))
	require.NoError(t, err)

	assert.Equal(t, `"<a> & <b>"`, string(result))
	assert.NotContains(t, string(result), "\\u003c")
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	composed := "caf\u00E9"
	decomposed := "cafe\u0301"

	result1, err := MarshalCanonical(Record{composed: Scalar(composed)})
	require.NoError(t, err)
	result2, err := MarshalCanonical(Record{decomposed: Scalar(decomposed)})
	require.NoError(t, err)

	assert.Equal(t, result1, result2, "NFC normalization should make these equal")
}

func TestMarshalCanonicalLineSeparatorsUnescaped(t *testing.T) {
	result, err := MarshalCanonical(Scalar("a\u2028b"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(result))
}

func TestMarshalCanonicalEscapedBackslashStays(t *testing.T) {
	result, err := MarshalCanonical(Scalar(`x\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028"`, string(result))
}

func TestMarshalCanonicalNormalizedNameCollision(t *testing.T) {
	_, err := MarshalCanonical(Record{"caf\u00E9": Scalar("1"), "cafe\u0301": Scalar("2")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "normalize")
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null")

	_, err = MarshalCanonical(3.14)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")
}

func TestRecordsDigest(t *testing.T) {
	a := []Record{{"x": Scalar("1")}, {"x": Scalar("2")}}
	b := []Record{{"x": Scalar("2")}, {"x": Scalar("1")}}

	da := MustRecordsDigest(a)
	assert.Len(t, da, 64)
	assert.Equal(t, da, MustRecordsDigest([]Record{{"x": Scalar("1")}, {"x": Scalar("2")}}))
	assert.NotEqual(t, da, MustRecordsDigest(b), "digest is order sensitive")

	assert.Equal(t, MustRecordsDigest(nil), MustRecordsDigest([]Record{}))
}

func TestDigestDomainSeparation(t *testing.T) {
	assert.NotEqual(t, TemplateDigest("x"), InputDigest("x"))
}
