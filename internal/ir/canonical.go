package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON for records. Digests and
// golden snapshots are computed over this form only.
//
// It differs from json.Marshal in three ways:
// 1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
// 2. No HTML escaping, and U+2028/U+2029 are written literally
// 3. Keys and strings are NFC normalized
//
// Accepted inputs: Value, Record, []Record, string and []string.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case Scalar:
		return writeCanonicalString(buf, string(val))
	case string:
		return writeCanonicalString(buf, val)
	case List:
		return writeCanonicalStrings(buf, val)
	case []string:
		return writeCanonicalStrings(buf, val)
	case Record:
		return writeCanonicalRecord(buf, val)
	case []Record:
		buf.WriteByte('[')
		for i, rec := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalRecord(buf, rec); err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	case float64, float32:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func writeCanonicalStrings(buf *bytes.Buffer, list []string) error {
	buf.WriteByte('[')
	for i, s := range list {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, s); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

// writeCanonicalRecord writes a record with its normalized names in UTF-16
// order. Two names that normalize to the same form are an error.
func writeCanonicalRecord(buf *bytes.Buffer, r Record) error {
	names := make(map[string]string, len(r))
	keys := make([]string, 0, len(r))
	for k := range r {
		nk := norm.NFC.String(k)
		if prev, dup := names[nk]; dup {
			return fmt.Errorf("names %q and %q normalize to the same key", prev, k)
		}
		names[nk] = k
		keys = append(keys, nk)
	}
	slices.SortFunc(keys, compareKeysRFC8785)

	buf.WriteByte('{')
	for i, nk := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, nk); err != nil {
			return err
		}
		buf.WriteByte(':')
		v := r[names[nk]]
		if v == nil {
			return fmt.Errorf("value %q: null is forbidden in canonical JSON", names[nk])
		}
		if err := writeCanonical(buf, v); err != nil {
			return fmt.Errorf("value %q: %w", names[nk], err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeCanonicalString writes s as an NFC-normalized JSON string. Only
// control characters, backslash and quote are escaped.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	encoded := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	buf.Write(unescapeLineSeparators(encoded))
	return nil
}

// unescapeLineSeparators turns the encoder's \u2028 and \u2029 escapes back
// into literal characters. An escaped backslash followed by "u2028" is text
// and stays as it is.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if data[i+1] == 'u' && i+6 <= len(data) && string(data[i+2:i+5]) == "202" &&
			(data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		// Any other escape: copy both bytes so an escaped backslash is never
		// mistaken for the start of the next escape.
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}
