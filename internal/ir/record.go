package ir

import (
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"
)

// Record maps value names to extracted values. Insertion order is irrelevant;
// use SortedKeys() for deterministic iteration.
type Record map[string]Value

// InsertString merges a raw string under name, wrapping it as a Scalar or as a
// one-element List depending on list.
func (r Record) InsertString(name, s string, list bool) error {
	if list {
		return r.Append(name, List{s})
	}
	return r.Append(name, Scalar(s))
}

// Append merges v into the entry for name using the Merge algebra.
// An absent entry simply takes a copy of v.
func (r Record) Append(name string, v Value) error {
	existing, ok := r[name]
	if !ok {
		r[name] = v.clone()
		return nil
	}
	merged, err := Merge(existing, v)
	if err != nil {
		return fmt.Errorf("value %q: %w", name, err)
	}
	r[name] = merged
	return nil
}

// OverwriteFrom replaces (does not merge) every entry present in other.
func (r Record) OverwriteFrom(other Record) {
	for k, v := range other {
		r[k] = v.clone()
	}
}

// Clear removes every entry whose name fails keep. A nil keep removes all.
func (r Record) Clear(keep func(name string) bool) {
	for k := range r {
		if keep == nil || !keep(k) {
			delete(r, k)
		}
	}
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v.clone()
	}
	return out
}

// Equal reports whether two records hold the same names and values.
// A nil List and an empty List compare equal.
func (r Record) Equal(other Record) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		ov, ok := other[k]
		if !ok || !ValuesEqual(v, ov) {
			return false
		}
	}
	return true
}

// ValuesEqual compares two values by variant and content.
func ValuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case Scalar:
		bv, ok := b.(Scalar)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		return ok && slices.Equal(av, bv)
	default:
		return false
	}
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
func (r Record) SortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// ToMap converts the record to plain Go values (string or []string) for
// encoders that do not know about Value.
func (r Record) ToMap() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		switch val := v.(type) {
		case Scalar:
			out[k] = string(val)
		case List:
			if val == nil {
				out[k] = []string{}
			} else {
				out[k] = []string(val)
			}
		}
	}
	return out
}

// RecordFromMap converts decoded JSON/YAML data into a Record.
func RecordFromMap(m map[string]any) (Record, error) {
	out := make(Record, len(m))
	for k, v := range m {
		val, err := ValueFromAny(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = val
	}
	return out, nil
}

// UnmarshalJSON decodes strings as Scalar and string arrays as List.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rec, err := RecordFromMap(raw)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
// Go's default string comparison uses UTF-8 which produces DIFFERENT order
// for characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	// If all compared units are equal, shorter string comes first
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
