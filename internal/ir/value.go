package ir

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Value is a sealed interface representing an extracted value.
// Only Scalar and List implement this.
type Value interface {
	irValue() // Sealed - only these types implement it
	clone() Value
}

// Scalar is a single extracted string.
type Scalar string

func (Scalar) irValue() {}

func (s Scalar) clone() Value { return s }

// List is an ordered sequence of extracted strings.
type List []string

func (List) irValue() {}

func (l List) clone() Value { return slices.Clone(l) }

// MarshalJSON renders a nil List as [] rather than null.
func (l List) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// UnboundScalar is the placeholder stored for a capture the regex engine did
// not bind within an otherwise successful match (an optional alternative that
// was not taken). List values receive a one-element List of it.
const UnboundScalar = ""

// ErrShapeMismatch reports an attempt to merge a List into a Scalar entry.
// For correctly declared values this cannot happen; seeing it is a bug.
var ErrShapeMismatch = errors.New("cannot merge list into scalar value")

// Merge combines an incoming value into an existing one:
//   - Scalar into Scalar overwrites
//   - Scalar into List appends
//   - List into List concatenates
//   - List into Scalar is ErrShapeMismatch
func Merge(existing, incoming Value) (Value, error) {
	switch cur := existing.(type) {
	case Scalar:
		switch in := incoming.(type) {
		case Scalar:
			return in, nil
		case List:
			return nil, ErrShapeMismatch
		default:
			return nil, fmt.Errorf("unsupported value type: %T", incoming)
		}
	case List:
		out := slices.Clone(cur)
		switch in := incoming.(type) {
		case Scalar:
			return append(out, string(in)), nil
		case List:
			return append(out, in...), nil
		default:
			return nil, fmt.Errorf("unsupported value type: %T", incoming)
		}
	default:
		return nil, fmt.Errorf("unsupported value type: %T", existing)
	}
}

// ValueString renders a value for human-readable output.
func ValueString(v Value) string {
	switch val := v.(type) {
	case Scalar:
		return string(val)
	case List:
		return "[" + strings.Join(val, ", ") + "]"
	default:
		return ""
	}
}

// ValueFromAny converts a decoded JSON/YAML value (string, []any, []string)
// into a Value. Non-string scalars are formatted with %v.
func ValueFromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Scalar(""), nil
	case string:
		return Scalar(val), nil
	case []string:
		return List(slices.Clone(val)), nil
	case []any:
		out := make(List, 0, len(val))
		for i, elem := range val {
			switch e := elem.(type) {
			case string:
				out = append(out, e)
			case nil:
				out = append(out, "")
			case []any, map[string]any:
				return nil, fmt.Errorf("list element %d: nested values are not supported", i)
			default:
				out = append(out, fmt.Sprintf("%v", e))
			}
		}
		return out, nil
	case map[string]any:
		return nil, fmt.Errorf("object values are not supported")
	default:
		return Scalar(fmt.Sprintf("%v", val)), nil
	}
}
