package engine

import (
	"log/slog"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/textfsm/internal/ir"
)

// Conversion rewrites one finished record.
type Conversion func(ir.Record) ir.Record

// LowercaseKeys lowercases every value name, the convention of the
// ntc-templates parsed_sample fixtures.
//
// Names that differ only by case collide; the first in SortedKeys order is
// kept and the collision is logged.
func LowercaseKeys(r ir.Record) ir.Record {
	out := make(ir.Record, len(r))
	from := make(map[string]string, len(r))
	for _, k := range r.SortedKeys() {
		lk := LowerName(k)
		if prev, ok := from[lk]; ok {
			slog.Warn("value names collide when lowercased; dropping one", "kept", prev, "dropped", k)
			continue
		}
		from[lk] = k
		out[lk] = r[k]
	}
	return out
}

// LowerName lowercases one value name the way LowercaseKeys does.
func LowerName(name string) string {
	// A Caser is stateful, so each call gets its own.
	return cases.Lower(language.Und).String(name)
}

// Convert applies every conversion, in order, to each record. The input
// slice is not modified.
func Convert(records []ir.Record, convs ...Conversion) []ir.Record {
	if len(convs) == 0 {
		return records
	}
	out := make([]ir.Record, len(records))
	for i, r := range records {
		for _, c := range convs {
			r = c(r)
		}
		out[i] = r
	}
	return out
}
