package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/textfsm/internal/ir"
)

// RunWithGolden parses rawPath with the template and compares the canonical
// JSON of the records against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, name, templatePath, rawPath string, opts ...Option) error {
	t.Helper()

	records, err := New(opts...).Parse(templatePath, rawPath)
	if err != nil {
		return err
	}
	return AssertGolden(t, name, records)
}

// AssertGolden compares records against a golden file without re-running
// the parse.
func AssertGolden(t *testing.T, name string, records []ir.Record) error {
	t.Helper()

	if records == nil {
		records = []ir.Record{}
	}
	data, err := ir.MarshalCanonical(records)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
