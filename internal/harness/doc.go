// Package harness verifies templates against recorded device output.
//
// A verification case is three files: a template, a raw capture of device
// output, and a YAML sample holding the records the template must produce:
//
//	---
//	parsed_sample:
//	  - vlan_id: "1"
//	    name: "default"
//	    interfaces:
//	      - "Et1"
//	      - "Et2"
//
// Sample keys are lowercase, so parsed records are compared after
// LowercaseKeys. Values are strings or lists of strings; other YAML scalars
// are compared by their formatted text.
//
// # Tree Layout
//
// RunTree walks an ntc-templates checkout:
//
//	<root>/ntc_templates/templates/<family>_<set>.textfsm
//	<root>/tests/<family>/<set>/<name>.raw
//	<root>/tests/<family>/<set>/<name>.yml
//
// A test set without a matching template, or a raw file without a sample,
// is reported as a warning rather than a failure.
//
// # Golden Snapshots
//
// AssertGolden stores canonical JSON of a record sequence under
// testdata/golden. Regenerate with:
//
//	go test ./... -update
package harness
