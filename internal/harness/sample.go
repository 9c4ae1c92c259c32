package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/textfsm/internal/ir"
)

// Sample is the expected output of one raw capture.
type Sample struct {
	// ParsedSample holds one map per expected record.
	ParsedSample []map[string]any `yaml:"parsed_sample"`
}

// LoadSample reads and parses a sample YAML file.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// top-level fields, or holds values that are neither strings nor lists.
func LoadSample(path string) ([]ir.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample file: %w", err)
	}
	return ParseSample(data)
}

// ParseSample decodes sample YAML.
func ParseSample(data []byte) ([]ir.Record, error) {
	var sample Sample
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sample); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	records := make([]ir.Record, 0, len(sample.ParsedSample))
	for i, m := range sample.ParsedSample {
		rec, err := ir.RecordFromMap(m)
		if err != nil {
			return nil, fmt.Errorf("parsed_sample[%d]: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// MarshalSample renders records in sample form, keys sorted.
func MarshalSample(records []ir.Record) ([]byte, error) {
	out := struct {
		ParsedSample []map[string]any `yaml:"parsed_sample"`
	}{ParsedSample: make([]map[string]any, len(records))}
	for i, rec := range records {
		out.ParsedSample[i] = rec.ToMap()
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
