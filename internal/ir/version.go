package ir

// Version constants for the record format and engine.
const (
	// RecordVersion is the canonical record serialization version.
	RecordVersion = "1"

	// EngineVersion is the textfsm engine version.
	EngineVersion = "0.1.0"
)
