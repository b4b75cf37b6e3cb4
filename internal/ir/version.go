package ir

// Version constants for the persisted document and the engine.
const (
	// SchemaVersion is the match document schema version.
	SchemaVersion = "1"

	// EngineVersion is the MatchPoint engine version.
	EngineVersion = "0.1.0"
)
