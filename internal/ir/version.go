package ir

// Version constants for the canonical encoding and the tool.
const (
	// FormatVersion is the canonical encoding version. Fingerprints from
	// different versions are not comparable.
	FormatVersion = "1"

	// ToolVersion is the hyperdem version.
	ToolVersion = "0.1.0"
)
