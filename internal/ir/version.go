package ir

const (
	// IRVersion versions the rule descriptor and journal record formats. A
	// journal stamped with another IRVersion is not restored.
	IRVersion = "1"

	// EngineVersion is reported by the CLI and stamped into journals.
	EngineVersion = "0.1.0"
)
