package diag

// Severity ranks a diagnostic. Values follow the LSP DiagnosticSeverity
// numbering: lower is more severe and zero is not a severity.
type Severity uint8

const (
	SevError   Severity = 1
	SevWarning Severity = 2
	SevInfo    Severity = 3
	SevHint    Severity = 4
)

func (s Severity) Valid() bool {
	return s >= SevError && s <= SevHint
}

// AtLeast reports whether s is at least as severe as threshold.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.Valid() && s <= threshold
}

func (s Severity) String() string {
	switch s {
	case SevError:
		return "ERROR"
	case SevWarning:
		return "WARNING"
	case SevInfo:
		return "INFO"
	case SevHint:
		return "HINT"
	}
	return "UNKNOWN"
}
