package diag

import "testing"

func TestSeverityRanking(t *testing.T) {
	tests := []struct {
		sev     Severity
		name    string
		atError bool
		atWarn  bool
	}{
		{SevError, "ERROR", true, true},
		{SevWarning, "WARNING", false, true},
		{SevInfo, "INFO", false, false},
		{SevHint, "HINT", false, false},
		{0, "UNKNOWN", false, false},
		{9, "UNKNOWN", false, false},
	}
	for _, tt := range tests {
		if got := tt.sev.String(); got != tt.name {
			t.Fatalf("%d: String() = %q, want %q", tt.sev, got, tt.name)
		}
		if got := tt.sev.AtLeast(SevError); got != tt.atError {
			t.Fatalf("%s: AtLeast(SevError) = %v", tt.name, got)
		}
		if got := tt.sev.AtLeast(SevWarning); got != tt.atWarn {
			t.Fatalf("%s: AtLeast(SevWarning) = %v", tt.name, got)
		}
	}
}
