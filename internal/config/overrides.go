package config

import "time"

// Overrides are the settings a client may send in initializationOptions or
// workspace/didChangeConfiguration under the "xpl" key. Nil fields keep the
// current value.
type Overrides struct {
	UnusedWarnings    *bool `json:"unusedWarnings,omitempty"`
	MaxDiagnostics    *int  `json:"maxDiagnostics,omitempty"`
	Trace             *bool `json:"trace,omitempty"`
	DebounceMs        *int  `json:"debounceMs,omitempty"`
	AnalysisTimeoutMs *int  `json:"analysisTimeoutMs,omitempty"`
}

// Apply returns c with the set overrides applied. Values that would make
// the configuration invalid are ignored.
func (c Config) Apply(o Overrides) Config {
	if o.UnusedWarnings != nil {
		c.Diagnostics.Unused = *o.UnusedWarnings
	}
	if o.MaxDiagnostics != nil && *o.MaxDiagnostics >= 0 {
		c.Server.MaxDiagnostics = *o.MaxDiagnostics
	}
	if o.Trace != nil {
		c.Log.Trace = *o.Trace
	}
	if o.DebounceMs != nil && *o.DebounceMs >= 0 {
		c.Server.Debounce = Duration{time.Duration(*o.DebounceMs) * time.Millisecond}
	}
	if o.AnalysisTimeoutMs != nil && *o.AnalysisTimeoutMs > 0 {
		c.Server.AnalysisTimeout = Duration{time.Duration(*o.AnalysisTimeoutMs) * time.Millisecond}
	}
	return c
}
