// Package diag defines the diagnostic model shared by the lexer, parser,
// resolver and the diagnostics passes.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Error, Warning, Info or Hint, numbered as in LSP (severity.go).
//   - Code: compact numeric identifier with a stable string form (codes.go).
//   - Message: short, actionable text.
//   - Primary: the byte span the diagnostic points at.
//   - Source: name of the pass that produced it ("syntax", "resolve", ...).
//   - Notes: optional secondary spans, e.g. "first declared here".
//
// # Emitting diagnostics
//
// Producers report through a Reporter so emission stays decoupled from
// storage. BagReporter collects into a Bag; DedupReporter drops entries that
// repeat the (span, severity, message) of an earlier one.
//
// Package diag does no formatting or IO; rendering lives in internal/diagfmt
// and the LSP layer converts spans to positions itself.
package diag
