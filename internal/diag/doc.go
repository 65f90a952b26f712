// Package diag defines the diagnostic model shared by all fabrication stages.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning or Error.
//   - Code – numeric identifier grouped by stage (codes.go); ID() yields the
//     stable string form such as MAC3006.
//   - Message – short human oriented text.
//   - Primary – the span of the offending source line.
//   - Notes – secondary spans; the include chain is attached here as
//     "included from here" notes, innermost first.
//   - Fixes – optional text edits, used for spelling suggestions.
//
// # Fatal errors and warnings
//
// A stage never aborts the process. Unrecoverable conditions are returned as
// *Fatal errors built through Sink.Fatalf; the pipeline stops at the first one
// and the driver stores its Diagnostic in the Bag. Recoverable conditions are
// reported through Sink.Warnf and processing continues.
//
// # Consumers
//
//   - internal/diagfmt renders diagnostics as pretty text or JSON.
//   - internal/driver collects one Bag per build target.
package diag
