// Package diag defines the diagnostic model shared by the IR validator, the
// binary codec and the driver.
//
// # Purpose
//
//   - Provide deterministic, serialisable records of problems found in an IR
//     module (invalid structure, type mismatches, malformed binary input).
//   - Decouple producers from storage: the validator and the codec receive a
//     Reporter explicitly instead of writing to process-wide state, so several
//     modules can be checked concurrently with independent sinks.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning, Error (severity.go).
//   - Code – compact numeric identifier with a stable string form (codes.go).
//   - Message – short, actionable text.
//   - Primary – the IR node the problem is attached to (Node). Node carries a
//     kind, the node handle and a human readable path such as
//     "func a / $B2 / %3 (add)".
//   - Notes – optional secondary nodes with extra context.
//
// # Emitting diagnostics
//
// Producers call Reporter.Report directly or go through ReportBuilder
// (ReportError, WithNote, Emit). BagReporter collects into a Bag, which
// supports sorting, deduplication and limits; DedupReporter drops repeats
// before they reach the bag.
//
// Package diag does no formatting beyond the single-line short form; rendering
// lives in internal/diagfmt.
package diag
