// Package diag defines the diagnostic model shared by all merge phases.
//
// # Purpose
//
//   - Provide deterministic data structures that capture findings produced
//     by the loader, the conflict resolver, the union engine and the
//     orchestrator.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to concrete storage or formatting layers.
//   - Define Fatal, the one error kind that aborts a merge.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//     Ranges: CFG configuration conflicts, MRG structural conflicts, ANM
//     recoverable anomalies, POL policy outcomes, IMG image I/O.
//   - Message – human oriented text; keep it short and actionable.
//   - Subject – what the finding is about, written "Asm" or "Asm!Ns.Type".
//   - Notes – optional secondary subjects/messages.
//
// # Fatal errors
//
// Configuration conflicts and structural conflicts are returned as *Fatal
// and recorded in the Bag as SevError. Anomalies are SevWarning and the
// merge continues. Policy outcomes (a dropped duplicate resource, a lost
// strong name) are SevInfo.
//
// Package diag does not perform formatting or IO; rendering lives in
// internal/diagfmt.
package diag
