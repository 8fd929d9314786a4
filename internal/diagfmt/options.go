// Package diagfmt renders diagnostics bags and summary tables for the
// terminal and for machine consumption.
package diagfmt

import "weld/internal/diag"

// PrettyOpts configures human-readable output.
type PrettyOpts struct {
	Color       bool
	ShowNotes   bool
	MinSeverity diag.Severity // диагностики ниже этого уровня не печатаются
	Max         int           // 0 - без ограничения
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludeNotes bool
	Max          int // обрезка вывода, не Bag
}
