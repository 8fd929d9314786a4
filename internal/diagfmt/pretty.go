package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"weld/internal/diag"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	subjectColor = color.New(color.Bold)
	noteColor    = color.New(color.FgHiBlack)
)

// Pretty печатает диагностики по одной на строку:
//
//	<SEV> <CODE> <subject>  <message>
//
// Subjects are padded to a common display width so messages line up.
// Bag order is kept; call bag.Sort() first for a stable listing.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) error {
	items := visible(bag, opts)
	width := 0
	for _, d := range items {
		width = max(width, runewidth.StringWidth(d.Subject))
	}
	for _, d := range items {
		var sb strings.Builder
		sb.WriteString(paint(opts.Color, severityColor(d.Severity), fmt.Sprintf("%-7s", d.Severity.String())))
		sb.WriteByte(' ')
		sb.WriteString(d.Code.ID())
		if width > 0 {
			sb.WriteByte(' ')
			sb.WriteString(paint(opts.Color, subjectColor, runewidth.FillRight(d.Subject, width)))
		}
		sb.WriteString("  ")
		sb.WriteString(d.Message)
		sb.WriteByte('\n')
		if opts.ShowNotes {
			for _, n := range d.Notes {
				line := "    note: " + n.Msg
				if n.Subject != "" {
					line = "    note: " + n.Subject + ": " + n.Msg
				}
				sb.WriteString(paint(opts.Color, noteColor, line))
				sb.WriteByte('\n')
			}
		}
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

// Counts summarises a bag as "2 errors, 1 warning".
func Counts(bag *diag.Bag) string {
	var errs, warns, infos int
	for _, d := range bag.Items() {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		default:
			infos++
		}
	}
	return fmt.Sprintf("%s, %s, %s", plural(errs, "error"), plural(warns, "warning"), plural(infos, "note"))
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func visible(bag *diag.Bag, opts PrettyOpts) []diag.Diagnostic {
	if bag == nil {
		return nil
	}
	var out []diag.Diagnostic
	for _, d := range bag.Items() {
		if d.Severity < opts.MinSeverity {
			continue
		}
		out = append(out, d)
		if opts.Max > 0 && len(out) == opts.Max {
			break
		}
	}
	return out
}

func severityColor(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return errorColor
	case diag.SevWarning:
		return warningColor
	default:
		return infoColor
	}
}

func paint(enabled bool, c *color.Color, s string) string {
	if !enabled {
		return s
	}
	return c.Sprint(s)
}
