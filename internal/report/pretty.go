package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"tpcheck/internal/diag"
	"tpcheck/internal/driver"
)

var tableHeader = []string{"PARAM", "KIND", "FLAGS", "CONSTRAINTS", "BASE", "INTERFACES", "REF", "VAL", "UNM", "NOTNULL"}

type palette struct {
	path, header, err, warn, info, note, dim *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		path:   color.New(color.Bold),
		header: color.New(color.FgCyan),
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgBlue),
		note:   color.New(color.FgGreen),
		dim:    color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.path, p.header, p.err, p.warn, p.info, p.note, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty writes one table of parameter facts per file followed by the
// file's diagnostics and a summary line.
func Pretty(w io.Writer, files []driver.FileReport, opts Options) error {
	p := newPalette(opts.Color)
	width := opts.Width
	if width <= 0 {
		width = 40
	}
	var errs, warns int
	for i := range files {
		f := &files[i]
		title := p.path.Sprint(f.Path)
		if f.Cached {
			title += " " + p.dim.Sprint("(cached)")
		}
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
		if len(f.Params) > 0 {
			if err := writeTable(w, p, factRows(f.Params, width)); err != nil {
				return err
			}
		}
		shown := f.Diagnostics
		if opts.MaxDiagnostics > 0 && len(shown) > opts.MaxDiagnostics {
			shown = shown[:opts.MaxDiagnostics]
		}
		for _, d := range shown {
			if err := writeDiagnostic(w, p, d); err != nil {
				return err
			}
		}
		if hidden := len(f.Diagnostics) - len(shown); hidden > 0 {
			if _, err := fmt.Fprintf(w, "  %s\n", p.dim.Sprintf("... %d more", hidden)); err != nil {
				return err
			}
		}
		for _, d := range f.Diagnostics {
			switch d.Severity {
			case diag.SevError:
				errs++
			case diag.SevWarning:
				warns++
			}
		}
	}
	_, err := fmt.Fprintf(w, "%d files, %s, %s\n", len(files),
		plural(errs, "error"), plural(warns, "warning"))
	return err
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func factRows(params []driver.ParamFacts, width int) [][]string {
	rows := make([][]string, 0, len(params))
	for _, pf := range params {
		rows = append(rows, []string{
			pf.Decl + "." + pf.Name,
			pf.Kind,
			list(pf.Flags, width),
			list(pf.Constraints, width),
			pf.EffectiveBase,
			list(pf.AllInterfaces, width),
			yesNo(pf.IsReference),
			yesNo(pf.IsValue),
			yesNo(pf.IsUnmanaged),
			pf.NotNullable,
		})
	}
	return rows
}

func list(items []string, width int) string {
	if len(items) == 0 {
		return "-"
	}
	return truncate(strings.Join(items, ", "), width)
}

func truncate(value string, width int) string {
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// writeTable aligns columns by display width.
func writeTable(w io.Writer, p palette, rows [][]string) error {
	widths := make([]int, len(tableHeader))
	for i, h := range tableHeader {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	line := func(cells []string, c *color.Color) error {
		var sb strings.Builder
		sb.WriteString("  ")
		for i, cell := range cells {
			if i > 0 {
				sb.WriteString("  ")
			}
			if i == len(cells)-1 {
				sb.WriteString(cell)
				continue
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		text := sb.String()
		if c != nil {
			text = c.Sprint(text)
		}
		_, err := fmt.Fprintln(w, text)
		return err
	}
	if err := line(tableHeader, p.header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := line(row, nil); err != nil {
			return err
		}
	}
	return nil
}

func writeDiagnostic(w io.Writer, p palette, d diag.Diagnostic) error {
	sev := p.severity(d.Severity).Sprintf("%s %s", strings.ToLower(d.Severity.String()), d.Code.ID())
	if _, err := fmt.Fprintf(w, "  %s %s: %s\n", sev, d.Subject, d.Message); err != nil {
		return err
	}
	for _, n := range d.Notes {
		if _, err := fmt.Fprintf(w, "    %s %s: %s\n", p.note.Sprint("note"), n.Subject, n.Msg); err != nil {
			return err
		}
	}
	return nil
}
