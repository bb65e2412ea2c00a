package report

import (
	"encoding/json"
	"io"

	"tpcheck/internal/diag"
	"tpcheck/internal/driver"
)

// NoteJSON is a diagnostic note.
type NoteJSON struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// DiagnosticJSON is a diagnostic in JSON form.
type DiagnosticJSON struct {
	Severity string     `json:"severity"`
	Code     string     `json:"code"`
	Title    string     `json:"title"`
	Subject  string     `json:"subject"`
	Message  string     `json:"message"`
	Notes    []NoteJSON `json:"notes,omitempty"`
}

// FileJSON is one file of the output.
type FileJSON struct {
	driver.FileReport
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
}

// Output is the root of the JSON document.
type Output struct {
	Files    []FileJSON `json:"files"`
	Errors   int        `json:"errors"`
	Warnings int        `json:"warnings"`
}

// BuildOutput assembles the JSON document without serializing it.
func BuildOutput(files []driver.FileReport, opts Options) Output {
	out := Output{Files: make([]FileJSON, 0, len(files))}
	for _, f := range files {
		fj := FileJSON{FileReport: f, Diagnostics: make([]DiagnosticJSON, 0, len(f.Diagnostics))}
		if fj.Params == nil {
			fj.Params = []driver.ParamFacts{}
		}
		for i, d := range f.Diagnostics {
			switch d.Severity {
			case diag.SevError:
				out.Errors++
			case diag.SevWarning:
				out.Warnings++
			}
			if opts.MaxDiagnostics > 0 && i >= opts.MaxDiagnostics {
				continue
			}
			fj.Diagnostics = append(fj.Diagnostics, diagnosticJSON(d))
		}
		out.Files = append(out.Files, fj)
	}
	return out
}

func diagnosticJSON(d diag.Diagnostic) DiagnosticJSON {
	dj := DiagnosticJSON{
		Severity: d.Severity.String(),
		Code:     d.Code.ID(),
		Title:    d.Code.Title(),
		Subject:  d.Subject,
		Message:  d.Message,
	}
	for _, n := range d.Notes {
		dj.Notes = append(dj.Notes, NoteJSON{Subject: n.Subject, Message: n.Msg})
	}
	return dj
}

// JSON writes the indented JSON document.
func JSON(w io.Writer, files []driver.FileReport, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildOutput(files, opts))
}

// Write renders files in format.
func Write(w io.Writer, format Format, files []driver.FileReport, opts Options) error {
	if format == FormatJSON {
		return JSON(w, files, opts)
	}
	return Pretty(w, files, opts)
}
