package diag

import (
	"tpcheck/internal/source"
)

// Note adds secondary context to a diagnostic.
type Note struct {
	Subject string
	Msg     string
}

// Diagnostic is a single finding. Subject names the symbol the finding is
// attached to, e.g. "Outer.M<U>".
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	File     source.FileID
	Subject  string
	Notes    []Note
}

func New(sev Severity, code Code, subject, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Subject:  subject,
		Message:  msg,
	}
}

func NewError(code Code, subject, msg string) Diagnostic {
	return New(SevError, code, subject, msg)
}

func NewWarning(code Code, subject, msg string) Diagnostic {
	return New(SevWarning, code, subject, msg)
}

func (d Diagnostic) WithNote(subject, msg string) Diagnostic {
	notes := make([]Note, len(d.Notes), len(d.Notes)+1)
	copy(notes, d.Notes)
	d.Notes = append(notes, Note{Subject: subject, Msg: msg})
	return d
}

// InFile returns a copy of d attached to file.
func (d Diagnostic) InFile(file source.FileID) Diagnostic {
	d.File = file
	return d
}
