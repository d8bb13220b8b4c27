package diag

import (
	"xpl/internal/source"
)

type Note struct {
	Span source.Span
	URI  string // empty means the diagnostic's own document
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Source   string
	Notes    []Note
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func NewWarning(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevWarning, code, primary, msg)
}

func (d Diagnostic) WithNote(sp source.Span, uri, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, URI: uri, Msg: msg})
	return d
}
