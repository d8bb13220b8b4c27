package cache

import (
	"crypto/sha256"

	"xpl/internal/diag"
	"xpl/internal/source"
)

// Payload is the cached check result of one file.
type Payload struct {
	Schema uint16
	Path   string
	// Limit is the diagnostics cap the result was produced with.
	Limit int
	// Deps are the included files the result depends on.
	Deps        []Dep
	Diagnostics []Diagnostic
}

type Dep struct {
	Path string
	Hash Digest
}

// Diagnostic mirrors diag.Diagnostic with plain fields.
type Diagnostic struct {
	Severity uint8
	Code     uint16
	Message  string
	Start    uint32
	End      uint32
	Source   string
	Notes    []Note
}

type Note struct {
	Start uint32
	End   uint32
	URI   string
	Msg   string
}

// Fresh reports whether every dependency still has the recorded content.
func (p *Payload) Fresh(readFile func(string) ([]byte, error)) bool {
	for _, dep := range p.Deps {
		data, err := readFile(dep.Path)
		if err != nil {
			return false
		}
		if Digest(sha256.Sum256(source.StripBOM(data))) != dep.Hash {
			return false
		}
	}
	return true
}

func FromDiagnostics(diags []diag.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, len(diags))
	for i, d := range diags {
		cd := Diagnostic{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			Start:    d.Primary.Start,
			End:      d.Primary.End,
			Source:   d.Source,
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, Note{Start: n.Span.Start, End: n.Span.End, URI: n.URI, Msg: n.Msg})
		}
		out[i] = cd
	}
	return out
}

func ToDiagnostics(cached []Diagnostic) []diag.Diagnostic {
	out := make([]diag.Diagnostic, len(cached))
	for i, cd := range cached {
		d := diag.Diagnostic{
			Severity: diag.Severity(cd.Severity),
			Code:     diag.Code(cd.Code),
			Message:  cd.Message,
			Primary:  source.Span{Start: cd.Start, End: cd.End},
			Source:   cd.Source,
		}
		for _, n := range cd.Notes {
			d.Notes = append(d.Notes, diag.Note{Span: source.Span{Start: n.Start, End: n.End}, URI: n.URI, Msg: n.Msg})
		}
		out[i] = d
	}
	return out
}
