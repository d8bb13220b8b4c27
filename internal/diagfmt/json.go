package diagfmt

import (
	"encoding/json"
	"io"

	"xpl/internal/source"
)

// LocationJSON представляет местоположение в файле для JSON
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine int    `json:"start_line,omitempty"`
	StartCol  int    `json:"start_col,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
	EndCol    int    `json:"end_col,omitempty"`
}

// NoteJSON представляет дополнительную заметку для JSON
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// DiagnosticJSON представляет диагностику в JSON формате
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Source   string       `json:"source,omitempty"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// DiagnosticsOutput представляет корневую структуру JSON вывода
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

// makeLocation создаёт LocationJSON из Span; line/col начинаются с 1.
func makeLocation(path string, f *source.File, span source.Span, opts JSONOpts) LocationJSON {
	loc := LocationJSON{
		File:      formatPath(path, opts.PathMode, opts.BaseDir),
		StartByte: span.Start,
		EndByte:   span.End,
	}
	if opts.IncludePositions && f != nil {
		sl, sc := lineCol(f, span.Start)
		el, ec := lineCol(f, span.End)
		loc.StartLine, loc.StartCol = sl+1, sc+1
		loc.EndLine, loc.EndCol = el+1, ec+1
	}
	return loc
}

// BuildDiagnosticsOutput формирует структуру JSON-вывода без сериализации.
func BuildDiagnosticsOutput(units []Unit, opts JSONOpts) DiagnosticsOutput {
	diagnostics := make([]DiagnosticJSON, 0)
	for _, u := range units {
		items := u.Diagnostics
		if opts.Max > 0 && opts.Max < len(items) {
			items = items[:opts.Max]
		}
		for _, d := range items {
			diagJSON := DiagnosticJSON{
				Severity: d.Severity.String(),
				Code:     d.Code.ID(),
				Message:  d.Message,
				Source:   d.Source,
				Location: makeLocation(u.Path, u.File, d.Primary, opts),
			}
			if opts.IncludeNotes && len(d.Notes) > 0 {
				diagJSON.Notes = make([]NoteJSON, len(d.Notes))
				for j, note := range d.Notes {
					diagJSON.Notes[j] = NoteJSON{
						Message:  note.Msg,
						Location: makeLocation(notePath(u, note.URI), noteFile(u, note.URI, opts.Lookup), note.Span, opts),
					}
				}
			}
			diagnostics = append(diagnostics, diagJSON)
		}
	}
	return DiagnosticsOutput{
		Diagnostics: diagnostics,
		Count:       len(diagnostics),
	}
}

// JSON форматирует диагностики в JSON формат.
func JSON(w io.Writer, units []Unit, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(units, opts))
}
