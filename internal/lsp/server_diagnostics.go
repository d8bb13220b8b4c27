package lsp

import (
	"context"
	"encoding/json"
	"strconv"

	"xpl/internal/analysis"
	"xpl/internal/diag"
	"xpl/internal/source"
)

// diagnosticSource is the "source" field of every published diagnostic.
const diagnosticSource = "xpl"

func lspSeverity(s diag.Severity) int {
	if !s.Valid() {
		return int(diag.SevInfo)
	}
	return int(s)
}

// toLSPDiagnostics converts diagnostics of the document uri. Notes in other
// files are located through the include loader and dropped when that file
// is unknown.
func toLSPDiagnostics(uri string, file *source.File, diags []diag.Diagnostic, loader *analysis.Loader) []lspDiagnostic {
	out := make([]lspDiagnostic, 0, len(diags))
	if file == nil {
		return out
	}
	for _, d := range diags {
		item := lspDiagnostic{
			Range:    file.Range(d.Primary),
			Severity: lspSeverity(d.Severity),
			Code:     d.Code.ID(),
			Source:   diagnosticSource,
			Message:  d.Message,
		}
		for _, n := range d.Notes {
			noteURI, noteFile := uri, file
			if n.URI != "" && n.URI != uri {
				f, ok := loader.File(n.URI)
				if !ok {
					continue
				}
				noteURI, noteFile = n.URI, f
			}
			item.RelatedInformation = append(item.RelatedInformation, diagnosticRelatedInformation{
				Location: location{URI: noteURI, Range: noteFile.Range(n.Span)},
				Message:  n.Msg,
			})
		}
		out = append(out, item)
	}
	return out
}

// handleDiagnostic serves pull diagnostics: the full report of the newest
// analysed version, tagged with that version as result id.
func (s *Server) handleDiagnostic(ctx context.Context, raw json.RawMessage) (any, bool, error) {
	var params documentDiagnosticParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, false, err
	}
	uri := canonicalURI(params.TextDocument.URI)
	res, stale, err := s.acquire(ctx, uri)
	if err != nil {
		return nil, false, err
	}
	report := documentDiagnosticReport{Kind: "full", Items: []lspDiagnostic{}}
	if res.snap == nil {
		return report, stale, nil
	}
	report.ResultID = strconv.FormatInt(int64(res.snap.Version), 10)
	report.Items = toLSPDiagnostics(uri, res.snap.File, res.diags, s.loader)
	return report, stale, nil
}
