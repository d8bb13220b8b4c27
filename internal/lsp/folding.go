package lsp

import (
	"context"
	"encoding/json"
	"sort"

	"xpl/internal/analysis"
	"xpl/internal/token"
)

func (s *Server) handleFoldingRange(ctx context.Context, raw json.RawMessage) (any, bool, error) {
	var params struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, false, err
	}
	res, stale, err := s.acquire(ctx, canonicalURI(params.TextDocument.URI))
	if err != nil || res.snap == nil {
		return []foldingRange{}, stale, err
	}
	return buildFoldingRanges(res.snap), stale, nil
}

// buildFoldingRanges folds every brace pair spanning several lines, plus
// runs of consecutive line comments.
func buildFoldingRanges(snap *analysis.Snapshot) []foldingRange {
	ranges := []foldingRange{}
	if snap.File == nil {
		return ranges
	}
	file := snap.File
	stack := make([]int, 0, 8)
	for _, tok := range snap.Tokens {
		switch tok.Kind {
		case token.LBrace:
			stack = append(stack, file.Position(tok.Span.Start).Line)
		case token.RBrace:
			if len(stack) == 0 {
				continue
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			// the closing line stays visible
			endLine := file.Position(tok.Span.Start).Line - 1
			if endLine <= open {
				continue
			}
			ranges = append(ranges, foldingRange{StartLine: open, EndLine: endLine})
		}
		ranges = append(ranges, commentFolds(snap, tok)...)
	}
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].StartLine == ranges[j].StartLine {
			return ranges[i].EndLine < ranges[j].EndLine
		}
		return ranges[i].StartLine < ranges[j].StartLine
	})
	return ranges
}

func commentFolds(snap *analysis.Snapshot, tok token.Token) []foldingRange {
	var out []foldingRange
	first, last := -1, -1
	flush := func() {
		if first >= 0 && last > first {
			out = append(out, foldingRange{StartLine: first, EndLine: last, Kind: "comment"})
		}
		first, last = -1, -1
	}
	for _, tr := range tok.Leading {
		switch tr.Kind {
		case token.TriviaLineComment, token.TriviaDocLine:
			line := snap.File.Position(tr.Span.Start).Line
			if first < 0 {
				first = line
			} else if line != last+1 {
				flush()
				first = line
			}
			last = line
		case token.TriviaNewline, token.TriviaSpace:
		default:
			flush()
		}
	}
	flush()
	return out
}
