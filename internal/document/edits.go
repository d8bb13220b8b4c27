package document

import (
	"fmt"

	"xpl/internal/source"
)

// applyBatch applies edits in order. Each range addresses the text produced
// by the edits before it; an edit may not touch text inserted by an earlier
// edit of the same batch.
func applyBatch(uri, text string, edits []Edit) (string, error) {
	if len(edits) == 0 {
		return "", fmt.Errorf("%w: no edits", ErrInvalidEditBatch)
	}
	var written []source.Span
	for i, e := range edits {
		if e.Range == nil {
			text = e.Text
			written = written[:0]
			continue
		}
		file := source.NewFile(uri, text)
		start, ok := file.OffsetStrict(e.Range.Start)
		if !ok {
			return "", fmt.Errorf("%w: edit %d starts at %d:%d", ErrRangeOutOfBounds, i, e.Range.Start.Line, e.Range.Start.Character)
		}
		end, ok := file.OffsetStrict(e.Range.End)
		if !ok {
			return "", fmt.Errorf("%w: edit %d ends at %d:%d", ErrRangeOutOfBounds, i, e.Range.End.Line, e.Range.End.Character)
		}
		if end < start {
			return "", fmt.Errorf("%w: edit %d ends before it starts", ErrInvalidEditBatch, i)
		}
		for _, w := range written {
			if touches(w, start, end) {
				return "", fmt.Errorf("%w: edit %d overlaps text written by an earlier edit", ErrInvalidEditBatch, i)
			}
		}
		text = text[:start] + e.Text + text[end:]
		delta := len(e.Text) - int(end-start)
		for j, w := range written {
			if w.Start >= end {
				written[j] = w.Shift(delta)
			}
		}
		written = append(written, source.Span{Start: start, End: start + source.SafeUint32(len(e.Text))})
	}
	return text, nil
}

// touches reports whether replacing [start, end) changes bytes of w.
func touches(w source.Span, start, end uint32) bool {
	if w.Empty() {
		return false
	}
	if start == end {
		return w.Start < start && start < w.End
	}
	return max(start, w.Start) < min(end, w.End)
}
