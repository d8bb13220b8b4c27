package source

import (
	"crypto/sha256"
	"sort"
	"unicode/utf8"

	"fortio.org/safecast"
)

const maxUint32 = ^uint32(0)

// SafeUint32 clamps n into the uint32 range.
func SafeUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return maxUint32
	}
	return v
}

// Position is a zero-based line and UTF-16 code unit offset, the coordinate
// system editors use on the wire.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open range of positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// File captures the text of one document version and its line index.
type File struct {
	URI     string
	Content []byte
	LineIdx []uint32 // offsets of '\n' bytes
	Hash    [32]byte
}

// NewFile indexes text. CRLF is kept as-is; '\r' is treated as an ordinary
// byte on the line that precedes '\n'.
func NewFile(uri, text string) *File {
	content := []byte(text)
	return &File{
		URI:     uri,
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
	}
}

func buildLineIndex(content []byte) []uint32 {
	out := make([]uint32, 0, len(content)/32+1)
	for i, b := range content {
		if b == '\n' {
			out = append(out, SafeUint32(i))
		}
	}
	return out
}

// Len returns the content length in bytes.
func (f *File) Len() uint32 {
	return SafeUint32(len(f.Content))
}

// LineCount returns the number of lines, counting a trailing empty line.
func (f *File) LineCount() int {
	return len(f.LineIdx) + 1
}

// LineBounds returns the byte range of line (zero-based) without its newline.
func (f *File) LineBounds(line int) (start, end uint32, ok bool) {
	if line < 0 || line >= f.LineCount() {
		return 0, 0, false
	}
	if line > 0 {
		start = f.LineIdx[line-1] + 1
	}
	end = f.Len()
	if line < len(f.LineIdx) {
		end = f.LineIdx[line]
	}
	return start, end, true
}

// Line returns the text of a zero-based line.
func (f *File) Line(line int) string {
	start, end, ok := f.LineBounds(line)
	if !ok {
		return ""
	}
	return string(f.Content[start:end])
}

// Offset converts a position into a byte offset. Positions past the end of
// a line clamp to the line end, positions past the last line clamp to EOF.
func (f *File) Offset(pos Position) uint32 {
	off, _ := f.offset(pos, true)
	return off
}

// OffsetStrict converts a position into a byte offset and reports false when
// the position lies outside the document.
func (f *File) OffsetStrict(pos Position) (uint32, bool) {
	return f.offset(pos, false)
}

func (f *File) offset(pos Position, clamp bool) (uint32, bool) {
	if pos.Line < 0 || pos.Character < 0 {
		return 0, false
	}
	lineStart, lineEnd, ok := f.LineBounds(pos.Line)
	if !ok {
		return f.Len(), clamp
	}
	units := 0
	off := lineStart
	for off < lineEnd && units < pos.Character {
		r, size := utf8.DecodeRune(f.Content[off:lineEnd])
		need := 1
		if r > 0xFFFF {
			need = 2
		}
		if units+need > pos.Character {
			break
		}
		units += need
		off += SafeUint32(size)
	}
	if units < pos.Character && !clamp {
		return off, false
	}
	return off, true
}

// Position converts a byte offset into a position.
func (f *File) Position(offset uint32) Position {
	if offset > f.Len() {
		offset = f.Len()
	}
	lineIdx := f.LineIdx
	idx := sort.Search(len(lineIdx), func(i int) bool { return lineIdx[i] >= offset })
	var lineStart uint32
	if idx > 0 {
		lineStart = lineIdx[idx-1] + 1
	}
	units := 0
	for off := lineStart; off < offset; {
		r, size := utf8.DecodeRune(f.Content[off:offset])
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
		off += SafeUint32(size)
	}
	return Position{Line: idx, Character: units}
}

// Range converts a span into a position range.
func (f *File) Range(span Span) Range {
	return Range{
		Start: f.Position(span.Start),
		End:   f.Position(span.End),
	}
}

// Text returns the bytes covered by span as a string.
func (f *File) Text(span Span) string {
	end := span.End
	if end > f.Len() {
		end = f.Len()
	}
	if span.Start >= end {
		return ""
	}
	return string(f.Content[span.Start:end])
}
