package source

import (
	"fmt"
	"unicode/utf8"
)

// Span is a half-open byte range [Start, End) inside a single file.
type Span struct {
	Start uint32 // inclusive
	End   uint32 // exclusive
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// Contains reports whether off lies inside the span. The end offset counts
// as inside so a cursor placed right after an identifier still hits it.
func (s Span) Contains(off uint32) bool {
	return off >= s.Start && off <= s.End
}

func (s Span) Cover(other Span) Span {
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// Shift moves the span by delta bytes. Callers guarantee the result stays
// non-negative.
func (s Span) Shift(delta int) Span {
	if delta == 0 {
		return s
	}
	return Span{
		Start: shiftOffset(s.Start, delta),
		End:   shiftOffset(s.End, delta),
	}
}

func shiftOffset(off uint32, delta int) uint32 {
	v := int(off) + delta
	if v < 0 {
		return 0
	}
	return SafeUint32(v)
}

// Window describes the single contiguous region in which two versions of a
// text differ: old[Start:OldEnd] was replaced by new[Start:NewEnd].
type Window struct {
	Start  uint32
	OldEnd uint32
	NewEnd uint32
}

// Delta is the length change the window introduces.
func (w Window) Delta() int {
	return int(w.NewEnd) - int(w.OldEnd)
}

// DiffWindow computes the changed window between prev and next from their
// common prefix and suffix. Bounds are moved to UTF-8 rune starts.
func DiffWindow(prev, next []byte) Window {
	n := min(len(prev), len(next))
	start := 0
	for start < n && prev[start] == next[start] {
		start++
	}
	for start > 0 && start < len(prev) && !utf8.RuneStart(prev[start]) {
		start--
	}
	for start > 0 && start < len(next) && !utf8.RuneStart(next[start]) {
		start--
	}
	suffix := 0
	for suffix < n-start && prev[len(prev)-1-suffix] == next[len(next)-1-suffix] {
		suffix++
	}
	oldEnd, newEnd := len(prev)-suffix, len(next)-suffix
	for oldEnd < len(prev) && !utf8.RuneStart(prev[oldEnd]) {
		oldEnd++
		newEnd++
	}
	return Window{Start: SafeUint32(start), OldEnd: SafeUint32(oldEnd), NewEnd: SafeUint32(newEnd)}
}
