package document

import (
	"errors"
	"testing"
	"time"

	"xpl/internal/source"
)

func rng(sl, sc, el, ec int) *source.Range {
	return &source.Range{
		Start: source.Position{Line: sl, Character: sc},
		End:   source.Position{Line: el, Character: ec},
	}
}

func newRecordingStore() (*Store, *[]Change) {
	s := NewStore()
	var changes []Change
	s.SetListener(func(c Change) { changes = append(changes, c) })
	return s, &changes
}

func TestApplyEditsBumpsVersionAndEmitsOnce(t *testing.T) {
	s, changes := newRecordingStore()
	s.Open("file:///foo.xpl", "xpl", "let x = 1", 1)
	v, err := s.ApplyEdits("file:///foo.xpl", 1, []Edit{{Range: rng(0, 8, 0, 9), Text: "2"}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if v != 2 {
		t.Fatalf("expected version 2, got %d", v)
	}
	text, version, ok := s.Get("file:///foo.xpl")
	if !ok || text != "let x = 2" || version != 2 {
		t.Fatalf("unexpected document %q v%d (ok=%v)", text, version, ok)
	}
	if len(*changes) != 2 {
		t.Fatalf("expected open and edit events, got %d", len(*changes))
	}
	c := (*changes)[1]
	if c.Kind != ChangeEdit || c.Version != 2 || c.Window == nil {
		t.Fatalf("unexpected change %+v", c)
	}
	if *c.Window != (source.Window{Start: 8, OldEnd: 9, NewEnd: 9}) {
		t.Fatalf("unexpected window %+v", *c.Window)
	}
}

func TestApplyEditsSequentialBatch(t *testing.T) {
	s, changes := newRecordingStore()
	s.Open("file:///a.xpl", "xpl", "ab\ncd\n", 7)
	edits := []Edit{
		{Range: rng(0, 0, 0, 0), Text: "X"},
		{Range: rng(1, 2, 1, 2), Text: "Y"},
		{Range: rng(0, 2, 0, 3), Text: "Z"},
	}
	if _, err := s.ApplyEdits("file:///a.xpl", 7, edits); err != nil {
		t.Fatalf("apply: %v", err)
	}
	text, version, _ := s.Get("file:///a.xpl")
	if text != "XaZ\ncdY\n" || version != 8 {
		t.Fatalf("unexpected result %q v%d", text, version)
	}
	if len(*changes) != 2 {
		t.Fatalf("expected exactly one edit event for the batch, got %d events", len(*changes))
	}
}

func TestApplyEditsUTF16Positions(t *testing.T) {
	s := NewStore()
	s.Open("file:///u.xpl", "xpl", "let s = \"🙂x\"", 1)
	// 🙂 takes two UTF-16 units, so x sits at character 11
	if _, err := s.ApplyEdits("file:///u.xpl", 1, []Edit{{Range: rng(0, 11, 0, 12), Text: "y"}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if text, _, _ := s.Get("file:///u.xpl"); text != "let s = \"🙂y\"" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestApplyEditsFullReplacement(t *testing.T) {
	s := NewStore()
	s.Open("file:///f.xpl", "xpl", "old", 1)
	edits := []Edit{{Text: "let a = 1\n"}, {Range: rng(1, 0, 1, 0), Text: "let b = 2\n"}}
	if _, err := s.ApplyEdits("file:///f.xpl", 1, edits); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if text, _, _ := s.Get("file:///f.xpl"); text != "let a = 1\nlet b = 2\n" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestApplyEditsIsAtomic(t *testing.T) {
	tests := []struct {
		name  string
		base  int32
		edits []Edit
		want  error
	}{
		{name: "stale base", base: 2, edits: []Edit{{Range: rng(0, 0, 0, 0), Text: "x"}}, want: ErrVersionConflict},
		{name: "future base", base: 4, edits: []Edit{{Range: rng(0, 0, 0, 0), Text: "x"}}, want: ErrVersionConflict},
		{name: "empty batch", base: 3, edits: nil, want: ErrInvalidEditBatch},
		{name: "past line end", base: 3, edits: []Edit{{Range: rng(0, 3, 0, 40), Text: "x"}}, want: ErrRangeOutOfBounds},
		{name: "past last line", base: 3, edits: []Edit{{Range: rng(5, 0, 5, 0), Text: "x"}}, want: ErrRangeOutOfBounds},
		{
			name: "second edit out of bounds",
			base: 3,
			edits: []Edit{
				{Range: rng(0, 0, 0, 0), Text: "ok"},
				{Range: rng(9, 0, 9, 1), Text: "x"},
			},
			want: ErrRangeOutOfBounds,
		},
		{
			name: "overlap with earlier insert",
			base: 3,
			edits: []Edit{
				{Range: rng(0, 0, 0, 0), Text: "abc"},
				{Range: rng(0, 1, 0, 4), Text: "x"},
			},
			want: ErrInvalidEditBatch,
		},
		{name: "reversed range", base: 3, edits: []Edit{{Range: rng(0, 4, 0, 2), Text: ""}}, want: ErrInvalidEditBatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, changes := newRecordingStore()
			s.Open("file:///t.xpl", "xpl", "let x = 1\nprint x\n", 3)
			_, err := s.ApplyEdits("file:///t.xpl", tt.base, tt.edits)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			text, version, _ := s.Get("file:///t.xpl")
			if text != "let x = 1\nprint x\n" || version != 3 {
				t.Fatalf("document changed after failed batch: %q v%d", text, version)
			}
			if len(*changes) != 1 {
				t.Fatalf("expected no event for a rejected batch, got %d events", len(*changes))
			}
		})
	}
}

func TestAdjacentEditsDoNotOverlap(t *testing.T) {
	s := NewStore()
	s.Open("file:///t.xpl", "xpl", "ab", 1)
	edits := []Edit{
		{Range: rng(0, 1, 0, 1), Text: "X"},
		{Range: rng(0, 2, 0, 2), Text: "Y"},
	}
	if _, err := s.ApplyEdits("file:///t.xpl", 1, edits); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if text, _, _ := s.Get("file:///t.xpl"); text != "aXYb" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestCloseAndNotOpen(t *testing.T) {
	s, changes := newRecordingStore()
	if _, err := s.ApplyEdits("file:///n.xpl", 1, []Edit{{Text: "x"}}); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
	s.Open("file:///n.xpl", "xpl", "x", 1)
	if err := s.Close("file:///n.xpl"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close("file:///n.xpl"); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen on second close, got %v", err)
	}
	if _, _, ok := s.Get("file:///n.xpl"); ok {
		t.Fatal("expected closed document to be gone")
	}
	if got := (*changes)[len(*changes)-1]; got.Kind != ChangeClose {
		t.Fatalf("expected a close event, got %+v", got)
	}
}

func TestSnapshotIsSortedCopy(t *testing.T) {
	s := NewStore()
	s.Open("file:///b.xpl", "xpl", "b", 1)
	s.Open("file:///a.xpl", "xpl", "a", 1)
	docs := s.Snapshot()
	if len(docs) != 2 || docs[0].URI != "file:///a.xpl" || docs[1].URI != "file:///b.xpl" {
		t.Fatalf("unexpected snapshot %+v", docs)
	}
	docs[0].Text = "mutated"
	if text, _, _ := s.Get("file:///a.xpl"); text != "a" {
		t.Fatal("snapshot must not alias the store")
	}
}

func TestHoldDefersEdits(t *testing.T) {
	s, changes := newRecordingStore()
	s.Open("file:///h.xpl", "xpl", "a", 1)

	release := s.Hold()
	done := make(chan int32, 1)
	go func() {
		v, err := s.ApplyEdits("file:///h.xpl", 1, []Edit{{Text: "b"}})
		if err != nil {
			t.Errorf("apply edits: %v", err)
		}
		done <- v
	}()

	select {
	case v := <-done:
		t.Fatalf("edit accepted while held, version %d", v)
	case <-time.After(50 * time.Millisecond):
	}
	if text, version, _ := s.Get("file:///h.xpl"); text != "a" || version != 1 {
		t.Fatalf("reads see %q@%d while held", text, version)
	}

	release()
	select {
	case v := <-done:
		if v != 2 {
			t.Fatalf("expected version 2, got %d", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("edit never applied after release")
	}
	if len(*changes) != 2 {
		t.Fatalf("expected open and edit events, got %+v", *changes)
	}
}
