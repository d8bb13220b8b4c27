package ui

import (
	"strings"
	"testing"

	"xpl/internal/check"
)

func TestProgressModelTracksFiles(t *testing.T) {
	events := make(chan check.Event)
	m := NewProgressModel("checking", []string{"a.xpl", "b.xpl"}, events).(*progressModel)

	for _, ev := range []check.Event{
		{File: "a.xpl", Stage: check.StageParse, Status: check.StatusWorking},
		{File: "a.xpl", Stage: check.StageParse, Status: check.StatusDone},
		{File: "a.xpl", Stage: check.StageDiagnose, Status: check.StatusDone},
		{File: "b.xpl", Stage: check.StageDiagnose, Status: check.StatusCached},
		{File: "b.xpl", Stage: check.StageParse, Status: check.StatusError},
		{File: "other.xpl", Stage: check.StageParse, Status: check.StatusWorking},
	} {
		m.Update(eventMsg(ev))
	}

	if m.items[0].status != "done" || m.items[1].status != "cached" {
		t.Fatalf("unexpected statuses: %+v", m.items)
	}
	if m.finished != 2 || m.cached != 1 || m.failed != 0 {
		t.Fatalf("expected 2 finished, 1 cached, 0 failed; got %d/%d/%d", m.finished, m.cached, m.failed)
	}
	if got := m.percent(); got != 1.0 {
		t.Fatalf("expected full progress, got %v", got)
	}

	m.Update(doneMsg{})
	view := m.View()
	if !strings.Contains(view, "done: checking (2/2), 1 cached") {
		t.Fatalf("unexpected header in view:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.xpl", 20, "short.xpl"},
		{"very/long/path/file.xpl", 10, "very/lo..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
