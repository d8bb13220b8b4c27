package check

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"xpl/internal/cache"
	"xpl/internal/diag"
	"xpl/internal/source"
)

func writeFile(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(evt Event) {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
}

func (s *recordingSink) statuses(file string) []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Status
	for _, evt := range s.events {
		if evt.File == file {
			out = append(out, evt.Status)
		}
	}
	return out
}

func TestExpandWalksDirectories(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.xpl", "")
	notes := writeFile(t, dir, "notes.txt", "")
	writeFile(t, dir, ".git/x.xpl", "")
	d := writeFile(t, dir, "sub/d.xpl", "")

	got, err := Expand([]string{dir, a})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := []string{a, d}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	got, err = Expand([]string{notes, dir})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want = []string{a, notes, d}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if _, err := Expand([]string{filepath.Join(dir, "missing.xpl")}); err == nil {
		t.Fatal("expected an error for a missing path")
	}
}

func TestRunReportsDiagnosticsSortedByPath(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "b.xpl", "let x = 1\nfn main() { print y }\n")
	good := writeFile(t, dir, "a.xpl", "fn main() { print 1 }\n")
	sink := &recordingSink{}

	results, err := Run(context.Background(), Request{Paths: []string{dir}, Root: dir, Jobs: 2, Progress: sink, MaxDiagnostics: 50})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 || results[0].Path != good || results[1].Path != bad {
		t.Fatalf("unexpected results order: %+v", results)
	}
	if results[0].HasErrors() || len(results[0].Diagnostics) != 0 {
		t.Fatalf("expected a clean file, got %+v", results[0].Diagnostics)
	}
	if !results[1].HasErrors() {
		t.Fatal("expected errors in b.xpl")
	}
	d := results[1].Diagnostics[0]
	if d.Code != diag.ResUndefined || d.Message != "undefined name 'y'" || d.Primary != (source.Span{Start: 28, End: 29}) {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if results[1].File == nil || results[1].File.Line(1) != "fn main() { print y }" {
		t.Fatal("expected the source file to be kept for rendering")
	}
	want := []Status{StatusQueued, StatusWorking, StatusDone, StatusWorking, StatusDone}
	if got := sink.statuses(bad); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
}

func TestRunResolvesIncludesFromDisk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib/math.xpl", "fn twice(n: int) -> int { return n * 2 }\n")
	main := writeFile(t, dir, "app/main.xpl", "include \"lib/math.xpl\"\nfn main() { print twice(2) }\n")

	results, err := Run(context.Background(), Request{Paths: []string{main}, Root: dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || len(results[0].Diagnostics) != 0 {
		t.Fatalf("expected the include to resolve from the root, got %+v", results)
	}
}

func TestRunUsesCacheUntilDependencyChanges(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.xpl", "fn helper() -> int { return 1 }\n")
	main := writeFile(t, dir, "main.xpl", "include \"lib.xpl\"\nfn main() { print helper() }\n")
	dc, err := cache.Open(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	req := Request{Paths: []string{main}, Root: dir, Cache: dc, MaxDiagnostics: 10}

	first, err := Run(context.Background(), req)
	if err != nil || first[0].Cached {
		t.Fatalf("expected a fresh first run, got %+v (err=%v)", first, err)
	}
	second, err := Run(context.Background(), req)
	if err != nil || !second[0].Cached {
		t.Fatalf("expected a cache hit, got %+v (err=%v)", second, err)
	}
	if !reflect.DeepEqual(first[0].Diagnostics, second[0].Diagnostics) {
		t.Fatalf("cached diagnostics differ: %+v vs %+v", first[0].Diagnostics, second[0].Diagnostics)
	}

	writeFile(t, dir, "lib.xpl", "fn other() {}\n")
	third, err := Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if third[0].Cached {
		t.Fatal("expected the changed include to invalidate the entry")
	}
	if !third[0].HasErrors() {
		t.Fatal("expected helper to be undefined after the include changed")
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.xpl", "fn main() {}\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, Request{Paths: []string{dir}}); err == nil {
		t.Fatal("expected a cancelled run to fail")
	}
}
