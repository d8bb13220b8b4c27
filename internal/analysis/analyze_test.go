package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"xpl/internal/diag"
	"xpl/internal/source"
	"xpl/internal/symbols"
)

func analyze(t *testing.T, a *Analyzer, in Input) *Snapshot {
	t.Helper()
	snap, err := a.Analyze(context.Background(), in)
	if err != nil {
		t.Fatalf("analyze %s v%d: %v", in.URI, in.Version, err)
	}
	return snap
}

func edit(prev string, start, end int, repl string) (string, *source.Window) {
	next := prev[:start] + repl + prev[end:]
	w := source.DiffWindow([]byte(prev), []byte(next))
	return next, &w
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	text := "let x = 1\nfn main() {\n    print x + 2\n    if x > 0 { print \"pos\" } else { print \"neg\" }\n}\n"
	a := &Analyzer{}
	first := analyze(t, a, Input{URI: "file:///foo.xpl", Version: 1, Text: text})
	second := analyze(t, a, Input{URI: "file:///foo.xpl", Version: 1, Text: text})
	if !reflect.DeepEqual(first.Tree, second.Tree) {
		t.Fatal("identical text produced different trees")
	}
	if !reflect.DeepEqual(first.Tokens, second.Tokens) {
		t.Fatal("identical text produced different tokens")
	}
}

func TestAnalyzeReusesAdjacentVersion(t *testing.T) {
	text := "fn a() { print 1 }\nfn b() { print 2 }\nfn c() { print 3 }\n"
	a := &Analyzer{}
	v1 := analyze(t, a, Input{URI: "file:///r.xpl", Version: 1, Text: text})

	off := strings.Index(text, "2")
	next, w := edit(text, off, off+1, "20 + 2")
	v2 := analyze(t, a, Input{URI: "file:///r.xpl", Version: 2, Text: next, Prev: v1, Change: w})
	if v2.Reused != 2 {
		t.Fatalf("expected the first and last function to be reused, got %d", v2.Reused)
	}
	full := analyze(t, a, Input{URI: "file:///r.xpl", Version: 2, Text: next})
	if !reflect.DeepEqual(v2.Tree, full.Tree) {
		t.Fatal("incremental tree differs from a full parse")
	}
	if full.Reused != 0 {
		t.Fatalf("expected a full parse without a previous snapshot, got %d reused", full.Reused)
	}
}

func TestAnalyzeSkipsReuseForNonAdjacentVersion(t *testing.T) {
	text := "fn a() { print 1 }\nfn b() { print 2 }\n"
	a := &Analyzer{}
	v1 := analyze(t, a, Input{URI: "file:///r.xpl", Version: 1, Text: text})
	next, w := edit(text, 0, 0, "\n")
	v3 := analyze(t, a, Input{URI: "file:///r.xpl", Version: 3, Text: next, Prev: v1, Change: w})
	if v3.Reused != 0 {
		t.Fatalf("expected no reuse across a version gap, got %d", v3.Reused)
	}
	bad := &source.Window{Start: 0, OldEnd: 5, NewEnd: 1}
	v2 := analyze(t, a, Input{URI: "file:///r.xpl", Version: 2, Text: next, Prev: v1, Change: bad})
	if v2.Reused != 0 {
		t.Fatalf("expected no reuse with an inconsistent window, got %d", v2.Reused)
	}
}

func TestAnalyzeIncrementalMatchesFullParseOverEdits(t *testing.T) {
	text := "## doc\nlet g = 1\nfn f(a: int) -> int {\n    return a * g\n}\nfn main() {\n    print f(2)\n}\n"
	edits := []struct {
		find string
		repl string
	}{
		{"g = 1", "g = 10"},
		{"return a * g", "return a * g +"},
		{"print f(2)", "print f(2, 3)"},
		{"fn main", "fn  main"},
		{"## doc\n", ""},
		{"}\nfn  main", "}\n\nlet late = \"s\"\nfn  main"},
		{"{\n    return", "{ let q = 1\n    return"},
	}
	a := &Analyzer{}
	prev := analyze(t, a, Input{URI: "file:///e.xpl", Version: 1, Text: text})
	for i, e := range edits {
		off := strings.Index(text, e.find)
		if off < 0 {
			t.Fatalf("edit %d: %q not found in %q", i, e.find, text)
		}
		next, w := edit(text, off, off+len(e.find), e.repl)
		version := prev.Version + 1
		inc := analyze(t, a, Input{URI: "file:///e.xpl", Version: version, Text: next, Prev: prev, Change: w})
		full := analyze(t, a, Input{URI: "file:///e.xpl", Version: version, Text: next})
		if !reflect.DeepEqual(inc.Tree, full.Tree) {
			t.Fatalf("edit %d: incremental tree differs from full parse for %q", i, next)
		}
		text, prev = next, inc
	}
}

func TestAnalyzeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Analyzer{}).Analyze(ctx, Input{URI: "file:///c.xpl", Version: 1, Text: "let x = 1"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAnalyzeHoverSymbol(t *testing.T) {
	snap := analyze(t, &Analyzer{}, Input{URI: "file:///foo.xpl", Version: 1, Text: "let x = 1"})
	ref, ok := snap.Symbols.RefAt(4)
	if !ok || ref.Symbol.Signature() != "let x: int" {
		t.Fatalf("expected let x: int at offset 4, got %+v (ok=%v)", ref, ok)
	}
	tok, ok := snap.TokenAt(5)
	if !ok || tok.Text != "x" {
		t.Fatalf("expected the token ending at the cursor, got %+v", tok)
	}
}

func writeFile(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestIncludesFromDiskAndOverlay(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "math.xpl", "fn twice(n: int) -> int { return n * 2 }\n")
	mainPath := writeFile(t, dir, "main.xpl", "")
	libURI := source.PathToURI(filepath.Join(dir, "lib.xpl"))

	overlay := map[string]string{libURI: "include \"math.xpl\"\nlet base = 3\n"}
	loader := &Loader{Root: dir, Overlay: func(uri string) (string, bool) {
		text, ok := overlay[uri]
		return text, ok
	}}
	a := &Analyzer{Includes: loader}
	snap := analyze(t, a, Input{
		URI:     source.PathToURI(mainPath),
		Version: 1,
		Text:    "include \"lib.xpl\"\nfn main() { print twice(base) }\n",
	})
	if len(snap.Symbols.Problems) != 0 {
		t.Fatalf("unexpected problems: %+v", snap.Symbols.Problems)
	}
	twice := snap.Symbols.Lookup("twice")
	if twice == nil || !strings.HasSuffix(twice.URI, "/math.xpl") {
		t.Fatalf("expected twice from math.xpl, got %+v", twice)
	}
	if inc, ok := snap.IncludeFor(3); !ok || inc.URI != libURI {
		t.Fatalf("expected include of lib.xpl at offset 3, got %+v", inc)
	}
	deps := snap.Dependencies()
	wantDeps := []string{libURI, source.PathToURI(filepath.Join(dir, "math.xpl"))}
	if !reflect.DeepEqual(deps, wantDeps) {
		t.Fatalf("expected deps %v, got %v", wantDeps, deps)
	}
}

func TestIncludeMissingAndCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.xpl", "include \"b.xpl\"\nfn fa() {}\n")
	writeFile(t, dir, "b.xpl", "include \"a.xpl\"\nfn fb() {}\n")
	aPath := filepath.Join(dir, "a.xpl")
	text, err := os.ReadFile(aPath)
	if err != nil {
		t.Fatal(err)
	}
	a := &Analyzer{Includes: &Loader{Root: dir}}
	snap := analyze(t, a, Input{URI: source.PathToURI(aPath), Version: 1, Text: string(text) + "include \"nope.xpl\"\n"})

	var codes []diag.Code
	for _, d := range snap.Symbols.Problems {
		codes = append(codes, d.Code)
	}
	want := []diag.Code{diag.ResIncludeCycle, diag.ResMissingInclude}
	if !reflect.DeepEqual(codes, want) {
		t.Fatalf("expected %v, got %+v", want, snap.Symbols.Problems)
	}
	if msg := snap.Symbols.Problems[0].Message; msg != "include cycle: a.xpl -> b.xpl -> a.xpl" {
		t.Fatalf("unexpected cycle message %q", msg)
	}
	if !errors.Is(snap.Includes[0].Err, symbols.ErrIncludeCycle) {
		t.Fatalf("expected the cycle error on the include, got %v", snap.Includes[0].Err)
	}
	if snap.Symbols.Lookup("fb") == nil {
		t.Fatal("exports of a cyclic include must stay visible")
	}
}

func TestLoaderCachesByContent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "m.xpl", "let a = 1\n")
	l := &Loader{Root: dir}
	uri := source.PathToURI(path)
	first, err := l.parse(uri)
	if err != nil {
		t.Fatal(err)
	}
	again, _ := l.parse(uri)
	if first != again {
		t.Fatal("expected the cached parse for unchanged content")
	}
	writeFile(t, dir, "m.xpl", "let a = 2\n")
	changed, _ := l.parse(uri)
	if changed == first {
		t.Fatal("expected a fresh parse after the file changed")
	}
}
