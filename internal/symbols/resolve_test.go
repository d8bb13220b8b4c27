package symbols

import (
	"fmt"
	"strings"
	"testing"

	"xpl/internal/diag"
	"xpl/internal/lexer"
	"xpl/internal/parser"
	"xpl/internal/source"
	"xpl/internal/types"
)

func resolveText(t *testing.T, text string, opts Options) (*Table, *source.File) {
	t.Helper()
	f := source.NewFile("file:///t.xpl", text)
	toks := lexer.Tokenize(f, lexer.Options{})
	res := parser.Parse(toks)
	opts.URI = f.URI
	opts.File = f
	return Resolve(res.File, opts), f
}

func problemsSummary(tb *Table) string {
	var b strings.Builder
	for _, d := range tb.Problems {
		fmt.Fprintf(&b, "%s %s: %s\n", d.Code.ID(), d.Primary, d.Message)
	}
	return b.String()
}

func TestResolveGlobalsAndFunctions(t *testing.T) {
	src := "let x = 1\nfn add(a: int, b: int) -> int { return a + b }\nfn main() { print add(x, 2) }\n"
	tb, _ := resolveText(t, src, Options{})
	if len(tb.Problems) != 0 {
		t.Fatalf("unexpected problems:\n%s", problemsSummary(tb))
	}
	x := tb.Lookup("x")
	if x == nil || x.Kind != SymbolGlobal || x.Type != types.Int {
		t.Fatalf("unexpected symbol for x: %+v", x)
	}
	if got := x.Signature(); got != "let x: int" {
		t.Fatalf("unexpected signature %q", got)
	}
	add := tb.Lookup("add")
	if add == nil || add.Kind != SymbolFunction {
		t.Fatalf("expected function add, got %+v", add)
	}
	if got := add.Signature(); got != "fn add(a: int, b: int) -> int" {
		t.Fatalf("unexpected signature %q", got)
	}
	if got := tb.Lookup("main").Signature(); got != "fn main()" {
		t.Fatalf("unexpected signature %q", got)
	}
}

func TestResolveHoverOffset(t *testing.T) {
	tb, _ := resolveText(t, "let x = 1\nfn main() { print x }\n", Options{})
	ref, ok := tb.RefAt(4)
	if !ok {
		t.Fatal("expected a reference at offset 4")
	}
	if ref.Kind != RefDecl || ref.Symbol.Signature() != "let x: int" {
		t.Fatalf("unexpected ref %+v", ref)
	}
	refs := tb.ReferencesTo(ref.Symbol, false)
	if len(refs) != 1 || refs[0].Kind != RefRead {
		t.Fatalf("expected one read reference, got %+v", refs)
	}
	if got := tb.ReferencesTo(ref.Symbol, true); len(got) != 2 {
		t.Fatalf("expected declaration plus read, got %d refs", len(got))
	}
}

func TestResolveProblems(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "undefined name",
			src:  "fn main() { print y }",
			want: "RES3001 18-19: undefined name 'y'\n",
		},
		{
			name: "undefined function",
			src:  "fn main() { go() }",
			want: "RES3001 12-14: undefined function 'go'\n",
		},
		{
			name: "duplicate global",
			src:  "let a = 1\nlet a = 2",
			want: "RES3002 14-15: 'a' is already declared\n",
		},
		{
			name: "let shadows param in same scope",
			src:  "fn f(a: int) { let a = 2 print a }",
			want: "RES3002 19-20: 'a' is already declared\n",
		},
		{
			name: "local used before declaration",
			src:  "fn f() { print z let z = 1 print z }",
			want: "RES3001 15-16: undefined name 'z'\n",
		},
		{
			name: "block scope ends",
			src:  "fn f() { if true { let k = 1 print k } print k }",
			want: "RES3001 45-46: undefined name 'k'\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb, _ := resolveText(t, tt.src, Options{})
			if got := problemsSummary(tb); got != tt.want {
				t.Fatalf("unexpected problems:\nwant:\n%sgot:\n%s", tt.want, got)
			}
		})
	}
}

func TestResolveDuplicateCarriesNote(t *testing.T) {
	tb, _ := resolveText(t, "fn f() {}\nfn f() {}", Options{})
	if len(tb.Problems) != 1 {
		t.Fatalf("expected one problem, got:\n%s", problemsSummary(tb))
	}
	d := tb.Problems[0]
	if len(d.Notes) != 1 || d.Notes[0].Span != (source.Span{Start: 3, End: 4}) {
		t.Fatalf("expected note at first declaration, got %+v", d.Notes)
	}
}

func TestResolveUnusedLocals(t *testing.T) {
	src := "fn f() { let used = 1 let idle = 2 let _skip = 3 print used }"
	tb, _ := resolveText(t, src, Options{ReportUnused: true})
	if len(tb.Problems) != 1 {
		t.Fatalf("expected one warning, got:\n%s", problemsSummary(tb))
	}
	d := tb.Problems[0]
	if d.Severity != diag.SevWarning || d.Message != "'idle' is declared but never used" {
		t.Fatalf("unexpected warning %+v", d)
	}
	tb, _ = resolveText(t, src, Options{})
	if len(tb.Problems) != 0 {
		t.Fatalf("expected no warnings when disabled, got:\n%s", problemsSummary(tb))
	}
}

func TestResolveWriteDoesNotCountAsUse(t *testing.T) {
	tb, _ := resolveText(t, "fn f() { let n = 1 n = 2 }", Options{ReportUnused: true})
	if len(tb.Problems) != 1 || tb.Problems[0].Code != diag.ResUnusedVariable {
		t.Fatalf("expected unused warning, got:\n%s", problemsSummary(tb))
	}
	var writes int
	for _, r := range tb.Refs {
		if r.Kind == RefWrite {
			writes++
		}
	}
	if writes != 1 {
		t.Fatalf("expected one write ref, got %d", writes)
	}
}

func TestResolveTypes(t *testing.T) {
	src := "fn two() -> int { return 2 }\nfn main() { let s = \"a\" let b = 1 < two() print s }"
	tb, _ := resolveText(t, src, Options{})
	want := map[string]types.Type{"s": types.Str, "b": types.Bool}
	for _, sym := range tb.Symbols {
		if w, ok := want[sym.Name]; ok && sym.Type != w {
			t.Fatalf("%s: expected %s, got %s", sym.Name, w, sym.Type)
		}
	}
}

func TestResolveIncludes(t *testing.T) {
	lib, _ := resolveText(t, "fn helper() -> int { return 1 }\nlet shared = true\n", Options{})
	f := source.NewFile("file:///main.xpl", "include \"lib.xpl\"\nfn main() { print helper() print shared }\n")
	tree := parser.Parse(lexer.Tokenize(f, lexer.Options{})).File
	inc := Include{Node: tree.Items[0].Node, URI: "file:///lib.xpl", Exports: lib.Exports}
	tb := Resolve(tree, Options{URI: f.URI, File: f, Includes: []Include{inc}})
	if len(tb.Problems) != 0 {
		t.Fatalf("unexpected problems:\n%s", problemsSummary(tb))
	}
	helper := tb.Lookup("helper")
	if helper == nil || helper.URI != "file:///t.xpl" {
		t.Fatalf("expected helper from the included table, got %+v", helper)
	}
	if len(tb.Exports) != 3 {
		t.Fatalf("expected main plus two included exports, got %d", len(tb.Exports))
	}
}

func TestResolveIncludeErrors(t *testing.T) {
	f := source.NewFile("file:///main.xpl", "include \"gone.xpl\"\ninclude \"self.xpl\"\n")
	tree := parser.Parse(lexer.Tokenize(f, lexer.Options{})).File
	incs := []Include{
		{Node: tree.Items[0].Node, Err: fmt.Errorf("%w: gone.xpl", ErrIncludeNotFound)},
		{Node: tree.Items[1].Node, Err: fmt.Errorf("%w: self.xpl includes itself", ErrIncludeCycle)},
	}
	tb := Resolve(tree, Options{URI: f.URI, File: f, Includes: incs})
	want := "RES3004 8-18: cannot find include \"gone.xpl\"\n" +
		"RES3005 27-37: include cycle: self.xpl includes itself\n"
	if got := problemsSummary(tb); got != want {
		t.Fatalf("unexpected problems:\nwant:\n%sgot:\n%s", want, got)
	}
}

func TestVisibleAt(t *testing.T) {
	src := "let g = 1\nfn f(p: int) {\n  let early = 1\n  print early\n  let late = 2\n  print late\n}\n"
	tb, _ := resolveText(t, src, Options{})
	off := uint32(strings.Index(src, "print early"))
	names := map[string]bool{}
	for _, sym := range tb.VisibleAt(off) {
		names[sym.Name] = true
	}
	for _, want := range []string{"g", "f", "p", "early"} {
		if !names[want] {
			t.Fatalf("expected %s to be visible, got %v", want, names)
		}
	}
	if names["late"] {
		t.Fatal("late must not be visible before its declaration")
	}
}
