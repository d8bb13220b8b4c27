package format

import (
	"errors"
	"testing"
)

func TestSource(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "indent and spacing",
			in:   "fn main(){\nprint  1+2\n  if x>0{print \"pos\"}else{print\"neg\"}\n}",
			want: "fn main() {\n    print 1 + 2\n    if x > 0 { print \"pos\" } else { print \"neg\" }\n}\n",
		},
		{
			name: "params and result",
			in:   "fn add( a:int ,b : int )->int{ return a+b }\n",
			want: "fn add(a: int, b: int) -> int { return a + b }\n",
		},
		{
			name: "unary operators",
			in:   "let a = - 1\nlet b = ! true\nlet c = 2 -- 1\nlet d = -( a )\n",
			want: "let a = -1\nlet b = !true\nlet c = 2 - -1\nlet d = -(a)\n",
		},
		{
			name: "comments preserved",
			in:   "# header\n\n\n\n## doc\nlet x = 1   # trailing   \nfn f() {\n# inside\n}",
			want: "# header\n\n## doc\nlet x = 1 # trailing\nfn f() {\n    # inside\n}\n",
		},
		{
			name: "blank lines collapsed",
			in:   "\n\nlet a = 1\n\n\n\nlet b = 2",
			want: "let a = 1\n\nlet b = 2\n",
		},
		{
			name: "calls and semicolons",
			in:   "fn main() { print f( 1 , g(2) );print 3 }",
			want: "fn main() { print f(1, g(2)); print 3 }\n",
		},
		{
			name: "empty block and crlf",
			in:   "fn f() {  }\r\nfn g() {\r\n}\r\n",
			want: "fn f() {}\nfn g() {\n}\n",
		},
		{
			name: "nested indentation",
			in:   "fn f() {\nloop 3 {\nif true {\nprint 1\n}\n}\n}\n",
			want: "fn f() {\n    loop 3 {\n        if true {\n            print 1\n        }\n    }\n}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Source("file:///t.xpl", tt.in, Options{})
			if err != nil {
				t.Fatalf("format: %v", err)
			}
			if got != tt.want {
				t.Fatalf("unexpected output:\nwant:\n%q\ngot:\n%q", tt.want, got)
			}
			again, err := Source("file:///t.xpl", got, Options{})
			if err != nil || again != got {
				t.Fatalf("formatting is not idempotent:\nfirst:\n%q\nsecond:\n%q (err=%v)", got, again, err)
			}
		})
	}
}

func TestSourceRefusesSyntaxErrors(t *testing.T) {
	if _, err := Source("file:///t.xpl", "fn main( {", Options{}); !errors.Is(err, ErrSyntax) {
		t.Fatalf("expected ErrSyntax, got %v", err)
	}
}

func TestSourceTabs(t *testing.T) {
	got, err := Source("file:///t.xpl", "fn f() {\nprint 1\n}", Options{UseTabs: true})
	if err != nil {
		t.Fatal(err)
	}
	if got != "fn f() {\n\tprint 1\n}\n" {
		t.Fatalf("unexpected output %q", got)
	}
}
