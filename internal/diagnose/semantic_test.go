package diagnose

import (
	"context"
	"testing"
)

func TestDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "clean program",
			src:  "let x = 1\nfn add(a: int, b: int) -> int { return a + b }\nfn main() { print add(x, 2) loop 3 { x = x + 1 } }",
			want: "",
		},
		{
			name: "unexpected token",
			src:  "let = 1",
			want: "syntax SYN2001 4-5: expected a variable name after 'let', found '='\n",
		},
		{
			name: "invalid token",
			src:  "let x = 1 & 2",
			want: "syntax SYN2002 10-13: unexpected character \"&\", did you mean \"&&\"?\n",
		},
		{
			name: "unknown type",
			src:  "let x: float = 1",
			want: "semantic SEM4002 7-12: unknown type 'float'\n",
		},
		{
			name: "let mismatch",
			src:  "let x: int = \"s\"",
			want: "semantic SEM4001 13-16: mismatched types: expected int, found str\n",
		},
		{
			name: "bad operand",
			src:  "let x = 1 + \"s\"",
			want: "semantic SEM4005 8-15: operator + not defined on int and str\n",
		},
		{
			name: "arity",
			src:  "fn add(a: int, b: int) -> int { return a + b }\nlet y = add(1)",
			want: "semantic SEM4004 55-61: add expects 2 arguments, got 1\n",
		},
		{
			name: "argument type",
			src:  "fn neg(a: int) -> int { return -a }\nlet y = neg(true)",
			want: "semantic SEM4001 48-52: cannot use bool as int in argument 'a' of neg\n",
		},
		{
			name: "not callable",
			src:  "let v = 1\nlet y = v()",
			want: "semantic SEM4003 18-19: 'v' is not a function\n",
		},
		{
			name: "if condition",
			src:  "fn main() { if 1 { print 1 } }",
			want: "semantic SEM4001 15-16: if condition must be bool, found int\n",
		},
		{
			name: "missing return",
			src:  "fn f(a: bool) -> int { if a { return 1 } }",
			want: "semantic SEM4007 3-4: missing return at end of function 'f'\n",
		},
		{
			name: "if else returns",
			src:  "fn f(a: bool) -> int { if a { return 1 } else { return 2 } }",
			want: "",
		},
		{
			name: "return in void function",
			src:  "fn main() { return 1 }",
			want: "semantic SEM4006 19-20: function 'main' does not return a value\n",
		},
		{
			name: "void value",
			src:  "fn hi() { print \"hi\" }\nfn main() { print hi() }",
			want: "semantic SEM4010 41-45: 'hi()' does not return a value\n",
		},
		{
			name: "assign to function",
			src:  "fn f() {}\nfn main() { f = 1 }",
			want: "semantic SEM4008 22-23: cannot assign to function 'f'\n",
		},
		{
			name: "overflow",
			src:  "let big = 99999999999999999999",
			want: "semantic SEM4009 10-30: integer literal 99999999999999999999 overflows int\n",
		},
		{
			name: "unused and undefined",
			src:  "fn main() { let idle = 1 print nope }",
			want: "resolve RES3003 16-20: 'idle' is declared but never used\nresolve RES3001 31-35: undefined name 'nope'\n",
		},
	}
	e := NewEngine(0, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Run(context.Background(), snapshotOf(t, tt.src))
			if err != nil {
				t.Fatal(err)
			}
			if s := summary(got); s != tt.want {
				t.Fatalf("unexpected diagnostics:\nwant:\n%sgot:\n%s", tt.want, s)
			}
		})
	}
}
