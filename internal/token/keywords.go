package token

var keywords = map[string]Kind{
	"fn":      KwFn,
	"let":     KwLet,
	"include": KwInclude,
	"if":      KwIf,
	"else":    KwElse,
	"loop":    KwLoop,
	"return":  KwReturn,
	"print":   KwPrint,
	"true":    KwTrue,
	"false":   KwFalse,
}

// LookupKeyword returns the keyword kind for ident. Keywords are
// case-sensitive.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}

// Keywords returns the keyword spellings in a stable order.
func Keywords() []string {
	return []string{"fn", "let", "include", "if", "else", "loop", "return", "print", "true", "false"}
}
