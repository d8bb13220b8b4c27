package ast

// Kind identifies the syntactic category of a Node.
type Kind uint8

const (
	KindError Kind = iota // Text holds the parse error message

	// items
	KindInclude // Text: unquoted path, Value: the string literal
	KindLet     // Name, Type?, Value
	KindFn      // Name, Params (errors may follow the last param), Type?, Body

	KindParam   // Name, Type
	KindTypeRef // Text: type name
	KindBlock   // Stmts

	// statements
	KindAssign   // Name, Value
	KindPrint    // Value
	KindReturn   // Value?
	KindIf       // Cond, Body, Else? (block or nested if)
	KindLoop     // Cond (iteration count), Body
	KindExprStmt // Value

	// expressions
	KindBinary // Op, Left, Right
	KindUnary  // Op, Value
	KindCall   // Name (callee), Args, Right? (error for a missing ')')
	KindParen  // Value, Right? (error for a missing ')')
	KindIdent  // Text: name
	KindInt    // Text: literal
	KindString // Text: literal including quotes
	KindBool   // Text: "true" or "false"
)

var kindNames = [...]string{
	KindError:    "Error",
	KindInclude:  "Include",
	KindLet:      "Let",
	KindFn:       "Fn",
	KindParam:    "Param",
	KindTypeRef:  "TypeRef",
	KindBlock:    "Block",
	KindAssign:   "Assign",
	KindPrint:    "Print",
	KindReturn:   "Return",
	KindIf:       "If",
	KindLoop:     "Loop",
	KindExprStmt: "ExprStmt",
	KindBinary:   "Binary",
	KindUnary:    "Unary",
	KindCall:     "Call",
	KindParen:    "Paren",
	KindIdent:    "Ident",
	KindInt:      "Int",
	KindString:   "String",
	KindBool:     "Bool",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(?)"
}

// IsExpr reports whether nodes of this kind are expressions.
func (k Kind) IsExpr() bool {
	return k >= KindBinary && k <= KindBool
}
