package types

import "xpl/internal/token"

// BinarySpec lists one accepted operand combination for an operator.
type BinarySpec struct {
	Left   Type
	Right  Type
	Result Type
}

var binarySpecTable = map[token.Kind][]BinarySpec{
	token.Plus: {
		{Left: Int, Right: Int, Result: Int},
		{Left: Str, Right: Str, Result: Str},
	},
	token.Minus:   {{Left: Int, Right: Int, Result: Int}},
	token.Star:    {{Left: Int, Right: Int, Result: Int}},
	token.Slash:   {{Left: Int, Right: Int, Result: Int}},
	token.Percent: {{Left: Int, Right: Int, Result: Int}},
	token.Lt:      {{Left: Int, Right: Int, Result: Bool}},
	token.LtEq:    {{Left: Int, Right: Int, Result: Bool}},
	token.Gt:      {{Left: Int, Right: Int, Result: Bool}},
	token.GtEq:    {{Left: Int, Right: Int, Result: Bool}},
	token.AndAnd:  {{Left: Bool, Right: Bool, Result: Bool}},
	token.OrOr:    {{Left: Bool, Right: Bool, Result: Bool}},
	token.EqEq: {
		{Left: Int, Right: Int, Result: Bool},
		{Left: Str, Right: Str, Result: Bool},
		{Left: Bool, Right: Bool, Result: Bool},
	},
	token.BangEq: {
		{Left: Int, Right: Int, Result: Bool},
		{Left: Str, Right: Str, Result: Bool},
		{Left: Bool, Right: Bool, Result: Bool},
	},
}

// Binary returns the result type of left op right. ok is false when no
// combination accepts the operands. Unknown operands yield the operator's
// result when it is the same for every combination, otherwise Unknown.
func Binary(op token.Kind, left, right Type) (Type, bool) {
	specs := binarySpecTable[op]
	if len(specs) == 0 {
		return Unknown, false
	}
	if left == Unknown || right == Unknown {
		res := specs[0].Result
		for _, s := range specs[1:] {
			if s.Result != res {
				return Unknown, true
			}
		}
		return res, true
	}
	for _, s := range specs {
		if s.Left == left && s.Right == right {
			return s.Result, true
		}
	}
	return Unknown, false
}

// Unary returns the result type of op operand.
func Unary(op token.Kind, operand Type) (Type, bool) {
	var want Type
	switch op {
	case token.Minus:
		want = Int
	case token.Bang:
		want = Bool
	default:
		return Unknown, false
	}
	if operand != Unknown && operand != want {
		return want, false
	}
	return want, true
}
