package types

// Type is one of the built-in xpl types.
type Type uint8

const (
	// Unknown marks a type that could not be determined. Checks treat it as
	// compatible with everything so one error does not cascade.
	Unknown Type = iota
	Void
	Bool
	Int
	Str
)

func (t Type) String() string {
	switch t {
	case Void:
		return "void"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Str:
		return "str"
	default:
		return "unknown"
	}
}

// Lookup resolves a type name written in source.
func Lookup(name string) (Type, bool) {
	switch name {
	case "int":
		return Int, true
	case "str":
		return Str, true
	case "bool":
		return Bool, true
	}
	return Unknown, false
}

// Names lists the type names accepted by Lookup.
func Names() []string {
	return []string{"int", "str", "bool"}
}

// Assignable reports whether a value of type src may be stored as dst.
func Assignable(dst, src Type) bool {
	return dst == Unknown || src == Unknown || dst == src
}
