package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// io
	IOLoadFileError Code = 1001

	// syntax
	SynUnexpectedToken Code = 2001
	SynInvalidToken    Code = 2002

	// name resolution
	ResUndefined      Code = 3001
	ResDuplicate      Code = 3002
	ResUnusedVariable Code = 3003
	ResMissingInclude Code = 3004
	ResIncludeCycle   Code = 3005

	// semantic
	SemTypeMismatch   Code = 4001
	SemUnknownType    Code = 4002
	SemNotCallable    Code = 4003
	SemArgCount       Code = 4004
	SemBadOperand     Code = 4005
	SemReturnMismatch Code = 4006
	SemMissingReturn  Code = 4007
	SemNotAssignable  Code = 4008
	SemIntOverflow    Code = 4009
	SemVoidValue      Code = 4010
)

var codeDescription = map[Code]string{
	UnknownCode:        "Unknown error",
	IOLoadFileError:    "I/O error",
	SynUnexpectedToken: "Unexpected token",
	SynInvalidToken:    "Invalid token",
	ResUndefined:       "Undefined name",
	ResDuplicate:       "Duplicate declaration",
	ResUnusedVariable:  "Unused variable",
	ResMissingInclude:  "Missing include",
	ResIncludeCycle:    "Include cycle",
	SemTypeMismatch:    "Type mismatch",
	SemUnknownType:     "Unknown type",
	SemNotCallable:     "Not callable",
	SemArgCount:        "Wrong number of arguments",
	SemBadOperand:      "Invalid operand",
	SemReturnMismatch:  "Invalid return",
	SemMissingReturn:   "Missing return",
	SemNotAssignable:   "Not assignable",
	SemIntOverflow:     "Integer literal out of range",
	SemVoidValue:       "Void value used",
}

// ID returns the stable short form, e.g. "RES3001".
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("SEM%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
