package diagfmt

import (
	"xpl/internal/diag"
	"xpl/internal/source"
)

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto shows paths relative to BaseDir when they lie inside it.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// Unit is one checked file and its diagnostics.
type Unit struct {
	Path        string
	File        *source.File
	Diagnostics []diag.Diagnostic
}

// Lookup returns the indexed file for a URI, or nil. It is used for notes
// that point into other files.
type Lookup func(uri string) *source.File

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	Context   int8 // строки контекста до и после
	PathMode  PathMode
	BaseDir   string
	ShowNotes bool
	Lookup    Lookup
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool // добавить line/col
	PathMode         PathMode
	BaseDir          string
	Max              int // обрезка вывода на файл, 0 - без ограничений
	IncludeNotes     bool
	Lookup           Lookup
}
