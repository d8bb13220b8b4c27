package diagfmt

import (
	"path/filepath"

	"xpl/internal/source"
)

func formatPath(path string, mode PathMode, base string) string {
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return filepath.ToSlash(abs)
		}
	case PathModeRelative:
		if base != "" {
			if rel, err := source.RelativePath(path, base); err == nil {
				return rel
			}
		}
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeAuto:
		if base != "" && filepath.IsAbs(path) {
			if rel, err := source.RelativePath(path, base); err == nil {
				return rel
			}
		}
	}
	return filepath.ToSlash(path)
}

// notePath picks the display path of a note: its own URI when it points
// elsewhere, otherwise the unit's path.
func notePath(u Unit, uri string) string {
	if uri == "" || (u.File != nil && uri == u.File.URI) {
		return u.Path
	}
	if p := source.URIToPath(uri); p != "" {
		return p
	}
	return uri
}

func noteFile(u Unit, uri string, lookup Lookup) *source.File {
	if uri == "" || (u.File != nil && uri == u.File.URI) {
		return u.File
	}
	if lookup == nil {
		return nil
	}
	return lookup(uri)
}
