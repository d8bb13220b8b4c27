package lsp

import (
	"xpl/internal/source"
)

// canonicalURI rewrites file URIs into the form the server produces
// itself, so "file:///a%3A/x" and "file:///a:/x" name the same document.
// Other schemes pass through unchanged.
func canonicalURI(uri string) string {
	if uri == "" {
		return ""
	}
	path := source.URIToPath(uri)
	if path == "" {
		return uri
	}
	return source.PathToURI(path)
}
