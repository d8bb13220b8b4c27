package analysis

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"xpl/internal/ast"
	"xpl/internal/lexer"
	"xpl/internal/parser"
	"xpl/internal/source"
	"xpl/internal/symbols"
)

// Loader resolves include items to the exports of the included files. Open
// documents (the overlay) take precedence over disk. Parsed files are cached
// by content hash; resolution is redone per request so edits to an included
// file are picked up by its includers.
type Loader struct {
	// Root is the workspace root, the second place an include path is
	// looked up after the including file's directory.
	Root string
	// Overlay returns the text of an open document.
	Overlay func(uri string) (string, bool)
	// ReadFile defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)

	mu    sync.Mutex
	cache map[string]*parsedFile
}

type parsedFile struct {
	hash [32]byte
	file *source.File
	tree *ast.File
}

// loadState is the per-request memo and the stack used for cycle detection.
type loadState struct {
	ctx   context.Context
	stack []string
	done  map[string]*symbols.Table
}

// Resolve loads every include item of tree, which belongs to uri.
func (l *Loader) Resolve(ctx context.Context, uri string, tree *ast.File) ([]symbols.Include, error) {
	st := &loadState{ctx: ctx, stack: []string{uri}, done: make(map[string]*symbols.Table)}
	incs := l.includesOf(st, uri, tree)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return incs, nil
}

// Candidates lists the URIs an include path may refer to, in lookup order.
func (l *Loader) Candidates(fromURI, path string) []string {
	if path == "" {
		return nil
	}
	var out []string
	if filepath.IsAbs(path) {
		return []string{source.PathToURI(path)}
	}
	if from := source.URIToPath(fromURI); from != "" {
		out = append(out, source.PathToURI(filepath.Join(filepath.Dir(from), path)))
	}
	if l.Root != "" {
		uri := source.PathToURI(filepath.Join(l.Root, path))
		if len(out) == 0 || out[0] != uri {
			out = append(out, uri)
		}
	}
	return out
}

func (l *Loader) includesOf(st *loadState, uri string, tree *ast.File) []symbols.Include {
	if tree == nil {
		return nil
	}
	var out []symbols.Include
	for _, it := range tree.Items {
		n := it.Node
		if n.Kind != ast.KindInclude || n.Text == "" {
			continue
		}
		if st.ctx.Err() != nil {
			return out
		}
		out = append(out, l.loadOne(st, uri, n))
	}
	return out
}

func (l *Loader) loadOne(st *loadState, fromURI string, n *ast.Node) symbols.Include {
	inc := symbols.Include{Node: n}
	var pf *parsedFile
	for _, cand := range l.Candidates(fromURI, n.Text) {
		var err error
		pf, err = l.parse(cand)
		if err == nil {
			inc.URI = cand
			break
		}
	}
	if pf == nil {
		inc.Err = fmt.Errorf("%w: %s", symbols.ErrIncludeNotFound, n.Text)
		return inc
	}
	for i, open := range st.stack {
		if sameDocument(open, inc.URI) {
			chain := append(append([]string{}, st.stack[i:]...), inc.URI)
			inc.Err = fmt.Errorf("%w: %s", symbols.ErrIncludeCycle, describeChain(chain))
			return inc
		}
	}
	table, ok := st.done[inc.URI]
	if !ok {
		st.stack = append(st.stack, inc.URI)
		nested := l.includesOf(st, inc.URI, pf.tree)
		st.stack = st.stack[:len(st.stack)-1]
		table = symbols.Resolve(pf.tree, symbols.Options{URI: inc.URI, File: pf.file, Includes: nested})
		st.done[inc.URI] = table
	}
	inc.Exports = table.Exports
	for _, nested := range table.Includes {
		inc.Deps = appendDeps(inc.Deps, nested.Deps...)
		if nested.URI != "" {
			inc.Deps = appendDeps(inc.Deps, nested.URI)
		}
	}
	// a cycle further down is reported at the include that leads into it
	for _, nested := range table.Includes {
		if errors.Is(nested.Err, symbols.ErrIncludeCycle) {
			inc.Err = nested.Err
			break
		}
	}
	return inc
}

func appendDeps(deps []string, uris ...string) []string {
	for _, uri := range uris {
		if !slices.Contains(deps, uri) {
			deps = append(deps, uri)
		}
	}
	return deps
}

func sameDocument(a, b string) bool {
	if a == b {
		return true
	}
	pa := source.URIToPath(a)
	return pa != "" && pa == source.URIToPath(b)
}

func describeChain(chain []string) string {
	names := make([]string, len(chain))
	for i, uri := range chain {
		names[i] = filepath.Base(source.URIToPath(uri))
	}
	return strings.Join(names, " -> ")
}

func (l *Loader) read(uri string) ([]byte, error) {
	if l.Overlay != nil {
		if text, ok := l.Overlay(uri); ok {
			return []byte(text), nil
		}
	}
	path := source.URIToPath(uri)
	if path == "" {
		return nil, fmt.Errorf("%w: %s", symbols.ErrIncludeNotFound, uri)
	}
	readFile := l.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	// #nosec G304 -- path comes from include items
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return source.StripBOM(data), nil
}

// parse returns the cached tree for uri when its content is unchanged.
func (l *Loader) parse(uri string) (*parsedFile, error) {
	data, err := l.read(uri)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(data)
	l.mu.Lock()
	if pf, ok := l.cache[uri]; ok && pf.hash == hash {
		l.mu.Unlock()
		return pf, nil
	}
	l.mu.Unlock()

	file := source.NewFile(uri, string(data))
	tree := parser.Parse(lexer.Tokenize(file, lexer.Options{})).File
	pf := &parsedFile{hash: hash, file: file, tree: tree}

	l.mu.Lock()
	if l.cache == nil {
		l.cache = make(map[string]*parsedFile)
	}
	l.cache[uri] = pf
	l.mu.Unlock()
	return pf, nil
}

// Forget drops the cached parse of uri, typically after a watched-file event.
func (l *Loader) Forget(uri string) {
	l.mu.Lock()
	delete(l.cache, uri)
	l.mu.Unlock()
}

// File returns the content of uri as last loaded for an include.
func (l *Loader) File(uri string) (*source.File, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pf, ok := l.cache[uri]
	if !ok {
		return nil, false
	}
	return pf.file, true
}
