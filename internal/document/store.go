package document

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"xpl/internal/source"
)

var (
	// ErrVersionConflict: the edit batch was based on another version.
	ErrVersionConflict = errors.New("version conflict")
	// ErrRangeOutOfBounds: an edit range lies outside the document.
	ErrRangeOutOfBounds = errors.New("range out of bounds")
	// ErrInvalidEditBatch: the batch is empty or its edits overlap.
	ErrInvalidEditBatch = errors.New("invalid edit batch")
	// ErrNotOpen: the document is not open.
	ErrNotOpen = errors.New("document not open")
)

// Edit replaces Range with Text. A nil Range replaces the whole document.
type Edit struct {
	Range *source.Range
	Text  string
}

// Document is a copy of one open document.
type Document struct {
	URI        string
	LanguageID string
	Text       string
	Version    int32
}

type ChangeKind uint8

const (
	ChangeOpen ChangeKind = iota
	ChangeEdit
	ChangeClose
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeOpen:
		return "open"
	case ChangeEdit:
		return "edit"
	case ChangeClose:
		return "close"
	default:
		return "unknown"
	}
}

// Change is delivered once per open, accepted edit batch and close.
type Change struct {
	Kind    ChangeKind
	URI     string
	Version int32
	Text    string
	// Window is the byte range that differs from the previous version; set
	// for ChangeEdit only.
	Window *source.Window
}

// Listener receives changes in the order they were applied. It may read
// the store but must not modify it.
type Listener func(Change)

// Store holds the authoritative text of every open document.
type Store struct {
	mu   sync.Mutex
	docs map[string]*Document

	// emitMu keeps listener calls in mutation order without holding mu
	emitMu   sync.Mutex
	listener Listener
}

func NewStore() *Store {
	return &Store{docs: make(map[string]*Document)}
}

// SetListener installs the change listener. Call before the store is used.
func (s *Store) SetListener(l Listener) {
	s.emitMu.Lock()
	s.listener = l
	s.emitMu.Unlock()
}

// Open stores a document, replacing any previous copy.
func (s *Store) Open(uri, languageID, text string, version int32) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Lock()
	s.docs[uri] = &Document{URI: uri, LanguageID: languageID, Text: text, Version: version}
	s.mu.Unlock()
	s.emit(Change{Kind: ChangeOpen, URI: uri, Version: version, Text: text})
}

// Close forgets a document.
func (s *Store) Close(uri string) error {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	delete(s.docs, uri)
	s.mu.Unlock()
	s.emit(Change{Kind: ChangeClose, URI: uri, Version: doc.Version})
	return nil
}

// Hold blocks Open, ApplyEdits and Close until release is called, so the
// versions seen meanwhile stay current. The holder may read the store.
// Listeners must not call Hold.
func (s *Store) Hold() (release func()) {
	s.emitMu.Lock()
	return s.emitMu.Unlock
}

// Get returns the current text and version of uri.
func (s *Store) Get(uri string) (string, int32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		return "", 0, false
	}
	return doc.Text, doc.Version, true
}

// Snapshot lists copies of all open documents ordered by URI.
func (s *Store) Snapshot() []Document {
	s.mu.Lock()
	out := make([]Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, *doc)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// ApplyEdits applies a batch of edits based on baseVersion and returns the
// new version, baseVersion+1. The batch is all-or-nothing: on error the
// document keeps its text and version and no change is emitted.
func (s *Store) ApplyEdits(uri string, baseVersion int32, edits []Edit) (int32, error) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	if doc.Version != baseVersion {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %s is at version %d, edits are based on %d", ErrVersionConflict, uri, doc.Version, baseVersion)
	}
	text, err := applyBatch(uri, doc.Text, edits)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	window := source.DiffWindow([]byte(doc.Text), []byte(text))
	doc.Text = text
	doc.Version = baseVersion + 1
	change := Change{Kind: ChangeEdit, URI: uri, Version: doc.Version, Text: text, Window: &window}
	s.mu.Unlock()
	s.emit(change)
	return change.Version, nil
}

func (s *Store) emit(c Change) {
	if s.listener != nil {
		s.listener(c)
	}
}
