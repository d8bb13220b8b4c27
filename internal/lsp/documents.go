package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"xpl/internal/document"
)

func (s *Server) handleDidOpen(_ context.Context, raw json.RawMessage) error {
	var params didOpenTextDocumentParams
	if err := decodeParams(raw, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return errors.New("didOpen without uri")
	}
	s.store.Open(uri, params.TextDocument.LanguageID, params.TextDocument.Text, params.TextDocument.Version)
	s.tracef("didOpen: uri=%s version=%d", uri, params.TextDocument.Version)
	// includers now read the open text instead of the file on disk
	s.sched.refresh(uri)
	return nil
}

func (s *Server) handleDidChange(_ context.Context, raw json.RawMessage) error {
	var params didChangeTextDocumentParams
	if err := decodeParams(raw, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	edits := make([]document.Edit, len(params.ContentChanges))
	for i, c := range params.ContentChanges {
		edits[i] = document.Edit{Range: c.Range, Text: c.Text}
	}
	base := params.TextDocument.Version - 1
	version, err := s.store.ApplyEdits(uri, base, edits)
	if err != nil {
		if errors.Is(err, document.ErrVersionConflict) {
			return s.resync(uri, params)
		}
		return fmt.Errorf("didChange %s: %w", uri, err)
	}
	s.tracef("didChange: uri=%s version=%d edits=%d", uri, version, len(edits))
	s.sched.refresh(uri)
	return nil
}

// resync recovers from a version gap when the batch ends with a full-text
// change; the document is reopened at the client's version. Incremental
// edits against an unknown base cannot be replayed.
func (s *Server) resync(uri string, params didChangeTextDocumentParams) error {
	n := len(params.ContentChanges)
	if n == 0 || params.ContentChanges[n-1].Range != nil {
		return fmt.Errorf("didChange %s: %w", uri, document.ErrVersionConflict)
	}
	lang := ""
	for _, doc := range s.store.Snapshot() {
		if doc.URI == uri {
			lang = doc.LanguageID
		}
	}
	s.logger.Warn("document version gap, resynchronising", zap.String("uri", uri), zap.Int32("version", params.TextDocument.Version))
	s.store.Open(uri, lang, params.ContentChanges[n-1].Text, params.TextDocument.Version)
	s.sched.refresh(uri)
	return nil
}

func (s *Server) handleDidSave(_ context.Context, raw json.RawMessage) error {
	var params didSaveTextDocumentParams
	if err := decodeParams(raw, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	// the store already holds the saved text
	s.tracef("didSave: uri=%s", uri)
	return nil
}

func (s *Server) handleDidClose(_ context.Context, raw json.RawMessage) error {
	var params didCloseTextDocumentParams
	if err := decodeParams(raw, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if err := s.store.Close(uri); err != nil {
		return fmt.Errorf("didClose: %w", err)
	}
	s.tracef("didClose: uri=%s", uri)
	// includers fall back to the file on disk
	s.loader.Forget(uri)
	s.sched.refresh(uri)
	return nil
}

func (s *Server) handleDidChangeWatchedFiles(_ context.Context, raw json.RawMessage) error {
	var params didChangeWatchedFilesParams
	if err := decodeParams(raw, &params); err != nil {
		return err
	}
	changed := make([]string, 0, len(params.Changes))
	for _, ev := range params.Changes {
		uri := canonicalURI(ev.URI)
		if _, _, open := s.store.Get(uri); open {
			// the open text wins over the disk
			continue
		}
		s.loader.Forget(uri)
		changed = append(changed, uri)
	}
	if len(changed) == 0 {
		return nil
	}
	s.tracef("watched files changed: %v", changed)
	s.sched.refresh(changed...)
	return nil
}
