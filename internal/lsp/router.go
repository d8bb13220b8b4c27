package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"xpl/internal/document"
)

// requestHandler answers one request. stale reports that the result was
// computed from an older document version.
type requestHandler func(ctx context.Context, params json.RawMessage) (result any, stale bool, err error)

type notificationHandler func(ctx context.Context, params json.RawMessage) error

type route struct {
	handle requestHandler
	// inline routes run on the read loop so later messages see their effect
	inline bool
}

// Request outcomes recorded in metrics.
const (
	outcomeOK        = "ok"
	outcomeError     = "error"
	outcomeCancelled = "cancelled"
)

func (s *Server) handlerTable() (map[string]route, map[string]notificationHandler) {
	routes := map[string]route{
		"initialize":                  {handle: s.handleInitialize, inline: true},
		"shutdown":                    {handle: s.handleShutdown, inline: true},
		"textDocument/hover":          {handle: s.handleHover},
		"textDocument/completion":     {handle: s.handleCompletion},
		"textDocument/definition":     {handle: s.handleDefinition},
		"textDocument/references":     {handle: s.handleReferences},
		"textDocument/signatureHelp":  {handle: s.handleSignatureHelp},
		"textDocument/documentSymbol": {handle: s.handleDocumentSymbol},
		"textDocument/foldingRange":   {handle: s.handleFoldingRange},
		"textDocument/codeLens":       {handle: s.handleCodeLens},
		"textDocument/formatting":     {handle: s.handleFormatting},
		"textDocument/diagnostic":     {handle: s.handleDiagnostic},
	}
	notices := map[string]notificationHandler{
		"initialized":                      s.handleInitialized,
		"exit":                             s.handleExit,
		"$/cancelRequest":                  s.handleCancelRequest,
		"$/setTrace":                       s.handleSetTrace,
		"textDocument/didOpen":             s.handleDidOpen,
		"textDocument/didChange":           s.handleDidChange,
		"textDocument/didSave":             s.handleDidSave,
		"textDocument/didClose":            s.handleDidClose,
		"workspace/didChangeConfiguration": s.handleDidChangeConfiguration,
		"workspace/didChangeWatchedFiles":  s.handleDidChangeWatchedFiles,
	}
	return routes, notices
}

func (s *Server) dispatchRequest(ctx context.Context, msg *rpcMessage) error {
	r, ok := s.routes[msg.Method]
	if !ok {
		s.metrics.Request(msg.Method, outcomeError, 0)
		return s.sendError(msg.ID, CodeMethodNotFound, "method not found: "+msg.Method)
	}
	s.mu.Lock()
	shutdown := s.shutdownRequested
	s.mu.Unlock()
	if shutdown && msg.Method != "shutdown" {
		return s.sendError(msg.ID, CodeInvalidRequest, "server is shutting down")
	}
	reqCtx, err := s.sess.begin(ctx, msg.ID, msg.Method)
	if err != nil {
		return s.sendError(msg.ID, CodeInvalidRequest, err.Error())
	}
	if r.inline {
		s.serve(reqCtx, msg, r)
		return nil
	}
	s.pool.Go(func() error {
		if err := s.workers.Acquire(reqCtx, 1); err != nil {
			// cancelled while queued
			s.sess.finish(msg.ID)
			s.metrics.Request(msg.Method, outcomeCancelled, 0)
			return nil
		}
		defer s.workers.Release(1)
		s.serve(reqCtx, msg, r)
		return nil
	})
	return nil
}

// serve runs a handler and answers the request unless it was cancelled.
func (s *Server) serve(ctx context.Context, msg *rpcMessage, r route) {
	start := time.Now()
	result, stale, err := s.invoke(ctx, msg, r)
	elapsed := time.Since(start)

	if _, pending := s.sess.finish(msg.ID); !pending || errors.Is(err, context.Canceled) {
		s.metrics.Request(msg.Method, outcomeCancelled, elapsed)
		s.tracef("request %s id=%s cancelled after %s", msg.Method, msg.ID, elapsed)
		return
	}

	var sendErr error
	var rerr *rpcError
	switch {
	case err == nil:
		s.metrics.Request(msg.Method, outcomeOK, elapsed)
		sendErr = s.sendResponse(msg.ID, result, stale)
	case errors.As(err, &rerr):
		s.metrics.Request(msg.Method, outcomeError, elapsed)
		sendErr = s.sendError(msg.ID, rerr.Code, rerr.Message)
	default:
		s.metrics.Request(msg.Method, outcomeError, elapsed)
		s.logger.Warn("request failed", zap.String("method", msg.Method), zap.Error(err))
		sendErr = s.sendError(msg.ID, CodeInternalError, err.Error())
	}
	if sendErr != nil {
		s.logger.Warn("failed to send response", zap.String("method", msg.Method), zap.Error(sendErr))
	}
	s.tracef("request %s id=%s done in %s stale=%t", msg.Method, msg.ID, elapsed, stale)
}

func (s *Server) invoke(ctx context.Context, msg *rpcMessage, r route) (result any, stale bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("handler panic",
				zap.String("method", msg.Method),
				zap.Any("panic", p),
				zap.Stack("stack"))
			result, stale = nil, false
			err = &rpcError{Code: CodeInternalError, Message: fmt.Sprintf("internal error: %v", p)}
		}
	}()
	return r.handle(ctx, msg.Params)
}

func (s *Server) dispatchNotification(ctx context.Context, msg *rpcMessage) error {
	h, ok := s.notices[msg.Method]
	if !ok {
		s.tracef("ignoring notification %s", msg.Method)
		return nil
	}
	err := s.notifySafely(ctx, msg, h)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrExit), errors.Is(err, ErrExitWithoutShutdown):
		return err
	default:
		s.logger.Warn("notification failed", zap.String("method", msg.Method), zap.Error(err))
		return nil
	}
}

func (s *Server) notifySafely(ctx context.Context, msg *rpcMessage, h notificationHandler) (err error) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("notification panic", zap.String("method", msg.Method), zap.Any("panic", p), zap.Stack("stack"))
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return h(ctx, msg.Params)
}

func (s *Server) handleCancelRequest(_ context.Context, raw json.RawMessage) error {
	var params cancelParams
	if err := decodeParams(raw, &params); err != nil {
		return err
	}
	if method, ok := s.sess.cancelRequest(params.ID); ok {
		s.tracef("cancel request id=%s method=%s", params.ID, method)
	}
	return nil
}

// decodeParams unmarshals request params. Missing or malformed params are
// an InvalidParams error.
func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errInvalidParams(errors.New("missing params"))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errInvalidParams(err)
	}
	return nil
}

// acquire returns the analysis of uri's current version, waiting at most
// the configured analysis timeout. Documents that are not open yield an
// empty result.
func (s *Server) acquire(ctx context.Context, uri string) (result, bool, error) {
	timeout := s.config().Server.AnalysisTimeout.Duration
	res, stale, err := s.sched.acquire(ctx, uri, timeout)
	if errors.Is(err, document.ErrNotOpen) {
		return result{}, false, nil
	}
	if stale {
		s.tracef("answering %s from a stale snapshot", uri)
	}
	return res, stale, err
}
