package lsp

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"xpl/internal/config"
)

// decodeOverrides accepts settings either wrapped as {"xpl": {...}} or
// bare. It reports false when raw carries nothing usable.
func decodeOverrides(logger *zap.Logger, raw json.RawMessage) (config.Overrides, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return config.Overrides{}, false
	}
	var wrapped struct {
		XPL *config.Overrides `json:"xpl"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.XPL != nil {
		return *wrapped.XPL, true
	}
	var bare config.Overrides
	if err := json.Unmarshal(raw, &bare); err != nil {
		logger.Warn("ignoring malformed settings", zap.Error(err))
		return config.Overrides{}, false
	}
	return bare, true
}

// mergeOverrides layers next on top of prev field by field.
func mergeOverrides(prev, next config.Overrides) config.Overrides {
	if next.UnusedWarnings != nil {
		prev.UnusedWarnings = next.UnusedWarnings
	}
	if next.MaxDiagnostics != nil {
		prev.MaxDiagnostics = next.MaxDiagnostics
	}
	if next.Trace != nil {
		prev.Trace = next.Trace
	}
	if next.DebounceMs != nil {
		prev.DebounceMs = next.DebounceMs
	}
	if next.AnalysisTimeoutMs != nil {
		prev.AnalysisTimeoutMs = next.AnalysisTimeoutMs
	}
	return prev
}

// applyOverrides records client settings and reports whether the result
// changes diagnostics.
func (s *Server) applyOverrides(o config.Overrides) bool {
	s.mu.Lock()
	s.overrides = mergeOverrides(s.overrides, o)
	changed := s.recomputeLocked()
	s.mu.Unlock()
	if o.Trace != nil {
		s.trace.Store(*o.Trace)
	}
	return changed
}

// reloadConfig installs a new file configuration; client settings still
// win over it.
func (s *Server) reloadConfig(cfg config.Config) {
	s.mu.Lock()
	s.fileCfg = cfg
	changed := s.recomputeLocked()
	trace := s.cfg.Log.Trace
	s.mu.Unlock()
	s.trace.Store(trace)
	if changed {
		s.sched.refreshAll()
	}
}

func (s *Server) recomputeLocked() bool {
	prev := s.cfg
	s.cfg = s.fileCfg.Apply(s.overrides)
	return prev.Diagnostics != s.cfg.Diagnostics || prev.Server.MaxDiagnostics != s.cfg.Server.MaxDiagnostics
}

func (s *Server) watchConfig(path string) {
	ctx := s.baseCtx
	go func() {
		if err := config.Watch(ctx, path, s.logger, s.reloadConfig); err != nil {
			s.logger.Warn("config watch failed", zap.String("path", path), zap.Error(err))
		}
	}()
}

func (s *Server) handleDidChangeConfiguration(_ context.Context, raw json.RawMessage) error {
	var params didChangeConfigurationParams
	if err := decodeParams(raw, &params); err != nil {
		return err
	}
	o, ok := decodeOverrides(s.logger, params.Settings)
	if !ok {
		return nil
	}
	if s.applyOverrides(o) {
		s.logf("settings changed, re-analysing open documents")
		s.sched.refreshAll()
	}
	return nil
}

func (s *Server) handleSetTrace(_ context.Context, raw json.RawMessage) error {
	var params setTraceParams
	if err := decodeParams(raw, &params); err != nil {
		return err
	}
	s.trace.Store(params.Value == "messages" || params.Value == "verbose")
	s.logger.Info("trace changed", zap.String("value", params.Value))
	return nil
}
