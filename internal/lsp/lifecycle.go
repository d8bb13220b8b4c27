package lsp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"xpl/internal/config"
	"xpl/internal/source"
	"xpl/internal/version"
)

// registrationTimeout bounds the wait for the client's answer to
// client/registerCapability.
const registrationTimeout = 10 * time.Second

func (s *Server) handleInitialize(_ context.Context, raw json.RawMessage) (any, bool, error) {
	var params initializeParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, false, errInvalidParams(err)
		}
	}

	s.mu.Lock()
	root := s.rootOverride
	s.mu.Unlock()
	if root == "" {
		root = workspaceRoot(params)
	}
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}

	s.mu.Lock()
	s.workspaceRoot = root
	s.watchFiles = params.Capabilities.Workspace.DidChangeWatchedFiles.DynamicRegistration
	configPath := s.configPath
	s.mu.Unlock()
	s.loader.Root = root

	if configPath == "" && root != "" {
		s.loadWorkspaceConfig(root)
	}
	if o, ok := decodeOverrides(s.logger, params.InitializationOptions); ok {
		s.applyOverrides(o)
	}
	switch params.Trace {
	case "messages", "verbose":
		s.trace.Store(true)
	}
	s.logger.Info("initialize", zap.String("root", root), zap.Bool("trace", s.trace.Load()))

	return initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    2,
				Save:      saveOptions{IncludeText: false},
			},
			HoverProvider: true,
			CompletionProvider: &completionOptions{
				TriggerCharacters: []string{"\"", "/"},
			},
			SignatureHelpProvider: &signatureHelpOptions{
				TriggerCharacters: []string{"(", ","},
			},
			DefinitionProvider:         true,
			ReferencesProvider:         true,
			DocumentSymbolProvider:     true,
			FoldingRangeProvider:       true,
			CodeLensProvider:           &codeLensOptions{},
			DocumentFormattingProvider: true,
			DiagnosticProvider: &diagnosticOptions{
				Identifier:            diagnosticSource,
				InterFileDependencies: true,
			},
		},
		ServerInfo: serverInfo{Name: "xpl-ls", Version: version.Version},
	}, false, nil
}

func workspaceRoot(params initializeParams) string {
	if params.RootURI != "" {
		if path := source.URIToPath(params.RootURI); path != "" {
			return path
		}
	}
	if params.RootPath != "" {
		return params.RootPath
	}
	if len(params.WorkspaceFolders) > 0 {
		return source.URIToPath(params.WorkspaceFolders[0].URI)
	}
	return ""
}

// loadWorkspaceConfig picks up xpl.toml above root when no file was given
// on the command line.
func (s *Server) loadWorkspaceConfig(root string) {
	path, ok, err := config.Find(root)
	if err != nil || !ok {
		if err != nil {
			s.logger.Warn("config lookup failed", zap.String("root", root), zap.Error(err))
		}
		return
	}
	cfg, err := config.Load(path)
	if err != nil {
		s.logger.Warn("ignoring workspace config", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.configPath = path
	s.mu.Unlock()
	s.reloadConfig(cfg)
	s.watchConfig(path)
}

func (s *Server) handleInitialized(ctx context.Context, _ json.RawMessage) error {
	if err := s.notify("window/logMessage", logMessageParams{
		Type:    messageTypeInfo,
		Message: "xpl Language Server initialized",
	}); err != nil {
		return err
	}
	s.mu.Lock()
	watch := s.watchFiles
	s.mu.Unlock()
	if watch {
		// the answer arrives on the read loop, so wait elsewhere
		go s.registerWatchers(ctx)
	}
	return nil
}

func (s *Server) registerWatchers(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, registrationTimeout)
	defer cancel()
	params := registrationParams{Registrations: []registration{{
		ID:     "xpl-watched-files",
		Method: "workspace/didChangeWatchedFiles",
		RegisterOptions: didChangeWatchedFilesRegistrationOptions{
			Watchers: []fileSystemWatcher{{GlobPattern: "**/*.xpl"}},
		},
	}}}
	if err := s.call(ctx, "client/registerCapability", params, nil); err != nil {
		s.logger.Warn("file watcher registration failed", zap.Error(err))
		return
	}
	s.tracef("registered **/*.xpl file watcher")
}

func (s *Server) handleShutdown(_ context.Context, _ json.RawMessage) (any, bool, error) {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	s.logger.Info("shutdown requested")
	return nil, false, nil
}

func (s *Server) handleExit(_ context.Context, _ json.RawMessage) error {
	s.mu.Lock()
	shutdown := s.shutdownRequested
	s.mu.Unlock()
	if shutdown {
		return ErrExit
	}
	return ErrExitWithoutShutdown
}
