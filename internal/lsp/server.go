package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"xpl/internal/analysis"
	"xpl/internal/config"
	"xpl/internal/diag"
	"xpl/internal/diagnose"
	"xpl/internal/document"
	"xpl/internal/logging"
	"xpl/internal/metrics"
	"xpl/internal/source"
)

// ServerOptions configures the language server.
type ServerOptions struct {
	Config config.Config
	// ConfigPath is the file Config was loaded from. It is watched for
	// changes; when empty the server looks for xpl.toml above the workspace
	// root on initialize.
	ConfigPath string
	Logger     *zap.Logger
	Metrics    *metrics.Recorder
	// Root overrides the workspace root announced by the client.
	Root string
	// ReadFile reads included files that are not open. Defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
}

// Server handles stdio JSON-RPC for the xpl language server.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex

	mu                sync.Mutex
	fileCfg           config.Config
	overrides         config.Overrides
	cfg               config.Config
	configPath        string
	rootOverride      string
	workspaceRoot     string
	shutdownRequested bool
	watchFiles        bool

	trace     atomic.Bool
	logger    *zap.Logger
	sugar     *zap.SugaredLogger
	sessionID string
	metrics   *metrics.Recorder

	store   *document.Store
	loader  *analysis.Loader
	sched   *scheduler
	sess    *session
	routes  map[string]route
	notices map[string]notificationHandler

	baseCtx context.Context
	pool    errgroup.Group
	// workers bounds running handlers; queued requests wait on it off the
	// read loop
	workers *semaphore.Weighted
}

// NewServer constructs a server reading frames from in and writing to out.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	cfg := opts.Config
	if cfg.Server.RequestWorkers <= 0 {
		cfg = config.Default()
	}
	logger, sessionID := logging.WithSession(opts.Logger)
	readFile := opts.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}

	s := &Server{
		in:           bufio.NewReader(in),
		out:          bufio.NewWriter(out),
		fileCfg:      cfg,
		cfg:          cfg,
		configPath:   opts.ConfigPath,
		rootOverride: opts.Root,
		logger:       logger,
		sugar:        logger.Sugar(),
		sessionID:    sessionID,
		metrics:      opts.Metrics,
		store:        document.NewStore(),
		sess:         newSession(),
		baseCtx:      context.Background(),
		workers:      semaphore.NewWeighted(int64(max(cfg.Server.RequestWorkers, 1))),
	}
	s.trace.Store(cfg.Log.Trace)
	s.loader = &analysis.Loader{
		Root: opts.Root,
		Overlay: func(uri string) (string, bool) {
			text, _, ok := s.store.Get(uri)
			return text, ok
		},
		ReadFile: readFile,
	}
	s.sched = newScheduler(s.baseCtx, s.store, s.analyzeDocument, s.publishDiagnostics)
	s.sched.debounce = func() time.Duration { return s.config().Server.Debounce.Duration }
	s.sched.trace = s.trace.Load
	s.sched.logger = logger
	s.sched.metrics = opts.Metrics
	s.store.SetListener(s.sched.onChange)
	s.routes, s.notices = s.handlerTable()
	return s
}

// Run serves the connection until the client exits or the stream ends.
// A clean end of input returns nil; "exit" returns ErrExit or
// ErrExitWithoutShutdown.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.baseCtx = ctx
	s.sched.baseCtx = ctx
	defer func() {
		cancel()
		s.sess.close()
		_ = s.pool.Wait()
		s.sched.stop()
	}()

	s.mu.Lock()
	path := s.configPath
	s.mu.Unlock()
	if path != "" {
		s.watchConfig(path)
	}
	s.logger.Info("session started", zap.String("config", path))

	for {
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("input closed")
				return nil
			}
			s.logger.Error("transport failure", zap.Error(err))
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Warn("dropping message", zap.Error(&ProtocolError{Err: err}))
			continue
		}
		if err := s.handleMessage(ctx, &msg); err != nil {
			return err
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, msg *rpcMessage) error {
	switch {
	case msg.isResponse():
		if !s.sess.deliver(msg) {
			s.logger.Debug("unexpected response", zap.ByteString("id", msg.ID))
		}
		return nil
	case msg.Method == "":
		s.logger.Warn("dropping message", zap.Error(&ProtocolError{Err: errors.New("message has neither method nor id")}))
		return nil
	case msg.isRequest():
		return s.dispatchRequest(ctx, msg)
	default:
		return s.dispatchNotification(ctx, msg)
	}
}

// config returns the effective configuration.
func (s *Server) config() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Server) analyzeDocument(ctx context.Context, in analysis.Input) (*analysis.Snapshot, []diag.Diagnostic, error) {
	cfg := s.config()
	a := &analysis.Analyzer{Includes: s.loader, ReportUnused: cfg.Diagnostics.Unused, Logger: s.logger}
	snap, err := a.Analyze(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	diags, err := diagnose.NewEngine(cfg.Server.MaxDiagnostics, s.logger).Run(ctx, snap)
	if err != nil {
		return nil, nil, err
	}
	return snap, diags, nil
}

func (s *Server) publishDiagnostics(uri string, version *int32, diags []diag.Diagnostic, file *source.File) {
	params := publishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: toLSPDiagnostics(uri, file, diags, s.loader),
	}
	if err := s.notify("textDocument/publishDiagnostics", params); err != nil {
		s.logger.Warn("failed to publish diagnostics", zap.String("uri", uri), zap.Error(err))
	}
}

type responseEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
	// Stale marks an answer computed from an older document version.
	Stale bool `json:"stale,omitempty"`
}

type errorEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Error   *rpcError       `json:"error"`
}

type requestEnvelope struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type notificationEnvelope struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

func (s *Server) sendResponse(id json.RawMessage, result any, stale bool) error {
	return s.send(responseEnvelope{JSONRPC: "2.0", ID: id, Result: result, Stale: stale})
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return s.send(errorEnvelope{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}

func (s *Server) notify(method string, params any) error {
	return s.send(notificationEnvelope{JSONRPC: "2.0", Method: method, Params: params})
}

// call sends a request to the client and waits for its answer. The read
// loop delivers the response, so call must not run on it.
func (s *Server) call(ctx context.Context, method string, params, result any) error {
	id, ch, err := s.sess.register()
	if err != nil {
		return err
	}
	defer s.sess.unregister(id)
	if err := s.send(requestEnvelope{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case msg, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		if msg.Error != nil {
			return msg.Error
		}
		if result != nil && len(msg.Result) > 0 {
			return json.Unmarshal(msg.Result, result)
		}
		return nil
	}
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *Server) logf(format string, args ...any) {
	s.sugar.Infof(format, args...)
}

// tracef logs only while session tracing is on.
func (s *Server) tracef(format string, args ...any) {
	if s.trace.Load() {
		s.sugar.Infof(format, args...)
	}
}
