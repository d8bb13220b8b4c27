package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"xpl/internal/analysis"
	"xpl/internal/config"
	"xpl/internal/diag"
	"xpl/internal/source"
)

const testTimeout = 5 * time.Second

type wireMessage struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
	Stale  bool            `json:"stale,omitempty"`
}

type testClient struct {
	t       *testing.T
	srv     *Server
	in      *io.PipeWriter
	msgs    chan wireMessage
	backlog []wireMessage
	nextID  int

	done    chan error
	once    sync.Once
	exitErr error
}

var errStillRunning = errors.New("server still running")

func testConfig(timeout time.Duration) config.Config {
	cfg := config.Default()
	cfg.Server.Debounce = config.Duration{}
	cfg.Server.AnalysisTimeout = config.Duration{Duration: timeout}
	return cfg
}

// startTestServer runs a server over pipes. setup may replace internals
// before the read loop starts.
func startTestServer(t *testing.T, cfg config.Config, setup func(*Server)) *testClient {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	srv := NewServer(inR, outW, ServerOptions{Config: cfg, Root: t.TempDir()})
	if setup != nil {
		setup(srv)
	}
	c := &testClient{
		t:    t,
		srv:  srv,
		in:   inW,
		msgs: make(chan wireMessage, 256),
		done: make(chan error, 1),
	}
	go func() {
		err := srv.Run(context.Background())
		_ = outW.Close()
		c.done <- err
	}()
	go func() {
		defer close(c.msgs)
		r := bufio.NewReader(outR)
		for {
			payload, err := readMessage(r)
			if err != nil {
				return
			}
			var m wireMessage
			if err := json.Unmarshal(payload, &m); err == nil {
				c.msgs <- m
			}
		}
	}()
	t.Cleanup(func() {
		_ = inW.Close()
		go func() {
			for range c.msgs {
			}
		}()
		if err := c.wait(); errors.Is(err, errStillRunning) {
			t.Errorf("server did not stop")
		}
	})
	return c
}

// wait returns Run's error once it has returned.
func (c *testClient) wait() error {
	c.once.Do(func() {
		select {
		case c.exitErr = <-c.done:
		case <-time.After(testTimeout):
			c.exitErr = errStillRunning
		}
	})
	return c.exitErr
}

func (c *testClient) writeRaw(payload []byte) {
	c.t.Helper()
	if err := writeMessage(c.in, payload); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *testClient) write(msg map[string]any) {
	c.t.Helper()
	msg["jsonrpc"] = "2.0"
	payload, err := json.Marshal(msg)
	if err != nil {
		c.t.Fatalf("marshal: %v", err)
	}
	c.writeRaw(payload)
}

func (c *testClient) request(method string, params any) int {
	c.t.Helper()
	c.nextID++
	msg := map[string]any{"id": c.nextID, "method": method}
	if params != nil {
		msg["params"] = params
	}
	c.write(msg)
	return c.nextID
}

func (c *testClient) notify(method string, params any) {
	c.t.Helper()
	msg := map[string]any{"method": method}
	if params != nil {
		msg["params"] = params
	}
	c.write(msg)
}

// next returns the first message matching match, keeping the others for
// later calls.
func (c *testClient) next(what string, match func(wireMessage) bool) wireMessage {
	c.t.Helper()
	for i, m := range c.backlog {
		if match(m) {
			c.backlog = append(c.backlog[:i], c.backlog[i+1:]...)
			return m
		}
	}
	timer := time.NewTimer(testTimeout)
	defer timer.Stop()
	for {
		select {
		case m, ok := <-c.msgs:
			if !ok {
				c.t.Fatalf("connection closed while waiting for %s", what)
			}
			if match(m) {
				return m
			}
			c.backlog = append(c.backlog, m)
		case <-timer.C:
			c.t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func (c *testClient) response(id int) wireMessage {
	c.t.Helper()
	key := strconv.Itoa(id)
	return c.next("response "+key, func(m wireMessage) bool {
		return m.Method == "" && string(m.ID) == key
	})
}

func (c *testClient) notification(method string) wireMessage {
	c.t.Helper()
	return c.next(method, func(m wireMessage) bool {
		return m.Method == method && len(m.ID) == 0
	})
}

func (c *testClient) publishedDiagnostics(uri string) publishDiagnosticsParams {
	c.t.Helper()
	for {
		m := c.notification("textDocument/publishDiagnostics")
		var p publishDiagnosticsParams
		if err := json.Unmarshal(m.Params, &p); err != nil {
			c.t.Fatalf("decode diagnostics: %v", err)
		}
		if p.URI == uri {
			return p
		}
	}
}

// expectSilence fails when a response for id arrives within d.
func (c *testClient) expectSilence(id int, d time.Duration) {
	c.t.Helper()
	key := strconv.Itoa(id)
	for _, m := range c.backlog {
		if string(m.ID) == key {
			c.t.Fatalf("unexpected response for %s", key)
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case m, ok := <-c.msgs:
			if !ok {
				return
			}
			if string(m.ID) == key {
				c.t.Fatalf("unexpected response for %s: %+v", key, m)
			}
			c.backlog = append(c.backlog, m)
		case <-timer.C:
			return
		}
	}
}

func (c *testClient) initialize() initializeResult {
	c.t.Helper()
	id := c.request("initialize", map[string]any{"capabilities": map[string]any{}})
	resp := c.response(id)
	if resp.Error != nil {
		c.t.Fatalf("initialize failed: %+v", resp.Error)
	}
	var res initializeResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		c.t.Fatalf("decode initialize result: %v", err)
	}
	c.notify("initialized", map[string]any{})
	return res
}

func (c *testClient) hover(uri string, line, char int) (hover, wireMessage) {
	c.t.Helper()
	id := c.request("textDocument/hover", map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"position":     map[string]any{"line": line, "character": char},
	})
	resp := c.response(id)
	if resp.Error != nil {
		c.t.Fatalf("hover failed: %+v", resp.Error)
	}
	var h hover
	if string(resp.Result) != "null" {
		if err := json.Unmarshal(resp.Result, &h); err != nil {
			c.t.Fatalf("decode hover: %v", err)
		}
	}
	return h, resp
}

func openParams(uri, text string, version int) map[string]any {
	return map[string]any{"textDocument": map[string]any{
		"uri": uri, "languageId": "xpl", "version": version, "text": text,
	}}
}

// gateVersion blocks analyses of version until the returned channel is
// closed.
func gateVersion(version int32) (chan struct{}, func(*Server)) {
	gate := make(chan struct{})
	return gate, func(s *Server) {
		analyze := s.sched.analyze
		s.sched.analyze = func(ctx context.Context, in analysis.Input) (*analysis.Snapshot, []diag.Diagnostic, error) {
			if in.Version == version {
				select {
				case <-gate:
				case <-ctx.Done():
					return nil, nil, ctx.Err()
				}
			}
			return analyze(ctx, in)
		}
	}
}

func TestServerLifecycle(t *testing.T) {
	c := startTestServer(t, testConfig(time.Second), nil)
	res := c.initialize()
	if !res.Capabilities.HoverProvider || res.Capabilities.TextDocumentSync.Change != 2 {
		t.Fatalf("unexpected capabilities: %+v", res.Capabilities)
	}
	if res.ServerInfo.Name != "xpl-ls" {
		t.Fatalf("unexpected server info: %+v", res.ServerInfo)
	}

	msg := c.notification("window/logMessage")
	var log logMessageParams
	if err := json.Unmarshal(msg.Params, &log); err != nil {
		t.Fatalf("decode log message: %v", err)
	}
	if log.Message != "xpl Language Server initialized" || log.Type != messageTypeInfo {
		t.Fatalf("unexpected log message: %+v", log)
	}

	resp := c.response(c.request("shutdown", nil))
	if resp.Error != nil || string(resp.Result) != "null" {
		t.Fatalf("unexpected shutdown response: %+v", resp)
	}
	late := c.response(c.request("textDocument/hover", map[string]any{}))
	if late.Error == nil || late.Error.Code != CodeInvalidRequest {
		t.Fatalf("expected InvalidRequest after shutdown, got %+v", late)
	}

	c.notify("exit", nil)
	if err := c.wait(); !errors.Is(err, ErrExit) {
		t.Fatalf("expected ErrExit, got %v", err)
	}
}

func TestServerExitWithoutShutdown(t *testing.T) {
	c := startTestServer(t, testConfig(time.Second), nil)
	c.initialize()
	c.notify("exit", nil)
	if err := c.wait(); !errors.Is(err, ErrExitWithoutShutdown) {
		t.Fatalf("expected ErrExitWithoutShutdown, got %v", err)
	}
}

func TestServerRejectsUnknownAndInvalidRequests(t *testing.T) {
	c := startTestServer(t, testConfig(time.Second), nil)
	c.initialize()

	unknown := c.response(c.request("xpl/unknown", map[string]any{}))
	if unknown.Error == nil || unknown.Error.Code != CodeMethodNotFound {
		t.Fatalf("expected MethodNotFound, got %+v", unknown)
	}

	// unknown notifications are ignored
	c.notify("xpl/ping", map[string]any{})

	missing := c.response(c.request("textDocument/hover", nil))
	if missing.Error == nil || missing.Error.Code != CodeInvalidParams {
		t.Fatalf("expected InvalidParams for missing params, got %+v", missing)
	}
	bad := c.response(c.request("textDocument/hover", []int{1}))
	if bad.Error == nil || bad.Error.Code != CodeInvalidParams {
		t.Fatalf("expected InvalidParams for bad params, got %+v", bad)
	}

	// malformed bodies are dropped without ending the session
	c.writeRaw([]byte("{not json"))
	resp := c.response(c.request("shutdown", nil))
	if resp.Error != nil {
		t.Fatalf("session should survive a malformed message: %+v", resp.Error)
	}
}

func TestServerHoverOnClosedDocumentIsEmpty(t *testing.T) {
	c := startTestServer(t, testConfig(time.Second), nil)
	c.initialize()
	_, resp := c.hover("file:///nowhere/missing.xpl", 0, 0)
	if string(resp.Result) != "null" || resp.Stale {
		t.Fatalf("expected null result, got %+v", resp)
	}
}

func TestServerTransportErrorEndsSession(t *testing.T) {
	c := startTestServer(t, testConfig(time.Second), nil)
	if _, err := io.WriteString(c.in, "Content-Length: nope\r\n\r\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := c.wait(); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestServerStaleAnswersWhileAnalysing(t *testing.T) {
	gate, setup := gateVersion(2)
	c := startTestServer(t, testConfig(200*time.Millisecond), setup)
	c.initialize()

	uri := source.PathToURI(filepath.Join(t.TempDir(), "foo.xpl"))
	c.notify("textDocument/didOpen", openParams(uri, "let x = 1", 1))
	pub := c.publishedDiagnostics(uri)
	if pub.Version == nil || *pub.Version != 1 {
		t.Fatalf("expected diagnostics for version 1, got %+v", pub)
	}

	h, resp := c.hover(uri, 0, 4)
	if resp.Stale || !strings.Contains(h.Contents.Value, "let x: int") {
		t.Fatalf("unexpected fresh hover: stale=%v %q", resp.Stale, h.Contents.Value)
	}

	c.notify("textDocument/didChange", map[string]any{
		"textDocument": map[string]any{"uri": uri, "version": 2},
		"contentChanges": []any{map[string]any{
			"range": map[string]any{
				"start": map[string]any{"line": 0, "character": 8},
				"end":   map[string]any{"line": 0, "character": 9},
			},
			"text": "2",
		}},
	})

	h, resp = c.hover(uri, 0, 4)
	if !resp.Stale || !strings.Contains(h.Contents.Value, "let x: int") {
		t.Fatalf("expected a stale hover from version 1: stale=%v %q", resp.Stale, h.Contents.Value)
	}

	fid := c.request("textDocument/formatting", map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"options":      map[string]any{"tabSize": 4, "insertSpaces": true},
	})
	fresp := c.response(fid)
	if fresp.Error == nil || fresp.Error.Code != CodeContentModified {
		t.Fatalf("expected ContentModified while stale, got %+v", fresp)
	}

	if text, version, _ := c.srv.store.Get(uri); text != "let x = 2" || version != 2 {
		t.Fatalf("unexpected store state %q@%d", text, version)
	}

	close(gate)
	pub = c.publishedDiagnostics(uri)
	if pub.Version == nil || *pub.Version != 2 {
		t.Fatalf("expected diagnostics for version 2, got %+v", pub)
	}
	if _, resp = c.hover(uri, 0, 4); resp.Stale {
		t.Fatalf("hover should be fresh once version 2 is analysed")
	}

	c.notify("textDocument/didClose", map[string]any{"textDocument": map[string]any{"uri": uri}})
	cleared := c.publishedDiagnostics(uri)
	if cleared.Version != nil || len(cleared.Diagnostics) != 0 {
		t.Fatalf("expected diagnostics to be cleared on close, got %+v", cleared)
	}
}

func TestServerCancelledRequestGetsNoResponse(t *testing.T) {
	gate, setup := gateVersion(1)
	defer close(gate)
	c := startTestServer(t, testConfig(time.Minute), setup)
	c.initialize()

	uri := source.PathToURI(filepath.Join(t.TempDir(), "wait.xpl"))
	c.notify("textDocument/didOpen", openParams(uri, "let x = 1", 1))

	id := c.request("textDocument/hover", map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"position":     map[string]any{"line": 0, "character": 4},
	})
	c.notify("$/cancelRequest", map[string]any{"id": id})

	resp := c.response(c.request("shutdown", nil))
	if resp.Error != nil {
		t.Fatalf("shutdown failed: %+v", resp.Error)
	}
	c.expectSilence(id, 200*time.Millisecond)

	if text, version, ok := c.srv.store.Get(uri); !ok || text != "let x = 1" || version != 1 {
		t.Fatalf("cancellation must not touch the document, got %q@%d", text, version)
	}
}

func TestServerBusyWorkersDoNotDelayEdits(t *testing.T) {
	gate, setup := gateVersion(2)
	defer close(gate)
	cfg := testConfig(time.Minute)
	cfg.Server.RequestWorkers = 1
	c := startTestServer(t, cfg, setup)
	c.initialize()

	uri := source.PathToURI(filepath.Join(t.TempDir(), "busy.xpl"))
	c.notify("textDocument/didOpen", openParams(uri, "let x = 1", 1))
	c.publishedDiagnostics(uri)
	c.notify("textDocument/didChange", map[string]any{
		"textDocument":   map[string]any{"uri": uri, "version": 2},
		"contentChanges": []any{map[string]any{"text": "let y = 2"}},
	})

	at := map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"position":     map[string]any{"line": 0, "character": 4},
	}
	// the only worker waits for version 2, the second request queues
	first := c.request("textDocument/hover", at)
	second := c.request("textDocument/hover", at)

	start := time.Now()
	c.notify("textDocument/didChange", map[string]any{
		"textDocument":   map[string]any{"uri": uri, "version": 3},
		"contentChanges": []any{map[string]any{"text": "let z = 3"}},
	})
	pub := c.publishedDiagnostics(uri)
	if pub.Version == nil || *pub.Version != 3 {
		t.Fatalf("expected diagnostics for version 3, got %+v", pub)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("edit waited %s behind busy workers", elapsed)
	}

	for _, id := range []int{first, second} {
		resp := c.response(id)
		var h hover
		if resp.Error != nil || json.Unmarshal(resp.Result, &h) != nil {
			t.Fatalf("request %d: unexpected response %+v", id, resp)
		}
		if resp.Stale || !strings.Contains(h.Contents.Value, "let z: int") {
			t.Fatalf("request %d: expected a fresh hover of version 3, got stale=%v %q", id, resp.Stale, h.Contents.Value)
		}
	}
}

func TestServerRecoversFromVersionGap(t *testing.T) {
	c := startTestServer(t, testConfig(time.Second), nil)
	c.initialize()

	uri := source.PathToURI(filepath.Join(t.TempDir(), "gap.xpl"))
	c.notify("textDocument/didOpen", openParams(uri, "let a = 1", 1))
	c.publishedDiagnostics(uri)

	// version 2 never arrived; a full-text change resynchronises
	c.notify("textDocument/didChange", map[string]any{
		"textDocument":   map[string]any{"uri": uri, "version": 3},
		"contentChanges": []any{map[string]any{"text": "let b = 2"}},
	})
	pub := c.publishedDiagnostics(uri)
	if pub.Version == nil || *pub.Version != 3 {
		t.Fatalf("expected diagnostics for version 3, got %+v", pub)
	}
	if text, version, _ := c.srv.store.Get(uri); text != "let b = 2" || version != 3 {
		t.Fatalf("unexpected store state %q@%d", text, version)
	}
}

func TestServerPullDiagnostics(t *testing.T) {
	c := startTestServer(t, testConfig(time.Second), nil)
	c.initialize()

	uri := source.PathToURI(filepath.Join(t.TempDir(), "pull.xpl"))
	c.notify("textDocument/didOpen", openParams(uri, "let x: int = \"no\"\n", 1))
	pushed := c.publishedDiagnostics(uri)

	id := c.request("textDocument/diagnostic", map[string]any{"textDocument": map[string]any{"uri": uri}})
	resp := c.response(id)
	if resp.Error != nil {
		t.Fatalf("diagnostic failed: %+v", resp.Error)
	}
	var report documentDiagnosticReport
	if err := json.Unmarshal(resp.Result, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Kind != "full" || report.ResultID != "1" {
		t.Fatalf("unexpected report header: %+v", report)
	}
	if len(report.Items) == 0 || len(report.Items) != len(pushed.Diagnostics) {
		t.Fatalf("pull and push disagree: %d vs %d", len(report.Items), len(pushed.Diagnostics))
	}
	var mismatch *lspDiagnostic
	for i := range report.Items {
		if report.Items[i].Code == "SEM4001" {
			mismatch = &report.Items[i]
		}
	}
	if mismatch == nil || mismatch.Severity != 1 || mismatch.Source != diagnosticSource {
		t.Fatalf("expected a type mismatch error, got %+v", report.Items)
	}
}

func TestServerInitializationOptions(t *testing.T) {
	c := startTestServer(t, testConfig(time.Second), nil)
	id := c.request("initialize", map[string]any{
		"capabilities":          map[string]any{},
		"initializationOptions": map[string]any{"xpl": map[string]any{"unusedWarnings": false}},
	})
	if resp := c.response(id); resp.Error != nil {
		t.Fatalf("initialize failed: %+v", resp.Error)
	}
	if c.srv.config().Diagnostics.Unused {
		t.Fatalf("initialization options should disable unused diagnostics")
	}
}
