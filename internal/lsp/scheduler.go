package lsp

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"xpl/internal/analysis"
	"xpl/internal/diag"
	"xpl/internal/document"
	"xpl/internal/metrics"
	"xpl/internal/source"
)

// analyzeFunc turns one document version into a snapshot plus its
// diagnostics.
type analyzeFunc func(ctx context.Context, in analysis.Input) (*analysis.Snapshot, []diag.Diagnostic, error)

// publishFunc sends diagnostics for uri. A nil version clears them.
type publishFunc func(uri string, version *int32, diags []diag.Diagnostic, file *source.File)

// result is what readers get for a document: the snapshot and the
// diagnostics computed from it.
type result struct {
	snap  *analysis.Snapshot
	diags []diag.Diagnostic
}

// docState is the scheduler's view of one open document.
type docState struct {
	// version is the store version the scheduler last heard of.
	version int32
	// gen is bumped when the document must be re-analysed at the same
	// version because something it includes changed.
	gen    uint64
	window *source.Window

	current    result
	currentGen uint64

	// ready is closed once current catches up with version, or when the
	// version it was made for is superseded.
	ready       chan struct{}
	readyClosed bool

	cancel context.CancelFunc
	timer  *time.Timer

	published    int32
	publishedGen uint64
}

// scheduler keeps at most one analysis in flight per document. A newer
// change cancels the running one; results are applied only for the
// version the store still holds.
type scheduler struct {
	store    *document.Store
	analyze  analyzeFunc
	publish  publishFunc
	debounce func() time.Duration
	trace    func() bool
	logger   *zap.Logger
	metrics  *metrics.Recorder

	baseCtx context.Context

	mu      sync.Mutex
	docs    map[string]*docState
	stopped bool

	// publishMu orders the "may publish" check with the send itself
	publishMu sync.Mutex
	wg        sync.WaitGroup
}

func newScheduler(ctx context.Context, store *document.Store, analyze analyzeFunc, publish publishFunc) *scheduler {
	return &scheduler{
		store:    store,
		analyze:  analyze,
		publish:  publish,
		debounce: func() time.Duration { return 0 },
		trace:    func() bool { return false },
		logger:   zap.NewNop(),
		baseCtx:  ctx,
		docs:     make(map[string]*docState),
	}
}

// onChange is the document store listener. It runs with the store's
// emit lock held and must not call back into the store's mutators.
func (sc *scheduler) onChange(c document.Change) {
	switch c.Kind {
	case document.ChangeOpen:
		sc.opened(c.URI, c.Version)
	case document.ChangeEdit:
		sc.edited(c.URI, c.Version, c.Window)
	case document.ChangeClose:
		sc.closed(c.URI)
	}
}

func (sc *scheduler) opened(uri string, version int32) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if old, ok := sc.docs[uri]; ok {
		// reopened without a close
		sc.stopLocked(old)
		sc.wakeLocked(old)
	}
	st := &docState{version: version, ready: make(chan struct{}), published: -1}
	sc.docs[uri] = st
	sc.scheduleLocked(uri, st, 0)
}

func (sc *scheduler) edited(uri string, version int32, window *source.Window) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	st, ok := sc.docs[uri]
	if !ok {
		return
	}
	sc.stopLocked(st)
	// waiters for the old version loop and wait for the new one
	sc.wakeLocked(st)
	st.version = version
	st.window = window
	st.ready = make(chan struct{})
	st.readyClosed = false
	sc.scheduleLocked(uri, st, sc.debounce())
}

func (sc *scheduler) closed(uri string) {
	sc.publishMu.Lock()
	defer sc.publishMu.Unlock()
	sc.mu.Lock()
	st, ok := sc.docs[uri]
	if ok {
		sc.stopLocked(st)
		sc.wakeLocked(st)
		delete(sc.docs, uri)
	}
	sc.mu.Unlock()
	if ok && st.published >= 0 {
		sc.publish(uri, nil, nil, nil)
	}
}

// refresh re-analyses the open documents that include any of changed.
func (sc *scheduler) refresh(changed ...string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for uri, st := range sc.docs {
		if slices.Contains(changed, uri) {
			continue
		}
		deps := st.current.snap.Dependencies()
		if !slices.ContainsFunc(changed, func(c string) bool { return slices.Contains(deps, c) }) {
			continue
		}
		sc.reanalyzeLocked(uri, st)
	}
}

// refreshAll re-analyses every open document, e.g. after a settings change.
func (sc *scheduler) refreshAll() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for uri, st := range sc.docs {
		sc.reanalyzeLocked(uri, st)
	}
}

func (sc *scheduler) reanalyzeLocked(uri string, st *docState) {
	sc.stopLocked(st)
	st.gen++
	// same text, so there is no edit window to reuse
	st.window = nil
	sc.traceEvent("analysis refresh", zap.String("uri", uri), zap.Int32("version", st.version), zap.Uint64("gen", st.gen))
	sc.scheduleLocked(uri, st, sc.debounce())
}

func (sc *scheduler) scheduleLocked(uri string, st *docState, delay time.Duration) {
	version, gen := st.version, st.gen
	st.timer = time.AfterFunc(delay, func() { sc.run(uri, version, gen) })
}

func (sc *scheduler) stopLocked(st *docState) {
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
}

func (sc *scheduler) wakeLocked(st *docState) {
	if !st.readyClosed {
		close(st.ready)
		st.readyClosed = true
	}
}

func (sc *scheduler) run(uri string, version int32, gen uint64) {
	sc.mu.Lock()
	st, ok := sc.docs[uri]
	if sc.stopped || !ok || st.version != version || st.gen != gen {
		sc.mu.Unlock()
		return
	}
	sc.wg.Add(1)
	defer sc.wg.Done()
	ctx, cancel := context.WithCancel(sc.baseCtx)
	st.cancel = cancel
	prev, window := st.current.snap, st.window
	sc.mu.Unlock()
	defer cancel()

	text, storeVersion, ok := sc.store.Get(uri)
	if !ok || storeVersion != version {
		return
	}
	start := time.Now()
	sc.traceEvent("analysis start", zap.String("uri", uri), zap.Int32("version", version), zap.Uint64("gen", gen))
	snap, diags, err := sc.analyze(ctx, analysis.Input{URI: uri, Version: version, Text: text, Prev: prev, Change: window})
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			sc.metrics.Analysis(metrics.OutcomeSuperseded, elapsed, 0)
			sc.traceEvent("analysis discard", zap.String("uri", uri), zap.Int32("version", version), zap.String("reason", "cancelled"))
			return
		}
		sc.metrics.Analysis(metrics.OutcomeFailed, elapsed, 0)
		sc.logger.Warn("analysis failed", zap.String("uri", uri), zap.Int32("version", version), zap.Error(err))
		return
	}
	sc.traceEvent("analysis done",
		zap.String("uri", uri),
		zap.Int32("version", version),
		zap.Duration("elapsed", elapsed),
		zap.Int("reused", snap.Reused),
		zap.Int("diagnostics", len(diags)))
	if sc.apply(uri, version, gen, snap, diags) {
		sc.metrics.Analysis(metrics.OutcomeCompleted, elapsed, snap.Reused)
	} else {
		sc.metrics.Analysis(metrics.OutcomeSuperseded, elapsed, 0)
	}
}

// apply installs a finished analysis and publishes its diagnostics. A
// result is dropped when the document moved on; a version is published at
// most once per generation, never after a newer one and never once the
// store accepted a newer one.
func (sc *scheduler) apply(uri string, version int32, gen uint64, snap *analysis.Snapshot, diags []diag.Diagnostic) bool {
	// the store cannot move past version until the send below is done
	release := sc.store.Hold()
	defer release()
	sc.publishMu.Lock()
	defer sc.publishMu.Unlock()

	sc.mu.Lock()
	st, ok := sc.docs[uri]
	_, storeVersion, open := sc.store.Get(uri)
	if !ok || !open || st.version != version || st.gen != gen || storeVersion != version {
		sc.mu.Unlock()
		sc.traceEvent("analysis discard", zap.String("uri", uri), zap.Int32("version", version), zap.String("reason", "superseded"))
		return false
	}
	st.current = result{snap: snap, diags: diags}
	st.currentGen = gen
	st.cancel = nil
	sc.wakeLocked(st)
	publish := version > st.published || (version == st.published && gen > st.publishedGen)
	if publish {
		st.published = version
		st.publishedGen = gen
	}
	sc.mu.Unlock()

	sc.traceEvent("analysis apply", zap.String("uri", uri), zap.Int32("version", version), zap.Uint64("gen", gen))
	if publish {
		v := version
		sc.publish(uri, &v, diags, snap.File)
		sc.metrics.Published(len(diags))
		sc.traceEvent("diagnostics publish", zap.String("uri", uri), zap.Int32("version", version), zap.Int("count", len(diags)))
	}
	return true
}

// acquire returns the analysis of uri's current version, waiting at most
// timeout for it. On timeout it returns the newest older analysis and
// stale=true; the snapshot is nil when none finished yet.
func (sc *scheduler) acquire(ctx context.Context, uri string, timeout time.Duration) (result, bool, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		sc.mu.Lock()
		st, ok := sc.docs[uri]
		if !ok {
			sc.mu.Unlock()
			return result{}, false, document.ErrNotOpen
		}
		cur := st.current
		if cur.snap != nil && cur.snap.Version == st.version {
			sc.mu.Unlock()
			return cur, false, nil
		}
		ready := st.ready
		sc.mu.Unlock()

		select {
		case <-ready:
		case <-deadline.C:
			return cur, true, nil
		case <-ctx.Done():
			return result{}, false, ctx.Err()
		}
	}
}

// openURIs lists the documents the scheduler tracks.
func (sc *scheduler) openURIs() []string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make([]string, 0, len(sc.docs))
	for uri := range sc.docs {
		out = append(out, uri)
	}
	slices.Sort(out)
	return out
}

// stop cancels all pending work and waits for running analyses.
func (sc *scheduler) stop() {
	sc.mu.Lock()
	sc.stopped = true
	for _, st := range sc.docs {
		sc.stopLocked(st)
		sc.wakeLocked(st)
	}
	sc.mu.Unlock()
	sc.wg.Wait()
}

func (sc *scheduler) traceEvent(msg string, fields ...zap.Field) {
	if sc.trace() {
		sc.logger.Info(msg, fields...)
		return
	}
	sc.logger.Debug(msg, fields...)
}
