// Package check runs the analyzer and the diagnostics engine over files on
// disk, the batch counterpart of the language server.
package check

import (
	"context"
	"crypto/sha256"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"xpl/internal/analysis"
	"xpl/internal/cache"
	"xpl/internal/diag"
	"xpl/internal/diagnose"
	"xpl/internal/source"
)

// Request describes one batch check.
type Request struct {
	// Paths are files or directories; directories are walked for *.xpl.
	Paths []string
	// Root is the workspace root used as the fallback include directory.
	Root string
	// Jobs limits the number of files checked at once. Zero means GOMAXPROCS.
	Jobs int
	// Cache, when set, serves unchanged files without re-analysis.
	Cache          *cache.DiskCache
	Progress       ProgressSink
	ReportUnused   bool
	MaxDiagnostics int
	Logger         *zap.Logger
}

// Result holds the diagnostics of one file.
type Result struct {
	Path        string
	File        *source.File
	Diagnostics []diag.Diagnostic
	Cached      bool
	Elapsed     time.Duration
}

// HasErrors reports whether any diagnostic is an error.
func (r Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity.AtLeast(diag.SevError) {
			return true
		}
	}
	return false
}

// Run checks every file named by req and returns the results sorted by
// path. Unreadable files yield an I/O diagnostic; only cancellation and bad
// input paths fail the run.
func Run(ctx context.Context, req Request) ([]Result, error) {
	files, err := Expand(req.Paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	logger := req.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &checker{
		req:    req,
		logger: logger,
		analyzer: &analysis.Analyzer{
			Includes:     &analysis.Loader{Root: req.Root},
			ReportUnused: req.ReportUnused,
			Logger:       logger,
		},
		engine: diagnose.NewEngine(req.MaxDiagnostics, logger),
	}
	for _, path := range files {
		c.emit(Event{File: path, Stage: StageParse, Status: StatusQueued})
	}

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// each goroutine writes only its own index
	results := make([]Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		g.Go(func() error {
			res, err := c.file(gctx, path)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type checker struct {
	req      Request
	logger   *zap.Logger
	analyzer *analysis.Analyzer
	engine   *diagnose.Engine
}

func (c *checker) emit(evt Event) {
	if c.req.Progress != nil {
		c.req.Progress.OnEvent(evt)
	}
}

func (c *checker) file(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	res := Result{Path: path}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	c.emit(Event{File: path, Stage: StageParse, Status: StatusWorking})

	uri := source.PathToURI(path)
	// #nosec G304 -- path comes from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		res.File = source.NewFile(uri, "")
		res.Diagnostics = []diag.Diagnostic{
			diag.NewError(diag.IOLoadFileError, source.Span{}, "failed to load file: "+err.Error()),
		}
		res.Elapsed = time.Since(start)
		c.emit(Event{File: path, Stage: StageParse, Status: StatusError, Err: err, Elapsed: res.Elapsed})
		return res, nil
	}
	data = source.StripBOM(data)
	res.File = source.NewFile(uri, string(data))

	var key cache.Digest
	if c.req.Cache != nil {
		key = cache.Key(data, c.req.ReportUnused)
		if diags, ok := c.fromCache(key, path); ok {
			res.Diagnostics = diags
			res.Cached = true
			res.Elapsed = time.Since(start)
			c.emit(Event{File: path, Stage: StageDiagnose, Status: StatusCached, Elapsed: res.Elapsed})
			return res, nil
		}
	}

	snap, err := c.analyzer.Analyze(ctx, analysis.Input{URI: uri, Version: 1, Text: string(data)})
	if err != nil {
		c.emit(Event{File: path, Stage: StageParse, Status: StatusError, Err: err, Elapsed: time.Since(start)})
		return res, err
	}
	c.emit(Event{File: path, Stage: StageParse, Status: StatusDone, Elapsed: time.Since(start)})

	diagStart := time.Now()
	c.emit(Event{File: path, Stage: StageDiagnose, Status: StatusWorking})
	diags, err := c.engine.Run(ctx, snap)
	if err != nil {
		c.emit(Event{File: path, Stage: StageDiagnose, Status: StatusError, Err: err, Elapsed: time.Since(diagStart)})
		return res, err
	}
	res.File = snap.File
	res.Diagnostics = diags
	res.Elapsed = time.Since(start)
	c.emit(Event{File: path, Stage: StageDiagnose, Status: StatusDone, Elapsed: time.Since(diagStart)})

	if c.req.Cache != nil {
		c.store(key, path, snap, diags)
	}
	return res, nil
}

func (c *checker) fromCache(key cache.Digest, path string) ([]diag.Diagnostic, bool) {
	var payload cache.Payload
	ok, err := c.req.Cache.Get(key, &payload)
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("path", path), zap.Error(err))
		return nil, false
	}
	if !ok || payload.Path != path || payload.Limit != c.req.MaxDiagnostics {
		return nil, false
	}
	if !payload.Fresh(os.ReadFile) {
		return nil, false
	}
	return cache.ToDiagnostics(payload.Diagnostics), true
}

func (c *checker) store(key cache.Digest, path string, snap *analysis.Snapshot, diags []diag.Diagnostic) {
	payload := &cache.Payload{
		Path:        path,
		Limit:       c.req.MaxDiagnostics,
		Diagnostics: cache.FromDiagnostics(diags),
	}
	for _, uri := range snap.Dependencies() {
		depPath := source.URIToPath(uri)
		// #nosec G304 -- include targets were already read by the loader
		data, err := os.ReadFile(depPath)
		if err != nil {
			// dependency vanished, skip caching
			return
		}
		payload.Deps = append(payload.Deps, cache.Dep{
			Path: depPath,
			Hash: cache.Digest(sha256.Sum256(source.StripBOM(data))),
		})
	}
	if err := c.req.Cache.Put(key, payload); err != nil {
		c.logger.Warn("cache write failed", zap.String("path", path), zap.Error(err))
	}
}
