package diagnose

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"xpl/internal/analysis"
	"xpl/internal/ast"
	"xpl/internal/diag"
)

// PassFunc reports the diagnostics of one pass over a snapshot.
type PassFunc func(ctx context.Context, snap *analysis.Snapshot, rep diag.Reporter) error

// Pass is one named diagnostics producer.
type Pass struct {
	Name string
	// SkipIfErrors skips the pass when the document has syntax errors.
	SkipIfErrors bool
	Run          PassFunc
}

// Engine runs passes over snapshots. The zero value has no passes; use
// NewEngine for the standard pipeline.
type Engine struct {
	Passes         []Pass
	MaxDiagnostics int
	Logger         *zap.Logger
}

// DefaultPasses returns the syntax, resolve and semantic passes in order.
func DefaultPasses() []Pass {
	return []Pass{
		{Name: "syntax", Run: SyntaxPass},
		{Name: "resolve", Run: ResolvePass},
		{Name: "semantic", SkipIfErrors: true, Run: SemanticPass},
	}
}

func NewEngine(maxDiagnostics int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{Passes: DefaultPasses(), MaxDiagnostics: maxDiagnostics, Logger: logger}
}

// Run executes every pass and returns the merged diagnostics: deduplicated,
// ordered by start offset (ties keep pass order) and capped. A failing pass
// contributes nothing; only cancellation fails the run.
func (e *Engine) Run(ctx context.Context, snap *analysis.Snapshot) ([]diag.Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	syntaxErrors := len(ast.Errors(snap.Tree)) > 0

	// each pass writes only its own slot
	slots := make([][]diag.Diagnostic, len(e.Passes))
	var g errgroup.Group
	for i, pass := range e.Passes {
		if pass.Run == nil || (pass.SkipIfErrors && syntaxErrors) {
			continue
		}
		g.Go(func() error {
			out, err := runPass(ctx, pass, snap)
			if err != nil {
				logger.Warn("diagnostics pass failed",
					zap.String("pass", pass.Name),
					zap.String("uri", snap.URI),
					zap.Int32("version", snap.Version),
					zap.Error(err))
				return nil
			}
			slots[i] = out
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bag := diag.NewBag(0)
	rep := diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	for _, out := range slots {
		for _, d := range out {
			rep.Report(d)
		}
	}
	bag.Sort()
	if e.MaxDiagnostics > 0 {
		bag.Truncate(e.MaxDiagnostics)
	}
	return bag.Items(), nil
}

// runPass isolates one pass: a panic is turned into an error and partial
// output is dropped.
func runPass(ctx context.Context, pass Pass, snap *analysis.Snapshot) (out []diag.Diagnostic, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("panic in %s pass: %v", pass.Name, r)
		}
	}()
	collect := diag.ReportFunc(func(d diag.Diagnostic) { out = append(out, d) })
	if err := pass.Run(ctx, snap, diag.SourceReporter{Source: pass.Name, Next: collect}); err != nil {
		return nil, err
	}
	return out, nil
}
