package analysis

import (
	"context"

	"go.uber.org/zap"

	"xpl/internal/ast"
	"xpl/internal/lexer"
	"xpl/internal/parser"
	"xpl/internal/source"
	"xpl/internal/symbols"
)

// Input describes one analysis request.
type Input struct {
	URI     string
	Version int32
	Text    string
	// Prev is the snapshot of an earlier version, if any.
	Prev *Snapshot
	// Change is the window in which Prev's text and Text differ. Without it
	// the document is parsed from scratch.
	Change *source.Window
}

// Analyzer turns document text into snapshots. It is safe for concurrent use.
type Analyzer struct {
	Includes     *Loader
	ReportUnused bool
	Logger       *zap.Logger
}

// Analyze lexes, parses and resolves one document version. Malformed input
// never fails the analysis; only a cancelled ctx does.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file := source.NewFile(in.URI, in.Text)
	toks := lexer.Tokenize(file, lexer.Options{})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var res parser.Result
	if w, ok := reusableWindow(in, file); ok {
		res = parser.ParseIncremental(toks, in.Prev.Tree, w)
	} else {
		res = parser.Parse(toks)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var includes []symbols.Include
	if a.Includes != nil {
		var err error
		includes, err = a.Includes.Resolve(ctx, in.URI, res.File)
		if err != nil {
			return nil, err
		}
	} else {
		includes = unresolvedIncludes(res.File)
	}
	table := symbols.Resolve(res.File, symbols.Options{
		URI:          in.URI,
		File:         file,
		Includes:     includes,
		ReportUnused: a.ReportUnused,
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if a.Logger != nil {
		a.Logger.Debug("analysis done",
			zap.String("uri", in.URI),
			zap.Int32("version", in.Version),
			zap.Int("items", len(res.File.Items)),
			zap.Int("reused", res.Reused))
	}
	return &Snapshot{
		URI:      in.URI,
		Version:  in.Version,
		File:     file,
		Tokens:   toks,
		Tree:     res.File,
		Symbols:  table,
		Includes: includes,
		Reused:   res.Reused,
	}, nil
}

// reusableWindow reports whether the previous tree may seed the parse: the
// versions must be adjacent and the window must describe the two texts.
func reusableWindow(in Input, file *source.File) (source.Window, bool) {
	prev := in.Prev
	if prev == nil || prev.Tree == nil || prev.File == nil || in.Change == nil {
		return source.Window{}, false
	}
	if prev.Version != in.Version-1 || prev.URI != in.URI {
		return source.Window{}, false
	}
	w := *in.Change
	if w.Start > w.OldEnd || w.OldEnd > prev.File.Len() || w.Start > w.NewEnd || w.NewEnd > file.Len() {
		return source.Window{}, false
	}
	if int(prev.File.Len())+w.Delta() != int(file.Len()) {
		return source.Window{}, false
	}
	return w, true
}

func unresolvedIncludes(tree *ast.File) []symbols.Include {
	var out []symbols.Include
	for _, it := range tree.Items {
		if it.Node.Kind == ast.KindInclude && it.Node.Text != "" {
			out = append(out, symbols.Include{Node: it.Node, Err: symbols.ErrIncludeNotFound})
		}
	}
	return out
}
