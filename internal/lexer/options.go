package lexer

import (
	"xpl/internal/source"
)

// Reporter receives lexical problems. The lexer itself never stops on them;
// the offending bytes become an Invalid token.
type Reporter interface {
	Report(span source.Span, msg string)
}

type Options struct {
	Reporter Reporter // may be nil
}

func (lx *Lexer) report(sp source.Span, msg string) {
	if lx.opts.Reporter != nil {
		lx.opts.Reporter.Report(sp, msg)
	}
}
