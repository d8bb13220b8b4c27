package diagfmt

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"xpl/internal/diag"
	"xpl/internal/source"
)

const tabWidth = 4

type palette struct {
	err, warn, info, note, path, gutter, caret *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgBlue, color.Bold),
		note:   color.New(color.FgCyan),
		path:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.path, p.gutter, p.caret} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем строку исходника с подчёркиванием ^~~~ по Span и Notes.
func Pretty(w io.Writer, units []Unit, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for _, u := range units {
		for _, d := range u.Diagnostics {
			prettyOne(w, u, d, opts, p)
		}
	}
}

func prettyOne(w io.Writer, u Unit, d diag.Diagnostic, opts PrettyOpts, p palette) {
	path := formatPath(u.Path, opts.PathMode, opts.BaseDir)
	fmt.Fprintf(w, "%s: %s %s: %s\n",
		p.path.Sprint(location(path, u.File, d.Primary)),
		p.severity(d.Severity).Sprint(d.Severity.String()),
		d.Code.ID(),
		d.Message)
	if u.File != nil && u.File.Len() > 0 {
		writeSnippet(w, u.File, d.Primary, int(opts.Context), p)
	}
	if !opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		nPath := formatPath(notePath(u, n.URI), opts.PathMode, opts.BaseDir)
		fmt.Fprintf(w, "  %s %s: %s\n",
			p.note.Sprint("note:"),
			location(nPath, noteFile(u, n.URI, opts.Lookup), n.Span),
			n.Msg)
	}
}

// location renders path:line:col with one-based line and rune column.
func location(path string, f *source.File, sp source.Span) string {
	if f == nil {
		return path
	}
	line, col := lineCol(f, sp.Start)
	return fmt.Sprintf("%s:%d:%d", path, line+1, col+1)
}

func lineCol(f *source.File, off uint32) (line, col int) {
	line = f.Position(off).Line
	start, _, _ := f.LineBounds(line)
	if off < start {
		return line, 0
	}
	return line, utf8.RuneCount(f.Content[start:off])
}

func writeSnippet(w io.Writer, f *source.File, sp source.Span, context int, p palette) {
	line, _ := lineCol(f, sp.Start)
	first := max(line-context, 0)
	last := min(line+context, f.LineCount()-1)
	gutterWidth := len(fmt.Sprint(last + 1))

	for l := first; l <= last; l++ {
		text := expandTabs(strings.TrimRight(f.Line(l), "\r"))
		fmt.Fprintf(w, "%s %s\n", p.gutter.Sprintf("%*d |", gutterWidth, l+1), text)
		if l != line {
			continue
		}
		start, end, _ := f.LineBounds(l)
		from := min(max(sp.Start, start), end)
		to := min(max(sp.End, from), end)
		pad := runewidth.StringWidth(expandTabs(string(f.Content[start:from])))
		width := runewidth.StringWidth(expandTabs(string(f.Content[from:to])))
		marker := "^"
		if width > 1 {
			marker += strings.Repeat("~", width-1)
		}
		fmt.Fprintf(w, "%s %s%s\n",
			p.gutter.Sprintf("%*s |", gutterWidth, ""),
			strings.Repeat(" ", pad),
			p.caret.Sprint(marker))
	}
}

func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

// Counts tallies diagnostics by severity.
type Counts struct {
	Errors   int
	Warnings int
	Files    int
}

func Count(units []Unit) Counts {
	var c Counts
	for _, u := range units {
		c.Files++
		for _, d := range u.Diagnostics {
			switch d.Severity {
			case diag.SevError:
				c.Errors++
			case diag.SevWarning:
				c.Warnings++
			}
		}
	}
	return c
}

// Summary prints the closing line of a pretty report.
func Summary(w io.Writer, c Counts, colorize bool) {
	p := newPalette(colorize)
	if c.Errors == 0 && c.Warnings == 0 {
		fmt.Fprintf(w, "checked %s, no problems\n", plural(c.Files, "file"))
		return
	}
	parts := make([]string, 0, 2)
	if c.Errors > 0 {
		parts = append(parts, p.err.Sprint(plural(c.Errors, "error")))
	}
	if c.Warnings > 0 {
		parts = append(parts, p.warn.Sprint(plural(c.Warnings, "warning")))
	}
	fmt.Fprintf(w, "%s in %s\n", strings.Join(parts, ", "), plural(c.Files, "file"))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
