package token

import (
	"strings"

	"xpl/internal/source"
)

type TriviaKind uint8

const (
	TriviaSpace TriviaKind = iota
	TriviaNewline
	TriviaLineComment
	TriviaDocLine // "##"
)

func (k TriviaKind) String() string {
	switch k {
	case TriviaSpace:
		return "Space"
	case TriviaNewline:
		return "Newline"
	case TriviaLineComment:
		return "LineComment"
	case TriviaDocLine:
		return "DocLine"
	}
	return "Trivia(?)"
}

type Trivia struct {
	Kind TriviaKind
	Span source.Span
	Text string
}

// DocComment joins the doc lines that directly precede a token. A blank line
// or an ordinary comment between doc lines starts a new block.
func DocComment(leading []Trivia) string {
	var lines []string
	newlines := 0
	for _, tr := range leading {
		switch tr.Kind {
		case TriviaDocLine:
			if newlines > 1 {
				lines = lines[:0]
			}
			lines = append(lines, docText(tr.Text))
			newlines = 0
		case TriviaNewline:
			newlines++
		case TriviaLineComment:
			lines = lines[:0]
			newlines = 0
		}
	}
	if newlines > 1 {
		return ""
	}
	return strings.Join(lines, "\n")
}

func docText(raw string) string {
	s := strings.TrimPrefix(strings.TrimRight(raw, "\r"), "##")
	return strings.TrimPrefix(s, " ")
}
