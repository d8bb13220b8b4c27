// Package token defines lexical token kinds and trivia for xpl sources.
// Invariants:
//   - Token.Text is the exact source slice covered by Token.Span.
//   - Comments and whitespace never appear in the main token stream; they are
//     attached to the following token as leading Trivia.
//   - No token spans a newline, so lexing can restart at any token boundary.
//   - Built-in type names (int, str, bool) are identifiers.
package token
