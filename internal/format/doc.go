// Package format rewrites xpl source into its canonical layout.
//
// Назначение: нормализация отступов и пробелов поверх потока токенов.
// Не делает: переноса строк; разбиение на строки остаётся авторским.
// Зависимости: internal/lexer, internal/parser, internal/token.
package format
