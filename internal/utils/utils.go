package utils

import (
	"strings"
)

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeHTML экранирует пользовательский текст для parse_mode=HTML.
// Telegram требует экранировать только &, < и >.
func EscapeHTML(text string) string {
	return htmlReplacer.Replace(text)
}

// Truncate обрезает строку до limit рун, чтобы не раздувать логи
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
