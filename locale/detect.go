package locale

import (
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// Code language detection for literal blocks. Follows the selection rules of
// the host toolchain's highlighter: python-like tags get a syntax sniff to
// tell interactive sessions from scripts, "guess" defers to lexer analysis.

// LangGuess is the pseudo language requesting detection by content.
const LangGuess = "guess"

// ForBlock selects the highlight language for a literal block. lang is the
// explicit or inherited language tag, source the block content. An empty
// result means the language stays unknown and the block is rendered plain.
func ForBlock(source, lang string) string {
	switch lang {
	case "py", "python":
		if strings.HasPrefix(source, ">>>") {
			// interactive session
			return "pycon"
		}
		if looksLikePython(source) {
			return "python"
		}
		return ForBlock(source, LangGuess)
	case "py3", "python3":
		if strings.HasPrefix(source, ">>>") {
			return "pycon3"
		}
		return lang
	case LangGuess:
		return analyse(source)
	default:
		return lang
	}
}

// analyse asks chroma to score the content against its lexers, the Go
// counterpart of pygments' guess_lexer.
func analyse(source string) string {
	lexer := lexers.Analyse(source)
	if lexer == nil {
		return ""
	}
	cfg := lexer.Config()
	if len(cfg.Aliases) > 0 {
		return cfg.Aliases[0]
	}
	return strings.ToLower(cfg.Name)
}

// looksLikePython is a lightweight syntax sniff, not a parser. It accepts
// content whose non-empty lines fit common python statement shapes.
func looksLikePython(source string) bool {
	lines := strings.Split(source, "\n")
	score, total := 0, 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		total++
		switch {
		case strings.HasPrefix(trimmed, "#"):
			score++
		case strings.HasPrefix(trimmed, "def ") ||
			strings.HasPrefix(trimmed, "class ") ||
			strings.HasPrefix(trimmed, "import ") ||
			strings.HasPrefix(trimmed, "from ") ||
			strings.HasPrefix(trimmed, "return") ||
			strings.HasPrefix(trimmed, "if ") ||
			strings.HasPrefix(trimmed, "for ") ||
			strings.HasPrefix(trimmed, "while ") ||
			strings.HasPrefix(trimmed, "with ") ||
			strings.HasPrefix(trimmed, "try:") ||
			strings.HasPrefix(trimmed, "except") ||
			strings.HasPrefix(trimmed, "elif ") ||
			strings.HasPrefix(trimmed, "else:") ||
			strings.HasPrefix(trimmed, "pass") ||
			strings.HasPrefix(trimmed, "raise ") ||
			strings.HasPrefix(trimmed, "...") ||
			strings.HasPrefix(trimmed, "@"):
			score++
		case strings.HasSuffix(trimmed, ":"):
			score++
		case strings.Contains(trimmed, " = ") && !strings.Contains(trimmed, ";"):
			score++
		case strings.Contains(trimmed, ";") || strings.Contains(trimmed, "{") || strings.Contains(trimmed, "}"):
			// statement separators and braces point away from python
			score--
		}
	}
	if total == 0 {
		return false
	}
	return score*2 >= total
}
