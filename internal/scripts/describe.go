package scripts

import (
	"bufio"
	"io"
	"os"
	"strings"
)

const (
	// maxDescriptionChars caps extracted descriptions, ellipsis included.
	maxDescriptionChars = 500
	// maxDescriptionLines bounds how far into a file extraction reads.
	maxDescriptionLines = 50
)

// ExtractDescription reads the leading comment block of the script at path
// and returns it as a short description. Shebang lines and leading blanks
// are skipped, comment delimiters are stripped, and the result is capped at
// 500 characters on a word boundary. Unreadable files and files without a
// leading comment yield "".
func ExtractDescription(path string, lang Language) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	return descriptionFrom(f, lang)
}

func descriptionFrom(r io.Reader, lang Language) string {
	lines := leadingLines(r, maxDescriptionLines)

	i := 0
	if i < len(lines) && strings.HasPrefix(lines[i], "#!") {
		i++
	}
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) {
		return ""
	}

	body := ""
	first := strings.TrimSpace(lines[i])
	if open, close, ok := blockDelimiters(lang, first); ok {
		body = blockComment(lines[i:], open, close)
	} else {
		body = lineComments(lines[i:], lang)
	}
	return truncateAtWord(body, maxDescriptionChars)
}

func leadingLines(r io.Reader, n int) []string {
	var lines []string
	sc := bufio.NewScanner(r)
	for len(lines) < n && sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

// blockDelimiters reports the opening and closing markers when the first
// comment line starts a block comment in the given language.
func blockDelimiters(lang Language, first string) (string, string, bool) {
	switch lang {
	case LanguagePython:
		for _, q := range []string{`"""`, "'''"} {
			if strings.HasPrefix(first, q) {
				return q, q, true
			}
		}
	case LanguageJavaScript:
		if strings.HasPrefix(first, "/*") {
			return "/*", "*/", true
		}
	case LanguagePowerShell:
		if strings.HasPrefix(first, "<#") {
			return "<#", "#>", true
		}
	}
	return "", "", false
}

func blockComment(lines []string, open, close string) string {
	var out []string

	first := strings.TrimSpace(lines[0])
	rest := strings.TrimPrefix(first, open)
	if idx := strings.Index(rest, close); idx >= 0 {
		return strings.TrimSpace(rest[:idx])
	}
	if trimmed := strings.TrimSpace(rest); trimmed != "" {
		out = append(out, trimmed)
	}

	for _, line := range lines[1:] {
		trimmed := strings.TrimSpace(line)
		if idx := strings.Index(trimmed, close); idx >= 0 {
			if head := strings.TrimSpace(trimmed[:idx]); head != "" {
				out = append(out, head)
			}
			break
		}
		out = append(out, strings.TrimLeft(trimmed, "* "))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// lineComments accumulates consecutive comment lines. Blank lines inside the
// block are kept as paragraph breaks; the first non-comment, non-blank line
// ends the block.
func lineComments(lines []string, lang Language) string {
	var out []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			out = append(out, "")
			continue
		}
		text, ok := stripCommentPrefix(trimmed, lang)
		if !ok {
			break
		}
		out = append(out, text)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func stripCommentPrefix(line string, lang Language) (string, bool) {
	switch lang {
	case LanguagePython, LanguageShell, LanguageRuby, LanguagePerl, LanguagePowerShell:
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "#")), true
		}
	case LanguageJavaScript:
		if strings.HasPrefix(line, "//") {
			return strings.TrimSpace(strings.TrimLeft(line, "/")), true
		}
	case LanguageBatch:
		if strings.HasPrefix(line, "::") {
			return strings.TrimSpace(strings.TrimLeft(line, ":")), true
		}
		if len(line) >= 3 && strings.EqualFold(line[:3], "rem") {
			if len(line) == 3 {
				return "", true
			}
			if line[3] == ' ' || line[3] == '\t' {
				return strings.TrimSpace(line[3:]), true
			}
		}
	}
	return "", false
}

// truncateAtWord caps s at max characters counting a trailing ellipsis,
// cutting back to the previous word boundary when one exists.
func truncateAtWord(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	const ellipsis = "..."
	cut := string(runes[:max-len(ellipsis)])
	if idx := strings.LastIndexAny(cut, " \t\n"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + ellipsis
}
