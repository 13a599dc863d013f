// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import (
	"regexp"
	"strings"
)

var (
	thinkBlockRe    = regexp.MustCompile(`(?is)<think>.*?</think>`)
	fencedBlockRe   = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*[ \t]*\\n?(.*?)```")
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// StripThinking removes <think>...</think> reasoning blocks some models emit before the answer.
// An unterminated block drops everything up to the end of the text.
func StripThinking(text string) string {
	text = thinkBlockRe.ReplaceAllString(text, "")
	if idx := strings.Index(strings.ToLower(text), "<think>"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// CleanJSONBlock extracts the JSON payload from a model response.
// LLMs often wrap JSON in ```json ... ``` blocks or surround it with prose even when instructed not to.
// The last fenced block wins; otherwise the first balanced object or array is returned.
func CleanJSONBlock(text string) string {
	text = StripThinking(text)

	if matches := fencedBlockRe.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		text = strings.TrimSpace(matches[len(matches)-1][1])
	}

	if text == "" || text[0] == '{' || text[0] == '[' {
		if extracted := extractJSON(text); extracted != "" {
			return extracted
		}
		return text
	}

	objIdx := strings.Index(text, "{")
	arrIdx := strings.Index(text, "[")
	start := objIdx
	if start < 0 || (arrIdx >= 0 && arrIdx < start) {
		start = arrIdx
	}
	if start < 0 {
		return text
	}
	if extracted := extractJSON(text[start:]); extracted != "" {
		return extracted
	}
	return text
}

func extractJSON(text string) string {
	if strings.HasPrefix(text, "[") {
		return extractJSONArray(text)
	}
	return extractJSONObject(text)
}

// extractJSONObject returns the balanced object at the start of text
func extractJSONObject(text string) string {
	return extractBalanced(text, '{', '}')
}

// extractJSONArray returns the balanced array at the start of text
func extractJSONArray(text string) string {
	return extractBalanced(text, '[', ']')
}

func extractBalanced(text string, open, close byte) string {
	if len(text) == 0 || text[0] != open {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}
	return ""
}

var punctuationReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`,
	"‘", "'", "’", "'",
	"：", ":", "，", ",",
)

// RepairJSON applies lenient fixes for common model mistakes: curly quotes, full-width
// punctuation and trailing commas. Only call it after a strict parse has failed since
// quote normalization can alter string contents.
func RepairJSON(text string) string {
	text = punctuationReplacer.Replace(text)
	return trailingCommaRe.ReplaceAllString(text, "$1")
}

// SanitizeControl drops control characters other than newline, carriage return and tab
func SanitizeControl(text string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		if r == 0x7f {
			return -1
		}
		return r
	}, text)
}
