package starter

import (
	"path"
	"regexp"
	"strings"
)

// extensions maps lower-cased language names and aliases to file extensions
var extensions = map[string]string{
	"swift":       ".swift",
	"kotlin":      ".kt",
	"java":        ".java",
	"python":      ".py",
	"py":          ".py",
	"typescript":  ".ts",
	"ts":          ".ts",
	"javascript":  ".js",
	"js":          ".js",
	"node":        ".js",
	"nodejs":      ".js",
	"go":          ".go",
	"golang":      ".go",
	"rust":        ".rs",
	"ruby":        ".rb",
	"csharp":      ".cs",
	"c#":          ".cs",
	"cpp":         ".cpp",
	"c++":         ".cpp",
	"php":         ".php",
	"dart":        ".dart",
	"flutter":     ".dart",
	"scala":       ".scala",
	"sql":         ".sql",
	"objective-c": ".m",
	"r":           ".R",
	"shell":       ".sh",
	"bash":        ".sh",
}

// DefaultExtension is used for languages missing from the table
const DefaultExtension = ".txt"

// ExtensionFor returns the source file extension for a language. Unknown languages get DefaultExtension.
func ExtensionFor(language string) string {
	if ext, ok := extensions[strings.ToLower(strings.TrimSpace(language))]; ok {
		return ext
	}
	return DefaultExtension
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename returns a safe base file name for the starter file. A requested filename
// keeps its own extension when it already has one; otherwise the language extension is added.
func Filename(requested, language, fallbackBase string) string {
	base := strings.TrimSpace(requested)
	if base != "" {
		base = path.Base(strings.ReplaceAll(base, "\\", "/"))
	}
	base = strings.Trim(unsafeFilenameChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		base = strings.Trim(unsafeFilenameChars.ReplaceAllString(fallbackBase, "_"), "._")
	}
	if base == "" {
		base = "starter"
	}
	if path.Ext(base) == "" {
		base += ExtensionFor(language)
	}
	return base
}
