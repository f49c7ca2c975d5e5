// Package langdetect guesses the language of a file or snippet and maps it
// to a grammar scope. It uses go-enry for file names, shebangs and its
// classifier, with a few cheap content checks in front of the classifier.
package langdetect

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Normalized language names.
const (
	langC          = "c"
	langCpp        = "c++"
	langGo         = "go"
	langPython     = "python"
	langJavaScript = "javascript"
	langJSON       = "json"
	langYAML       = "yaml"
	langXML        = "xml"
	langPlist      = "xml property list"
	langHTML       = "html"
	langSQL        = "sql"
	langRust       = "rust"
	langText       = "text"
	langBash       = "bash"
)

// PlainTextScope is returned for anything that cannot be identified.
const PlainTextScope = "text.plain"

//nolint:gochecknoglobals // Static lookup table.
var scopes = map[string]string{
	langC:          "source.c",
	langCpp:        "source.c++",
	langGo:         "source.go",
	langPython:     "source.python",
	langJavaScript: "source.js",
	"typescript":   "source.ts",
	langJSON:       "source.json",
	langYAML:       "source.yaml",
	langXML:        "text.xml",
	langPlist:      "text.xml.plist",
	langHTML:       "text.html.basic",
	langSQL:        "source.sql",
	langRust:       "source.rust",
	langBash:       "source.shell",
	"ruby":         "source.ruby",
	"java":         "source.java",
	"css":          "source.css",
	"markdown":     "text.html.markdown",
	"dockerfile":   "source.dockerfile",
	"makefile":     "source.makefile",
	langText:       PlainTextScope,
}

//nolint:gochecknoglobals // Static candidate list.
var classifierCandidates = []string{
	"C", "C++", "Go", "Python", "Shell", "JavaScript", "TypeScript",
	"Ruby", "Rust", "Java", "SQL", "JSON", "YAML", "XML", "HTML", "CSS",
	"Markdown", "Dockerfile",
}

// Scope returns the grammar scope for a normalized language name, or
// PlainTextScope.
func Scope(lang string) string {
	if scope, ok := scopes[normalize(lang)]; ok {
		return scope
	}
	return PlainTextScope
}

// ScopeFor guesses the scope of a file from its name and content.
func ScopeFor(filename string, content []byte) string {
	return Scope(Language(filename, content))
}

// Language returns the language of a file. The file name wins when go-enry
// is sure about it; otherwise the content decides.
func Language(filename string, content []byte) string {
	if filename != "" {
		base := filepath.Base(filename)
		if lang, safe := enry.GetLanguageByFilename(base); safe {
			return normalize(lang)
		}
		if lang, safe := enry.GetLanguageByExtension(base); safe {
			return normalize(lang)
		}
	}
	return Detect(content)
}

// Detect returns the language of a snippet, or "text" when unsure.
func Detect(content []byte) string {
	if len(bytes.TrimSpace(content)) == 0 {
		return langText
	}

	// A shebang is the most reliable signal.
	if lang, safe := enry.GetLanguageByShebang(content); safe {
		return normalize(lang)
	}

	for _, detect := range detectors {
		if lang := detect(content); lang != "" {
			return lang
		}
	}

	if lang, safe := enry.GetLanguageByClassifier(content, classifierCandidates); safe && lang != "" {
		return normalize(lang)
	}

	return langText
}

type detector func(content []byte) string

// detectors run in order of specificity.
//
//nolint:gochecknoglobals // Static detector chain.
var detectors = []detector{
	detectXML,
	detectGo,
	detectCpp,
	detectC,
	detectPython,
	detectJSON,
	detectSQL,
	detectRust,
	detectJavaScript,
	detectYAML,
}

func detectXML(content []byte) string {
	trimmed := bytes.TrimSpace(content)
	if !bytes.HasPrefix(trimmed, []byte("<?xml")) && !bytes.HasPrefix(trimmed, []byte("<plist")) {
		lower := bytes.ToLower(trimmed)
		if bytes.Contains(lower, []byte("<!doctype html")) || bytes.Contains(lower, []byte("<html")) {
			return langHTML
		}
		return ""
	}
	if bytes.Contains(content, []byte("<!DOCTYPE plist")) || bytes.Contains(content, []byte("<plist")) {
		return langPlist
	}
	return langXML
}

func detectGo(content []byte) string {
	if bytes.HasPrefix(bytes.TrimSpace(content), []byte("package ")) {
		return langGo
	}
	return ""
}

func detectCpp(content []byte) string {
	s := string(content)
	if strings.Contains(s, "std::") ||
		strings.Contains(s, "template <") || strings.Contains(s, "template<") ||
		strings.Contains(s, "namespace ") ||
		(strings.Contains(s, "class ") && strings.Contains(s, "};")) {
		return langCpp
	}
	return ""
}

func detectC(content []byte) string {
	s := string(content)
	if strings.Contains(s, "#include <") || strings.Contains(s, "#include \"") ||
		strings.Contains(s, "int main(") {
		return langC
	}
	return ""
}

func detectPython(content []byte) string {
	s := string(content)
	if strings.Contains(s, "def ") && strings.Contains(s, "):") {
		return langPython
	}
	if strings.Contains(s, "__name__") || strings.Contains(s, "__main__") {
		return langPython
	}
	if strings.HasPrefix(strings.TrimSpace(s), "import ") && !strings.Contains(s, "import (") {
		return langPython
	}
	return ""
}

func detectJSON(content []byte) string {
	trimmed := bytes.TrimSpace(content)
	if (bytes.HasPrefix(trimmed, []byte("{")) || bytes.HasPrefix(trimmed, []byte("["))) &&
		bytes.Contains(trimmed, []byte(`"`)) {
		return langJSON
	}
	return ""
}

func detectSQL(content []byte) string {
	upper := strings.ToUpper(strings.TrimSpace(string(content)))
	for _, kw := range []string{"SELECT ", "INSERT ", "UPDATE ", "DELETE ", "CREATE "} {
		if strings.HasPrefix(upper, kw) {
			return langSQL
		}
	}
	return ""
}

func detectRust(content []byte) string {
	s := string(content)
	if strings.Contains(s, "fn main()") || strings.Contains(s, "println!") || strings.Contains(s, "let mut ") {
		return langRust
	}
	return ""
}

func detectJavaScript(content []byte) string {
	s := string(content)
	if strings.Contains(s, "=>") || strings.Contains(s, "const ") || strings.Contains(s, "console.log") {
		return langJavaScript
	}
	return ""
}

// detectYAML counts "key: value" lines and list items.
func detectYAML(content []byte) string {
	keys := 0
	for _, line := range bytes.Split(content, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || bytes.HasPrefix(line, []byte("#")) {
			continue
		}
		if bytes.Contains(line, []byte(": ")) &&
			!bytes.ContainsAny(line, "({") && !bytes.HasPrefix(line, []byte(`"`)) {
			keys++
		}
		if bytes.HasPrefix(line, []byte("- ")) {
			keys++
		}
	}
	if keys >= 2 {
		return langYAML
	}
	return ""
}

// normalize converts go-enry language names to the keys of the scope table.
func normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	switch lang {
	case "shell", "sh", "zsh":
		return langBash
	case "cpp", "c plus plus":
		return langCpp
	case "js":
		return langJavaScript
	case "yml":
		return langYAML
	case "plist":
		return langPlist
	default:
		return lang
	}
}
