package parser

import (
	"sort"
	"strings"
	"unicode"

	"github.com/sozercan/gemini-mole/apimodels"
)

const fence = "```"

// sourceFilenames maps each supported language tag to the entry file name used
// when exporting a snippet to Replit.
var sourceFilenames = map[string]string{
	"python":     "main.py",
	"javascript": "index.js",
	"go":         "main.go",
	"java":       "Main.java",
	"kotlin":     "Main.kt",
	"php":        "index.php",
	"c#":         "main.cs",
	"swift":      "main.swift",
	"r":          "main.r",
	"ruby":       "main.rb",
	"c":          "main.c",
	"c++":        "main.cpp",
	"matlab":     "main.m",
	"typescript": "main.ts",
	"scala":      "main.scala",
	"sql":        "main.sql",
	"html":       "index.html",
	"css":        "style.css",
	"nosql":      "main.nosql",
	"rust":       "main.rs",
	"perl":       "main.pl",
}

// SupportedLanguages returns the language tags accepted by
// ExtractLanguageCode, sorted.
func SupportedLanguages() []string {
	langs := make([]string, 0, len(sourceFilenames))
	for l := range sourceFilenames {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// SourceFilename returns the conventional entry file for language.
func SourceFilename(language string) (string, error) {
	lang := strings.ToLower(strings.TrimSpace(language))
	name, ok := sourceFilenames[lang]
	if !ok {
		return "", &UnsupportedLanguageError{Language: language, Supported: SupportedLanguages()}
	}
	return name, nil
}

// ExtractCode pulls every fenced block out of text. A language tag on the
// opening fence line is dropped. With no blocks the original text is returned
// as the value.
func ExtractCode(text string) apimodels.CodeBlocks {
	raw := scanFences(text, fence, func(string) bool { return true })
	snippets := make([]string, 0, len(raw))
	for _, s := range raw {
		snippets = append(snippets, strings.TrimSpace(dropInfoString(s)))
	}
	return apimodels.NewCodeBlocks(text, snippets)
}

// ExtractLanguageCode is ExtractCode restricted to blocks whose opening fence
// is tagged with language exactly.
func ExtractLanguageCode(text, language string) (apimodels.CodeBlocks, error) {
	lang := strings.ToLower(strings.TrimSpace(language))
	if _, ok := sourceFilenames[lang]; !ok {
		return apimodels.CodeBlocks{}, &UnsupportedLanguageError{Language: language, Supported: SupportedLanguages()}
	}

	// the tag must end at a boundary so "c" does not match "c++" or "csharp"
	atBoundary := func(rest string) bool {
		if rest == "" {
			return true
		}
		r := rune(rest[0])
		return unicode.IsSpace(r) || strings.HasPrefix(rest, fence)
	}
	raw := scanFences(text, fence+lang, atBoundary)
	snippets := make([]string, 0, len(raw))
	for _, s := range raw {
		snippets = append(snippets, strings.TrimSpace(s))
	}
	return apimodels.NewCodeBlocks(text, snippets), nil
}

// scanFences returns the text between each opening marker and the next
// closing fence. accept is called with the text following a candidate opening
// marker and may reject it.
func scanFences(text, open string, accept func(rest string) bool) []string {
	var out []string
	pos := 0
	for pos < len(text) {
		i := strings.Index(text[pos:], open)
		if i == -1 {
			break
		}
		start := pos + i + len(open)
		if !accept(text[start:]) {
			pos = pos + i + 1
			continue
		}
		j := strings.Index(text[start:], fence)
		if j == -1 {
			break
		}
		out = append(out, text[start:start+j])
		pos = start + j + len(fence)
	}
	return out
}

// infoStrings are fence tags the front-end emits besides sourceFilenames.
var infoStrings = map[string]bool{
	"bash": true, "sh": true, "shell": true, "zsh": true, "console": true, "powershell": true,
	"js": true, "jsx": true, "ts": true, "tsx": true, "py": true, "python3": true,
	"cpp": true, "csharp": true, "cs": true, "objective-c": true, "dart": true, "lua": true,
	"json": true, "yaml": true, "yml": true, "toml": true, "xml": true, "ini": true,
	"markdown": true, "md": true, "diff": true, "dockerfile": true, "makefile": true,
	"text": true, "plaintext": true, "graphql": true, "haskell": true, "scss": true,
}

// dropInfoString removes a known language tag sitting alone on the opening
// fence line. Any other first line is code and is kept.
func dropInfoString(s string) string {
	nl := strings.IndexByte(s, '\n')
	if nl <= 0 {
		return s
	}
	if !isLanguageTag(s[:nl]) {
		return s
	}
	return s[nl+1:]
}

func isLanguageTag(s string) bool {
	tag := strings.ToLower(strings.TrimSpace(s))
	if _, ok := sourceFilenames[tag]; ok {
		return true
	}
	return infoStrings[tag]
}
