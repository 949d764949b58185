package chunker

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
)

// Language identifies a supported source language.
type Language string

// Supported languages.
const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
)

var extensions = map[string]Language{
	".py":  LanguagePython,
	".pyw": LanguagePython,
	".js":  LanguageJavaScript,
	".mjs": LanguageJavaScript,
	".cjs": LanguageJavaScript,
}

// LanguageForPath returns the language for a file path based on its extension.
func LanguageForPath(path string) (Language, bool) {
	lang, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// SupportedExtensions returns every file extension a chunker exists for.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensions))
	for ext := range extensions {
		exts = append(exts, ext)
	}
	return exts
}

// grammar returns the tree-sitter grammar and the top-level rules for a language.
func grammar(lang Language) (*sitter.Language, ruleSet, bool) {
	switch lang {
	case LanguagePython:
		return python.GetLanguage(), pythonRules{}, true
	case LanguageJavaScript:
		return javascript.GetLanguage(), javascriptRules{}, true
	default:
		return nil, nil, false
	}
}

// ruleSet classifies top-level syntax nodes for one language.
type ruleSet interface {
	// classify returns the unit a top-level node contributes.
	// ok is false for nodes that are not statements (comments).
	classify(node *sitter.Node, src []byte) (u unit, ok bool)
}
