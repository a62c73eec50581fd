package chunker

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tsc "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tsjava "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tsphp "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tspython "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tsruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
	tsrust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tstypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// grammars maps a discover.File language label to its tree-sitter grammar.
// A label absent from this map has no structural backend and falls back
// to the line-based chunker (linechunker.go).
var grammars = map[string]func() *sitter.Language{
	"python":     func() *sitter.Language { return sitter.NewLanguage(tspython.Language()) },
	"rust":       func() *sitter.Language { return sitter.NewLanguage(tsrust.Language()) },
	"java":       func() *sitter.Language { return sitter.NewLanguage(tsjava.Language()) },
	"c":          func() *sitter.Language { return sitter.NewLanguage(tsc.Language()) },
	"ruby":       func() *sitter.Language { return sitter.NewLanguage(tsruby.Language()) },
	"php":        func() *sitter.Language { return sitter.NewLanguage(tsphp.LanguagePHP()) },
	"typescript": func() *sitter.Language { return sitter.NewLanguage(tstypescript.LanguageTypescript()) },
}

// languageFor resolves a grammar constructor for label, if one is wired.
func languageFor(label string) (func() *sitter.Language, bool) {
	ctor, ok := grammars[label]
	return ctor, ok
}
