package chunker

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// structuralChunk walks source with the tree-sitter grammar for label and
// emits one Chunk per node matched by languageRules[label], using a rule
// table instead of hand-written per-language switch statements.
func structuralChunk(label string, source []byte) ([]Chunk, bool) {
	ctor, ok := languageFor(label)
	if !ok {
		return nil, false
	}
	rules, containers := rulesFor(label)
	if len(rules) == 0 {
		return nil, false
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(ctor())

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, false
	}
	defer tree.Close()

	root := tree.RootNode()
	lineOffsets := computeLineOffsets(source)

	w := &walker{
		source:     source,
		rules:      indexRules(rules),
		containers: containers,
		lineAt:     lineOffsets,
	}
	w.walk(root, nil)
	return w.chunks, true
}

type walker struct {
	source     []byte
	rules      map[string]NodeRule
	containers map[string]bool
	lineAt     []int
	path       []string
	chunks     []Chunk
}

func indexRules(rules []NodeRule) map[string]NodeRule {
	m := make(map[string]NodeRule, len(rules))
	for _, r := range rules {
		m[r.NodeKind] = r
	}
	return m
}

func (w *walker) walk(node *sitter.Node, parent *sitter.Node) {
	if node == nil {
		return
	}

	kind := node.Kind()
	if rule, ok := w.rules[kind]; ok {
		if !(rule.TopLevelOnly && len(w.path) > 0) {
			w.emit(node, rule)
		}
	}

	pushed := false
	if w.containers[kind] {
		w.path = append(w.path, breadcrumbName(node, w.source))
		pushed = true
	}

	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		w.walk(node.Child(uint(i)), node)
	}

	if pushed {
		w.path = w.path[:len(w.path)-1]
	}
}

func (w *walker) emit(node *sitter.Node, rule NodeRule) {
	start := int(node.StartByte())
	end := int(node.EndByte())
	doc := leadingDoc(node, w.source)

	text := string(w.source[start:end])
	name := text
	if rule.NameField != "" {
		if n := node.ChildByFieldName(rule.NameField); n != nil {
			name = string(w.source[n.StartByte():n.EndByte()])
		}
	}

	breadcrumb := name
	if len(w.path) > 0 {
		breadcrumb = strings.Join(w.path, "::") + "::" + name
	}

	w.chunks = append(w.chunks, Chunk{
		Span: Span{
			ByteStart: start,
			ByteEnd:   end,
			LineStart: int(node.StartPosition().Row) + 1,
			LineEnd:   int(node.EndPosition().Row) + 1,
		},
		Kind:       rule.Chunk,
		Breadcrumb: breadcrumb,
		Doc:        doc,
		Text:       text,
	})
}

// breadcrumbName resolves the identifying name of a container node for
// breadcrumb construction, falling back to its kind if it carries no
// "name" field (e.g. Rust's impl_item uses "type").
func breadcrumbName(node *sitter.Node, source []byte) string {
	for _, field := range []string{"name", "type"} {
		if n := node.ChildByFieldName(field); n != nil {
			return string(source[n.StartByte():n.EndByte()])
		}
	}
	return node.Kind()
}

// leadingDoc returns the text of an immediately preceding comment sibling,
// the closest tree-sitter equivalent of a docstring/doc-comment across the
// grammars wired here (none of which expose a dedicated "doc_comment"
// node distinct from the generic comment node).
func leadingDoc(node *sitter.Node, source []byte) string {
	prev := node.PrevSibling()
	if prev == nil {
		return ""
	}
	if !strings.Contains(prev.Kind(), "comment") {
		return ""
	}
	return string(source[prev.StartByte():prev.EndByte()])
}

// computeLineOffsets returns the byte offset at which each line of source
// starts. structuralChunk stores the result on the walker (lineAt), but
// emit takes line numbers from the nodes' own StartPosition/EndPosition
// and never reads it; linechunker.go does not use it either.
func computeLineOffsets(source []byte) []int {
	offsets := make([]int, 0, bytesCountNewlines(source)+1)
	offsets = append(offsets, 0)
	for i, b := range source {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

func bytesCountNewlines(source []byte) int {
	n := 0
	for _, b := range source {
		if b == '\n' {
			n++
		}
	}
	return n
}
